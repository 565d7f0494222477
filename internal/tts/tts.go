package tts

import "context"

// MimeType is the audio format every Synthesizer returns.
const MimeType = "audio/mpeg"

// Synthesizer defines the interface for text-to-speech providers.
type Synthesizer interface {
	// Synthesize converts text to speech in the language given by a BCP 47
	// tag such as "hi-IN" and returns MP3 audio.
	Synthesize(ctx context.Context, text, languageTag string) ([]byte, error)
}

// Voice is a curated voice option for spoken feedback.
type Voice struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Gender      string   `json:"gender"`
	Languages   []string `json:"languages"`
}

// CuratedVoices are the voices offered to sellers, in preference order per
// language. All of them speak every supported language through the
// multilingual model; Languages lists where each one sounds most natural.
var CuratedVoices = []Voice{
	{ID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel", Description: "Friendly, professional", Gender: "female", Languages: []string{"en-IN"}},
	{ID: "MF3mGyEYCl7XYWbV9V6O", Name: "Aria", Description: "Expressive, natural", Gender: "female", Languages: []string{"hi-IN", "gu-IN"}},
	{ID: "EXAVITQu4vr4xnSDxMaL", Name: "Sarah", Description: "Soft, calm", Gender: "female", Languages: []string{"ta-IN", "te-IN"}},
	{ID: "pNInz6obpgDQGcFmaJgB", Name: "Adam", Description: "Deep, trustworthy", Gender: "male", Languages: []string{"en-IN", "hi-IN"}},
	{ID: "ErXwobaYiN019PkySvjV", Name: "Antoni", Description: "Young, energetic", Gender: "male", Languages: []string{"ta-IN", "te-IN", "gu-IN"}},
}

// defaultVoiceID is Rachel.
const defaultVoiceID = "21m00Tcm4TlvDq8ikWAM"

// VoiceFor returns the first curated voice for languageTag, or Rachel.
func VoiceFor(languageTag string) Voice {
	for _, v := range CuratedVoices {
		for _, lang := range v.Languages {
			if lang == languageTag {
				return v
			}
		}
	}
	return CuratedVoices[0]
}

// VoicesFor returns the curated voices suited to languageTag. An empty tag
// returns the full list.
func VoicesFor(languageTag string) []Voice {
	if languageTag == "" {
		return CuratedVoices
	}
	var out []Voice
	for _, v := range CuratedVoices {
		for _, lang := range v.Languages {
			if lang == languageTag {
				out = append(out, v)
				break
			}
		}
	}
	return out
}
