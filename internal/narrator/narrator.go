package narrator

import (
	"context"
	"log"
	"strings"

	"github.com/lukasbauer/vocalkart/internal/tts"
)

// Player plays synthesized audio to the user.
type Player interface {
	Play(ctx context.Context, audio []byte, mimeType string) error
}

// Narrator speaks response messages. It never returns an error: a failed
// narration is logged and the turn carries on.
type Narrator struct {
	tts    tts.Synthesizer
	player Player
	logger *log.Logger
}

// New creates a narrator. A nil synthesizer or player turns Speak into a
// logged no-op, which is how text-only sessions run.
func New(synth tts.Synthesizer, player Player, logger *log.Logger) *Narrator {
	return &Narrator{tts: synth, player: player, logger: logger}
}

// Speak synthesizes text in languageTag and plays it.
func (n *Narrator) Speak(ctx context.Context, text, languageTag string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if n.tts == nil || n.player == nil {
		n.logger.Printf("narrator: no audio output, dropping %q", text)
		return
	}

	audio, err := n.tts.Synthesize(ctx, text, languageTag)
	if err != nil {
		n.logger.Printf("narrator: synthesize failed: %v", err)
		return
	}
	if len(audio) == 0 {
		n.logger.Printf("narrator: synthesizer returned no audio")
		return
	}
	if err := n.player.Play(ctx, audio, tts.MimeType); err != nil {
		n.logger.Printf("narrator: play failed: %v", err)
	}
}
