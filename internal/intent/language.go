package intent

import "unicode"

// Language tags used for spoken responses.
const (
	LangEnglish  = "en-IN"
	LangHindi    = "hi-IN"
	LangTamil    = "ta-IN"
	LangTelugu   = "te-IN"
	LangGujarati = "gu-IN"
)

var scriptLanguages = []struct {
	script *unicode.RangeTable
	tag    string
}{
	{unicode.Devanagari, LangHindi},
	{unicode.Tamil, LangTamil},
	{unicode.Telugu, LangTelugu},
	{unicode.Gujarati, LangGujarati},
}

// DetectLanguage picks the response language from the scripts present in
// text. Devanagari wins over Tamil, Tamil over Telugu, Telugu over Gujarati;
// text in none of them is English.
func DetectLanguage(text string) string {
	var seen [4]bool
	for _, r := range text {
		if r < 0x0900 {
			continue
		}
		for i, sl := range scriptLanguages {
			if unicode.Is(sl.script, r) {
				seen[i] = true
				break
			}
		}
	}
	for i, ok := range seen {
		if ok {
			return scriptLanguages[i].tag
		}
	}
	return LangEnglish
}
