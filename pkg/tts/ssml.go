package tts

import (
	"fmt"
	"strings"
)

var ssmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\"", "&quot;",
	"'", "&apos;",
)

// BuildSSML wraps plain text in a speak/voice document for the given voice.
// Slow speech is rendered with a reduced prosody rate.
func BuildSSML(voice, text string, slow bool) string {
	body := ssmlEscaper.Replace(text)
	if slow {
		body = "<prosody rate='-30%'>" + body + "</prosody>"
	}
	return fmt.Sprintf("<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='%s'><voice name='%s'>%s</voice></speak>",
		VoiceLocale(voice), voice, body)
}

// VoiceLocale returns the locale prefix of a neural voice name,
// "en-US" for "en-US-AvaMultilingualNeural".
func VoiceLocale(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) < 3 {
		return "en-US"
	}
	return parts[0] + "-" + parts[1]
}

// VoiceLanguage returns the lowercase language code of a voice name.
func VoiceLanguage(voice string) string {
	return strings.ToLower(strings.SplitN(VoiceLocale(voice), "-", 2)[0])
}

// ResolveVoice picks the voice for lang from voices, trying the exact code
// first and then its primary subtag ("de" for "de-at").
func ResolveVoice(voices map[string]string, lang string) (string, bool) {
	lang = strings.ToLower(lang)
	for k, v := range voices {
		if strings.ToLower(k) == lang && v != "" {
			return v, true
		}
	}
	if i := strings.IndexByte(lang, '-'); i > 0 {
		return ResolveVoice(voices, lang[:i])
	}
	return "", false
}
