package speech

import (
	"strings"

	"golang.org/x/text/language"
)

// DefaultLanguage is spoken when neither the caption nor the configuration
// names a language.
const DefaultLanguage = "en-US"

// ResolveLanguage picks the BCP 47 tag an utterance is spoken in. Translated
// captions use the target language; original captions use the source
// language unless it is "auto", in which case fallback applies.
func ResolveLanguage(translated bool, target, source, fallback string) string {
	switch {
	case translated && target != "":
		return canonicalTag(target)
	case !translated && source != "" && !strings.EqualFold(source, "auto"):
		return canonicalTag(source)
	case fallback != "":
		return canonicalTag(fallback)
	default:
		return DefaultLanguage
	}
}

func canonicalTag(s string) string {
	tag, err := language.Parse(s)
	if err != nil {
		return s
	}
	return tag.String()
}
