package caption

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Filter defaults.
const (
	DefaultMinLength = 2
	DefaultMaxLength = 300
)

// RejectReason explains why a snapshot is not speakable.
type RejectReason int

const (
	Accepted RejectReason = iota
	Empty
	TooShort
	TooLong
	Markup
	MenuChrome
)

// String returns the string representation of the reason.
func (r RejectReason) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case Empty:
		return "empty"
	case TooShort:
		return "too short"
	case TooLong:
		return "too long"
	case Markup:
		return "markup"
	case MenuChrome:
		return "menu chrome"
	default:
		return "unknown"
	}
}

// Verdict is the outcome of classifying one snapshot.
type Verdict struct {
	Text   string
	Reason RejectReason
}

// OK reports whether the snapshot is usable.
func (v Verdict) OK() bool { return v.Reason == Accepted }

// Phrases rendered by caption settings menus. Any snapshot containing one of
// these is not a caption.
var menuPhrases = []string{
	">>",
	"查看设置",
	"点击",
	"运行时完成答案",
	"自动生成",
	"click to configure",
	"view settings",
	"auto-generated",
}

// Language-switch prompts list both names side by side.
var menuPairs = [][2]string{
	{"英语", "中文"},
	{"english", "chinese"},
}

// Caption tracks announce their language as a single bare token.
var languageTokens = map[string]struct{}{
	"english":  {},
	"中文":       {},
	"japanese": {},
	"spanish":  {},
	"french":   {},
	"german":   {},
	"russian":  {},
}

// Filter classifies raw caption text. The zero value is not usable; build one
// with NewFilter.
type Filter struct {
	MinLength int
	MaxLength int
}

// NewFilter returns a filter with the default length bounds.
func NewFilter() Filter {
	return Filter{MinLength: DefaultMinLength, MaxLength: DefaultMaxLength}
}

// Classify normalizes raw and decides whether it is speakable caption text.
// Lengths are counted in runes.
func (f Filter) Classify(raw string) Verdict {
	text := strings.TrimSpace(norm.NFC.String(raw))
	if text == "" {
		return Verdict{Reason: Empty}
	}

	n := utf8.RuneCountInString(text)
	if n < f.MinLength {
		return Verdict{Text: text, Reason: TooShort}
	}
	if n > f.MaxLength {
		return Verdict{Text: text, Reason: TooLong}
	}

	if looksLikeMarkup(text) {
		return Verdict{Text: text, Reason: Markup}
	}
	if isMenuChrome(text) {
		return Verdict{Text: text, Reason: MenuChrome}
	}

	return Verdict{Text: text, Reason: Accepted}
}

// Classify runs the default filter.
func Classify(raw string) Verdict {
	return NewFilter().Classify(raw)
}

func looksLikeMarkup(text string) bool {
	if strings.Contains(text, "{") && strings.Contains(text, "}") {
		return true
	}
	return strings.Contains(text, "<") && strings.Contains(text, ">")
}

func isMenuChrome(text string) bool {
	lower := strings.ToLower(text)
	if _, ok := languageTokens[lower]; ok {
		return true
	}
	for _, p := range menuPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	for _, pair := range menuPairs {
		if strings.Contains(lower, pair[0]) && strings.Contains(lower, pair[1]) {
			return true
		}
	}
	return false
}
