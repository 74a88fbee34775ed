package caption

import (
	"strings"
	"unicode/utf8"
)

// Similarity defaults.
const (
	DefaultSimilarityThreshold = 0.95
	DefaultShortLength         = 5
	DefaultLengthSlack         = 5
)

// Similarity decides whether a candidate utterance repeats recently spoken
// text.
type Similarity struct {
	// Threshold is the character overlap above which texts are duplicates.
	Threshold float64
	// ShortLength is the length below which only containment counts.
	ShortLength int
	// LengthSlack is the largest length difference that still makes
	// containment a duplicate (exclusive).
	LengthSlack int
}

// NewSimilarity returns the default similarity policy.
func NewSimilarity() Similarity {
	return Similarity{
		Threshold:   DefaultSimilarityThreshold,
		ShortLength: DefaultShortLength,
		LengthSlack: DefaultLengthSlack,
	}
}

// IsDuplicate reports whether candidate matches any entry in history.
func (s Similarity) IsDuplicate(candidate string, history []string) bool {
	for _, h := range history {
		if s.matches(candidate, h) {
			return true
		}
	}
	return false
}

// IsDuplicate runs the default similarity policy.
func IsDuplicate(candidate string, history []string) bool {
	return NewSimilarity().IsDuplicate(candidate, history)
}

func (s Similarity) matches(candidate, entry string) bool {
	if candidate == entry {
		return true
	}

	n := utf8.RuneCountInString(candidate)
	if n < s.ShortLength {
		return strings.Contains(entry, candidate)
	}

	if strings.Contains(candidate, entry) || strings.Contains(entry, candidate) {
		if abs(n-utf8.RuneCountInString(entry)) < s.LengthSlack {
			return true
		}
	}

	return Overlap(candidate, entry) > s.Threshold
}

// Overlap returns the fraction of runes in the shorter string that also occur
// anywhere in the longer one.
func Overlap(a, b string) float64 {
	short, long := a, b
	if utf8.RuneCountInString(short) > utf8.RuneCountInString(long) {
		short, long = long, short
	}

	total := utf8.RuneCountInString(short)
	if total == 0 {
		return 0
	}

	present := make(map[rune]struct{}, len(long))
	for _, r := range long {
		present[r] = struct{}{}
	}

	common := 0
	for _, r := range short {
		if _, ok := present[r]; ok {
			common++
		}
	}
	return float64(common) / float64(total)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
