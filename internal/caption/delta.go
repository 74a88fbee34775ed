package caption

import (
	"strings"
	"unicode/utf8"
)

// ExtractDelta returns the part of newText that has not been narrated yet,
// given the last processed snapshot. An empty result means there is nothing
// new to say.
//
// Captions usually grow by appending words, so when newText contains last the
// remainder around the match is returned: the trailing text when the match is
// at the start, the leading text otherwise. A snapshot that shrank is a
// correction and yields nothing. Unrelated snapshots fall back to a longest
// common substring search; if the overlap covers more than half of last, the
// longer side around it is the delta, else newText is new content.
//
// The result is never trimmed: the delta of "Hello there" after "Hello" is
// " there".
func ExtractDelta(newText, last string) string {
	if last == "" {
		return newText
	}
	if newText == last {
		return ""
	}

	if i := strings.Index(newText, last); i >= 0 {
		prefix := newText[:i]
		suffix := newText[i+len(last):]
		if i == 0 {
			return suffix
		}
		return prefix
	}

	if strings.Contains(last, newText) {
		return ""
	}

	common := longestCommonSubstring(last, newText)
	if common == "" || 2*utf8.RuneCountInString(common) <= utf8.RuneCountInString(last) {
		return newText
	}

	i := strings.Index(newText, common)
	prefix := newText[:i]
	suffix := newText[i+len(common):]
	if prefix != "" && suffix != "" {
		if utf8.RuneCountInString(prefix) > utf8.RuneCountInString(suffix) {
			return prefix
		}
		return suffix
	}
	if prefix != "" {
		return prefix
	}
	return suffix
}

// longestCommonSubstring returns the longest rune run shared by a and b. Ties
// resolve to the run that occurs first in a.
func longestCommonSubstring(a, b string) string {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return ""
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	best, bestEnd := 0, 0

	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > best {
					best, bestEnd = cur[j], i
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}

	return string(ra[bestEnd-best : bestEnd])
}
