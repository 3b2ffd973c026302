// Package caption burns wrapped subtitle text onto video frames.
package caption

import (
	"strings"
	"unicode/utf8"
)

// DefaultLineLimit is the per-line character budget.
const DefaultLineLimit = 35

// Wrap breaks text into lines of at most limit runes, greedily. Existing
// line breaks are kept, words are never split, and a word longer than
// limit sits alone on its line. Blank lines are dropped.
func Wrap(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultLineLimit
	}

	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		words := strings.Fields(raw)
		if len(words) == 0 {
			continue
		}
		current := words[0]
		currentLen := utf8.RuneCountInString(current)
		for _, w := range words[1:] {
			wl := utf8.RuneCountInString(w)
			if currentLen+1+wl <= limit {
				current += " " + w
				currentLen += 1 + wl
				continue
			}
			lines = append(lines, current)
			current, currentLen = w, wl
		}
		lines = append(lines, current)
	}
	return lines
}
