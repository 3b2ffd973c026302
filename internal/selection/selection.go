// Package selection ranks transcript segments against a prompt.
package selection

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/heimdex/gifforge/internal/transcribe"
)

const (
	// MaxClips is the most segments a prompt can select.
	MaxClips = 3

	keywordPoints = 5
	lengthPoints  = 3
	idealMin      = 2.0
	idealMax      = 7.0
)

// Scored pairs a segment with its relevance score.
type Scored struct {
	Segment transcribe.Segment
	Score   int
}

// Keywords lowercases prompt and splits it on whitespace. Repeated words
// are kept and count once each.
func Keywords(prompt string) []string {
	return strings.Fields(lower(prompt))
}

// Score rates one segment: 5 per keyword found as a substring of the text,
// plus 3 when the segment lasts between 2 and 7 seconds inclusive.
func Score(seg transcribe.Segment, keywords []string) int {
	text := lower(seg.Text)
	score := 0
	for _, k := range keywords {
		if strings.Contains(text, k) {
			score += keywordPoints
		}
	}
	if d := seg.Duration(); d >= idealMin && d <= idealMax {
		score += lengthPoints
	}
	return score
}

// Result is the outcome of Select.
type Result struct {
	Segments []Scored
	// Fallback is set when no segment scored and the longest ones were taken.
	Fallback bool
}

// Select returns up to MaxClips segments, best first. The transcript is
// never reordered.
func Select(transcript []transcribe.Segment, prompt string) Result {
	keywords := Keywords(prompt)

	var scored []Scored
	for _, seg := range transcript {
		if s := Score(seg, keywords); s > 0 {
			scored = append(scored, Scored{Segment: seg, Score: s})
		}
	}
	if len(scored) > 0 {
		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].Score > scored[j].Score
		})
		if len(scored) > MaxClips {
			scored = scored[:MaxClips]
		}
		return Result{Segments: scored}
	}

	if len(transcript) == 0 {
		return Result{}
	}
	return Result{Segments: Longest(transcript, MaxClips), Fallback: true}
}

// Longest returns the n longest segments, ties kept in transcript order.
func Longest(transcript []transcribe.Segment, n int) []Scored {
	byLength := make([]transcribe.Segment, len(transcript))
	copy(byLength, transcript)
	sort.SliceStable(byLength, func(i, j int) bool {
		return byLength[i].Duration() > byLength[j].Duration()
	})
	if len(byLength) > n {
		byLength = byLength[:n]
	}
	out := make([]Scored, len(byLength))
	for i, seg := range byLength {
		out[i] = Scored{Segment: seg}
	}
	return out
}

// SelectSegments is Select without the scores.
func SelectSegments(transcript []transcribe.Segment, prompt string) []transcribe.Segment {
	res := Select(transcript, prompt)
	out := make([]transcribe.Segment, len(res.Segments))
	for i, s := range res.Segments {
		out[i] = s.Segment
	}
	return out
}

func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}
