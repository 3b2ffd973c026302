// Package transcribe turns extracted audio into timed transcript segments.
package transcribe

import (
	"fmt"
	"math"
)

// Word is one timed word inside a segment.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment is a contiguous piece of speech. Times are in seconds.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Words []Word  `json:"words,omitempty"`
	// Placeholder marks filler synthesized for videos without audio.
	Placeholder bool `json:"placeholder,omitempty"`
}

// Duration returns End - Start.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

const maxPlaceholderLength = 5.0

// Placeholders splits a silent video into labelled segments of
// min(5, duration/3) seconds covering [0, duration].
func Placeholders(duration float64) []Segment {
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return nil
	}
	length := math.Min(maxPlaceholderLength, duration/3)

	var segments []Segment
	for current, index := 0.0, 1; current < duration; index++ {
		end := math.Min(current+length, duration)
		// Float drift can leave a sliver at the tail; fold it into the last segment.
		if duration-end < 1e-9 {
			end = duration
		}
		segments = append(segments, Segment{
			Text:        fmt.Sprintf("Segment %d (No audio)", index),
			Start:       current,
			End:         end,
			Placeholder: true,
		})
		current = end
	}
	return segments
}

// normalize drops empty or inverted segments and orders by start time.
func normalize(segments []Segment) []Segment {
	out := segments[:0]
	for _, s := range segments {
		if s.End <= s.Start {
			continue
		}
		out = append(out, s)
	}
	sortByStart(out)
	return out
}
