// Package render turns a selected transcript segment into a captioned GIF.
package render

import (
	"fmt"
	"math"

	"github.com/heimdex/gifforge/internal/faults"
	"github.com/heimdex/gifforge/internal/transcribe"
)

const (
	// Padding is added before and after every segment.
	Padding = 0.5
	// MinWindow is the shortest clip that will be rendered.
	MinWindow = 0.25
)

// Window is a clip range in seconds.
type Window struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (w Window) Duration() float64 { return w.End - w.Start }

// Derive pads seg by Padding on both sides and clamps it to [0, duration].
// A window shorter than MinWindow is widened from its start, shifted left
// when that would pass the end of the video.
func Derive(seg transcribe.Segment, duration float64) (Window, error) {
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return Window{}, faults.Wrap(faults.ErrRender, "render", "window", fmt.Sprintf("invalid video duration %v", duration), nil)
	}
	if duration < MinWindow {
		return Window{Start: 0, End: duration}, nil
	}

	start := math.Max(0, seg.Start-Padding)
	end := math.Min(seg.End+Padding, duration)
	if end-start >= MinWindow {
		return Window{Start: start, End: end}, nil
	}

	if start+MinWindow > duration {
		start = duration - MinWindow
	}
	return Window{Start: start, End: start + MinWindow}, nil
}
