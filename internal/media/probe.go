package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Info is the subset of ffprobe output the pipeline needs.
type Info struct {
	Duration     float64
	Width        int
	Height       int
	VideoStreams int
	AudioStreams int
}

// HasAudio reports whether the container carries at least one audio stream.
func (i Info) HasAudio() bool { return i.AudioStreams > 0 }

type probeResult struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Duration  string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Inspect runs ffprobe against path and summarises its streams.
func (f *FFmpeg) Inspect(ctx context.Context, path string) (Info, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Info{}, errors.New("ffprobe inspect: empty path")
	}

	res, err := f.runner.Run(ctx, f.ffprobe, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	if err != nil {
		return Info{}, fmt.Errorf("ffprobe inspect: %w", err)
	}
	return parseProbe(res.Stdout)
}

func parseProbe(data []byte) (Info, error) {
	var raw probeResult
	if err := json.Unmarshal(data, &raw); err != nil {
		return Info{}, fmt.Errorf("ffprobe parse: %w", err)
	}

	var info Info
	var streamDuration float64
	for _, s := range raw.Streams {
		switch strings.ToLower(s.CodecType) {
		case "video":
			info.VideoStreams++
			if info.Width == 0 {
				info.Width, info.Height = s.Width, s.Height
			}
			if d := parseFloat(s.Duration); d > streamDuration {
				streamDuration = d
			}
		case "audio":
			info.AudioStreams++
		}
	}
	info.Duration = parseFloat(raw.Format.Duration)
	if info.Duration <= 0 {
		info.Duration = streamDuration
	}
	return info, nil
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0
	}
	return parsed
}
