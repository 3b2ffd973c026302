package media

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DefaultFPS is the frame rate clips are decoded at.
const DefaultFPS = 12

// FFmpeg shells out to ffmpeg and ffprobe.
type FFmpeg struct {
	ffmpeg  string
	ffprobe string
	runner  Runner
}

func New(ffmpegPath, ffprobePath string, runner Runner) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{ffmpeg: ffmpegPath, ffprobe: ffprobePath, runner: runner}
}

// ExtractAudio writes a 16 kHz mono WAV of the input's first audio stream.
func (f *FFmpeg) ExtractAudio(ctx context.Context, inPath, outWav string) error {
	if err := os.MkdirAll(filepath.Dir(outWav), 0o755); err != nil {
		return fmt.Errorf("create audio dir: %w", err)
	}
	_, err := f.runner.Run(ctx, f.ffmpeg,
		"-y",
		"-nostdin",
		"-loglevel", "error",
		"-i", inPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outWav,
	)
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w", err)
	}
	return nil
}

// ExtractFrames decodes [start, end) of inPath at fps into PNG files under
// workDir and returns them sorted by presentation order.
func (f *FFmpeg) ExtractFrames(ctx context.Context, inPath string, start, end float64, fps int, workDir string) ([]string, error) {
	if end <= start {
		return nil, fmt.Errorf("extract frames: empty range [%.3f, %.3f)", start, end)
	}
	if fps <= 0 {
		fps = DefaultFPS
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create frame dir: %w", err)
	}

	_, err := f.runner.Run(ctx, f.ffmpeg,
		"-y",
		"-nostdin",
		"-loglevel", "error",
		"-ss", FormatSeconds(start),
		"-t", FormatSeconds(end-start),
		"-i", inPath,
		"-an",
		"-vf", "fps="+strconv.Itoa(fps),
		filepath.Join(workDir, "frame_%05d.png"),
	)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg extract frames: %w", err)
	}

	frames, err := ListFrames(workDir)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("ffmpeg extract frames: no frames decoded in [%.3f, %.3f)", start, end)
	}
	return frames, nil
}

// ListFrames returns frame_*.png files in dir in lexical order.
func ListFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame dir: %w", err)
	}
	var frames []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "frame_") || !strings.HasSuffix(name, ".png") {
			continue
		}
		frames = append(frames, filepath.Join(dir, name))
	}
	sort.Strings(frames)
	return frames, nil
}

// LoadFrame decodes one extracted PNG frame.
func LoadFrame(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	img, err := png.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode frame %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// FormatSeconds renders a timestamp with millisecond precision for ffmpeg.
func FormatSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
