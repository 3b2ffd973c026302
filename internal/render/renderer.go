package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/heimdex/gifforge/internal/caption"
	"github.com/heimdex/gifforge/internal/faults"
	"github.com/heimdex/gifforge/internal/media"
	"github.com/heimdex/gifforge/internal/storage"
)

// FrameSource decodes a time range of a video into image files.
type FrameSource interface {
	ExtractFrames(ctx context.Context, inPath string, start, end float64, fps int, workDir string) ([]string, error)
}

// Request describes one clip to render.
type Request struct {
	Video     string
	Window    Window
	Caption   string
	Slot      int
	OutputDir string
	// WorkDir holds intermediate frames; a per-slot subdirectory is used
	// and removed afterwards.
	WorkDir string
}

// Clip is a rendered GIF.
type Clip struct {
	Path   string
	Index  int
	Window Window
	Text   string
	Frames int
	Bytes  int64
}

type Options struct {
	FPS   int
	Width int
	Fuzz  float64
}

func DefaultOptions() Options {
	return Options{FPS: media.DefaultFPS, Width: DefaultWidth, Fuzz: DefaultFuzz}
}

type Renderer struct {
	frames     FrameSource
	compositor *caption.Compositor
	opts       Options
	logger     *slog.Logger
}

func NewRenderer(frames FrameSource, compositor *caption.Compositor, opts Options, logger *slog.Logger) *Renderer {
	if opts.FPS <= 0 {
		opts.FPS = media.DefaultFPS
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	return &Renderer{frames: frames, compositor: compositor, opts: opts, logger: logger}
}

// Render extracts the window, captions every frame and writes gif_<slot>.gif.
func (r *Renderer) Render(ctx context.Context, req Request) (Clip, error) {
	if req.Window.End <= req.Window.Start {
		return Clip{}, faults.Wrap(faults.ErrRender, "render", "window", "empty clip window", nil)
	}

	frameDir := filepath.Join(req.WorkDir, "clip_"+strconv.Itoa(req.Slot))
	defer os.RemoveAll(frameDir)

	paths, err := r.frames.ExtractFrames(ctx, req.Video, req.Window.Start, req.Window.End, r.opts.FPS, frameDir)
	if err != nil {
		return Clip{}, faults.Wrap(faults.ErrRender, "render", "extract", fmt.Sprintf("clip %d", req.Slot), err)
	}

	enc := NewEncoder(r.opts.FPS, r.opts.Fuzz)
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return Clip{}, faults.Wrap(faults.ErrRender, "render", "compose", "cancelled", err)
		}
		frame, err := media.LoadFrame(p)
		if err != nil {
			return Clip{}, faults.Wrap(faults.ErrRender, "render", "decode", fmt.Sprintf("clip %d", req.Slot), err)
		}
		captioned := r.compositor.Compose(frame, req.Caption)
		enc.Add(Resize(captioned, r.opts.Width))
	}

	outPath := filepath.Join(req.OutputDir, storage.OutputName(req.Slot))
	size, err := writeAtomic(outPath, enc)
	if err != nil {
		return Clip{}, faults.Wrap(faults.ErrRender, "render", "encode", fmt.Sprintf("clip %d", req.Slot), err)
	}

	if r.logger != nil {
		r.logger.Info("clip rendered",
			"slot", req.Slot,
			"start", req.Window.Start,
			"end", req.Window.End,
			"frames", enc.Frames(),
			"bytes", size,
		)
	}

	return Clip{
		Path:   outPath,
		Index:  req.Slot,
		Window: req.Window,
		Text:   req.Caption,
		Frames: enc.Frames(),
		Bytes:  size,
	}, nil
}

func writeAtomic(path string, enc *Encoder) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".gif-*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	if err := enc.Encode(tmp); err != nil {
		tmp.Close()
		return 0, err
	}
	info, err := tmp.Stat()
	if err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, err
	}
	return info.Size(), nil
}
