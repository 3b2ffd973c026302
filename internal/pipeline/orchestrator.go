// Package pipeline drives one video through transcription, scoring and
// rendering.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/heimdex/gifforge/internal/export"
	"github.com/heimdex/gifforge/internal/faults"
	"github.com/heimdex/gifforge/internal/media"
	"github.com/heimdex/gifforge/internal/render"
	"github.com/heimdex/gifforge/internal/selection"
	"github.com/heimdex/gifforge/internal/transcribe"
)

type State string

const (
	StateStart        State = "start"
	StateTranscribing State = "transcribing"
	StateScoring      State = "scoring"
	StateRendering    State = "rendering"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Branch names a degraded path that still counts as success.
type Branch string

const (
	// BranchNoAudio substitutes placeholder segments for a silent video.
	BranchNoAudio Branch = "no_audio"
	// BranchLongestFallback takes the longest segments when nothing scored.
	BranchLongestFallback Branch = "longest_fallback"
)

// Event is reported to the Observer on every state change or branch.
type Event struct {
	State  State
	Branch Branch
	// Slot is the clip being rendered while in StateRendering.
	Slot int
	Err  error
}

type Observer func(Event)

// Media is the probe and audio side of the decode collaborator.
type Media interface {
	Inspect(ctx context.Context, path string) (media.Info, error)
	ExtractAudio(ctx context.Context, inPath, outWav string) error
}

// ClipRenderer renders one window of a video to a GIF.
type ClipRenderer interface {
	Render(ctx context.Context, req render.Request) (render.Clip, error)
}

type Request struct {
	JobID     string
	Video     string
	Prompt    string
	OutputDir string
	WorkDir   string
	Observer  Observer
}

// Clip is a rendered GIF with the score that selected it.
type Clip struct {
	render.Clip
	Score int
}

type Result struct {
	Clips      []Clip
	Transcript []transcribe.Segment
	Duration   float64
	NoAudio    bool
	Fallback   bool
	Manifest   string
}

type Orchestrator struct {
	media       Media
	transcriber transcribe.Transcriber
	renderer    ClipRenderer
	logger      *slog.Logger
}

func NewOrchestrator(m Media, t transcribe.Transcriber, r ClipRenderer, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{media: m, transcriber: t, renderer: r, logger: logger}
}

// Run executes the whole pipeline. On failure nothing is left in
// req.OutputDir; the work directory is always removed.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	emit := req.Observer
	if emit == nil {
		emit = func(Event) {}
	}
	logger := o.logger.With("job_id", req.JobID)
	started := time.Now()

	defer os.RemoveAll(req.WorkDir)

	emit(Event{State: StateStart})
	res, err := o.run(ctx, req, emit, logger)
	if err != nil {
		if rmErr := os.RemoveAll(req.OutputDir); rmErr != nil {
			logger.Warn("failed to remove partial output", "error", rmErr)
		}
		emit(Event{State: StateFailed, Err: err})
		return nil, err
	}

	emit(Event{State: StateDone})
	logger.Info("pipeline finished",
		"clips", len(res.Clips),
		"no_audio", res.NoAudio,
		"fallback", res.Fallback,
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context, req Request, emit Observer, logger *slog.Logger) (*Result, error) {
	res := &Result{}

	if err := os.MkdirAll(req.WorkDir, 0o755); err != nil {
		return nil, faults.Wrap(faults.ErrRender, "pipeline", "prepare", "create work dir", err)
	}

	emit(Event{State: StateTranscribing})
	info, err := o.media.Inspect(ctx, req.Video)
	if err != nil {
		return nil, faults.Wrap(faults.ErrContent, "transcribe", "probe", "input is not a readable video", err)
	}
	if info.VideoStreams == 0 {
		return nil, faults.Wrap(faults.ErrContent, "transcribe", "probe", "input has no video stream", nil)
	}
	if info.Duration <= 0 {
		return nil, faults.Wrap(faults.ErrContent, "transcribe", "probe", "input has no measurable duration", nil)
	}
	res.Duration = info.Duration

	if !info.HasAudio() {
		res.NoAudio = true
		res.Transcript = transcribe.Placeholders(info.Duration)
		emit(Event{State: StateTranscribing, Branch: BranchNoAudio})
		logger.Info("video has no audio track, using placeholder segments", "segments", len(res.Transcript))
	} else {
		if res.Transcript, err = o.transcribe(ctx, req); err != nil {
			return nil, err
		}
		logger.Info("transcription complete", "segments", len(res.Transcript))
	}

	emit(Event{State: StateScoring})
	picked := selection.Select(res.Transcript, req.Prompt)
	if picked.Fallback {
		res.Fallback = true
		emit(Event{State: StateScoring, Branch: BranchLongestFallback})
		logger.Info("no segment matched the prompt, using longest segments")
	}

	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return nil, faults.Wrap(faults.ErrRender, "render", "prepare", "create output dir", err)
	}

	for slot, scored := range picked.Segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		emit(Event{State: StateRendering, Slot: slot})

		window, err := render.Derive(scored.Segment, info.Duration)
		if err != nil {
			return nil, err
		}
		clip, err := o.renderer.Render(ctx, render.Request{
			Video:     req.Video,
			Window:    window,
			Caption:   scored.Segment.Text,
			Slot:      slot,
			OutputDir: req.OutputDir,
			WorkDir:   req.WorkDir,
		})
		if err != nil {
			if !errors.Is(err, faults.ErrRender) {
				err = faults.Wrap(faults.ErrRender, "render", "clip", fmt.Sprintf("clip %d", slot), err)
			}
			return nil, err
		}
		res.Clips = append(res.Clips, Clip{Clip: clip, Score: scored.Score})
	}

	manifest, err := export.WriteManifest(req.OutputDir, buildManifest(req, res))
	if err != nil {
		return nil, faults.Wrap(faults.ErrRender, "render", "manifest", "", err)
	}
	res.Manifest = manifest
	return res, nil
}

func (o *Orchestrator) transcribe(ctx context.Context, req Request) ([]transcribe.Segment, error) {
	wav := filepath.Join(req.WorkDir, "audio.wav")
	defer os.Remove(wav)

	if err := o.media.ExtractAudio(ctx, req.Video, wav); err != nil {
		return nil, faults.Wrap(faults.ErrTranscription, "transcribe", "extract audio", "", err)
	}
	segments, err := o.transcriber.Transcribe(ctx, wav)
	if err != nil {
		return nil, faults.Wrap(faults.ErrTranscription, "transcribe", "speech to text", "", err)
	}
	return segments, nil
}

func buildManifest(req Request, res *Result) export.Manifest {
	m := export.Manifest{
		JobID:     req.JobID,
		Prompt:    req.Prompt,
		Duration:  res.Duration,
		NoAudio:   res.NoAudio,
		Fallback:  res.Fallback,
		Segments:  len(res.Transcript),
		CreatedAt: time.Now().UTC(),
	}
	for _, c := range res.Clips {
		m.Clips = append(m.Clips, export.Clip{
			Index: c.Index,
			File:  filepath.Base(c.Path),
			Start: c.Window.Start,
			End:   c.Window.End,
			Score: c.Score,
			Text:  c.Text,
		})
	}
	return m
}
