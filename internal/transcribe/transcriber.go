package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/heimdex/gifforge/internal/media"
)

// Engine names accepted by New.
const (
	EngineWhisperCPP = "whispercpp"
	EngineOpenAI     = "openai"
)

// Transcriber converts a 16 kHz mono WAV into ordered segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]Segment, error)
}

type Options struct {
	Engine       string
	WhisperBin   string
	WhisperModel string
	Language     string
	BaseURL      string
	APIKey       string
	Model        string
	Timeout      time.Duration
}

// New builds the configured engine wrapped in Shared.
func New(opts Options, runner media.Runner, logger *slog.Logger) (*Shared, error) {
	var engine Transcriber
	switch strings.ToLower(opts.Engine) {
	case "", EngineWhisperCPP:
		engine = NewWhisperCPP(opts.WhisperBin, opts.WhisperModel, opts.Language, runner)
	case EngineOpenAI:
		engine = NewOpenAI(opts.BaseURL, opts.APIKey, opts.Model, opts.Language, opts.Timeout)
	default:
		return nil, fmt.Errorf("unknown transcription engine %q", opts.Engine)
	}
	logger.Info("transcription engine ready", "engine", opts.Engine)
	return NewShared(engine, opts.Timeout), nil
}

// Shared serializes access to one engine instance across jobs. A caller
// waiting for the engine gives up when its context ends.
type Shared struct {
	sem     chan struct{}
	engine  Transcriber
	timeout time.Duration
}

func NewShared(engine Transcriber, timeout time.Duration) *Shared {
	return &Shared{sem: make(chan struct{}, 1), engine: engine, timeout: timeout}
}

func (s *Shared) Transcribe(ctx context.Context, audioPath string) ([]Segment, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-s.sem }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	segments, err := s.engine.Transcribe(ctx, audioPath)
	if err != nil {
		return nil, err
	}
	return normalize(segments), nil
}

func sortByStart(segments []Segment) {
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})
}
