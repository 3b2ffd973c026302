package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heimdex/gifforge/internal/jobs"
	"github.com/heimdex/gifforge/internal/storage"
)

// Acquirer stores a remote video at dest.
type Acquirer interface {
	Fetch(ctx context.Context, rawURL string, direct bool, dest string) (int64, error)
}

// Executor adapts the Orchestrator to the job runner. Upload jobs expect
// their input to be saved under storage before submission.
type Executor struct {
	orch     *Orchestrator
	storage  *storage.JobStorage
	acquirer Acquirer
	logger   *slog.Logger
}

var _ jobs.Executor = (*Executor)(nil)

func NewExecutor(orch *Orchestrator, store *storage.JobStorage, acquirer Acquirer, logger *slog.Logger) *Executor {
	return &Executor{orch: orch, storage: store, acquirer: acquirer, logger: logger}
}

func (e *Executor) Execute(ctx context.Context, job *jobs.Job, report func(status string)) ([]jobs.Clip, error) {
	input := e.storage.InputPath(job.ID)
	defer func() {
		if err := e.storage.DiscardInput(job.ID); err != nil {
			e.logger.Warn("failed to remove input", "job_id", job.ID, "error", err)
		}
	}()

	switch job.SourceKind {
	case jobs.SourceURL, jobs.SourceDirect:
		report(jobs.StatusAcquiring)
		if e.acquirer == nil {
			return nil, fmt.Errorf("no acquirer configured for %s jobs", job.SourceKind)
		}
		if _, err := e.acquirer.Fetch(ctx, job.Source, job.SourceKind == jobs.SourceDirect, input); err != nil {
			return nil, err
		}
	case jobs.SourceUpload:
	default:
		return nil, fmt.Errorf("unknown source kind %q", job.SourceKind)
	}

	res, err := e.orch.Run(ctx, Request{
		JobID:     job.ID,
		Video:     input,
		Prompt:    job.Prompt,
		OutputDir: e.storage.OutputDir(job.ID),
		WorkDir:   e.storage.WorkDir(job.ID),
		Observer: func(ev Event) {
			if status, ok := statusFor(ev); ok {
				report(status)
			}
		},
	})
	if err != nil {
		return nil, err
	}

	clips := make([]jobs.Clip, 0, len(res.Clips))
	for _, c := range res.Clips {
		clips = append(clips, jobs.Clip{
			Index: c.Index,
			Path:  c.Path,
			Start: c.Window.Start,
			End:   c.Window.End,
			Score: c.Score,
			Text:  c.Text,
		})
	}
	return clips, nil
}

// statusFor maps pipeline events onto job statuses. Branch events and
// per-clip rendering events repeat a state and are not reported again.
func statusFor(ev Event) (string, bool) {
	if ev.Branch != "" {
		return "", false
	}
	switch ev.State {
	case StateTranscribing:
		return jobs.StatusTranscribing, true
	case StateScoring:
		return jobs.StatusScoring, true
	case StateRendering:
		if ev.Slot == 0 {
			return jobs.StatusRendering, true
		}
	}
	return "", false
}
