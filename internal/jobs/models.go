// Package jobs is the in-process registry of GIF jobs and the worker pool
// that runs them.
package jobs

import (
	"time"

	"github.com/google/uuid"
)

// Source kinds a job can be created from.
const (
	SourceUpload = "upload"
	SourceURL    = "url"
	SourceDirect = "direct"
)

const (
	StatusPending      = "pending"
	StatusAcquiring    = "acquiring"
	StatusTranscribing = "transcribing"
	StatusScoring      = "scoring"
	StatusRendering    = "rendering"
	StatusDone         = "done"
	StatusFailed       = "failed"
)

type Job struct {
	ID         string    `json:"id"`
	SourceKind string    `json:"source_kind"`
	Source     string    `json:"source"`
	Prompt     string    `json:"prompt"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	Clips      []Clip    `json:"clips,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Clip is one rendered GIF, Index being its selection rank.
type Clip struct {
	Index int     `json:"index"`
	Path  string  `json:"-"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Score int     `json:"score"`
	Text  string  `json:"text"`
}

// Terminal reports whether no further status change will happen.
func (j *Job) Terminal() bool {
	return j.Status == StatusDone || j.Status == StatusFailed
}

func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id has job-id shape. It keeps arbitrary path
// fragments out of storage lookups.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// NewJob builds a pending job with a fresh id.
func NewJob(sourceKind, source, prompt string) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:         NewID(),
		SourceKind: sourceKind,
		Source:     source,
		Prompt:     prompt,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
