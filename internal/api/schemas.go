package api

import (
	"fmt"
	"time"

	"github.com/heimdex/gifforge/internal/export"
	"github.com/heimdex/gifforge/internal/jobs"
	"github.com/heimdex/gifforge/internal/toolcheck"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ProcessURLRequest is the body of POST /process-youtube.
type ProcessURLRequest struct {
	URL         string `json:"url"`
	Prompt      string `json:"prompt"`
	IsDirectMP4 bool   `json:"is_direct_mp4"`
}

type ProcessResponse struct {
	Status    string   `json:"status"`
	JobID     string   `json:"job_id"`
	Gifs      []string `json:"gifs"`
	Downloads []string `json:"downloads"`
}

type AcceptedResponse struct {
	Status    string `json:"status"`
	JobID     string `json:"job_id"`
	StatusURL string `json:"status_url"`
}

type ClipResponse struct {
	Index    int     `json:"index"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Score    int     `json:"score"`
	Text     string  `json:"text"`
	GifURL   string  `json:"gif_url"`
	Download string  `json:"download_url"`
}

type JobResponse struct {
	ID         string         `json:"id"`
	SourceKind string         `json:"source_kind"`
	Prompt     string         `json:"prompt"`
	Status     string         `json:"status"`
	Error      string         `json:"error,omitempty"`
	Clips      []ClipResponse `json:"clips"`
	CreatedAt  string         `json:"created_at"`
	UpdatedAt  string         `json:"updated_at"`
}

type JobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

type HealthResponse struct {
	Status     string           `json:"status"`
	Version    string           `json:"version"`
	UptimeS    int64            `json:"uptime_s"`
	ActiveJobs int              `json:"active_jobs"`
	QueuedJobs int              `json:"queued_jobs"`
	Tools      []toolcheck.Tool `json:"tools,omitempty"`
	Missing    []string         `json:"missing,omitempty"`
}

func gifURL(jobID string, index int) string {
	return fmt.Sprintf("/static/gifs/%s/gif_%d.gif", jobID, index)
}

func downloadURL(jobID string, index int) string {
	return fmt.Sprintf("/download/%s/%d", jobID, index)
}

// NewProcessResponse lists clips in selection order.
func NewProcessResponse(jobID string, clips []jobs.Clip) ProcessResponse {
	resp := ProcessResponse{
		Status:    "success",
		JobID:     jobID,
		Gifs:      make([]string, 0, len(clips)),
		Downloads: make([]string, 0, len(clips)),
	}
	for _, c := range clips {
		resp.Gifs = append(resp.Gifs, gifURL(jobID, c.Index))
		resp.Downloads = append(resp.Downloads, downloadURL(jobID, c.Index))
	}
	return resp
}

func JobToResponse(j *jobs.Job) JobResponse {
	resp := JobResponse{
		ID:         j.ID,
		SourceKind: j.SourceKind,
		Prompt:     j.Prompt,
		Status:     j.Status,
		Error:      j.Error,
		Clips:      make([]ClipResponse, len(j.Clips)),
		CreatedAt:  j.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  j.UpdatedAt.Format(time.RFC3339),
	}
	for i, c := range j.Clips {
		resp.Clips[i] = ClipResponse{
			Index:    c.Index,
			Start:    c.Start,
			End:      c.End,
			Score:    c.Score,
			Text:     c.Text,
			GifURL:   gifURL(j.ID, c.Index),
			Download: downloadURL(j.ID, c.Index),
		}
	}
	return resp
}

// ManifestToResponse describes a finished job known only from its output
// directory.
func ManifestToResponse(m export.Manifest) JobResponse {
	created := m.CreatedAt.Format(time.RFC3339)
	resp := JobResponse{
		ID:        m.JobID,
		Prompt:    m.Prompt,
		Status:    jobs.StatusDone,
		Clips:     make([]ClipResponse, len(m.Clips)),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for i, c := range m.Clips {
		resp.Clips[i] = ClipResponse{
			Index:    c.Index,
			Start:    c.Start,
			End:      c.End,
			Score:    c.Score,
			Text:     c.Text,
			GifURL:   gifURL(m.JobID, c.Index),
			Download: downloadURL(m.JobID, c.Index),
		}
	}
	return resp
}
