package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/heimdex/gifforge/internal/db"
)

type Repository interface {
	CreateJob(ctx context.Context, job *Job) error
	// GetJob returns nil, nil when the job does not exist.
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context, limit int) ([]*Job, error)
	UpdateJobStatus(ctx context.Context, id, status, errorMsg string) error
	ReplaceClips(ctx context.Context, jobID string, clips []Clip) error
	ListClips(ctx context.Context, jobID string) ([]Clip, error)
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateJob(ctx context.Context, j *Job) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO jobs (id, source_kind, source, prompt, status, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, j.SourceKind, j.Source, j.Prompt, j.Status, nullString(j.Error),
		formatTime(j.CreatedAt), formatTime(j.UpdatedAt))
	return err
}

func (r *SQLiteRepository) GetJob(ctx context.Context, id string) (*Job, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source_kind, source, prompt, status, error, created_at, updated_at
		FROM jobs WHERE id = ?
	`, id)
	if err != nil {
		return nil, err
	}
	found, err := r.scanJobs(rows)
	rows.Close()
	if err != nil || len(found) == 0 {
		return nil, err
	}

	job := found[0]
	if job.Clips, err = r.ListClips(ctx, job.ID); err != nil {
		return nil, err
	}
	return job, nil
}

func (r *SQLiteRepository) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source_kind, source, prompt, status, error, created_at, updated_at
		FROM jobs ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanJobs(rows)
}

func (r *SQLiteRepository) scanJobs(rows *sql.Rows) ([]*Job, error) {
	var jobs []*Job
	for rows.Next() {
		var j Job
		var errMsg sql.NullString
		var createdAt, updatedAt string

		if err := rows.Scan(&j.ID, &j.SourceKind, &j.Source, &j.Prompt, &j.Status, &errMsg, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		j.Error = errMsg.String
		j.CreatedAt = parseTime(createdAt)
		j.UpdatedAt = parseTime(updatedAt)
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

func (r *SQLiteRepository) UpdateJobStatus(ctx context.Context, id, status, errorMsg string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, error = ?, updated_at = ? WHERE id = ?
	`, status, nullString(errorMsg), formatTime(time.Now()), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("job %s not found", id)
	}
	return nil
}

// ReplaceClips stores the final clip list of a job in one transaction.
func (r *SQLiteRepository) ReplaceClips(ctx context.Context, jobID string, clips []Clip) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM clips WHERE job_id = ?", jobID); err != nil {
		return err
	}
	for _, c := range clips {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO clips (job_id, idx, file_path, start_s, end_s, score, text)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, jobID, c.Index, c.Path, c.Start, c.End, c.Score, c.Text); err != nil {
			return fmt.Errorf("insert clip %d: %w", c.Index, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) ListClips(ctx context.Context, jobID string) ([]Clip, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT idx, file_path, start_s, end_s, score, text
		FROM clips WHERE job_id = ? ORDER BY idx
	`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clips []Clip
	for rows.Next() {
		var c Clip
		if err := rows.Scan(&c.Index, &c.Path, &c.Start, &c.End, &c.Score, &c.Text); err != nil {
			return nil, err
		}
		clips = append(clips, c)
	}
	return clips, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(db.TimeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(db.TimeLayout, s)
	return t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
