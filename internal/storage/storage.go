// Package storage owns the on-disk layout of job inputs and outputs.
//
//	<root>/uploads/<job_id>/input.mp4
//	<root>/gifs/<job_id>/gif_<i>.gif
//	<root>/work/<job_id>/...
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofrs/flock"
)

const (
	uploadsDir = "uploads"
	gifsDir    = "gifs"
	workDir    = "work"
	inputName  = "input.mp4"
	lockName   = ".gifforge.lock"
)

// ErrLocked is returned when another process already owns the storage root.
var ErrLocked = errors.New("storage root is locked by another process")

type JobStorage struct {
	root string
}

func New(root string) (*JobStorage, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	for _, dir := range []string{uploadsDir, gifsDir, workDir} {
		if err := os.MkdirAll(filepath.Join(abs, dir), 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}
	return &JobStorage{root: abs}, nil
}

func (s *JobStorage) Root() string { return s.root }

// GifsRoot is the directory served under /static/gifs.
func (s *JobStorage) GifsRoot() string { return filepath.Join(s.root, gifsDir) }

func (s *JobStorage) InputDir(jobID string) string {
	return filepath.Join(s.root, uploadsDir, jobID)
}

func (s *JobStorage) InputPath(jobID string) string {
	return filepath.Join(s.InputDir(jobID), inputName)
}

func (s *JobStorage) OutputDir(jobID string) string {
	return filepath.Join(s.root, gifsDir, jobID)
}

// OutputName is the file name of the GIF in the given slot.
func OutputName(index int) string {
	return "gif_" + strconv.Itoa(index) + ".gif"
}

func (s *JobStorage) OutputPath(jobID string, index int) string {
	return filepath.Join(s.OutputDir(jobID), OutputName(index))
}

func (s *JobStorage) WorkDir(jobID string) string {
	return filepath.Join(s.root, workDir, jobID)
}

// SaveInput streams r into the job's input file and returns its size.
func (s *JobStorage) SaveInput(jobID string, r io.Reader) (int64, error) {
	if err := os.MkdirAll(s.InputDir(jobID), 0o755); err != nil {
		return 0, fmt.Errorf("create input dir: %w", err)
	}
	path := s.InputPath(jobID)
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create input file: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("write input file: %w", err)
	}
	return n, nil
}

// DiscardInput removes the saved or downloaded source video of jobID.
func (s *JobStorage) DiscardInput(jobID string) error {
	return os.RemoveAll(s.InputDir(jobID))
}

// Lock takes an exclusive, non-blocking lock on the storage root so two
// servers never share one layout. Release with Unlock.
func (s *JobStorage) Lock() (*flock.Flock, error) {
	lock := flock.New(filepath.Join(s.root, lockName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire storage lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return lock, nil
}
