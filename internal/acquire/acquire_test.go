package acquire

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/heimdex/gifforge/internal/faults"
	"github.com/heimdex/gifforge/internal/logging"
	"github.com/heimdex/gifforge/internal/media"
)

type fakeRunner struct {
	args []string
	fn   func(args []string) error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (media.RunResult, error) {
	f.args = args
	if f.fn != nil {
		if err := f.fn(args); err != nil {
			return media.RunResult{ExitCode: 1}, err
		}
	}
	return media.RunResult{}, nil
}

func newFetcher(opts Options, runner media.Runner) *Fetcher {
	if opts.RetryDelay == 0 {
		opts.RetryDelay = time.Millisecond
	}
	return New(opts, runner, logging.Discard())
}

func TestFetch_Direct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("fake mp4 payload"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "uploads", "job", "input.mp4")
	size, err := newFetcher(Options{}, &fakeRunner{}).Fetch(context.Background(), srv.URL+"/v.mp4", true, dest)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if size != int64(len("fake mp4 payload")) {
		t.Errorf("size = %d", size)
	}
	data, _ := os.ReadFile(dest)
	if string(data) != "fake mp4 payload" {
		t.Errorf("content = %q", data)
	}
}

func TestFetch_DirectNotFoundIsAcquisitionError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "no such video", http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "input.mp4")
	_, err := newFetcher(Options{}, &fakeRunner{}).Fetch(context.Background(), srv.URL, true, dest)
	if !errors.Is(err, faults.ErrAcquisition) {
		t.Fatalf("error = %v, want ErrAcquisition", err)
	}
	var dlErr *DownloadError
	if !errors.As(err, &dlErr) || dlErr.StatusCode != http.StatusNotFound {
		t.Errorf("DownloadError = %+v", dlErr)
	}
	if hits.Load() != 1 {
		t.Errorf("4xx retried: %d hits", hits.Load())
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("partial file left behind")
	}
}

func TestFetch_DirectRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok video"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "input.mp4")
	if _, err := newFetcher(Options{Attempts: 2}, &fakeRunner{}).Fetch(context.Background(), srv.URL, true, dest); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("hits = %d, want 2", hits.Load())
	}
}

func TestFetch_DirectEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := newFetcher(Options{}, &fakeRunner{}).Fetch(context.Background(), srv.URL, true, filepath.Join(t.TempDir(), "input.mp4"))
	if !errors.Is(err, faults.ErrAcquisition) || !strings.Contains(err.Error(), "empty") {
		t.Fatalf("error = %v, want empty-file acquisition error", err)
	}
}

func TestFetch_DirectTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	_, err := newFetcher(Options{MaxBytes: 16}, &fakeRunner{}).Fetch(context.Background(), srv.URL, true, filepath.Join(t.TempDir(), "input.mp4"))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("error = %v, want ErrTooLarge", err)
	}
}

func TestFetch_YtDlp(t *testing.T) {
	runner := &fakeRunner{fn: func(args []string) error {
		for i, a := range args {
			if a == "-o" {
				return os.WriteFile(args[i+1], []byte("yt video"), 0o644)
			}
		}
		return nil
	}}
	dest := filepath.Join(t.TempDir(), "input.mp4")
	if _, err := newFetcher(Options{}, runner).Fetch(context.Background(), "https://www.youtube.com/watch?v=abc", false, dest); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	joined := strings.Join(runner.args, " ")
	for _, want := range []string{"best[ext=mp4]/best", "--no-playlist", "--restrict-filenames"} {
		if !strings.Contains(joined, want) {
			t.Errorf("yt-dlp args %q missing %q", joined, want)
		}
	}
	if runner.args[len(runner.args)-1] != "https://www.youtube.com/watch?v=abc" {
		t.Errorf("url not last arg: %v", runner.args)
	}
}

func TestFetch_YtDlpFailure(t *testing.T) {
	runner := &fakeRunner{fn: func(args []string) error {
		return &media.CommandError{Name: "yt-dlp", ExitCode: 1, StderrTail: "ERROR: Video unavailable"}
	}}
	_, err := newFetcher(Options{}, runner).Fetch(context.Background(), "https://youtu.be/gone", false, filepath.Join(t.TempDir(), "input.mp4"))
	if !errors.Is(err, faults.ErrAcquisition) {
		t.Fatalf("error = %v, want ErrAcquisition", err)
	}
	if faults.HTTPStatus(err) != http.StatusBadRequest {
		t.Errorf("HTTPStatus = %d, want 400", faults.HTTPStatus(err))
	}
}

func TestValidateURL(t *testing.T) {
	for _, bad := range []string{"", "not a url", "ftp://example.com/v.mp4", "/local/path.mp4"} {
		if err := ValidateURL(bad); !errors.Is(err, faults.ErrValidation) {
			t.Errorf("ValidateURL(%q) = %v, want ErrValidation", bad, err)
		}
	}
	if err := ValidateURL("https://example.com/v.mp4"); err != nil {
		t.Errorf("ValidateURL() error = %v", err)
	}
}
