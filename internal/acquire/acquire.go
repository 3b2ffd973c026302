// Package acquire fetches source videos into job storage, either through
// yt-dlp or by streaming a direct MP4 link.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/heimdex/gifforge/internal/faults"
	"github.com/heimdex/gifforge/internal/logging"
	"github.com/heimdex/gifforge/internal/media"
)

const (
	defaultMaxBytes   = 2 << 30
	defaultAttempts   = 3
	defaultRetryDelay = 500 * time.Millisecond
	errorBodyLimit    = 4096
)

// DownloadError represents a non-2xx response from a direct download.
type DownloadError struct {
	StatusCode int
	Body       string
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx).
// Client errors (4xx) are considered permanent.
func (e *DownloadError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// ErrTooLarge is returned when a download exceeds the configured limit.
var ErrTooLarge = errors.New("download exceeds size limit")

type Options struct {
	YtDlpPath  string
	MaxBytes   int64
	Timeout    time.Duration
	Attempts   int
	RetryDelay time.Duration
}

// Fetcher implements video acquisition for URL sources.
type Fetcher struct {
	opts       Options
	httpClient *http.Client
	runner     media.Runner
	logger     *slog.Logger
}

func New(opts Options, runner media.Runner, logger *slog.Logger) *Fetcher {
	if opts.YtDlpPath == "" {
		opts.YtDlpPath = "yt-dlp"
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxBytes
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Minute
	}
	if opts.Attempts <= 0 {
		opts.Attempts = defaultAttempts
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	} else if opts.RetryDelay == 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	return &Fetcher{
		opts: opts,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		runner: runner,
		logger: logging.WithComponent(logger, "acquire"),
	}
}

// Fetch stores the video at rawURL in dest. direct selects a plain HTTP
// download instead of yt-dlp.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, direct bool, dest string) (int64, error) {
	if err := ValidateURL(rawURL); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, faults.Wrap(faults.ErrAcquisition, "acquire", "prepare", "create input dir", err)
	}

	var (
		size int64
		err  error
	)
	if direct {
		size, err = f.download(ctx, rawURL, dest)
	} else {
		size, err = f.ytdlp(ctx, rawURL, dest)
	}
	if err != nil {
		os.Remove(dest)
		return 0, err
	}

	f.logger.Info("source acquired",
		"url", logging.SanitizeURL(rawURL),
		"direct", direct,
		"size", humanize.Bytes(uint64(size)),
	)
	return size, nil
}

// ValidateURL accepts absolute http(s) URLs only.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return faults.Wrap(faults.ErrValidation, "acquire", "validate", fmt.Sprintf("invalid video URL %q", rawURL), err)
	}
	return nil
}

func (f *Fetcher) ytdlp(ctx context.Context, rawURL, dest string) (int64, error) {
	_, err := f.runner.Run(ctx, f.opts.YtDlpPath,
		"-f", "best[ext=mp4]/best",
		"-o", dest,
		"--no-playlist",
		"--restrict-filenames",
		"--no-progress",
		"--max-filesize", fmt.Sprintf("%d", f.opts.MaxBytes),
		rawURL,
	)
	if err != nil {
		return 0, faults.Wrap(faults.ErrAcquisition, "acquire", "yt-dlp", "failed to download video", err)
	}
	return checkFile(dest)
}

func (f *Fetcher) download(ctx context.Context, rawURL, dest string) (int64, error) {
	var lastErr error
	for attempt := 1; attempt <= f.opts.Attempts; attempt++ {
		size, err := f.downloadOnce(ctx, rawURL, dest)
		if err == nil {
			return checkFile(dest)
		}
		lastErr = err
		if !retryable(err) || attempt == f.opts.Attempts {
			break
		}
		f.logger.Warn("download attempt failed, retrying",
			"attempt", attempt, "error", err, "bytes", size)
		select {
		case <-ctx.Done():
			return 0, faults.Wrap(faults.ErrAcquisition, "acquire", "download", "cancelled", ctx.Err())
		case <-time.After(f.opts.RetryDelay * time.Duration(attempt)):
		}
	}
	return 0, faults.Wrap(faults.ErrAcquisition, "acquire", "download", "failed to download MP4", lastErr)
}

func (f *Fetcher) downloadOnce(ctx context.Context, rawURL, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "video/mp4,video/*;q=0.9,*/*;q=0.5")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return 0, &DownloadError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if resp.ContentLength > f.opts.MaxBytes {
		return 0, fmt.Errorf("%w: %s > %s", ErrTooLarge,
			humanize.Bytes(uint64(resp.ContentLength)), humanize.Bytes(uint64(f.opts.MaxBytes)))
	}

	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}
	n, err := io.Copy(out, io.LimitReader(resp.Body, f.opts.MaxBytes+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("write file: %w", err)
	}
	if n > f.opts.MaxBytes {
		return n, fmt.Errorf("%w: limit %s", ErrTooLarge, humanize.Bytes(uint64(f.opts.MaxBytes)))
	}
	return n, nil
}

func retryable(err error) bool {
	if errors.Is(err, ErrTooLarge) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var dlErr *DownloadError
	if errors.As(err, &dlErr) {
		return dlErr.IsRetryable()
	}
	return true
}

func checkFile(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, faults.Wrap(faults.ErrAcquisition, "acquire", "verify", "downloaded file doesn't exist", err)
	}
	if info.Size() == 0 {
		return 0, faults.Wrap(faults.ErrAcquisition, "acquire", "verify", "downloaded file is empty", nil)
	}
	return info.Size(), nil
}
