// Package media wraps the ffmpeg and ffprobe command line tools: probing,
// audio extraction and frame decoding. Every subprocess goes through a
// Runner so tests can substitute a fake.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

const (
	maxStderrBytes = 8 * 1024 // 8 KB tail of stderr kept for diagnostics
	maxStdoutBytes = 4 * 1024 * 1024
)

// RunResult is the structured outcome of a subprocess.
type RunResult struct {
	ExitCode   int
	Stdout     []byte
	StderrTail string
	Duration   time.Duration
}

// IsSuccess returns true when the subprocess exited cleanly.
func (r RunResult) IsSuccess() bool { return r.ExitCode == 0 }

// CommandError describes a subprocess that could not start or exited non-zero.
type CommandError struct {
	Name       string
	ExitCode   int
	StderrTail string
	Err        error
}

func (e *CommandError) Error() string {
	if e.StderrTail != "" {
		return fmt.Sprintf("%s exited %d: %s", e.Name, e.ExitCode, Truncate(e.StderrTail, 512))
	}
	return fmt.Sprintf("%s failed: %v", e.Name, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// Runner executes one external command.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (RunResult, error)
}

// ExecRunner is the os/exec implementation of Runner.
type ExecRunner struct {
	Logger *slog.Logger
}

func NewExecRunner(logger *slog.Logger) *ExecRunner {
	return &ExecRunner{Logger: logger}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (RunResult, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &capWriter{w: &stdoutBuf, limit: maxStdoutBytes}
	cmd.Stderr = &limitedWriter{w: &stderrBuf, limit: maxStderrBytes}

	if r.Logger != nil {
		r.Logger.Debug("executing command", "name", name, "args", args)
	}

	err := cmd.Run()
	result := RunResult{
		Stdout:     stdoutBuf.Bytes(),
		StderrTail: stderrBuf.String(),
		Duration:   time.Since(start),
	}
	if err == nil {
		if r.Logger != nil {
			r.Logger.Debug("command succeeded", "name", name, "duration_ms", result.Duration.Milliseconds())
		}
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
	} else {
		result.ExitCode = -1
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	if r.Logger != nil {
		r.Logger.Warn("command failed",
			"name", name,
			"exit_code", result.ExitCode,
			"duration_ms", result.Duration.Milliseconds(),
			"stderr_tail", Truncate(result.StderrTail, 512),
		)
	}
	return result, &CommandError{Name: name, ExitCode: result.ExitCode, StderrTail: result.StderrTail, Err: err}
}

// Truncate keeps the last maxLen bytes of s.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter is an io.Writer that keeps only the last `limit` bytes.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		// Keep only the tail
		b := lw.w.Bytes()
		tail := append([]byte(nil), b[len(b)-lw.limit:]...)
		lw.w.Reset()
		lw.w.Write(tail)
	}
	return n, nil
}

// capWriter keeps the first `limit` bytes and silently drops the rest.
type capWriter struct {
	w     *bytes.Buffer
	limit int
}

func (cw *capWriter) Write(p []byte) (int, error) {
	n := len(p)
	if room := cw.limit - cw.w.Len(); room > 0 {
		if len(p) > room {
			p = p[:room]
		}
		cw.w.Write(p)
	}
	return n, nil
}
