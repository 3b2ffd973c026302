// Package toolcheck probes the external binaries the pipeline depends on.
package toolcheck

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/heimdex/gifforge/internal/media"
)

// Spec describes one dependency to probe.
type Spec struct {
	Name   string
	Binary string
	// VersionArgs prints a version banner; nil skips the version probe.
	VersionArgs []string
	// File, when set, is a data file (e.g. a model) that must exist instead
	// of a binary on PATH.
	File     string
	Required bool
}

// Tool is the probe outcome for one Spec.
type Tool struct {
	Name      string `json:"name"`
	Path      string `json:"path,omitempty"`
	Version   string `json:"version,omitempty"`
	Available bool   `json:"available"`
	Required  bool   `json:"required"`
	Error     string `json:"error,omitempty"`
}

type Report struct {
	Tools    []Tool    `json:"tools"`
	ProbedAt time.Time `json:"probed_at"`
}

// Ready reports whether every required tool is available.
func (r *Report) Ready() bool {
	for _, t := range r.Tools {
		if t.Required && !t.Available {
			return false
		}
	}
	return true
}

// Missing lists required tools that are not available.
func (r *Report) Missing() []string {
	var out []string
	for _, t := range r.Tools {
		if t.Required && !t.Available {
			out = append(out, t.Name)
		}
	}
	return out
}

// Prober runs a full probe; CachedDoctor caches its result.
type Prober interface {
	Probe(ctx context.Context) (*Report, error)
}

type Checker struct {
	specs    []Spec
	runner   media.Runner
	lookPath func(string) (string, error)
}

func NewChecker(specs []Spec, runner media.Runner) *Checker {
	return &Checker{specs: specs, runner: runner, lookPath: exec.LookPath}
}

func (c *Checker) Probe(ctx context.Context) (*Report, error) {
	report := &Report{ProbedAt: time.Now()}
	for _, spec := range c.specs {
		report.Tools = append(report.Tools, c.check(ctx, spec))
	}
	return report, nil
}

func (c *Checker) check(ctx context.Context, spec Spec) Tool {
	tool := Tool{Name: spec.Name, Required: spec.Required}

	if spec.File != "" {
		tool.Path = spec.File
		info, err := os.Stat(spec.File)
		switch {
		case err != nil:
			tool.Error = err.Error()
		case info.IsDir():
			tool.Error = "is a directory"
		default:
			tool.Available = true
		}
		return tool
	}

	path, err := c.lookPath(spec.Binary)
	if err != nil {
		tool.Error = fmt.Sprintf("%s not found on PATH", spec.Binary)
		return tool
	}
	tool.Path = path
	tool.Available = true

	if spec.VersionArgs != nil {
		vctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		res, err := c.runner.Run(vctx, path, spec.VersionArgs...)
		if err != nil {
			tool.Error = err.Error()
			return tool
		}
		line, _, _ := strings.Cut(strings.TrimSpace(string(res.Stdout)), "\n")
		tool.Version = strings.TrimSpace(line)
	}
	return tool
}

// Options names the binaries used by a configured gifforge.
type Options struct {
	FFmpeg       string
	FFprobe      string
	YtDlp        string
	WhisperBin   string
	WhisperModel string
	// UseWhisperCPP makes the local whisper binary and model required.
	UseWhisperCPP bool
}

// DefaultSpecs returns the probes for a configured gifforge.
func DefaultSpecs(o Options) []Spec {
	specs := []Spec{
		{Name: "ffmpeg", Binary: orDefault(o.FFmpeg, "ffmpeg"), VersionArgs: []string{"-version"}, Required: true},
		{Name: "ffprobe", Binary: orDefault(o.FFprobe, "ffprobe"), VersionArgs: []string{"-version"}, Required: true},
		// Only URL jobs need yt-dlp, so uploads still work without it.
		{Name: "yt-dlp", Binary: orDefault(o.YtDlp, "yt-dlp"), VersionArgs: []string{"--version"}},
	}
	if o.UseWhisperCPP {
		specs = append(specs,
			Spec{Name: "whisper.cpp", Binary: orDefault(o.WhisperBin, "whisper-cli"), Required: true},
			Spec{Name: "whisper model", File: o.WhisperModel, Required: true},
		)
	}
	return specs
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
