// Package config provides configuration management for gifforge.
// Values start from defaults, are overlaid by an optional TOML file and are
// finally overridden by environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Server contains HTTP listener settings.
type Server struct {
	Bind        string   `toml:"bind"`
	CORSOrigins []string `toml:"cors_origins"`
	MaxUploadMB int64    `toml:"max_upload_mb"`
}

// Paths contains the on-disk locations used by the service.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	StorageDir string `toml:"storage_dir"`
	// DBPath is the job registry database. Empty keeps it in memory.
	DBPath string `toml:"db_path"`
}

// Tools names the external binaries the pipeline shells out to.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
	YtDlp   string `toml:"ytdlp"`
}

// Transcribe selects and configures the speech-to-text engine.
type Transcribe struct {
	Engine         string `toml:"engine"`
	WhisperBin     string `toml:"whisper_bin"`
	WhisperModel   string `toml:"whisper_model"`
	Language       string `toml:"language"`
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Render contains caption rendering settings.
type Render struct {
	FontPath string `toml:"font_path"`
}

// Jobs sizes the worker pool that runs pipelines.
type Jobs struct {
	Workers        int `toml:"workers"`
	QueueSize      int `toml:"queue_size"`
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config encapsulates all configuration values for gifforge.
type Config struct {
	Server     Server     `toml:"server"`
	Paths      Paths      `toml:"paths"`
	Tools      Tools      `toml:"tools"`
	Transcribe Transcribe `toml:"transcribe"`
	Render     Render     `toml:"render"`
	Jobs       Jobs       `toml:"jobs"`
	Logging    Logging    `toml:"logging"`
}

// Load builds the configuration. path may be empty, in which case
// $GIFFORGE_CONFIG and then ./gifforge.toml are tried; a missing file is not
// an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, err
	}
	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// JobTimeout returns the per-job deadline, zero meaning none.
func (c *Config) JobTimeout() time.Duration {
	return time.Duration(c.Jobs.TimeoutSeconds) * time.Second
}

// TranscribeTimeout returns the per-invocation transcription deadline.
func (c *Config) TranscribeTimeout() time.Duration {
	return time.Duration(c.Transcribe.TimeoutSeconds) * time.Second
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.Server.MaxUploadMB * 1024 * 1024
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if explicit {
				return "", false, fmt.Errorf("config file %s does not exist", expanded)
			}
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %s is a directory", expanded)
	}
	return expanded, true, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if strings.TrimSpace(c.Paths.StorageDir) == "" {
		c.Paths.StorageDir = filepath.Join(c.Paths.DataDir, "static")
	}
	if c.Paths.StorageDir, err = expandPath(c.Paths.StorageDir); err != nil {
		return err
	}
	if c.Paths.DBPath != "" {
		if c.Paths.DBPath, err = expandPath(c.Paths.DBPath); err != nil {
			return err
		}
	}
	if c.Transcribe.WhisperModel != "" {
		if c.Transcribe.WhisperModel, err = expandPath(c.Transcribe.WhisperModel); err != nil {
			return err
		}
	}
	if c.Render.FontPath != "" {
		if c.Render.FontPath, err = expandPath(c.Render.FontPath); err != nil {
			return err
		}
	}
	c.Transcribe.Engine = strings.ToLower(strings.TrimSpace(c.Transcribe.Engine))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Transcribe.BaseURL = strings.TrimRight(strings.TrimSpace(c.Transcribe.BaseURL), "/")
	return nil
}

// EnsureDirectories creates the data and storage roots.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.StorageDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
