package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvConfigPath, EnvBind, EnvPort, EnvDataDir, EnvStorageDir, EnvDBPath,
		EnvLogLevel, EnvLogFormat, EnvEngine, EnvWorkers, EnvQueueSize, EnvJobTimeout,
		EnvFontPath, EnvOpenAIKey,
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	dataDir := t.TempDir()
	t.Setenv(EnvDataDir, dataDir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Bind != defaultBind {
		t.Errorf("Bind = %q, want %q", cfg.Server.Bind, defaultBind)
	}
	if cfg.Paths.StorageDir != filepath.Join(dataDir, "static") {
		t.Errorf("StorageDir = %q, want under data dir", cfg.Paths.StorageDir)
	}
	if cfg.Paths.DBPath != "" {
		t.Errorf("DBPath = %q, want empty (in-memory)", cfg.Paths.DBPath)
	}
	if cfg.Transcribe.Engine != EngineWhisperCPP {
		t.Errorf("Engine = %q, want %q", cfg.Transcribe.Engine, EngineWhisperCPP)
	}
	if cfg.JobTimeout() != time.Hour {
		t.Errorf("JobTimeout() = %v, want 1h", cfg.JobTimeout())
	}
	if cfg.MaxUploadBytes() != 512*1024*1024 {
		t.Errorf("MaxUploadBytes() = %d", cfg.MaxUploadBytes())
	}
}

func TestLoad_TOMLFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "gifforge.toml")
	content := `
[server]
bind = "127.0.0.1:9000"
cors_origins = ["http://localhost:3000"]

[paths]
data_dir = "` + filepath.ToSlash(dir) + `"

[transcribe]
engine = "OpenAI"
api_key = "sk-test"

[jobs]
workers = 4
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Bind != "127.0.0.1:9000" {
		t.Errorf("Bind = %q", cfg.Server.Bind)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "http://localhost:3000" {
		t.Errorf("CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Transcribe.Engine != EngineOpenAI {
		t.Errorf("Engine = %q, want normalized %q", cfg.Transcribe.Engine, EngineOpenAI)
	}
	if cfg.Jobs.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Jobs.Workers)
	}
	if cfg.Jobs.QueueSize != defaultQueueSize {
		t.Errorf("QueueSize = %d, want default %d", cfg.Jobs.QueueSize, defaultQueueSize)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "gifforge.toml")
	if err := os.WriteFile(path, []byte("[jobs]\nworkers = 4\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(EnvConfigPath, path)
	t.Setenv(EnvDataDir, dir)
	t.Setenv(EnvWorkers, "7")
	t.Setenv(EnvPort, "8123")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Jobs.Workers != 7 {
		t.Errorf("Workers = %d, want 7", cfg.Jobs.Workers)
	}
	if cfg.Server.Bind != "0.0.0.0:8123" {
		t.Errorf("Bind = %q, want 0.0.0.0:8123", cfg.Server.Bind)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"port not a number", EnvPort, "abc", EnvPort},
		{"port out of range", EnvPort, "70000", "between 1 and 65535"},
		{"unknown engine", EnvEngine, "vosk", "transcribe.engine"},
		{"zero workers", EnvWorkers, "0", "jobs.workers"},
		{"bad log format", EnvLogFormat, "xml", "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(EnvDataDir, t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := Load("")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for explicit missing config file")
	}
}

func TestEnsureDirectories(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	t.Setenv(EnvDataDir, filepath.Join(root, "data"))

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories() error = %v", err)
	}
	if info, err := os.Stat(cfg.Paths.StorageDir); err != nil || !info.IsDir() {
		t.Fatalf("storage dir not created: %v", err)
	}
}
