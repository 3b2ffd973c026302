package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variable names
const (
	EnvConfigPath = "GIFFORGE_CONFIG"
	EnvBind       = "GIFFORGE_BIND"
	EnvPort       = "GIFFORGE_PORT"
	EnvDataDir    = "GIFFORGE_DATA_DIR"
	EnvStorageDir = "GIFFORGE_STORAGE_DIR"
	EnvDBPath     = "GIFFORGE_DB_PATH"
	EnvLogLevel   = "GIFFORGE_LOG_LEVEL"
	EnvLogFormat  = "GIFFORGE_LOG_FORMAT"

	EnvFFmpeg  = "GIFFORGE_FFMPEG"
	EnvFFprobe = "GIFFORGE_FFPROBE"
	EnvYtDlp   = "GIFFORGE_YTDLP"

	EnvEngine       = "GIFFORGE_TRANSCRIBE_ENGINE"
	EnvWhisperBin   = "GIFFORGE_WHISPER_BIN"
	EnvWhisperModel = "GIFFORGE_WHISPER_MODEL"
	EnvLanguage     = "GIFFORGE_LANGUAGE"
	EnvOpenAIURL    = "GIFFORGE_OPENAI_BASE_URL"
	EnvOpenAIKey    = "GIFFORGE_OPENAI_API_KEY"
	EnvOpenAIModel  = "GIFFORGE_OPENAI_MODEL"

	EnvFontPath   = "GIFFORGE_FONT_PATH"
	EnvWorkers    = "GIFFORGE_WORKERS"
	EnvQueueSize  = "GIFFORGE_QUEUE_SIZE"
	EnvJobTimeout = "GIFFORGE_JOB_TIMEOUT_SECONDS"
)

func (c *Config) applyEnv() error {
	setString(&c.Server.Bind, EnvBind)
	setString(&c.Paths.DataDir, EnvDataDir)
	setString(&c.Paths.StorageDir, EnvStorageDir)
	setString(&c.Paths.DBPath, EnvDBPath)
	setString(&c.Logging.Level, EnvLogLevel)
	setString(&c.Logging.Format, EnvLogFormat)
	setString(&c.Tools.FFmpeg, EnvFFmpeg)
	setString(&c.Tools.FFprobe, EnvFFprobe)
	setString(&c.Tools.YtDlp, EnvYtDlp)
	setString(&c.Transcribe.Engine, EnvEngine)
	setString(&c.Transcribe.WhisperBin, EnvWhisperBin)
	setString(&c.Transcribe.WhisperModel, EnvWhisperModel)
	setString(&c.Transcribe.Language, EnvLanguage)
	setString(&c.Transcribe.BaseURL, EnvOpenAIURL)
	setString(&c.Transcribe.APIKey, EnvOpenAIKey)
	setString(&c.Transcribe.Model, EnvOpenAIModel)
	setString(&c.Render.FontPath, EnvFontPath)

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		host := c.Server.Bind
		if idx := strings.LastIndex(host, ":"); idx >= 0 {
			host = host[:idx]
		}
		c.Server.Bind = fmt.Sprintf("%s:%d", host, port)
	}

	if err := setInt(&c.Jobs.Workers, EnvWorkers); err != nil {
		return err
	}
	if err := setInt(&c.Jobs.QueueSize, EnvQueueSize); err != nil {
		return err
	}
	return setInt(&c.Jobs.TimeoutSeconds, EnvJobTimeout)
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}
