package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateTranscribe(); err != nil {
		return err
	}
	if err := c.validateJobs(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	_, port, err := net.SplitHostPort(c.Server.Bind)
	if err != nil {
		return fmt.Errorf("server.bind %q: %w", c.Server.Bind, err)
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("server.bind %q: port must be between 1 and 65535", c.Server.Bind)
	}
	if c.Server.MaxUploadMB <= 0 {
		return errors.New("server.max_upload_mb must be positive")
	}
	return nil
}

func (c *Config) validateTranscribe() error {
	switch c.Transcribe.Engine {
	case EngineWhisperCPP:
		if strings.TrimSpace(c.Transcribe.WhisperBin) == "" {
			return errors.New("transcribe.whisper_bin must be set for the whispercpp engine")
		}
		if strings.TrimSpace(c.Transcribe.WhisperModel) == "" {
			return errors.New("transcribe.whisper_model must be set for the whispercpp engine")
		}
	case EngineOpenAI:
		if c.Transcribe.BaseURL == "" {
			return errors.New("transcribe.base_url must be set for the openai engine")
		}
		if strings.TrimSpace(c.Transcribe.Model) == "" {
			return errors.New("transcribe.model must be set for the openai engine")
		}
	default:
		return fmt.Errorf("transcribe.engine: unsupported value %q", c.Transcribe.Engine)
	}
	if c.Transcribe.TimeoutSeconds < 0 {
		return errors.New("transcribe.timeout_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateJobs() error {
	if c.Jobs.Workers < 1 {
		return errors.New("jobs.workers must be at least 1")
	}
	if c.Jobs.QueueSize < 0 {
		return errors.New("jobs.queue_size must not be negative")
	}
	if c.Jobs.TimeoutSeconds < 0 {
		return errors.New("jobs.timeout_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case LogFormatAuto, LogFormatJSON, LogFormatConsole:
		return nil
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
}
