package config

const (
	DefaultConfigFile = "gifforge.toml"

	defaultBind         = "0.0.0.0:8000"
	defaultMaxUploadMB  = 512
	defaultDataDir      = "~/.gifforge"
	defaultFFmpeg       = "ffmpeg"
	defaultFFprobe      = "ffprobe"
	defaultYtDlp        = "yt-dlp"
	defaultEngine       = EngineWhisperCPP
	defaultWhisperBin   = "whisper-cli"
	defaultWhisperModel = "~/.gifforge/models/ggml-base.en.bin"
	defaultLanguage     = "en"
	defaultOpenAIURL    = "https://api.openai.com"
	defaultOpenAIModel  = "whisper-1"

	defaultTranscribeTimeoutSeconds = 1800 // 30 minutes
	defaultJobTimeoutSeconds        = 3600 // 1 hour
	defaultWorkers                  = 2
	defaultQueueSize                = 16

	defaultLogLevel  = "info"
	defaultLogFormat = LogFormatAuto
)

// Transcription engines.
const (
	EngineWhisperCPP = "whispercpp"
	EngineOpenAI     = "openai"
)

// Log formats.
const (
	LogFormatAuto    = "auto"
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			Bind:        defaultBind,
			CORSOrigins: []string{"*"},
			MaxUploadMB: defaultMaxUploadMB,
		},
		Paths: Paths{
			DataDir: defaultDataDir,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpeg,
			FFprobe: defaultFFprobe,
			YtDlp:   defaultYtDlp,
		},
		Transcribe: Transcribe{
			Engine:         defaultEngine,
			WhisperBin:     defaultWhisperBin,
			WhisperModel:   defaultWhisperModel,
			Language:       defaultLanguage,
			BaseURL:        defaultOpenAIURL,
			Model:          defaultOpenAIModel,
			TimeoutSeconds: defaultTranscribeTimeoutSeconds,
		},
		Jobs: Jobs{
			Workers:        defaultWorkers,
			QueueSize:      defaultQueueSize,
			TimeoutSeconds: defaultJobTimeoutSeconds,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
