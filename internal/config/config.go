package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const megabyte = 1024 * 1024

type Config struct {
	App      AppConfig
	Line     LineConfig
	Ai       AIConfig
	Timeouts TimeoutConfig
	Audio    AudioConfig
	Delivery DeliveryConfig
	Workers  WorkerConfig
	Session  SessionConfig
}

type AppConfig struct {
	Port           string
	Environment    string
	LogFilePath    string
	LLMLogFilePath string
	NatsURL        string // empty disables job events
	RedisURL       string
	StatusStore    string // "memory" or "redis"
	TempDir        string
}

type LineConfig struct {
	ChannelSecret      string
	ChannelAccessToken string
	APIBaseURL         string
	DataAPIBaseURL     string
}

type AIConfig struct {
	LLMProvider           string // "openai", "ollama", "huggingface"
	LLMModel              string
	OpenAIAPIKey          string
	OpenAIBaseURL         string
	OllamaBaseURL         string
	HuggingFaceAPIKey     string
	STTModel              string
	TranscriptionLanguage string
	ChatMaxTokens         int
	ChatTemperature       float64
	SummaryMaxTokens      int
}

type TimeoutConfig struct {
	LLM      time.Duration
	STT      time.Duration
	Line     time.Duration
	Download time.Duration
	Job      time.Duration
}

type AudioConfig struct {
	DirectMaxBytes    int64
	SyncMaxBytes      int64
	HardCapBytes      int64
	ChunkMaxBytes     int64
	ByteSplitParts    int
	SegmentSeconds    int
	FFmpegPath        string
	ChunkDelay        time.Duration
	SummaryCharBudget int
}

type DeliveryConfig struct {
	MaxMessageChars     int
	TranscriptPartChars int
	SendDelay           time.Duration
}

type WorkerConfig struct {
	Workers    int
	QueueDepth int
}

type SessionConfig struct {
	HistoryTurns int
	MaxUsers     int
	TTL          time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:           getEnv("PORT", "5000"),
			Environment:    getEnv("GO_ENV", "development"),
			LogFilePath:    getEnv("LOG_FILE_PATH", "logs/app.log"),
			LLMLogFilePath: getEnv("LLM_LOG_FILE_PATH", "logs/llm.log"),
			NatsURL:        getEnv("NATS_URL", ""),
			RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379"),
			StatusStore:    getEnv("STATUS_STORE", "memory"),
			TempDir:        getEnv("TEMP_DIR", os.TempDir()),
		},
		Line: LineConfig{
			ChannelSecret:      getEnv("LINE_CHANNEL_SECRET", ""),
			ChannelAccessToken: getEnv("LINE_CHANNEL_ACCESS_TOKEN", ""),
			APIBaseURL:         getEnv("LINE_API_BASE_URL", "https://api.line.me"),
			DataAPIBaseURL:     getEnv("LINE_DATA_API_BASE_URL", "https://api-data.line.me"),
		},
		Ai: AIConfig{
			LLMProvider:           getEnv("LLM_PROVIDER", "openai"),
			LLMModel:              getEnv("LLM_MODEL", "gpt-3.5-turbo"),
			OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:         getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			OllamaBaseURL:         getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			HuggingFaceAPIKey:     getEnv("HUGGINGFACE_API_KEY", ""),
			STTModel:              getEnv("STT_MODEL", "whisper-1"),
			TranscriptionLanguage: getEnv("TRANSCRIPTION_LANGUAGE", "zh"),
			ChatMaxTokens:         getEnvAsInt("CHAT_MAX_TOKENS", 300),
			ChatTemperature:       getEnvAsFloat("CHAT_TEMPERATURE", 0.7),
			SummaryMaxTokens:      getEnvAsInt("SUMMARY_MAX_TOKENS", 1500),
		},
		Timeouts: TimeoutConfig{
			LLM:      getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
			STT:      getEnvAsDuration("STT_TIMEOUT", 5*time.Minute),
			Line:     getEnvAsDuration("LINE_TIMEOUT", 15*time.Second),
			Download: getEnvAsDuration("DOWNLOAD_TIMEOUT", 5*time.Minute),
			Job:      getEnvAsDuration("JOB_TIMEOUT", 60*time.Minute),
		},
		Audio: AudioConfig{
			DirectMaxBytes:    int64(getEnvAsInt("AUDIO_DIRECT_MAX_MB", 25)) * megabyte,
			SyncMaxBytes:      int64(getEnvAsInt("AUDIO_SYNC_MAX_MB", 30)) * megabyte,
			HardCapBytes:      int64(getEnvAsInt("AUDIO_HARD_CAP_MB", 200)) * megabyte,
			ChunkMaxBytes:     int64(getEnvAsInt("AUDIO_CHUNK_MAX_MB", 20)) * megabyte,
			ByteSplitParts:    getEnvAsInt("AUDIO_BYTE_SPLIT_PARTS", 6),
			SegmentSeconds:    getEnvAsInt("AUDIO_SEGMENT_SECONDS", 600),
			FFmpegPath:        getEnv("FFMPEG_PATH", "ffmpeg"),
			ChunkDelay:        getEnvAsDuration("AUDIO_CHUNK_DELAY", time.Second),
			SummaryCharBudget: getEnvAsInt("SUMMARY_CHAR_BUDGET", 4000),
		},
		Delivery: DeliveryConfig{
			MaxMessageChars:     getEnvAsInt("MESSAGE_MAX_CHARS", 5000),
			TranscriptPartChars: getEnvAsInt("TRANSCRIPT_PART_CHARS", 4500),
			SendDelay:           getEnvAsDuration("DELIVERY_SEND_DELAY", 500*time.Millisecond),
		},
		Workers: WorkerConfig{
			Workers:    getEnvAsInt("AUDIO_WORKERS", 2),
			QueueDepth: getEnvAsInt("AUDIO_QUEUE_DEPTH", 8),
		},
		Session: SessionConfig{
			HistoryTurns: getEnvAsInt("HISTORY_TURNS", 6),
			MaxUsers:     getEnvAsInt("SESSION_MAX_USERS", 1000),
			TTL:          getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("90s", "5m").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
