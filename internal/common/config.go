package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all worker configuration
type Config struct {
	Database   DatabaseConfig
	Worker     WorkerConfig
	OCR        OCRConfig
	Transcribe TranscribeConfig
	LLM        LLMConfig
	Extract    ExtractConfig
	DataDir    string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// WorkerConfig holds the poll/retry/reclaim contract points of the job loop.
type WorkerConfig struct {
	PollInterval time.Duration
	MaxAttempts  int
	ReclaimAfter time.Duration
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Pdftotext string
	Pdftoppm  string
	Tesseract string
	Lang      string
	DPI       int
	MaxPages  int
}

// TranscribeConfig holds audio/video transcription configuration
type TranscribeConfig struct {
	FFmpeg    string
	Whisper   string
	ModelPath string
	Language  string // empty = auto-detect
}

// LLMConfig holds the model backend configuration
type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// ExtractConfig bounds the structured/discovery extraction stages.
type ExtractConfig struct {
	MaxChars    int // characters of segment text fed to the model
	MaxAttempts int // model attempts including repair prompts
	MaxFacts    int // discovery facts per artifact
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Worker: WorkerConfig{
			PollInterval: getEnvAsDuration("WORKER_POLL_SECONDS", time.Second),
			MaxAttempts:  getEnvAsInt("WORKER_MAX_ATTEMPTS", 3),
			ReclaimAfter: getEnvAsDuration("WORKER_RECLAIM_AFTER_SECONDS", 15*time.Minute),
		},
		OCR: OCRConfig{
			Pdftotext: getEnv("OCR_PDFTOTEXT", "pdftotext"),
			Pdftoppm:  getEnv("OCR_PDFTOPPM", "pdftoppm"),
			Tesseract: getEnv("OCR_TESSERACT", "tesseract"),
			Lang:      getEnv("OCR_LANG", "eng"),
			DPI:       getEnvAsInt("OCR_DPI", 220),
			MaxPages:  getEnvAsInt("OCR_MAX_PAGES", 0),
		},
		Transcribe: TranscribeConfig{
			FFmpeg:    getEnv("FFMPEG_BIN", "ffmpeg"),
			Whisper:   getEnv("WHISPER_BIN", "whisper-cli"),
			ModelPath: getEnv("WHISPER_MODEL_PATH", ""),
			Language:  getEnv("WHISPER_LANGUAGE", ""),
		},
		LLM: LLMConfig{
			BaseURL:     getEnv("LLM_BASE_URL", "http://127.0.0.1:8081/v1"),
			APIKey:      getEnv("LLM_API_KEY", ""),
			Model:       getEnv("LLM_MODEL", "local"),
			Temperature: getEnvAsFloat32("LLM_TEMPERATURE", 0.1),
			MaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 700),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 120*time.Second),
		},
		Extract: ExtractConfig{
			MaxChars:    getEnvAsInt("STRUCTURED_MAX_CHARS", 12000),
			MaxAttempts: getEnvAsInt("STRUCTURED_LLM_ATTEMPTS", 2),
			MaxFacts:    getEnvAsInt("DISCOVERY_MAX_FACTS", 40),
		},
		DataDir: getEnv("ARTIFACT_DATA_DIR", "./data"),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts either a Go duration string ("90s", "15m") or a
// bare number of seconds, matching the original *_SECONDS variable names.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultValue
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Worker.MaxAttempts < 1 {
		return NewAppError("CONFIG_ERROR", "WORKER_MAX_ATTEMPTS must be >= 1", ErrInvalidInput)
	}
	if c.Worker.PollInterval <= 0 {
		return NewAppError("CONFIG_ERROR", "WORKER_POLL_SECONDS must be positive", ErrInvalidInput)
	}
	return nil
}
