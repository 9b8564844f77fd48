package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is loaded once at startup and passed down; nothing mutates it after.
type Config struct {
	Environment     string
	Port            string
	ShutdownTimeout time.Duration

	Transcription TranscriptionConfig
	LLM           LLMConfig
	Ledger        LedgerConfig
	Media         MediaConfig
	Supabase      SupabaseConfig
}

type TranscriptionConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type LLMConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type LedgerConfig struct {
	Backend         string // memory|sqlite|postgres|mongo|supabase
	Path            string
	SQLitePath      string
	PostgresDSN     string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	Bucket          string
	MaxRetry        time.Duration
	Timeout         time.Duration
}

type MediaConfig struct {
	Backend      string // http|supabase
	DeleteURL    string
	Token        string
	FetchTimeout time.Duration
}

type SupabaseConfig struct {
	URL string
	Key string
}

// Load reads the process environment. Call godotenv.Load first to pick up .env.
func Load() Config {
	return Config{
		Environment:     envOr("ENVIRONMENT", "local"),
		Port:            envOr("PORT", "8080"),
		ShutdownTimeout: seconds("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		Transcription: TranscriptionConfig{
			BaseURL: envOr("TRANSCRIBE_BASE_URL", "https://api.deepinfra.com/v1/openai"),
			APIKey:  os.Getenv("TRANSCRIBE_API_KEY"),
			Model:   envOr("TRANSCRIBE_MODEL", "openai/whisper-large-v3"),
			Timeout: seconds("TRANSCRIBE_TIMEOUT", 120*time.Second),
		},
		LLM: LLMConfig{
			BaseURL: envOr("LLM_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai"),
			APIKey:  os.Getenv("LLM_API_KEY"),
			Model:   envOr("LLM_MODEL", "gemini-2.0-flash"),
			Timeout: seconds("LLM_TIMEOUT", 90*time.Second),
		},
		Ledger: LedgerConfig{
			Backend:         strings.ToLower(envOr("LEDGER_BACKEND", "sqlite")),
			Path:            envOr("LEDGER_PATH", "history/results.json"),
			SQLitePath:      envOr("LEDGER_SQLITE_PATH", "data/ledger.sqlite"),
			PostgresDSN:     os.Getenv("LEDGER_POSTGRES_DSN"),
			MongoURI:        os.Getenv("LEDGER_MONGO_URI"),
			MongoDatabase:   envOr("LEDGER_MONGO_DATABASE", "audio_insights"),
			MongoCollection: envOr("LEDGER_MONGO_COLLECTION", "ledger_documents"),
			Bucket:          envOr("LEDGER_BUCKET", "analytics"),
			MaxRetry:        seconds("LEDGER_MAX_RETRY", 15*time.Second),
			Timeout:         seconds("LEDGER_TIMEOUT", 20*time.Second),
		},
		Media: MediaConfig{
			Backend:      strings.ToLower(envOr("MEDIA_BACKEND", "http")),
			DeleteURL:    os.Getenv("MEDIA_DELETE_URL"),
			Token:        os.Getenv("MEDIA_TOKEN"),
			FetchTimeout: seconds("MEDIA_FETCH_TIMEOUT", 60*time.Second),
		},
		Supabase: SupabaseConfig{
			URL: os.Getenv("SUPABASE_URL"),
			Key: os.Getenv("SUPABASE_KEY"),
		},
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// seconds reads an integer number of seconds.
func seconds(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return fallback
}
