package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr           string   `env:"HTTP_ADDR" envDefault:":8080"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite"`
	// sqlite demo: file:dispensary.db?_pragma=foreign_keys(1)
	// mysql demo:  app:apppass@tcp(127.0.0.1:3306)/dispensary?charset=utf8mb4&parseTime=true&loc=Local
	DBDSN string `env:"DB_DSN" envDefault:"file:dispensary.db?_pragma=foreign_keys(1)"`

	JWTSecret string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	RabbitURL   string `env:"RABBIT_URL"`
	RabbitQueue string `env:"RABBIT_QUEUE" envDefault:"notifications"`
	// used by cmd/worker
	WorkerConcurrency int `env:"WORKER_CONCURRENCY" envDefault:"2"`

	SMTP             SMTPConfig `envPrefix:"SMTP_"`
	AdminNotifyEmail string     `env:"ADMIN_NOTIFY_EMAIL"`

	AI     AIConfig
	Search SearchConfig
	Quota  QuotaConfig
	Upload UploadConfig `envPrefix:"UPLOAD_"`

	RateLimitEnabled bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitRate    string `env:"RATE_LIMIT_RATE" envDefault:"30-M"`

	// When true, ended sessions refuse new messages and admin claims.
	RejectEndedSessions bool `env:"CHAT_REJECT_ENDED_SESSIONS" envDefault:"false"`

	Log LogConfig `envPrefix:"LOG_"`
}

type SMTPConfig struct {
	Host string `env:"HOST"`
	Port int    `env:"PORT" envDefault:"587"`
	User string `env:"USER"`
	Pass string `env:"PASS"`
	From string `env:"FROM"`
}

type AIConfig struct {
	Provider          string `env:"AI_PROVIDER" envDefault:"gemini"`
	GeminiAPIKey      string `env:"GEMINI_API_KEY"`
	GeminiModel       string `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
	OllamaBaseURL     string `env:"OLLAMA_BASE_URL" envDefault:"http://localhost:11434"`
	OllamaModel       string `env:"OLLAMA_MODEL" envDefault:"llava:latest"`
	ContextWindowSize int    `env:"CHAT_CONTEXT_WINDOW_SIZE" envDefault:"20"`
}

type SearchConfig struct {
	APIKey     string `env:"GOOGLE_SEARCH_API_KEY"`
	EngineID   string `env:"GOOGLE_SEARCH_ENGINE_ID"`
	MaxResults int    `env:"GOOGLE_SEARCH_RESULTS" envDefault:"5"`
}

// QuotaConfig holds the daily and monthly budgets for the two metered vendors.
type QuotaConfig struct {
	GeminiDailyTokens   int64 `env:"GEMINI_DAILY_TOKEN_LIMIT" envDefault:"100000"`
	GeminiMonthlyTokens int64 `env:"GEMINI_MONTHLY_TOKEN_LIMIT" envDefault:"2000000"`
	SearchDaily         int64 `env:"GOOGLE_SEARCH_DAILY_LIMIT" envDefault:"100"`
	SearchMonthly       int64 `env:"GOOGLE_SEARCH_MONTHLY_LIMIT" envDefault:"3000"`
}

type UploadConfig struct {
	Dir        string `env:"DIR" envDefault:"uploads"`
	PublicPath string `env:"PUBLIC_PATH" envDefault:"/uploads"`
	MaxBytes   int64  `env:"MAX_BYTES" envDefault:"10485760"`
	MaxFiles   int    `env:"MAX_FILES" envDefault:"5"`
}

type LogConfig struct {
	Level      string `env:"LEVEL" envDefault:"info"`
	Format     string `env:"FORMAT" envDefault:"json"`   // json, text
	Output     string `env:"OUTPUT" envDefault:"stdout"` // stdout, file, both
	FilePath   string `env:"FILE_PATH" envDefault:"logs/dispensary.log"`
	MaxSize    int    `env:"MAX_SIZE" envDefault:"100"` // MB
	MaxAge     int    `env:"MAX_AGE" envDefault:"30"`   // days
	MaxBackups int    `env:"MAX_BACKUPS" envDefault:"10"`
	Compress   bool   `env:"COMPRESS" envDefault:"true"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.User
	}
	if cfg.AI.ContextWindowSize <= 0 || cfg.AI.ContextWindowSize > 100 {
		cfg.AI.ContextWindowSize = 20
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	return cfg, nil
}

// MustLoad is Load for process entrypoints.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
