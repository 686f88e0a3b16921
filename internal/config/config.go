package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Cfg struct {
	App        App
	Database   Database
	Logger     Logger
	OpenAI     OpenAI
	Anthropic  Anthropic
	Context    Context
	RateLimit  RateLimit
	Migrations Migrations
	Metrics    Metrics
}

type App struct {
	Host  string
	Port  string
	Debug bool
	// DefaultProvider провайдер, если запрос его не указал.
	DefaultProvider string
}

type Database struct {
	Driver   string
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	// Path файл базы для sqlite.
	Path string
}

type Migrations struct {
	Path string
}

type Logger struct {
	Env   string
	Level string
}

type OpenAI struct {
	KeyAI     string
	Model     string
	MaxTokens int
}

type Anthropic struct {
	Key       string
	Model     string
	MaxTokens int
}

type Context struct {
	TotalBudget     int
	PromptBudget    int
	ResponseReserve int
	RecentMessages  int
	ModesFile       string
}

type RateLimit struct {
	Capacity      int
	RefillPer     time.Duration
	IdleTTL       time.Duration
	SweepEvery    time.Duration
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type Metrics struct {
	Namespace string
}

func Load() (*Cfg, error) {
	_ = godotenv.Load()

	cfg := &Cfg{
		App: App{
			Host:            env("APP_HOST", "0.0.0.0"),
			Port:            env("APP_PORT", "8080"),
			Debug:           envBool("APP_DEBUG"),
			DefaultProvider: env("DEFAULT_PROVIDER", "anthropic"),
		},
		Database: Database{
			Driver:   env("DB_DRIVER", DriverPostgres),
			Host:     env("DB_HOST", "localhost"),
			Port:     env("DB_PORT", "5432"),
			Name:     env("DB_NAME", "storyforge"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASS"),
			SSLMode:  env("DB_SSLMODE", "disable"),
			Path:     env("DB_PATH", "storyforge.db"),
		},
		Logger: Logger{
			Env:   env("ENV", "dev"),
			Level: env("LOG_LEVEL", "info"),
		},
		OpenAI: OpenAI{
			KeyAI:     os.Getenv("OPENAI_API_KEY"),
			Model:     env("OPENAI_MODEL", "gpt-4o"),
			MaxTokens: envInt("OPENAI_MAX_TOKENS", 1000),
		},
		Anthropic: Anthropic{
			Key:       os.Getenv("ANTHROPIC_API_KEY"),
			Model:     env("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
			MaxTokens: envInt("ANTHROPIC_MAX_TOKENS", 1000),
		},
		Context: Context{
			TotalBudget:     envInt("CONTEXT_TOTAL_BUDGET", 3000),
			PromptBudget:    envInt("CONTEXT_PROMPT_BUDGET", 8000),
			ResponseReserve: envInt("CONTEXT_RESPONSE_RESERVE", 1000),
			RecentMessages:  envInt("CONTEXT_RECENT_MESSAGES", 6),
			ModesFile:       os.Getenv("MODES_FILE"),
		},
		RateLimit: RateLimit{
			Capacity:      envInt("RATE_LIMIT_CAPACITY", 20),
			RefillPer:     envDuration("RATE_LIMIT_REFILL", time.Minute),
			IdleTTL:       envDuration("RATE_LIMIT_IDLE_TTL", time.Hour),
			SweepEvery:    envDuration("RATE_LIMIT_SWEEP", 10*time.Minute),
			Backend:       env("RATE_LIMIT_BACKEND", "memory"),
			RedisAddr:     env("REDIS_ADDR", "localhost:6379"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       envInt("REDIS_DB", 0),
		},
		Migrations: Migrations{
			Path: env("MIGRATIONS_PATH", "file://migrations"),
		},
		Metrics: Metrics{
			Namespace: env("METRICS_NAMESPACE", "storyforge"),
		},
	}

	if d := cfg.Database.Driver; d != DriverPostgres && d != DriverSQLite {
		return nil, fmt.Errorf("DB_DRIVER должен быть %s или %s, получено %q", DriverPostgres, DriverSQLite, d)
	}
	return cfg, nil
}

// DSN строка подключения для gorm postgres.
func (d Database) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// URL адрес базы для golang-migrate.
func (d Database) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

func env(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func envInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "true" || v == "1" || v == "yes"
}

func envDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
