// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"telegram-movie-finder/internal/domain/model"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token              string  `yaml:"token" env:"BOT_TOKEN"`
	Mode               string  `yaml:"mode"` // polling | webhook (future)
	Username           string  `yaml:"username" env:"BOT_USERNAME"`
	Workers            int     `yaml:"workers" validate:"gte=0"` // polling workers
	AdminIDs           []int64 `yaml:"admin_ids"`
	RateLimitPerMinute int     `yaml:"rate_limit_per_minute" validate:"gte=0"`
}

type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL"` // trace|debug|info|warn|error
	Format   string `yaml:"format"`                // json|console
	Sampling bool   `yaml:"sampling"`              // enable sampling in prod
}

type AdminConfig struct {
	Port      int    `yaml:"port" validate:"gte=0,lte=65535"`
	JWTSecret string `yaml:"jwt_secret" env:"ADMIN_JWT_SECRET"`
}

type DatabaseConfig struct {
	URL         string `yaml:"url" env:"DATABASE_URL"`
	MaxConns    int32  `yaml:"max_conns" validate:"gte=0"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

type RedisConfig struct {
	URL      string        `yaml:"url" env:"REDIS_URL"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AIConfig struct {
	Provider        string `yaml:"provider"` // gemini | openai | multi | none
	GeminiKey       string `yaml:"gemini_key" env:"GEMINI_API_KEY"`
	GeminiURL       string `yaml:"gemini_url"`
	OpenAIKey       string `yaml:"openai_key" env:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `yaml:"openai_base_url"`
	DefaultModel    string `yaml:"default_model"`
	ConcurrentLimit int    `yaml:"concurrent_limit" validate:"gte=0"` // max concurrent AI calls
	MaxPromptTokens int    `yaml:"max_prompt_tokens" validate:"gte=0"`
}

type CatalogConfig struct {
	TMDBKey     string        `yaml:"tmdb_key" env:"TMDB_API_KEY"`
	BaseURL     string        `yaml:"base_url"`
	Language    string        `yaml:"language"`
	ResultLimit int           `yaml:"result_limit" validate:"gte=0,lte=20"`
	Timeout     time.Duration `yaml:"timeout"`
}

// PolicyConfig carries the business constants of the entitlement model.
// FreeSearchLimit is a pointer because 0 is a valid setting: it sends every
// unregistered user straight to the contact prompt.
type PolicyConfig struct {
	FreeSearchLimit   *int `yaml:"free_search_limit" validate:"omitempty,gte=0"`
	TrialDays         int  `yaml:"trial_days" validate:"gte=0"`
	WarningDay        int  `yaml:"warning_day" validate:"gte=0"`
	PointsPerRef      int  `yaml:"points_per_ref" validate:"gte=0"`
	PremiumCostPoints int  `yaml:"premium_cost_points" validate:"gte=0"`
	ClassifyCountry   bool `yaml:"classify_country"`
}

type NotifyConfig struct {
	Workers int `yaml:"workers" validate:"gte=0"`
}

type SchedulerConfig struct {
	StatsInterval time.Duration `yaml:"stats_interval"`
}

type Config struct {
	Bot       BotConfig       `yaml:"bot"`
	Log       LogConfig       `yaml:"log"`
	Admin     AdminConfig     `yaml:"admin"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	AI        AIConfig        `yaml:"ai"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Policy    PolicyConfig    `yaml:"policy"`
	Notify    NotifyConfig    `yaml:"notify"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, overlays .env and process
// environment, fills defaults and validates the result.
func LoadConfig(path string, dev bool) (*Config, error) {
	// .env is optional; real environment always wins over it.
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return parse(b, dev)
}

func parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	applyDefaults(&cfg)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if err := cfg.EntitlementPolicy().Validate(); err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}

	// Minimal validation
	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Bot.RateLimitPerMinute <= 0 {
		cfg.Bot.RateLimitPerMinute = 20
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Admin.Port == 0 {
		cfg.Admin.Port = 8080
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	if cfg.AI.Provider == "" {
		switch {
		case cfg.AI.GeminiKey != "":
			cfg.AI.Provider = "gemini"
		case cfg.AI.OpenAIKey != "":
			cfg.AI.Provider = "openai"
		default:
			cfg.AI.Provider = "none"
		}
	}
	cfg.AI.Provider = strings.ToLower(cfg.AI.Provider)
	if cfg.AI.DefaultModel == "" {
		if cfg.AI.Provider == "openai" {
			cfg.AI.DefaultModel = "gpt-4o-mini"
		} else {
			cfg.AI.DefaultModel = "gemini-1.5-flash"
		}
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}
	if cfg.AI.MaxPromptTokens <= 0 {
		cfg.AI.MaxPromptTokens = 256
	}

	if cfg.Catalog.BaseURL == "" {
		cfg.Catalog.BaseURL = "https://api.themoviedb.org/3"
	}
	if cfg.Catalog.Language == "" {
		cfg.Catalog.Language = "ru-RU"
	}
	if cfg.Catalog.ResultLimit <= 0 {
		cfg.Catalog.ResultLimit = 5
	}
	if cfg.Catalog.Timeout <= 0 {
		cfg.Catalog.Timeout = 10 * time.Second
	}

	def := model.DefaultPolicy()
	if cfg.Policy.FreeSearchLimit == nil {
		n := def.FreeSearchLimit
		cfg.Policy.FreeSearchLimit = &n
	}
	if cfg.Policy.TrialDays == 0 {
		cfg.Policy.TrialDays = def.TrialDays
	}
	if cfg.Policy.WarningDay == 0 {
		cfg.Policy.WarningDay = def.WarningDay
	}
	if cfg.Policy.PointsPerRef == 0 {
		cfg.Policy.PointsPerRef = def.PointsPerRef
	}
	if cfg.Policy.PremiumCostPoints == 0 {
		cfg.Policy.PremiumCostPoints = def.PremiumCostPoints
	}

	if cfg.Notify.Workers <= 0 {
		cfg.Notify.Workers = 4
	}
	if cfg.Scheduler.StatsInterval <= 0 {
		cfg.Scheduler.StatsInterval = 5 * time.Minute
	}
}

// EntitlementPolicy converts the policy section into the immutable domain value.
func (c *Config) EntitlementPolicy() model.Policy {
	return model.Policy{
		FreeSearchLimit:   freeSearchLimit(c.Policy.FreeSearchLimit),
		TrialDays:         c.Policy.TrialDays,
		WarningDay:        c.Policy.WarningDay,
		PointsPerRef:      c.Policy.PointsPerRef,
		PremiumCostPoints: c.Policy.PremiumCostPoints,
		ClassifyCountry:   c.Policy.ClassifyCountry,
	}
}

func freeSearchLimit(n *int) int {
	if n == nil {
		return model.DefaultPolicy().FreeSearchLimit
	}
	return *n
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
