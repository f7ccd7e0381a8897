package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderMock      = "mock"
)

var defaultModels = map[string]string{
	ProviderAnthropic: "claude-sonnet-4-5",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderGemini:    "gemini-2.5-pro",
	ProviderMock:      "mock",
}

// Config is built once at startup and passed to every component.
// Values come from defaults, then an optional YAML file, then the environment.
type Config struct {
	Environment  string     `yaml:"environment" env:"ENVIRONMENT"`
	LogLevelName string     `yaml:"log_level" env:"LOG_LEVEL"`
	LogLevel     slog.Level `yaml:"-"`
	LogFile      string     `yaml:"log_file" env:"LOG_FILE"`

	CampaignDir   string            `yaml:"campaign_files_path" env:"CAMPAIGN_FILES_PATH"`
	SessionsDir   string            `yaml:"sessions_directory" env:"SESSIONS_DIRECTORY"`
	FileMapping   map[string]string `yaml:"file_mapping"` // overrides for campaign file names, by key
	BackupEnabled bool              `yaml:"backup_enabled" env:"BACKUP_ENABLED"`
	RedisURL      string            `yaml:"redis_url" env:"REDIS_URL"` // optional session summary cache

	LLMProvider     string        `yaml:"llm_provider" env:"LLM_PROVIDER"`
	ModelName       string        `yaml:"model_name" env:"MODEL_NAME"`
	AnthropicAPIKey string        `yaml:"-" env:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string        `yaml:"-" env:"OPENAI_API_KEY"`
	GeminiAPIKey    string        `yaml:"-" env:"GEMINI_API_KEY"`
	MaxTokens       int           `yaml:"max_tokens" env:"MAX_TOKENS"`
	Temperature     float64       `yaml:"temperature" env:"TEMPERATURE"`
	ResponseTimeout time.Duration `yaml:"ai_response_timeout" env:"AI_RESPONSE_TIMEOUT"`

	AutoSaveInterval time.Duration `yaml:"auto_save_interval" env:"AUTO_SAVE_INTERVAL"`
	HistoryExchanges int           `yaml:"history_exchanges" env:"HISTORY_EXCHANGES"` // exchanges sent with each model call
	MaxHistory       int           `yaml:"max_history" env:"MAX_HISTORY"`             // messages kept in a session
	MaxContextSize   int           `yaml:"max_context_size" env:"MAX_CONTEXT_SIZE"`   // characters
	DefaultDC        int           `yaml:"default_difficulty_class" env:"DEFAULT_DIFFICULTY_CLASS"`
}

// Defaults returns a Config with every optional value filled in.
func Defaults() *Config {
	return &Config{
		Environment:      "development",
		LogLevelName:     "info",
		LogLevel:         slog.LevelInfo,
		LogFile:          "solo-dm.log",
		CampaignDir:      "./campaign_files",
		SessionsDir:      "./sessions",
		BackupEnabled:    true,
		LLMProvider:      ProviderAnthropic,
		MaxTokens:        2000,
		Temperature:      0.7,
		ResponseTimeout:  30 * time.Second,
		AutoSaveInterval: 5 * time.Minute,
		HistoryExchanges: 3,
		MaxHistory:       20,
		MaxContextSize:   100000,
		DefaultDC:        15,
	}
}

// Load reads .env (if present), the YAML file at path (or SOLO_DM_CONFIG,
// or ./solo-dm.yaml if it exists), then environment variables, and validates
// the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Defaults()

	explicit := path != ""
	if !explicit {
		path = getEnv("SOLO_DM_CONFIG", "")
		explicit = path != ""
	}
	if path == "" {
		path = "solo-dm.yaml"
	}
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.LogLevel = parseLogLevel(cfg.LogLevelName)
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	if cfg.ModelName == "" {
		cfg.ModelName = defaultModels[cfg.LLMProvider]
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate rejects configurations that cannot start a session.
func (c *Config) Validate() error {
	var errs []error

	if _, ok := defaultModels[c.LLMProvider]; !ok {
		errs = append(errs, fmt.Errorf("unknown llm provider %q", c.LLMProvider))
	}
	if key := c.APIKey(); key == "" && c.LLMProvider != ProviderMock {
		errs = append(errs, fmt.Errorf("an API key is required for provider %q", c.LLMProvider))
	}
	if c.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature must be between 0 and 2, got %v", c.Temperature))
	}
	if c.AutoSaveInterval < time.Minute {
		errs = append(errs, fmt.Errorf("auto save interval must be at least 1m, got %s", c.AutoSaveInterval))
	}
	if c.DefaultDC < 5 || c.DefaultDC > 30 {
		errs = append(errs, fmt.Errorf("default difficulty class must be between 5 and 30, got %d", c.DefaultDC))
	}
	if c.HistoryExchanges < 0 || c.MaxHistory < 0 {
		errs = append(errs, fmt.Errorf("history sizes cannot be negative"))
	}
	if c.SessionsDir == "" {
		errs = append(errs, fmt.Errorf("sessions directory is required"))
	}

	if info, err := os.Stat(c.CampaignDir); err != nil {
		errs = append(errs, fmt.Errorf("campaign directory %s: %w", c.CampaignDir, err))
	} else if !info.IsDir() {
		errs = append(errs, fmt.Errorf("campaign path %s is not a directory", c.CampaignDir))
	}

	return errors.Join(errs...)
}

// APIKey returns the key for the configured provider.
func (c *Config) APIKey() string {
	switch c.LLMProvider {
	case ProviderAnthropic:
		return c.AnthropicAPIKey
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	case ProviderGemini:
		return c.GeminiAPIKey
	}
	return ""
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
