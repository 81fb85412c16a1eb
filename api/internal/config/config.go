package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port         string        `yaml:"port" validate:"required,numeric"`
	AnalyzePath  string        `yaml:"analyze_path" validate:"required,startswith=/"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" validate:"gt=0"`
	Timeout      time.Duration `yaml:"request_timeout" validate:"gte=0"`
	StrictSchema bool          `yaml:"strict_schema"`

	GeminiAPIKey string `yaml:"gemini_api_key" validate:"required"`
	GeminiModel  string `yaml:"gemini_model" validate:"required"`

	LogLevel  string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" validate:"omitempty,oneof=json console"`

	TelegramBotToken string `yaml:"telegram_bot_token"`
	WebhookURL       string `yaml:"webhook_url" validate:"omitempty,url"`
}

func Default() *Config {
	return &Config{
		Port:         "8000",
		AnalyzePath:  "/analyze",
		MaxBodyBytes: 1 << 20,
		Timeout:      60 * time.Second,
		GeminiModel:  "gemini-2.5-flash",
		LogLevel:     "info",
		LogFormat:    "json",
	}
}

// Load reads .env files (if any), then CONFIG_FILE (if set), then env overrides, and validates.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	cfg := Default()
	if p := strings.TrimSpace(os.Getenv("CONFIG_FILE")); p != "" {
		if err := cfg.loadFile(p); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.AnalyzePath, "ANALYZE_PATH")
	setString(&c.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.GeminiModel, "GEMINI_MODEL")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")
	setString(&c.TelegramBotToken, "TELEGRAM_BOT_TOKEN")
	setString(&c.WebhookURL, "WEBHOOK_URL")

	if v := getEnv("MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_BODY_BYTES: %w", err)
		}
		c.MaxBodyBytes = n
	}
	if v := getEnv("REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("REQUEST_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := getEnv("STRICT_SCHEMA"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("STRICT_SCHEMA: %w", err)
		}
		c.StrictSchema = b
	}
	return nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func getEnv(k string) string {
	return strings.TrimSpace(os.Getenv(k))
}

func setString(dst *string, k string) {
	if v := getEnv(k); v != "" {
		*dst = v
	}
}
