package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// RecognizersConfig declares the four remote recognition endpoints and the
// two call timeouts. Audio processing is slower than document OCR, so it
// carries its own bound.
type RecognizersConfig struct {
	PassportURL string `yaml:"passport_url" envconfig:"RECOGNIZER_PASSPORT_URL"`
	LicenseURL  string `yaml:"license_url" envconfig:"RECOGNIZER_LICENSE_URL"`
	PatentURL   string `yaml:"patent_url" envconfig:"RECOGNIZER_PATENT_URL"`
	AudioURL    string `yaml:"audio_url" envconfig:"RECOGNIZER_AUDIO_URL"`

	DocumentTimeoutSeconds int `yaml:"document_timeout_seconds" envconfig:"RECOGNIZER_DOCUMENT_TIMEOUT_SECONDS"`
	AudioTimeoutSeconds    int `yaml:"audio_timeout_seconds" envconfig:"RECOGNIZER_AUDIO_TIMEOUT_SECONDS"`
}

// DocumentTimeout returns the per-call bound for document recognizers.
func (r RecognizersConfig) DocumentTimeout() time.Duration {
	return time.Duration(r.DocumentTimeoutSeconds) * time.Second
}

// AudioTimeout returns the per-call bound for the audio recognizer.
func (r RecognizersConfig) AudioTimeout() time.Duration {
	return time.Duration(r.AudioTimeoutSeconds) * time.Second
}

// SessionConfig selects the session store backend.
type SessionConfig struct {
	Backend string `yaml:"backend" envconfig:"SESSION_BACKEND"`
}

// DatabaseConfig holds postgres connection settings for the durable
// session store.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	KeysOrder  string `yaml:"keys_order"`
	Dir        string `yaml:"dir"`
	BotFile    string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// RateLimitConfig holds settings for the per-user inbound rate limit.
type RateLimitConfig struct {
	IntervalMS int `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// BackendMemory keeps sessions in process memory.
	BackendMemory = "memory"
	// BackendPostgres persists sessions in postgres.
	BackendPostgres = "postgres"
)

const (
	defaultDocumentTimeoutSeconds = 30
	defaultAudioTimeoutSeconds    = 60
)

// Config aggregates the full application configuration.
type Config struct {
	Telegram    TelegramConfig    `yaml:"telegram"`
	Webhook     WebhookConfig     `yaml:"webhook"`
	Recognizers RecognizersConfig `yaml:"recognizers"`
	Session     SessionConfig     `yaml:"session"`
	Database    DatabaseConfig    `yaml:"database"`
	Logging     LoggingConfig     `yaml:"logging"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and
// adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	for name, url := range map[string]string{
		"recognizers.passport_url": cfg.Recognizers.PassportURL,
		"recognizers.license_url":  cfg.Recognizers.LicenseURL,
		"recognizers.patent_url":   cfg.Recognizers.PatentURL,
		"recognizers.audio_url":    cfg.Recognizers.AudioURL,
	} {
		if strings.TrimSpace(url) == "" {
			return fmt.Errorf("%s is required", name)
		}
	}
	if cfg.Recognizers.DocumentTimeoutSeconds < 0 || cfg.Recognizers.AudioTimeoutSeconds < 0 {
		return fmt.Errorf("recognizer timeouts must be >= 0")
	}
	if cfg.Recognizers.DocumentTimeoutSeconds == 0 {
		cfg.Recognizers.DocumentTimeoutSeconds = defaultDocumentTimeoutSeconds
	}
	if cfg.Recognizers.AudioTimeoutSeconds == 0 {
		cfg.Recognizers.AudioTimeoutSeconds = defaultAudioTimeoutSeconds
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Session.Backend))
	if backend == "" {
		backend = BackendMemory
	}
	switch backend {
	case BackendMemory:
	case BackendPostgres:
		if cfg.Database.Host == "" || cfg.Database.Name == "" || cfg.Database.User == "" {
			return fmt.Errorf("database.host, database.name and database.user are required when session.backend is 'postgres'")
		}
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 4
		}
	default:
		return fmt.Errorf("invalid session.backend %q; allowed: memory, postgres", cfg.Session.Backend)
	}
	cfg.Session.Backend = backend

	if cfg.RateLimit.IntervalMS < 0 {
		return fmt.Errorf("rate_limit.interval_ms must be >= 0")
	}

	return nil
}
