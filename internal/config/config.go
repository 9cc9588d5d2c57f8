package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrConfiguration is returned when the process cannot start with the supplied settings.
var ErrConfiguration = errors.New("configuration error")

type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Model  ModelConfig  `yaml:"model"`
	Store  StoreConfig  `yaml:"store"`
}

type ServerConfig struct {
	HTTPPort        string        `yaml:"http_port"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	Console    bool   `yaml:"console"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type ModelConfig struct {
	APIKey      string        `yaml:"api_key"`
	ChatModel   string        `yaml:"chat_model"`
	AssistModel string        `yaml:"assist_model"`
	ConvoPrompt string        `yaml:"convo_prompt"`
	Timeout     time.Duration `yaml:"timeout"`
}

type StoreConfig struct {
	Driver      string `yaml:"driver"` // "sqlite" or "bolt"
	DatabaseURL string `yaml:"database_url"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        "8080",
			AllowedOrigins:  []string{"http://localhost:3000"},
			ShutdownTimeout: 30 * time.Second,
		},
		Log: LogConfig{Level: "info", Console: true, MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 30},
		Model: ModelConfig{
			ChatModel:   "gemma-3-12b-it",
			AssistModel: "gemini-1.5-flash",
			Timeout:     60 * time.Second,
		},
		Store: StoreConfig{Driver: "sqlite", DatabaseURL: "backend.db"},
	}
}

// LoadConfig builds the configuration from defaults, an optional YAML file,
// a .env file and the process environment, in increasing precedence.
// An empty configFile falls back to $CONFIG_FILE.
func LoadConfig(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, relying on environment variables")
	}

	cfg := defaults()

	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
	}
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrConfiguration, configFile, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", ErrConfiguration, configFile, err)
		}
	}

	envOverride(&cfg.Model.APIKey, "GEMINI_API_KEY")
	envOverride(&cfg.Model.APIKey, "GOOGLEKEY")
	envOverride(&cfg.Model.ChatModel, "CHAT_MODEL")
	envOverride(&cfg.Model.AssistModel, "ASSIST_MODEL")
	envOverride(&cfg.Model.ConvoPrompt, "CONVO_PROMPT")
	envOverrideDuration(&cfg.Model.Timeout, "MODEL_TIMEOUT")
	envOverride(&cfg.Server.HTTPPort, "HTTP_PORT")
	envOverrideDuration(&cfg.Server.ShutdownTimeout, "SHUTDOWN_TIMEOUT")
	if origins := getEnv("ALLOWED_ORIGINS", ""); origins != "" {
		cfg.Server.AllowedOrigins = splitList(origins)
	}
	envOverride(&cfg.Store.Driver, "STORE_DRIVER")
	envOverride(&cfg.Store.DatabaseURL, "DATABASE_URL")
	envOverride(&cfg.Log.Level, "LOG_LEVEL")
	envOverride(&cfg.Log.File, "LOG_FILE")
	envOverrideInt(&cfg.Log.MaxSizeMB, "LOG_MAX_SIZE_MB")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Model.APIKey == "" {
		return fmt.Errorf("%w: GOOGLEKEY environment variable is required", ErrConfiguration)
	}
	switch c.Store.Driver {
	case "sqlite", "bolt":
	default:
		return fmt.Errorf("%w: unknown STORE_DRIVER %q", ErrConfiguration, c.Store.Driver)
	}
	if c.Model.Timeout <= 0 {
		return fmt.Errorf("%w: MODEL_TIMEOUT must be positive", ErrConfiguration)
	}
	return nil
}

func (c *Config) Addr() string {
	return ":" + c.Server.HTTPPort
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func envOverride(dst *string, key string) {
	if v := getEnv(key, ""); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) {
	if v := getEnv(key, ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("ignoring non-integer env value", "key", key, "value", v)
			return
		}
		*dst = n
	}
}

func envOverrideDuration(dst *time.Duration, key string) {
	if v := getEnv(key, ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("ignoring invalid duration env value", "key", key, "value", v)
			return
		}
		*dst = d
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
