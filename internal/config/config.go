// Package config loads process settings for the toolround command from the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

// Config holds provider credentials and server settings.
type Config struct {
	GeminiAPIKey    string `envconfig:"GEMINI_API_KEY"`
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	OllamaHost      string `envconfig:"OLLAMA_HOST"` // empty: the ollama client's own default

	// ProfilesToken authenticates --profiles-url (Bearer) and --profiles-git (HTTPS).
	ProfilesToken string `envconfig:"TOOLROUND_PROFILES_TOKEN"`

	LogLevel  string `envconfig:"TOOLROUND_LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"TOOLROUND_LOG_PRETTY" default:"false"`
	Addr      string `envconfig:"TOOLROUND_ADDR" default:":8080"`
}

// Load reads .env from the working directory if present, then the environment.
// Variables already set in the environment win over .env.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	return LoadFromEnv()
}

// LoadFiles reads the given env files, which must exist, then the environment.
func LoadFiles(paths ...string) (*Config, error) {
	if err := godotenv.Load(paths...); err != nil {
		return nil, fmt.Errorf("config: load env files: %w", err)
	}
	return LoadFromEnv()
}

// LoadFromEnv reads the environment only.
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("config: TOOLROUND_LOG_LEVEL: %w", err)
	}
	return &cfg, nil
}

// Logger builds the process logger: JSON to w, or a console writer when LogPretty is set.
func (c *Config) Logger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if c.LogPretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
