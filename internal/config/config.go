// Package config loads runtime settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every tunable. All variables carry the FABLE_ prefix, e.g.
// FABLE_DB_PATH, FABLE_OPENROUTER_KEY.
type Config struct {
	DBPath   string `envconfig:"DB_PATH" default:"fablecraft.db"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	OpenRouterKey string `envconfig:"OPENROUTER_KEY"`
	Model         string `envconfig:"MODEL" default:"anthracite-org/magnum-v4-72b"`
	EmbedModel    string `envconfig:"EMBED_MODEL" default:"openai/text-embedding-3-small"`

	FirebaseProject string `envconfig:"FIREBASE_PROJECT"`
	SyncUserID      string `envconfig:"SYNC_USER_ID"`
}

// Load reads .env if present, then the process environment.
func Load() (*Config, error) {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("FABLE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
