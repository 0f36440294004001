package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/fablecraft/gofable/internal/config"
	"github.com/fablecraft/gofable/internal/store"
)

// env bundles everything a command needs.
type env struct {
	cfg   *config.Config
	store *store.SQLiteStore
	log   zerolog.Logger
}

func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()

	st, err := store.NewSQLiteStoreWithDSN(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, store: st, log: log}, nil
}

func (e *env) close() {
	if err := e.store.Close(); err != nil {
		e.log.Error().Err(err).Msg("failed to close store")
	}
}
