// Package bootstrap initializes infrastructure in dependency order: logger
// first, then the session backend, then the recognition gateway.
package bootstrap

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"intakebot/internal/config"
	"intakebot/internal/database"
	"intakebot/internal/logger"
	"intakebot/internal/recognizer"
	"intakebot/internal/session"
)

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	Store   session.Store
	Gateway recognizer.Gateway
	DB      *sqlx.DB
}

// Run initializes the logger and builds the session store and gateway. When
// the postgres backend is selected it also connects and applies migrations.
func Run(cfg *config.Config) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	if err := logger.InitLogger(cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	res := &Result{}
	switch cfg.Session.Backend {
	case config.BackendPostgres:
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
		}
		if err := database.RunMigrations(cfg.Database); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
		}
		res.DB = db
		res.Store = session.NewPostgresStore(db)
	default:
		res.Store = session.NewMemoryStore()
	}

	res.Gateway = recognizer.NewClient(recognizer.Config{
		PassportURL:     cfg.Recognizers.PassportURL,
		LicenseURL:      cfg.Recognizers.LicenseURL,
		PatentURL:       cfg.Recognizers.PatentURL,
		AudioURL:        cfg.Recognizers.AudioURL,
		DocumentTimeout: cfg.Recognizers.DocumentTimeout(),
		AudioTimeout:    cfg.Recognizers.AudioTimeout(),
	}, nil)

	return res, nil
}

// Close releases resources acquired during bootstrap.
func (r *Result) Close() {
	if r.DB != nil {
		_ = r.DB.Close()
	}
}
