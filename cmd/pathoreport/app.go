package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pathoreport/pathoreport/internal/config"
	"github.com/pathoreport/pathoreport/internal/domain/report"
	"github.com/pathoreport/pathoreport/internal/platform/db"
	"github.com/pathoreport/pathoreport/internal/platform/kv"
)

// app holds the wiring shared by every command.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	db      *sql.DB // nil with --memory
	store   *report.Store
	reports *report.Service
}

func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

// openApp loads config, opens the backing store named by the persistent
// flags and builds the report service. Logs go to logOut.
func openApp(ctx context.Context, cmd *cobra.Command, logOut io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if path, _ := cmd.Flags().GetString("db"); path != "" {
		cfg.DatabasePath = path
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: newLogger(cfg, logOut)}

	var provider kv.Provider
	if memory, _ := cmd.Flags().GetBool("memory"); memory {
		provider = kv.NewMemory()
		a.logger.Info().Msg("using in-memory report store")
	} else {
		conn, err := db.Open(ctx, cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		a.db = conn
		provider = db.NewKV(conn)
		a.logger.Debug().Str("path", cfg.DatabasePath).Msg("opened database")
	}

	a.store = report.NewStore(provider, cfg.StoreKey, a.logger)
	a.reports = report.NewService(a.store, cfg.CollectedBy, cfg.PageSize, a.logger)

	if cfg.SeedOnEmpty {
		if _, err := a.reports.Seed(ctx); err != nil {
			a.close()
			return nil, fmt.Errorf("seed reports: %w", err)
		}
	}
	return a, nil
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

// withApp runs fn against an opened app, logging to stderr so stdout
// carries only command output.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}
