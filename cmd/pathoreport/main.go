package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pathoreport/pathoreport/internal/domain/analytics"
	"github.com/pathoreport/pathoreport/internal/domain/backup"
	"github.com/pathoreport/pathoreport/internal/domain/catalog"
	"github.com/pathoreport/pathoreport/internal/domain/report"
	"github.com/pathoreport/pathoreport/internal/platform/db"
	"github.com/pathoreport/pathoreport/internal/platform/middleware"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "pathoreport",
		Short:        "Pathology lab report engine",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (overrides DATABASE_PATH)")
	rootCmd.PersistentFlags().Bool("memory", false, "Keep reports in memory for this process only")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reportsCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(backupCmd())
	rootCmd.AddCommand(restoreCmd())
	rootCmd.AddCommand(dashboardCmd())
	rootCmd.AddCommand(seedCmd())
	return rootCmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the report API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx, cmd, os.Stdout)
			if err != nil {
				return err
			}
			defer a.close()
			return runServer(a)
		},
	}
}

// newServer builds the echo instance with every route registered.
func newServer(a *app) *echo.Echo {
	logger := a.logger

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: a.cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(a.cfg.BodyLimit))
	e.Use(middleware.Audit(logger))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	if a.db != nil {
		e.GET("/health/db", db.HealthHandler(a.db))
	}

	apiV1 := e.Group("/api/v1")
	catalog.NewHandler().RegisterRoutes(apiV1)
	report.NewHandler(a.reports).RegisterRoutes(apiV1)
	backup.NewHandler(a.reports).RegisterRoutes(apiV1)
	analytics.NewHandler(a.reports).RegisterRoutes(apiV1)

	return e
}

func runServer(a *app) error {
	logger := a.logger
	e := newServer(a)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + a.cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	// Graceful shutdown on signal or when the listener fails.
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
