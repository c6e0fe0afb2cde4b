package serve

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/layout-editor/internal/config"
	"github.com/dtnitsch/layout-editor/internal/server"
	"github.com/dtnitsch/layout-editor/pkg/export"
)

// ServeAction runs the editor web server until interrupted.
func ServeAction(c *cli.Context) error {
	logger := config.NewLogger(c)

	cfg, err := config.LoadConfig(c)
	if err != nil {
		return err
	}

	database, err := config.OpenDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	cat := config.NewCatalog(cfg)

	detector, err := export.NewLanguageDetector(cfg.Languages)
	if err != nil {
		// Exports still work, just without a language tag
		logger.Warn("language detection disabled", "error", err)
		detector = nil
	}

	srv, err := server.New(cfg, cat, database, export.NewService(cat, database, detector), logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.ListenAndServe(ctx)
}
