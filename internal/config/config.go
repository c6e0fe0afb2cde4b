// Package config turns command line flags into the runtime pieces every command
// shares: the config, logger, catalog and page store.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/layout-editor/models"
	"github.com/dtnitsch/layout-editor/pkg/catalog"
	"github.com/dtnitsch/layout-editor/pkg/db"
)

// UploadRootName prefixes the document ids of uploaded pages.
const UploadRootName = "uploads"

// NewLogger returns the JSON stderr logger; --quiet and --verbose pick the level.
func NewLogger(c *cli.Context) *slog.Logger {
	logLevel := slog.LevelInfo
	if c.Bool("verbose") {
		logLevel = slog.LevelDebug
	}
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// LoadConfig reads --config and applies flag overrides on top.
func LoadConfig(c *cli.Context) (*models.Config, error) {
	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("data-dir") {
		cfg.DataDir = c.String("data-dir")
	}
	if c.IsSet("upload-dir") {
		cfg.UploadDir = c.String("upload-dir")
	}
	if c.IsSet("db") {
		cfg.DBPath = c.String("db")
	}
	if c.IsSet("addr") {
		cfg.Addr = c.String("addr")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewCatalog returns the catalog over the data and upload directories.
func NewCatalog(cfg *models.Config) *catalog.Catalog {
	return catalog.New(
		catalog.Root{Dir: cfg.DataDir},
		catalog.Root{Name: UploadRootName, Dir: cfg.UploadDir},
	)
}

// OpenDB opens the page store named by the config.
func OpenDB(cfg *models.Config) (*db.DB, error) {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}
