package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/layout-editor/internal/db"
	"github.com/dtnitsch/layout-editor/internal/export"
	"github.com/dtnitsch/layout-editor/internal/serve"
	"github.com/dtnitsch/layout-editor/models"
	"github.com/dtnitsch/layout-editor/pkg/help"
)

func main() {
	app := &cli.App{
		Name:  "layout-editor",
		Usage: "Review and correct OCR layout annotations",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: models.DefaultConfigPath, Usage: "YAML config file"},
			&cli.StringFlag{Name: "data-dir", Usage: "directory of page JSON files and images"},
			&cli.StringFlag{Name: "upload-dir", Usage: "directory uploads are stored in"},
			&cli.StringFlag{Name: "db", Usage: "SQLite database path"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "log errors only"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log debug output"},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the editor web server",
				Action: serve.ServeAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "listen address (default " + models.DefaultAddr + ")"},
				},
			},
			{
				Name:  "quickstart",
				Usage: "Print a quick start guide",
				Action: func(c *cli.Context) error {
					fmt.Print(help.QuickstartYAML)
					return nil
				},
			},
			{
				Name:   "docs",
				Usage:  "List documents and their validation progress",
				Action: db.DocsAction,
			},
			{
				Name:      "status",
				Usage:     "Show the pages of a document",
				ArgsUsage: "<doc>",
				Action:    db.StatusAction,
			},
			{
				Name:      "reset",
				Usage:     "Discard saved changes to a page",
				ArgsUsage: "<doc> <page>",
				Action:    db.ResetAction,
			},
			{
				Name:   "export",
				Usage:  "Export a page, a document or the whole project",
				Action: export.ExportAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "doc", Usage: "document id; all documents when empty"},
					&cli.IntFlag{Name: "page", Usage: "page number; requires --doc"},
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "json", Usage: "json, yaml or pdf"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output file; stdout when empty"},
					&cli.BoolFlag{Name: "no-language", Usage: "skip document language detection"},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
