package export

import (
	"bytes"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/layout-editor/internal/config"
	exportpkg "github.com/dtnitsch/layout-editor/pkg/export"
	"github.com/dtnitsch/layout-editor/pkg/storage"
)

// ExportAction writes a page, document or project export to --output or stdout.
func ExportAction(c *cli.Context) error {
	logger := config.NewLogger(c)

	cfg, err := config.LoadConfig(c)
	if err != nil {
		return err
	}
	format, err := exportpkg.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}

	database, err := config.OpenDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	var detector *exportpkg.LanguageDetector
	if !c.Bool("no-language") {
		if detector, err = exportpkg.NewLanguageDetector(cfg.Languages); err != nil {
			return err
		}
	}
	svc := exportpkg.NewService(config.NewCatalog(cfg), database, detector)

	docID := c.String("doc")
	if c.IsSet("page") && docID == "" {
		return fmt.Errorf("--page requires --doc")
	}

	content, err := render(c, svc, format, docID)
	if err != nil {
		return err
	}

	output := c.String("output")
	if output == "" {
		_, err := os.Stdout.Write(content)
		return err
	}
	if err := storage.New("").SaveFile(output, content); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	logger.Info("export written", "path", output, "format", string(format), "bytes", len(content))
	return nil
}

func render(c *cli.Context, svc *exportpkg.Service, format exportpkg.Format, docID string) ([]byte, error) {
	ctx := c.Context
	var buf bytes.Buffer

	if format == exportpkg.FormatPDF {
		if c.IsSet("page") {
			return nil, fmt.Errorf("pdf export covers whole documents; drop --page")
		}
		var ids []string
		if docID != "" {
			ids = append(ids, docID)
		}
		if err := svc.WritePDF(ctx, &buf, ids...); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	var (
		v   interface{}
		err error
	)
	switch {
	case c.IsSet("page"):
		v, err = svc.Page(ctx, docID, c.Int("page"))
	case docID != "":
		v, err = svc.Document(ctx, docID)
	default:
		v, err = svc.Project(ctx)
	}
	if err != nil {
		return nil, err
	}
	if err := exportpkg.Write(&buf, format, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
