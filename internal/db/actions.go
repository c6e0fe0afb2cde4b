package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/layout-editor/internal/config"
	"github.com/dtnitsch/layout-editor/models"
	dbpkg "github.com/dtnitsch/layout-editor/pkg/db"
	exportpkg "github.com/dtnitsch/layout-editor/pkg/export"
	"github.com/dtnitsch/layout-editor/pkg/mapreduce"
)

// DocsAction lists the documents in the catalog with their validation progress.
func DocsAction(c *cli.Context) error {
	cfg, err := config.LoadConfig(c)
	if err != nil {
		return err
	}
	database, err := config.OpenDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	docs, err := config.NewCatalog(cfg).ListDocuments()
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	if len(docs) == 0 {
		fmt.Printf("No documents found in %s\n", cfg.DataDir)
		return nil
	}

	statuses, err := database.ListPageStatuses(c.Context, "")
	if err != nil {
		return err
	}
	saved, validated := countByDoc(statuses)

	fmt.Printf("%-40s %-20s %-8s %-8s %-10s\n", "Document", "Folder", "Pages", "Edited", "Validated")
	fmt.Println(strings.Repeat("-", 90))
	for _, d := range docs {
		fmt.Printf("%-40s %-20s %-8d %-8d %-10d\n", d.DocID, d.Folder, d.PageCount, saved[d.DocID], validated[d.DocID])
	}
	fmt.Printf("\nTotal: %d documents\n", len(docs))
	fmt.Printf("\nTip: Use 'layout-editor status <doc>' to see pages\n")
	return nil
}

func countByDoc(statuses []models.PageStatus) (saved, validated map[string]int) {
	saved = make(map[string]int)
	validated = make(map[string]int)
	for _, s := range statuses {
		saved[s.DocID]++
		if s.Validated {
			validated[s.DocID]++
		}
	}
	return saved, validated
}

// StatusAction shows every page of a document with its saved state.
func StatusAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: layout-editor status <doc>")
	}
	docID := c.Args().First()

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
	pages, err := cat.ListPages(docID)
	if err != nil {
		return err
	}
	statuses, err := database.ListPageStatuses(c.Context, docID)
	if err != nil {
		return err
	}
	byPage := make(map[int]models.PageStatus, len(statuses))
	for _, s := range statuses {
		byPage[s.PageNo] = s
	}

	fmt.Printf("Document: %s\n\n", docID)
	fmt.Printf("%-6s %-36s %-10s %-6s %-20s\n", "Page", "File", "State", "Boxes", "Validated At")
	fmt.Println(strings.Repeat("-", 82))
	for _, p := range pages {
		state, boxes, at := "original", "-", "-"
		if s, ok := byPage[p.PageNo]; ok {
			state, boxes = "edited", fmt.Sprintf("%d", s.BoxCount)
			if s.Validated {
				state = "validated"
			}
			if s.ValidatedAt != nil {
				at = s.ValidatedAt.Local().Format("2006-01-02 15:04:05")
			}
		}
		fmt.Printf("%-6d %-36s %-10s %-6s %-20s\n", p.PageNo, p.JSONPath, state, boxes, at)
	}

	doc, err := exportpkg.NewService(cat, database, nil).Document(c.Context, docID)
	if err != nil {
		return err
	}
	fmt.Printf("\nCategories: %s\n", strings.Join(mapreduce.TopN(doc.Categories, 0), ", "))
	return nil
}

// ResetAction drops the saved record of a page so it reopens from its
// original file.
func ResetAction(c *cli.Context) error {
	docID, pageNo, err := PageArgs(c)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(c)
	if err != nil {
		return err
	}
	database, err := config.OpenDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	saves, err := database.CountSaves(c.Context, docID, pageNo)
	if err != nil {
		return err
	}
	if err := database.DeletePage(c.Context, docID, pageNo); err != nil {
		if errors.Is(err, dbpkg.ErrPageNotFound) {
			fmt.Printf("%s page %d has no saved changes\n", docID, pageNo)
			return nil
		}
		return err
	}
	fmt.Printf("Reset %s page %d (dropped %d saves)\n", docID, pageNo, saves)
	return nil
}
