package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dtnitsch/layout-editor/internal/common"
	"github.com/dtnitsch/layout-editor/models"
)

// ErrPageNotFound is returned when no record exists for a page.
var ErrPageNotFound = errors.New("page not found")

// SavePage replaces the stored boxes and groups of a page and records the
// save, in one transaction. The validation flag is left as it was.
func (db *DB) SavePage(ctx context.Context, rec models.PageRecord) error {
	boxes := rec.Boxes
	if boxes == nil {
		boxes = []models.Box{}
	}
	boxesJSON, err := json.Marshal(boxes)
	if err != nil {
		return fmt.Errorf("failed to encode boxes: %w", err)
	}
	groups := rec.Groups
	if groups == nil {
		groups = [][]int{}
	}
	groupsJSON, err := json.Marshal(groups)
	if err != nil {
		return fmt.Errorf("failed to encode groups: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // No-op after Commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO pages (doc_id, page_no, source_path, boxes, groups_json, box_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_id, page_no) DO UPDATE SET
			source_path = excluded.source_path,
			boxes = excluded.boxes,
			groups_json = excluded.groups_json,
			box_count = excluded.box_count,
			updated_at = CURRENT_TIMESTAMP
	`, rec.DocID, rec.PageNo, NewNullString(rec.SourcePath), string(boxesJSON), string(groupsJSON), len(boxes))
	if err != nil {
		return fmt.Errorf("failed to save page: %w", err)
	}

	var pageID int64
	err = tx.QueryRowContext(ctx, "SELECT page_id FROM pages WHERE doc_id = ? AND page_no = ?", rec.DocID, rec.PageNo).Scan(&pageID)
	if err != nil {
		return fmt.Errorf("failed to get page ID: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO page_saves (page_id, box_count, content_hash)
		VALUES (?, ?, ?)
	`, pageID, len(boxes), common.ContentHash(boxesJSON))
	if err != nil {
		return fmt.Errorf("failed to record save: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit page save: %w", err)
	}
	return nil
}

// LoadPage returns the stored record for a page, or ErrPageNotFound.
func (db *DB) LoadPage(ctx context.Context, docID string, pageNo int) (*models.PageRecord, error) {
	var (
		rec         models.PageRecord
		sourcePath  sql.NullString
		boxesJSON   string
		groupsJSON  string
		validatedAt sql.NullString
	)
	err := db.QueryRowContext(ctx, `
		SELECT doc_id, page_no, source_path, boxes, groups_json, validated, validated_at, created_at, updated_at
		FROM pages
		WHERE doc_id = ? AND page_no = ?
	`, docID, pageNo).Scan(
		&rec.DocID, &rec.PageNo, &sourcePath, &boxesJSON, &groupsJSON,
		&rec.Validated, &validatedAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s#%d", ErrPageNotFound, docID, pageNo)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load page: %w", err)
	}

	rec.SourcePath = sourcePath.String
	rec.Boxes, err = models.DecodeBoxes([]byte(boxesJSON))
	if err != nil {
		return nil, fmt.Errorf("stored page %s#%d is corrupt: %v", docID, pageNo, err)
	}
	if err := json.Unmarshal([]byte(groupsJSON), &rec.Groups); err != nil {
		return nil, fmt.Errorf("stored groups for %s#%d are corrupt: %w", docID, pageNo, err)
	}
	rec.ValidatedAt, err = parseTimestamp(validatedAt)
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// MarkValidated sets or clears the validation flag of a saved page. at is
// stored when validated is true. Pages never saved return ErrPageNotFound.
func (db *DB) MarkValidated(ctx context.Context, key models.PageKey, validated bool, at time.Time) error {
	var stamp sql.NullString
	if validated {
		stamp = NewNullString(at.UTC().Format(time.RFC3339Nano))
	}

	result, err := db.ExecContext(ctx, `
		UPDATE pages
		SET validated = ?, validated_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE doc_id = ? AND page_no = ?
	`, validated, stamp, key.DocID, key.PageNo)
	if err != nil {
		return fmt.Errorf("failed to mark page validated: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check validated page: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrPageNotFound, key)
	}
	return nil
}

// GetValidationStatus returns the validation flag and timestamp of a page.
// Pages never saved are reported as not validated.
func (db *DB) GetValidationStatus(ctx context.Context, docID string, pageNo int) (bool, *time.Time, error) {
	var (
		validated   bool
		validatedAt sql.NullString
	)
	err := db.QueryRowContext(ctx, `
		SELECT validated, validated_at FROM pages WHERE doc_id = ? AND page_no = ?
	`, docID, pageNo).Scan(&validated, &validatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("failed to get validation status: %w", err)
	}

	at, err := parseTimestamp(validatedAt)
	if err != nil {
		return false, nil, err
	}
	return validated, at, nil
}

// ListPageStatuses returns the status of every saved page of a document,
// ordered by page number. An empty docID lists all documents.
func (db *DB) ListPageStatuses(ctx context.Context, docID string) ([]models.PageStatus, error) {
	query := `
		SELECT doc_id, page_no, box_count, validated, validated_at, updated_at
		FROM pages`
	var args []interface{}
	if docID != "" {
		query += " WHERE doc_id = ?"
		args = append(args, docID)
	}
	query += " ORDER BY doc_id, page_no"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	var statuses []models.PageStatus
	for rows.Next() {
		var (
			s           models.PageStatus
			validatedAt sql.NullString
		)
		if err := rows.Scan(&s.DocID, &s.PageNo, &s.BoxCount, &s.Validated, &validatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		if s.ValidatedAt, err = parseTimestamp(validatedAt); err != nil {
			return nil, err
		}
		statuses = append(statuses, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}

	return statuses, nil
}

// DeletePage drops the stored record of a page so it reopens from its
// original file.
func (db *DB) DeletePage(ctx context.Context, docID string, pageNo int) error {
	result, err := db.ExecContext(ctx, "DELETE FROM pages WHERE doc_id = ? AND page_no = ?", docID, pageNo)
	if err != nil {
		return fmt.Errorf("failed to delete page: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted page: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s#%d", ErrPageNotFound, docID, pageNo)
	}
	return nil
}

// SaveRecord is one row of a page's save history.
type SaveRecord struct {
	SaveID      int64
	BoxCount    int
	ContentHash string
	SavedAt     time.Time
}

// ListSaves returns the save history of a page, most recent first.
func (db *DB) ListSaves(ctx context.Context, docID string, pageNo int) ([]SaveRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT s.save_id, s.box_count, s.content_hash, s.saved_at
		FROM page_saves s
		JOIN pages p ON s.page_id = p.page_id
		WHERE p.doc_id = ? AND p.page_no = ?
		ORDER BY s.save_id DESC
	`, docID, pageNo)
	if err != nil {
		return nil, fmt.Errorf("failed to list saves: %w", err)
	}
	defer rows.Close()

	var saves []SaveRecord
	for rows.Next() {
		var s SaveRecord
		if err := rows.Scan(&s.SaveID, &s.BoxCount, &s.ContentHash, &s.SavedAt); err != nil {
			return nil, fmt.Errorf("failed to scan save: %w", err)
		}
		saves = append(saves, s)
	}

	return saves, rows.Err()
}

// CountSaves returns how many times a page has been saved.
func (db *DB) CountSaves(ctx context.Context, docID string, pageNo int) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM page_saves s
		JOIN pages p ON s.page_id = p.page_id
		WHERE p.doc_id = ? AND p.page_no = ?
	`, docID, pageNo).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count saves: %w", err)
	}
	return n, nil
}

func parseTimestamp(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %w", s.String, err)
	}
	return &t, nil
}

// NewNullString creates a sql.NullString from a string value.
func NewNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
