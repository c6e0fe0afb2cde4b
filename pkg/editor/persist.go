package editor

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dtnitsch/layout-editor/models"
)

// Gateway stores pages. SavePage replaces the whole record for a page in one
// transaction; there are no partial updates.
type Gateway interface {
	SavePage(ctx context.Context, rec models.PageRecord) error
	MarkValidated(ctx context.Context, key models.PageKey, validated bool, at time.Time) error
}

// ReadingOrderKey is the optional per-box index some inputs carry. When
// present it is rewritten to the box's position on save.
const ReadingOrderKey = "reading_order"

// Record returns the page as it would be saved: boxes in reading order and
// groups as indexes into that list.
func (s *Session) Record() models.PageRecord {
	boxes := s.Boxes()
	for i := range boxes {
		if _, ok := boxes[i].Extra[ReadingOrderKey]; ok {
			boxes[i].Extra[ReadingOrderKey] = json.RawMessage(strconv.Itoa(i))
		}
	}
	return models.PageRecord{
		PageKey:     s.key,
		SourcePath:  s.opts.SourcePath,
		Boxes:       boxes,
		Groups:      s.groupIndexes(),
		Validated:   s.validated,
		ValidatedAt: s.validatedAt,
	}
}

// Save hands the page to the gateway as a full replacement and marks the
// session clean. On failure the session stays dirty and the error wraps
// ErrPersistence.
func (s *Session) Save(ctx context.Context) error {
	if s.gateway == nil {
		return fmt.Errorf("%w: no gateway configured", ErrPersistence)
	}
	if err := s.gateway.SavePage(ctx, s.Record()); err != nil {
		return fmt.Errorf("%w: save %s: %w", ErrPersistence, s.key, err)
	}
	s.dirty = false
	return nil
}

// MarkValidated sets the validation flag. Setting it records the current time,
// on every call; clearing it drops the timestamp. With SaveOnValidate the page
// is saved first and a failed save leaves the flag unchanged.
func (s *Session) MarkValidated(ctx context.Context, validated bool) error {
	if s.opts.SaveOnValidate {
		if err := s.Save(ctx); err != nil {
			return err
		}
	}
	if s.gateway == nil {
		return fmt.Errorf("%w: no gateway configured", ErrPersistence)
	}

	var at time.Time
	if validated {
		at = s.opts.Now()
	}
	if err := s.gateway.MarkValidated(ctx, s.key, validated, at); err != nil {
		return fmt.Errorf("%w: mark %s validated: %w", ErrPersistence, s.key, err)
	}

	s.validated = validated
	if validated {
		s.validatedAt = &at
	} else {
		s.validatedAt = nil
	}
	return nil
}
