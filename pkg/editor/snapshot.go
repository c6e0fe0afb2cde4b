package editor

import (
	"time"

	"github.com/dtnitsch/layout-editor/models"
)

// BoxView is a box as shown to the editor UI.
type BoxView struct {
	ID       BoxID           `json:"id"`
	BBox     models.BBox     `json:"bbox"`
	Category models.Category `json:"category"`
	Text     *string         `json:"text,omitempty"`
	GroupID  GroupID         `json:"group_id,omitempty"`
	Selected bool            `json:"selected"`
	Order    int             `json:"reading_order"`
}

// Snapshot is a read-only copy of the whole session.
type Snapshot struct {
	Page        models.PageKey `json:"page"`
	Width       float64        `json:"width"`
	Height      float64        `json:"height"`
	Boxes       []BoxView      `json:"boxes"`
	Groups      []Group        `json:"groups"`
	Selection   []BoxID        `json:"selection"`
	State       State          `json:"state"`
	Validated   bool           `json:"validated"`
	ValidatedAt *time.Time     `json:"validated_at,omitempty"`
}

// Snapshot copies the current state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Page:        s.key,
		Width:       s.opts.Width,
		Height:      s.opts.Height,
		Boxes:       make([]BoxView, 0, len(s.order)),
		Groups:      s.Groups(),
		Selection:   s.Selection(),
		State:       s.State(),
		Validated:   s.validated,
		ValidatedAt: s.validatedAt,
	}
	for i, id := range s.order {
		e := s.boxes[id]
		_, selected := s.selection[id]
		box := e.box.Clone()
		snap.Boxes = append(snap.Boxes, BoxView{
			ID:       id,
			BBox:     box.BBox,
			Category: box.Category,
			Text:     box.Text,
			GroupID:  e.group,
			Selected: selected,
			Order:    i,
		})
	}
	return snap
}
