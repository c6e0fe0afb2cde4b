// Package editor holds the in-memory editing state of one page: its boxes,
// reading order, groups and selection.
//
// A Session is owned by a single caller and is not safe for concurrent use.
// Every operation either applies fully or returns an error and leaves the
// session untouched.
package editor

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/dtnitsch/layout-editor/models"
)

// Options configures a session.
type Options struct {
	// Width and Height are the page size in pixels. Zero leaves the axis
	// unbounded above.
	Width  float64
	Height float64

	// MinBoxSize is the smallest width and height a resize may produce.
	MinBoxSize float64

	// SaveOnValidate makes MarkValidated save the page first.
	SaveOnValidate bool

	// SourcePath is the original JSON file, stored with saved records.
	SourcePath string

	// Validated and ValidatedAt seed the validation state of an opened page.
	Validated   bool
	ValidatedAt *time.Time

	Now func() time.Time
}

type entry struct {
	box   models.Box
	group GroupID
}

// Session is the editing state of one open page.
type Session struct {
	key     models.PageKey
	opts    Options
	gateway Gateway

	boxes     map[BoxID]*entry
	order     []BoxID
	groups    map[GroupID][]BoxID
	selection map[BoxID]struct{}
	nextGroup int

	dirty       bool
	validated   bool
	validatedAt *time.Time
}

// NewSession creates an empty, clean session for the page at key.
func NewSession(key models.PageKey, gateway Gateway, opts Options) *Session {
	if opts.MinBoxSize <= 0 {
		opts.MinBoxSize = models.DefaultMinBoxSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Session{
		key:         key,
		opts:        opts,
		gateway:     gateway,
		boxes:       make(map[BoxID]*entry),
		groups:      make(map[GroupID][]BoxID),
		selection:   make(map[BoxID]struct{}),
		validated:   opts.Validated,
		validatedAt: opts.ValidatedAt,
	}
	return s
}

// Key returns the page this session edits.
func (s *Session) Key() models.PageKey { return s.key }

// Size returns the page bounds.
func (s *Session) Size() (width, height float64) { return s.opts.Width, s.opts.Height }

// State reports whether there are unsaved changes.
func (s *Session) State() State {
	if s.dirty {
		return Dirty
	}
	return Clean
}

// Dirty reports whether there are unsaved changes.
func (s *Session) Dirty() bool { return s.dirty }

// Validated returns the validation flag and the time it was last set.
func (s *Session) Validated() (bool, *time.Time) {
	return s.validated, s.validatedAt
}

// Load replaces the session contents with boxes. Reading order is input
// order; boxes without an id get one. Selection and groups are cleared and the
// session becomes clean. Boxes reaching past the page are clamped to it.
//
// The whole load is rejected if any box has a malformed bbox, an unknown
// category or a duplicate id.
func (s *Session) Load(boxes []models.Box) error {
	loaded, order, err := s.prepare(boxes)
	if err != nil {
		return err
	}
	s.boxes = loaded
	s.order = order
	s.groups = make(map[GroupID][]BoxID)
	s.selection = make(map[BoxID]struct{})
	s.nextGroup = 0
	s.dirty = false
	return nil
}

// LoadWithGroups loads boxes and restores groups given as indexes into boxes.
// Out of range indexes, boxes already grouped and groups left with fewer than
// two members are skipped.
func (s *Session) LoadWithGroups(boxes []models.Box, groups [][]int) error {
	if err := s.Load(boxes); err != nil {
		return err
	}
	for _, indexes := range groups {
		var members []BoxID
		seen := make(map[BoxID]bool)
		for _, i := range indexes {
			if i < 0 || i >= len(s.order) {
				continue
			}
			id := s.order[i]
			if seen[id] || s.boxes[id].group != "" {
				continue
			}
			seen[id] = true
			members = append(members, id)
		}
		if len(members) >= 2 {
			s.addGroup(members)
		}
	}
	return nil
}

func (s *Session) prepare(boxes []models.Box) (map[BoxID]*entry, []BoxID, error) {
	loaded := make(map[BoxID]*entry, len(boxes))
	order := make([]BoxID, len(boxes))

	for i, b := range boxes {
		if err := b.BBox.Check(); err != nil {
			return nil, nil, fmt.Errorf("%w: box %d: %v", ErrInvalidInput, i, err)
		}
		if !b.Category.Valid() {
			return nil, nil, fmt.Errorf("%w: box %d: unknown category %q", ErrInvalidInput, i, b.Category)
		}
		if b.ID == "" {
			continue
		}
		id := BoxID(b.ID)
		if _, dup := loaded[id]; dup {
			return nil, nil, fmt.Errorf("%w: box %d: duplicate id %q", ErrInvalidInput, i, b.ID)
		}
		loaded[id] = nil
		order[i] = id
	}

	next := 0
	for i, b := range boxes {
		if order[i] == "" {
			for {
				id := BoxID(fmt.Sprintf("b%d", next))
				next++
				if _, taken := loaded[id]; !taken {
					order[i] = id
					break
				}
			}
		}
		box := b.Clone()
		box.ID = string(order[i])
		box.BBox = box.BBox.Clamp(s.opts.Width, s.opts.Height)
		loaded[order[i]] = &entry{box: box}
	}
	return loaded, order, nil
}

// Boxes returns copies of the boxes in reading order.
func (s *Session) Boxes() []models.Box {
	out := make([]models.Box, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.boxes[id].box.Clone())
	}
	return out
}

// Box returns a copy of one box.
func (s *Session) Box(id BoxID) (models.Box, bool) {
	e, ok := s.boxes[id]
	if !ok {
		return models.Box{}, false
	}
	return e.box.Clone(), true
}

// Order returns the reading order.
func (s *Session) Order() []BoxID {
	return append([]BoxID(nil), s.order...)
}

// GroupOf returns the group a box belongs to, or "".
func (s *Session) GroupOf(id BoxID) GroupID {
	if e, ok := s.boxes[id]; ok {
		return e.group
	}
	return ""
}

// Selection returns the selected ids in reading order.
func (s *Session) Selection() []BoxID {
	out := make([]BoxID, 0, len(s.selection))
	for _, id := range s.order {
		if _, ok := s.selection[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Select changes the selection. An empty or unknown id clears it.
func (s *Session) Select(id BoxID, mode SelectMode) {
	if _, ok := s.boxes[id]; !ok {
		s.selection = make(map[BoxID]struct{})
		return
	}
	switch mode {
	case SelectToggle:
		if _, ok := s.selection[id]; ok {
			delete(s.selection, id)
		} else {
			s.selection[id] = struct{}{}
		}
	default:
		s.selection = map[BoxID]struct{}{id: {}}
	}
}

// Move translates a box by (dx, dy). The offset is clamped so the box stays
// on the page with its size unchanged. Unknown ids are ignored; the result
// reports whether the box was moved.
func (s *Session) Move(id BoxID, dx, dy float64) bool {
	e, ok := s.boxes[id]
	if !ok || !finite(dx) || !finite(dy) {
		return false
	}
	b := e.box.BBox
	dx = clampShift(b[0], b[2], dx, s.opts.Width)
	dy = clampShift(b[1], b[3], dy, s.opts.Height)
	e.box.BBox = models.BBox{b[0] + dx, b[1] + dy, b[2] + dx, b[3] + dy}
	s.dirty = true
	return true
}

func clampShift(lo, hi, d, limit float64) float64 {
	if limit > 0 && hi+d > limit {
		d = limit - hi
	}
	if lo+d < 0 {
		d = -lo
	}
	return d
}

// Resize drags one corner of a box by (dx, dy). Only the two coordinates
// owned by that corner change. A moving edge stops MinBoxSize short of the
// opposite edge and at the page bounds, so x1 <= x2 and y1 <= y2 always hold.
// Unknown ids are ignored; the result reports whether the box was resized.
func (s *Session) Resize(id BoxID, handle Handle, dx, dy float64) (bool, error) {
	handle, err := ParseHandle(string(handle))
	if err != nil {
		return false, err
	}
	if !finite(dx) || !finite(dy) {
		return false, fmt.Errorf("%w: resize offset must be finite", ErrInvalidInput)
	}
	e, ok := s.boxes[id]
	if !ok {
		return false, nil
	}

	b := e.box.BBox
	min := s.opts.MinBoxSize
	switch handle {
	case HandleNW:
		b[0] = moveLow(b[0], b[2], dx, min)
		b[1] = moveLow(b[1], b[3], dy, min)
	case HandleNE:
		b[2] = moveHigh(b[0], b[2], dx, min, s.opts.Width)
		b[1] = moveLow(b[1], b[3], dy, min)
	case HandleSW:
		b[0] = moveLow(b[0], b[2], dx, min)
		b[3] = moveHigh(b[1], b[3], dy, min, s.opts.Height)
	case HandleSE:
		b[2] = moveHigh(b[0], b[2], dx, min, s.opts.Width)
		b[3] = moveHigh(b[1], b[3], dy, min, s.opts.Height)
	}
	e.box.BBox = b
	s.dirty = true
	return true, nil
}

// moveLow moves a leading edge, keeping it at least min before hi and on the page.
func moveLow(lo, hi, d, min float64) float64 {
	v := lo + d
	if v > hi-min {
		v = hi - min
	}
	if v < 0 {
		v = 0
	}
	return v
}

// moveHigh moves a trailing edge, keeping it at least min after lo and on the page.
func moveHigh(lo, hi, d, min, limit float64) float64 {
	v := hi + d
	if v < lo+min {
		v = lo + min
	}
	if limit > 0 && v > limit {
		v = limit
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Reorder replaces the reading order. ids must be a permutation of the
// current box ids.
func (s *Session) Reorder(ids []BoxID) error {
	if len(ids) != len(s.order) {
		return fmt.Errorf("%w: reorder has %d ids, page has %d boxes", ErrInvalidInput, len(ids), len(s.order))
	}
	seen := make(map[BoxID]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.boxes[id]; !ok {
			return fmt.Errorf("%w: reorder names unknown box %q", ErrInvalidInput, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: reorder repeats box %q", ErrInvalidInput, id)
		}
		seen[id] = true
	}
	s.order = append([]BoxID(nil), ids...)
	s.dirty = true
	return nil
}

// SetCategory changes the category of a box.
func (s *Session) SetCategory(id BoxID, category models.Category) error {
	if !category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, category)
	}
	e, ok := s.boxes[id]
	if !ok {
		return fmt.Errorf("%w: unknown box %q", ErrInvalidInput, id)
	}
	e.box.Category = category
	s.dirty = true
	return nil
}

// SetText replaces the text of a box. Any string is accepted, including "".
func (s *Session) SetText(id BoxID, text string) error {
	e, ok := s.boxes[id]
	if !ok {
		return fmt.Errorf("%w: unknown box %q", ErrInvalidInput, id)
	}
	e.box.Text = &text
	s.dirty = true
	return nil
}

// Delete removes boxes from the page, the selection and their groups.
// Groups left with fewer than two members are dissolved. Unknown ids are
// ignored; the result is the number of boxes removed.
func (s *Session) Delete(ids []BoxID) int {
	removed := make(map[BoxID]bool)
	for _, id := range ids {
		e, ok := s.boxes[id]
		if !ok || removed[id] {
			continue
		}
		if e.group != "" {
			s.removeMember(e.group, id)
		}
		delete(s.selection, id)
		delete(s.boxes, id)
		removed[id] = true
	}
	if len(removed) == 0 {
		return 0
	}

	order := s.order[:0:0]
	for _, id := range s.order {
		if !removed[id] {
			order = append(order, id)
		}
	}
	s.order = order
	s.dissolveSmallGroups()
	s.dirty = true
	return len(removed)
}

// position returns the reading-order index of every box.
func (s *Session) position() map[BoxID]int {
	pos := make(map[BoxID]int, len(s.order))
	for i, id := range s.order {
		pos[id] = i
	}
	return pos
}

func (s *Session) sortByOrder(ids []BoxID) {
	pos := s.position()
	sort.SliceStable(ids, func(i, j int) bool { return pos[ids[i]] < pos[ids[j]] })
}
