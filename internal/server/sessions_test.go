package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/dtnitsch/layout-editor/models"
	"github.com/dtnitsch/layout-editor/pkg/catalog"
	"github.com/dtnitsch/layout-editor/pkg/db"
	"github.com/dtnitsch/layout-editor/pkg/editor"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestSession(t *testing.T, pageNo int) *editor.Session {
	t.Helper()
	s := editor.NewSession(models.PageKey{DocID: "d", PageNo: pageNo}, nil, editor.Options{Width: 100, Height: 100})
	if err := s.Load([]models.Box{{BBox: models.BBox{0, 0, 10, 10}, Category: models.CategoryText}}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return s
}

func TestRegistry_Evict(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	r := newRegistry(time.Hour, clock.now)

	idle := r.add(catalog.PageInfo{DocID: "d", PageNo: 1}, newTestSession(t, 1))
	busy := r.add(catalog.PageInfo{DocID: "d", PageNo: 2}, newTestSession(t, 2))
	idle.session.Move("b0", 1, 1)

	clock.t = clock.t.Add(30 * time.Minute)
	fresh := r.add(catalog.PageInfo{DocID: "d", PageNo: 3}, newTestSession(t, 3))

	clock.t = clock.t.Add(45 * time.Minute)
	busy.mu.Lock()
	got := r.evict()
	busy.mu.Unlock()

	if len(got) != 1 || got[0].id != idle.id || !got[0].dirty || got[0].key.PageNo != 1 {
		t.Fatalf("evict() = %+v, want only the idle dirty session", got)
	}
	if _, ok := r.get(idle.id); ok {
		t.Error("evicted session still registered")
	}
	if _, ok := r.get(fresh.id); !ok {
		t.Error("recently used session was evicted")
	}
	if r.len() != 2 {
		t.Errorf("len() = %d, want 2", r.len())
	}

	// get marks a session used, so both survive another half hour.
	if _, ok := r.get(busy.id); !ok {
		t.Fatal("busy session was evicted")
	}
	clock.t = clock.t.Add(30 * time.Minute)
	if got := r.evict(); len(got) != 0 {
		t.Errorf("evict() after touch = %+v, want none", got)
	}
}

func TestRegistry_Remove(t *testing.T) {
	r := newRegistry(time.Hour, time.Now)
	ls := r.add(catalog.PageInfo{}, newTestSession(t, 1))

	if !r.remove(ls.id) {
		t.Error("remove() = false for an open session")
	}
	if r.remove(ls.id) {
		t.Error("remove() = true twice")
	}
}

func TestRegistry_SnapshotDirty(t *testing.T) {
	r := newRegistry(time.Hour, time.Now)
	clean := r.add(catalog.PageInfo{}, newTestSession(t, 1))
	dirty := r.add(catalog.PageInfo{}, newTestSession(t, 2))
	dirty.session.Move("b0", 2, 0)

	got := r.snapshotDirty()
	if len(got) != 1 || got[0].id != dirty.id {
		t.Errorf("snapshotDirty() = %+v, want only %s (not %s)", got, dirty.id, clean.id)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: x", editor.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("%w: x", catalog.ErrInvalidUpload), http.StatusBadRequest},
		{fmt.Errorf("%w: x", errBadRequest), http.StatusBadRequest},
		{fmt.Errorf("%w: x", errSessionNotFound), http.StatusNotFound},
		{fmt.Errorf("doc: %w", catalog.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: x", db.ErrPageNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: save: %w", editor.ErrPersistence, db.ErrPageNotFound), http.StatusInternalServerError},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestDownloadName(t *testing.T) {
	tests := map[string]string{
		"report/report":        "report_report",
		"uploads/My Scan_page": "uploads_My_Scan_page",
		"":                     "export",
	}
	for in, want := range tests {
		if got := downloadName(in); got != want {
			t.Errorf("downloadName(%q) = %q, want %q", in, got, want)
		}
	}
}
