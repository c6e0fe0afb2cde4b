package server

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dtnitsch/layout-editor/models"
	"github.com/dtnitsch/layout-editor/pkg/catalog"
	"github.com/dtnitsch/layout-editor/pkg/editor"
)

// liveSession is an open page. mu serializes every request against it.
type liveSession struct {
	mu      sync.Mutex
	id      string
	page    catalog.PageInfo
	session *editor.Session
}

// registry tracks open sessions and when each was last used.
type registry struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*liveSession
	lastUsed map[string]time.Time
}

// evicted describes a session dropped from the registry.
type evicted struct {
	id    string
	key   models.PageKey
	dirty bool
}

func newRegistry(ttl time.Duration, now func() time.Time) *registry {
	return &registry{
		ttl:      ttl,
		now:      now,
		sessions: make(map[string]*liveSession),
		lastUsed: make(map[string]time.Time),
	}
}

func (r *registry) add(page catalog.PageInfo, sess *editor.Session) *liveSession {
	ls := &liveSession{id: uuid.NewString(), page: page, session: sess}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[ls.id] = ls
	r.lastUsed[ls.id] = r.now()
	return ls
}

// get returns a session and marks it used.
func (r *registry) get(id string) (*liveSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ls, ok := r.sessions[id]
	if ok {
		r.lastUsed[id] = r.now()
	}
	return ls, ok
}

func (r *registry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	delete(r.lastUsed, id)
	return true
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// evict drops sessions idle for longer than the ttl. Sessions in the middle
// of a request are kept.
func (r *registry) evict() []evicted {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.ttl)
	var out []evicted
	for id, used := range r.lastUsed {
		if !used.Before(cutoff) {
			continue
		}
		ls := r.sessions[id]
		if !ls.mu.TryLock() {
			continue
		}
		out = append(out, evicted{id: id, key: ls.session.Key(), dirty: ls.session.Dirty()})
		ls.mu.Unlock()
		delete(r.sessions, id)
		delete(r.lastUsed, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// snapshotDirty lists open sessions with unsaved changes.
func (r *registry) snapshotDirty() []evicted {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []evicted
	for id, ls := range r.sessions {
		ls.mu.Lock()
		if ls.session.Dirty() {
			out = append(out, evicted{id: id, key: ls.session.Key(), dirty: true})
		}
		ls.mu.Unlock()
	}
	return out
}
