package room

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"journal/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Manager — the set of live rooms in this process
// ─────────────────────────────────────────────────────────────

// Manager creates rooms on demand and owns their maintenance: periodic
// persistence of dirty rooms and eviction of rooms left idle with no
// sessions. The store may be nil for purely in-memory operation.
type Manager struct {
	store storage.Store

	mu    sync.Mutex
	rooms map[string]*Room
}

func NewManager(store storage.Store) *Manager {
	return &Manager{store: store, rooms: make(map[string]*Room)}
}

// Get returns the live room for the id, creating (and starting to load) it
// if needed. An empty id gets a fresh random room identifier — the caller is
// expected to report it back so the client can write it into its URL.
func (m *Manager) Get(id string) *Room {
	if id == "" {
		id = uuid.NewString()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[id]; ok {
		return r
	}
	r := newRoom(id, m.store)
	m.rooms[id] = r
	return r
}

// LiveRooms returns the ids of rooms currently resident in memory.
func (m *Manager) LiveRooms() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		out = append(out, id)
	}
	return out
}

// PersistDirty flushes every room with unpersisted mutations. Run on a
// schedule so a crash loses at most one interval of work.
func (m *Manager) PersistDirty(ctx context.Context) {
	for _, r := range m.list() {
		if err := r.Persist(ctx); err != nil {
			log.Printf("manager: %v", err)
		}
	}
}

// EvictIdle drops rooms that have had no sessions for longer than maxIdle,
// persisting them first. The persisted document survives; the room reloads
// on the next Get.
func (m *Manager) EvictIdle(ctx context.Context, maxIdle time.Duration) {
	cutoff := time.Now().Add(-maxIdle)
	for _, r := range m.list() {
		last, empty := r.idleSince()
		if !empty || last.After(cutoff) {
			continue
		}
		if err := r.Persist(ctx); err != nil {
			log.Printf("manager: evict %s: %v", r.ID, err)
			continue
		}
		m.mu.Lock()
		// Re-check under the lock: a session may have joined meanwhile.
		if _, stillEmpty := r.idleSince(); stillEmpty && m.rooms[r.ID] == r {
			delete(m.rooms, r.ID)
			log.Printf("manager: evicted idle room %s", r.ID)
		}
		m.mu.Unlock()
	}
}

// Shutdown persists everything. Called on process exit.
func (m *Manager) Shutdown(ctx context.Context) {
	m.PersistDirty(ctx)
}

func (m *Manager) list() []*Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	return out
}
