package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"journal/internal/domain"
	"journal/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Room — one shared journal document plus its live sessions
// ─────────────────────────────────────────────────────────────

// Structural guards. These are the only mutation errors surfaced to callers;
// everything else (stale ids, unknown pages) is a silent no-op so a benign
// race with a remote delete never blocks anyone.
var (
	ErrCoverSpread = errors.New("cannot remove the cover spread")
	ErrMinPages    = errors.New("document is at its minimum page count")
)

// minPages is the floor RemoveSpread may not go below: the cover plus one
// blank spread, matching the seed document.
const minPages = 3

const (
	loadTimeout = 30 * time.Second
	eventBuffer = 64
)

// EventType classifies session notifications.
type EventType string

const (
	EventDocument EventType = "document"
	EventPresence EventType = "presence"
	EventJoin     EventType = "join"
	EventLeave    EventType = "leave"
)

// Event is a change notification delivered on a session's events channel.
// Events carry no state: consumers re-read the snapshot or the roster, so a
// dropped event is healed by the next one.
type Event struct {
	Type      EventType
	SessionID string // originating session for presence/join/leave
	Version   uint64 // document version for EventDocument
}

// Room owns the authoritative copy of one shared document. All mutation runs
// under the room lock, so the order mutations acquire it is the replication
// order every session observes: concurrent writes to the same field resolve
// last-writer-wins by arrival, while field-disjoint patches both survive.
type Room struct {
	ID    string
	store storage.Store // nil for purely in-memory rooms

	ready chan struct{} // closed once the initial snapshot is available

	mu       sync.Mutex
	doc      *document // nil until loaded
	hist     *history
	presence map[string]*domain.Presence
	sessions map[string]*Session
	version  uint64
	dirty    bool // has unpersisted mutations
	lastUsed time.Time
	loadErr  error
}

func newRoom(id string, store storage.Store) *Room {
	r := &Room{
		ID:       id,
		store:    store,
		ready:    make(chan struct{}),
		hist:     newHistory(),
		presence: make(map[string]*domain.Presence),
		sessions: make(map[string]*Session),
		lastUsed: time.Now(),
	}
	go r.load()
	return r
}

// load fetches the persisted document, seeding the room on first-ever
// connection. Until it finishes the room reports "not yet loaded" — distinct
// from an empty document.
func (r *Room) load() {
	defer close(r.ready)

	pages := domain.SeedPages()
	var version uint64
	if r.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		rec, err := r.store.LoadRoom(ctx, r.ID)
		switch {
		case err == nil:
			var stored []domain.Page
			if jerr := json.Unmarshal(rec.PagesJSON, &stored); jerr != nil {
				r.fail(fmt.Errorf("decode room %s: %w", r.ID, jerr))
				return
			}
			pages = stored
			version = rec.Version
		case errors.Is(err, storage.ErrRoomNotFound):
			data, jerr := json.Marshal(pages)
			if jerr == nil {
				jerr = r.store.SaveRoom(ctx, &storage.RoomRecord{ID: r.ID, PagesJSON: data})
			}
			if jerr != nil {
				log.Printf("room %s: seed save failed: %v", r.ID, jerr)
			}
		default:
			r.fail(fmt.Errorf("load room %s: %w", r.ID, err))
			return
		}
	}

	r.mu.Lock()
	r.doc = newDocument(pages)
	r.version = version
	r.mu.Unlock()
}

func (r *Room) fail(err error) {
	log.Printf("room: %v", err)
	r.mu.Lock()
	r.loadErr = err
	r.mu.Unlock()
}

// Ready is closed once the initial snapshot is available (or loading failed;
// see Err).
func (r *Room) Ready() <-chan struct{} { return r.ready }

// Err reports a failed initial load.
func (r *Room) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadErr
}

// Pages returns the current snapshot, or ok=false while the room is still
// loading.
func (r *Room) Pages() ([]domain.Page, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.doc == nil {
		return nil, false
	}
	return r.doc.Snapshot(), true
}

// Version returns the document version counter.
func (r *Room) Version() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version
}

// ── Mutation catalogue ─────────────────────────────────────

// AddSpread appends two blank pages. Always legal.
func (r *Room) AddSpread(sessionID string) {
	r.mu.Lock()
	if r.doc == nil {
		r.mu.Unlock()
		return
	}
	n := len(r.doc.pages)
	c1 := change{kind: changeInsertPage, pageIndex: n, page: blankPage()}
	r.doc.apply(c1)
	c2 := change{kind: changeInsertPage, pageIndex: n + 1, page: blankPage()}
	r.doc.apply(c2)
	r.finishLocked(sessionID, c1, c2)
}

// RemoveSpread deletes the two pages shown at the given spread view index.
// The cover spread and anything that would drop the document below the
// minimum page count are rejected synchronously, before any mutation.
func (r *Room) RemoveSpread(sessionID string, viewIndex int) error {
	r.mu.Lock()
	if r.doc == nil {
		r.mu.Unlock()
		return nil
	}
	if viewIndex <= 0 {
		r.mu.Unlock()
		return ErrCoverSpread
	}
	left := viewIndex*2 - 1
	right := viewIndex * 2
	var idxs []int // descending, so earlier removals don't shift later ones
	if right < len(r.doc.pages) {
		idxs = append(idxs, right)
	}
	if left < len(r.doc.pages) {
		idxs = append(idxs, left)
	}
	if len(idxs) == 0 {
		r.mu.Unlock()
		return nil
	}
	if len(r.doc.pages)-len(idxs) < minPages {
		r.mu.Unlock()
		return ErrMinPages
	}
	var changes []change
	for _, idx := range idxs {
		p := r.doc.pages[idx]
		c := change{kind: changeRemovePage, pageID: p.ID, pageIndex: idx, page: p.Clone()}
		r.doc.apply(c)
		changes = append(changes, c)
	}
	r.finishLocked(sessionID, changes...)
	return nil
}

// AddElement appends the element to the page. Unknown page ids and duplicate
// element ids are silent no-ops; an empty element id gets a fresh UUID.
func (r *Room) AddElement(sessionID, pageID string, el domain.Element) {
	r.mu.Lock()
	if r.doc == nil || !r.doc.hasPage(pageID) {
		r.mu.Unlock()
		return
	}
	if el.ID == "" {
		el.ID = uuid.NewString()
	} else if _, taken := r.doc.elemPage[el.ID]; taken {
		r.mu.Unlock()
		return
	}
	el.Width = max(el.Width, 0)
	el.Height = max(el.Height, 0)
	idx := len(r.doc.pages[r.doc.pageIdx[pageID]].Elements)
	c := change{kind: changeInsertElement, pageID: pageID, elemIndex: idx, elementID: el.ID, element: el}
	r.doc.apply(c)
	r.finishLocked(sessionID, c)
}

// UpdateElement merges the patch into the element wherever it lives. Stale
// element ids are silent no-ops. Patches are per-field, so concurrent
// updates to disjoint fields of the same element both survive; same-field
// writes resolve by arrival order at the room lock.
func (r *Room) UpdateElement(sessionID, elementID string, patch domain.ElementPatch) {
	r.mu.Lock()
	e := (*domain.Element)(nil)
	if r.doc != nil {
		e = r.doc.findElement(elementID)
	}
	if e == nil || len(patch) == 0 {
		r.mu.Unlock()
		return
	}
	c := change{
		kind:      changePatchElement,
		elementID: elementID,
		patch:     patch.Clone(),
		oldPatch:  e.CurrentValues(patch),
	}
	r.doc.apply(c)
	r.finishLocked(sessionID, c)
}

// DeleteElement removes the element from its page and clears any session
// presence still selecting it. Unknown ids are silent no-ops.
func (r *Room) DeleteElement(sessionID, elementID string) {
	r.mu.Lock()
	if r.doc == nil {
		r.mu.Unlock()
		return
	}
	pageID, idx, ok := r.doc.elementPos(elementID)
	if !ok {
		r.mu.Unlock()
		return
	}
	el := r.doc.pages[r.doc.pageIdx[pageID]].Elements[idx]
	c := change{kind: changeRemoveElement, pageID: pageID, elemIndex: idx, elementID: elementID, element: el}
	r.doc.apply(c)

	var cleared []string
	for sid, p := range r.presence {
		if p.SelectedID != nil && *p.SelectedID == elementID {
			p.SelectedID = nil
			cleared = append(cleared, sid)
		}
	}

	r.hist.record(sessionID, c)
	r.version++
	r.dirty = true
	r.lastUsed = time.Now()
	targets := r.sessionListLocked()
	v := r.version
	r.mu.Unlock()

	notify(targets, Event{Type: EventDocument, Version: v})
	for _, sid := range cleared {
		notify(targets, Event{Type: EventPresence, SessionID: sid})
	}
}

// SetPageBackground sets the page's background. Unknown page ids and
// unknown background values are silent no-ops.
func (r *Room) SetPageBackground(sessionID, pageID string, bg domain.Background) {
	r.mu.Lock()
	if r.doc == nil || !bg.Valid() {
		r.mu.Unlock()
		return
	}
	i, ok := r.doc.pageIdx[pageID]
	if !ok || r.doc.pages[i].Background == bg {
		r.mu.Unlock()
		return
	}
	c := change{
		kind:          changeSetBackground,
		pageID:        pageID,
		background:    bg,
		oldBackground: r.doc.pages[i].Background,
	}
	r.doc.apply(c)
	r.finishLocked(sessionID, c)
}

// finishLocked records the applied changes, bumps the version, and notifies
// sessions. Called with the lock held; releases it.
func (r *Room) finishLocked(sessionID string, changes ...change) {
	r.hist.record(sessionID, changes...)
	r.version++
	r.dirty = true
	r.lastUsed = time.Now()
	targets := r.sessionListLocked()
	v := r.version
	r.mu.Unlock()
	notify(targets, Event{Type: EventDocument, Version: v})
}

// ── History ────────────────────────────────────────────────

// Undo reverses the most recent committed step not yet undone. Shared: the
// resulting document state is observed identically by every session,
// whichever one invoked it. No-op on an empty stack. Presence is untouched.
func (r *Room) Undo() {
	r.mu.Lock()
	if r.doc == nil {
		r.mu.Unlock()
		return
	}
	st := r.hist.undoStep()
	if st == nil {
		r.mu.Unlock()
		return
	}
	for i := len(st.changes) - 1; i >= 0; i-- {
		r.doc.revert(st.changes[i])
	}
	r.bumpAndNotifyLocked()
}

// Redo re-applies the most recently undone step, provided no fresh mutation
// has discarded the redo tail. No-op otherwise.
func (r *Room) Redo() {
	r.mu.Lock()
	if r.doc == nil {
		r.mu.Unlock()
		return
	}
	st := r.hist.redoStep()
	if st == nil {
		r.mu.Unlock()
		return
	}
	for _, c := range st.changes {
		r.doc.apply(c)
	}
	r.bumpAndNotifyLocked()
}

func (r *Room) bumpAndNotifyLocked() {
	r.version++
	r.dirty = true
	r.lastUsed = time.Now()
	targets := r.sessionListLocked()
	v := r.version
	r.mu.Unlock()
	notify(targets, Event{Type: EventDocument, Version: v})
}

// BeginGesture opens a coalescing bracket for the session: every mutation it
// issues until EndGesture becomes part of a single undo step.
func (r *Room) BeginGesture(sessionID string) {
	r.mu.Lock()
	r.hist.begin(sessionID)
	r.mu.Unlock()
}

// EndGesture commits the session's open gesture as one undo step. If the
// gesture created an element that is still below the minimum size — a
// released or abandoned draw — it is snapped to the type's default size
// here, synchronously, inside the same step.
func (r *Room) EndGesture(sessionID string) {
	r.mu.Lock()
	st := r.hist.gesture(sessionID)
	if st == nil {
		r.mu.Unlock()
		return
	}
	var repaired []change
	if r.doc != nil {
		for _, c := range st.changes {
			if c.kind != changeInsertElement {
				continue
			}
			e := r.doc.findElement(c.element.ID)
			if e == nil || (e.Width >= domain.MinElementSize && e.Height >= domain.MinElementSize) {
				continue
			}
			w, h := domain.DefaultSize(e.Type)
			patch := domain.ElementPatch{"width": w, "height": h}
			cc := change{kind: changePatchElement, elementID: e.ID, patch: patch, oldPatch: e.CurrentValues(patch)}
			r.doc.apply(cc)
			repaired = append(repaired, cc)
		}
	}
	st.add(repaired...)
	r.hist.end(sessionID)
	if len(repaired) == 0 {
		r.mu.Unlock()
		return
	}
	r.bumpAndNotifyLocked()
}

// ── Presence ───────────────────────────────────────────────

// setPresence merges the patch into the session's presence slot and notifies
// the other sessions. Presence bypasses history entirely.
func (r *Room) setPresence(sessionID string, patch domain.PresencePatch) {
	r.mu.Lock()
	p, ok := r.presence[sessionID]
	if !ok {
		r.mu.Unlock()
		return
	}
	p.Apply(patch)
	targets := r.sessionListExceptLocked(sessionID)
	r.mu.Unlock()
	notify(targets, Event{Type: EventPresence, SessionID: sessionID})
}

func (r *Room) presenceOf(sessionID string) domain.Presence {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.presence[sessionID]; ok {
		return p.Clone()
	}
	return domain.Presence{}
}

// others returns the roster of live sessions besides the given one, with
// presence snapshots, in stable session-id order.
func (r *Room) others(sessionID string) []Other {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Other, 0, len(r.sessions))
	for sid := range r.sessions {
		if sid == sessionID {
			continue
		}
		out = append(out, Other{SessionID: sid, Presence: r.presence[sid].Clone()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}

// ── Sessions ───────────────────────────────────────────────

// NewSession attaches a new session to the room and announces it.
func (r *Room) NewSession() *Session {
	s := &Session{
		ID:     uuid.NewString(),
		room:   r,
		events: make(chan Event, eventBuffer),
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.presence[s.ID] = &domain.Presence{}
	targets := r.sessionListExceptLocked(s.ID)
	r.mu.Unlock()
	notify(targets, Event{Type: EventJoin, SessionID: s.ID})
	return s
}

func (r *Room) closeSession(sessionID string) {
	r.mu.Lock()
	if _, ok := r.sessions[sessionID]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.sessions, sessionID)
	delete(r.presence, sessionID)
	delete(r.hist.pending, sessionID)
	last := len(r.sessions) == 0
	targets := r.sessionListLocked()
	r.mu.Unlock()
	notify(targets, Event{Type: EventLeave, SessionID: sessionID})
	if last {
		if err := r.Persist(context.Background()); err != nil {
			log.Printf("room %s: persist on close: %v", r.ID, err)
		}
	}
}

// SessionCount returns the number of live sessions.
func (r *Room) SessionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Room) idleSince() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastUsed, len(r.sessions) == 0
}

func (r *Room) sessionListLocked() []*Session {
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

func (r *Room) sessionListExceptLocked(sessionID string) []*Session {
	out := make([]*Session, 0, len(r.sessions))
	for sid, s := range r.sessions {
		if sid != sessionID {
			out = append(out, s)
		}
	}
	return out
}

// ── Persistence ────────────────────────────────────────────

// Persist writes the current document to the store if it has unpersisted
// mutations.
func (r *Room) Persist(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	r.mu.Lock()
	if r.doc == nil || !r.dirty {
		r.mu.Unlock()
		return nil
	}
	pages := r.doc.Snapshot()
	v := r.version
	r.dirty = false
	r.mu.Unlock()

	data, err := json.Marshal(pages)
	if err != nil {
		return fmt.Errorf("encode room %s: %w", r.ID, err)
	}
	if err := r.store.SaveRoom(ctx, &storage.RoomRecord{ID: r.ID, PagesJSON: data, Version: v}); err != nil {
		r.mu.Lock()
		r.dirty = true
		r.mu.Unlock()
		return fmt.Errorf("save room %s: %w", r.ID, err)
	}
	return nil
}

func blankPage() domain.Page {
	return domain.Page{ID: uuid.NewString(), Background: domain.BackgroundWhite, Elements: []domain.Element{}}
}

// notify delivers an event without ever blocking a mutation: full channels
// drop the event, and the consumer heals on the next one.
func notify(targets []*Session, ev Event) {
	for _, s := range targets {
		select {
		case s.events <- ev:
		default:
		}
	}
}
