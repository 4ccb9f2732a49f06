package room

import "journal/internal/domain"

// Other is one entry in the roster of peer sessions.
type Other struct {
	SessionID string          `json:"sessionId"`
	Presence  domain.Presence `json:"presence"`
}

// Session is one client's attachment to a room: snapshot reads, mutation
// dispatch, its own presence slot, the peer roster, and the shared history
// controls. Sessions are handed out by Room.NewSession and must be closed.
type Session struct {
	ID     string
	room   *Room
	events chan Event
}

// Ready is closed once the room's initial snapshot is available. Until then
// Pages reports ok=false — "not yet loaded", which is not an empty document.
func (s *Session) Ready() <-chan struct{} { return s.room.Ready() }

// Err reports a failed initial room load.
func (s *Session) Err() error { return s.room.Err() }

// Events is the session's notification channel. It is buffered and lossy:
// events signal that something changed, and state is always re-read through
// Pages, Presence, or Others.
func (s *Session) Events() <-chan Event { return s.events }

// Pages returns the current document snapshot. Unmutated pages keep their
// backing arrays between calls, so callers can diff cheaply. The snapshot is
// read-only; all writes go through the mutation methods.
func (s *Session) Pages() ([]domain.Page, bool) { return s.room.Pages() }

// Version returns the document version counter.
func (s *Session) Version() uint64 { return s.room.Version() }

// ── Mutations ──────────────────────────────────────────────

func (s *Session) AddSpread() { s.room.AddSpread(s.ID) }

func (s *Session) RemoveSpread(viewIndex int) error { return s.room.RemoveSpread(s.ID, viewIndex) }

func (s *Session) AddElement(pageID string, el domain.Element) { s.room.AddElement(s.ID, pageID, el) }

func (s *Session) UpdateElement(elementID string, patch domain.ElementPatch) {
	s.room.UpdateElement(s.ID, elementID, patch)
}

func (s *Session) DeleteElement(elementID string) { s.room.DeleteElement(s.ID, elementID) }

func (s *Session) SetPageBackground(pageID string, bg domain.Background) {
	s.room.SetPageBackground(s.ID, pageID, bg)
}

// ── History ────────────────────────────────────────────────

func (s *Session) Undo() { s.room.Undo() }
func (s *Session) Redo() { s.room.Redo() }

// BeginGesture opens a coalescing bracket: every mutation this session
// issues until EndGesture forms a single undo step.
func (s *Session) BeginGesture() { s.room.BeginGesture(s.ID) }

// EndGesture commits the open gesture, running the too-small element repair
// first.
func (s *Session) EndGesture() { s.room.EndGesture(s.ID) }

// ── Presence ───────────────────────────────────────────────

// Presence returns this session's own presence snapshot.
func (s *Session) Presence() domain.Presence { return s.room.presenceOf(s.ID) }

// SetPresence merges the patch into this session's presence slot and
// broadcasts it to the other sessions. Fields are independent; presence is
// never part of history.
func (s *Session) SetPresence(patch domain.PresencePatch) { s.room.setPresence(s.ID, patch) }

// Others lists every other live session with its presence snapshot.
func (s *Session) Others() []Other { return s.room.others(s.ID) }

// Close detaches the session, destroying its presence slot. Closing the last
// session flushes the room to storage.
func (s *Session) Close() { s.room.closeSession(s.ID) }
