package room

// maxHistorySteps caps the shared undo log. Oldest steps fall off first.
const maxHistorySteps = 64

// step is one undoable unit: the ordered primitive changes of a single
// discrete mutation, or of a whole coalesced gesture.
type step struct {
	changes []change
}

// add appends changes to the step, coalescing consecutive patches to the
// same element: the forward patch keeps the latest values, the inverse patch
// keeps the earliest, so undoing the step restores the pre-gesture state in
// one move.
func (st *step) add(changes ...change) {
	for _, c := range changes {
		if c.kind == changePatchElement && len(st.changes) > 0 {
			last := &st.changes[len(st.changes)-1]
			if last.kind == changePatchElement && last.elementID == c.elementID {
				for k, v := range c.patch {
					last.patch[k] = v
				}
				for k, v := range c.oldPatch {
					if _, ok := last.oldPatch[k]; !ok {
						last.oldPatch[k] = v
					}
				}
				continue
			}
		}
		st.changes = append(st.changes, c)
	}
}

// history is the room's shared undo/redo state: an append-only step log with
// a cursor. It lives with the authoritative document rather than in any one
// session, so undo and redo are observed identically by every session.
type history struct {
	steps   []*step
	cursor  int              // number of steps currently applied
	pending map[string]*step // open gesture step per session id
}

func newHistory() *history {
	return &history{pending: make(map[string]*step)}
}

// record routes changes from one mutation: into the session's open gesture
// step when one exists, otherwise committed immediately as a discrete step.
func (h *history) record(sessionID string, changes ...change) {
	if st, ok := h.pending[sessionID]; ok {
		st.add(changes...)
		return
	}
	st := &step{}
	st.add(changes...)
	h.commit(st)
}

// begin opens a gesture step for the session. A second begin without an end
// keeps the existing step open.
func (h *history) begin(sessionID string) {
	if _, ok := h.pending[sessionID]; !ok {
		h.pending[sessionID] = &step{}
	}
}

// gesture returns the session's open gesture step, if any.
func (h *history) gesture(sessionID string) *step {
	return h.pending[sessionID]
}

// end commits the session's open gesture step. Empty gestures commit nothing.
func (h *history) end(sessionID string) {
	st, ok := h.pending[sessionID]
	if !ok {
		return
	}
	delete(h.pending, sessionID)
	h.commit(st)
}

func (h *history) commit(st *step) {
	if len(st.changes) == 0 {
		return
	}
	// Any fresh step discards the redo tail.
	h.steps = h.steps[:h.cursor]
	h.steps = append(h.steps, st)
	h.cursor = len(h.steps)
	if len(h.steps) > maxHistorySteps {
		drop := len(h.steps) - maxHistorySteps
		h.steps = append([]*step(nil), h.steps[drop:]...)
		h.cursor -= drop
	}
}

// undoStep returns the most recent applied step and moves the cursor past
// it, or nil when there is nothing to undo.
func (h *history) undoStep() *step {
	if h.cursor == 0 {
		return nil
	}
	h.cursor--
	return h.steps[h.cursor]
}

// redoStep returns the most recently undone step and re-advances the cursor,
// or nil when there is nothing to redo.
func (h *history) redoStep() *step {
	if h.cursor == len(h.steps) {
		return nil
	}
	st := h.steps[h.cursor]
	h.cursor++
	return st
}
