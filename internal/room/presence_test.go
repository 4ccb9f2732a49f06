package room_test

import (
	"testing"
	"time"

	"journal/internal/domain"
	"journal/internal/room"
)

// ─────────────────────────────────────────────────────────────
// Presence channel
// ─────────────────────────────────────────────────────────────

func TestPresence_VisibleToPeers(t *testing.T) {
	rm := newTestRoom(t)
	a := rm.NewSession()
	b := rm.NewSession()
	t.Cleanup(a.Close)
	t.Cleanup(b.Close)

	sel := "e1"
	a.SetPresence(domain.PresencePatch{
		SetCursor:     true,
		Cursor:        &domain.Point{X: 5, Y: 6},
		SetSelectedID: true,
		SelectedID:    &sel,
	})

	others := b.Others()
	if len(others) != 1 {
		t.Fatalf("others = %d, want 1", len(others))
	}
	p := others[0].Presence
	if p.Cursor == nil || p.Cursor.X != 5 {
		t.Errorf("cursor not replicated: %+v", p)
	}
	if p.SelectedID == nil || *p.SelectedID != "e1" {
		t.Errorf("selection not replicated: %+v", p)
	}
}

func TestPresence_PartialPatchKeepsOtherFields(t *testing.T) {
	s := newTestSession(t)

	sel := "e1"
	s.SetPresence(domain.PresencePatch{SetSelectedID: true, SelectedID: &sel})
	s.SetPresence(domain.PresencePatch{SetCursor: true, Cursor: &domain.Point{X: 1}})

	p := s.Presence()
	if p.SelectedID == nil || *p.SelectedID != "e1" {
		t.Error("cursor patch clobbered selection")
	}
	if p.Cursor == nil {
		t.Error("cursor not set")
	}
}

func TestPresence_NotUndoable(t *testing.T) {
	s := newTestSession(t)
	s.AddElement("p1", domain.Element{ID: "e1", Type: domain.ElementText})

	sel := "e1"
	s.SetPresence(domain.PresencePatch{SetSelectedID: true, SelectedID: &sel})

	// Undo reverses the element insert, never the presence write.
	s.Undo()
	if findElement(mustPages(t, s), "e1") != nil {
		t.Fatal("undo skipped the document step")
	}
}

func TestDeleteElement_ClearsDanglingSelections(t *testing.T) {
	rm := newTestRoom(t)
	a := rm.NewSession()
	b := rm.NewSession()
	t.Cleanup(a.Close)
	t.Cleanup(b.Close)

	a.AddElement("p1", domain.Element{ID: "e1", Type: domain.ElementText})
	sel := "e1"
	b.SetPresence(domain.PresencePatch{SetSelectedID: true, SelectedID: &sel})

	a.DeleteElement("e1")

	if p := b.Presence(); p.SelectedID != nil {
		t.Errorf("selection still points at deleted element: %q", *p.SelectedID)
	}
}

func TestOthers_ExcludesSelfAndIsOrdered(t *testing.T) {
	rm := newTestRoom(t)
	a := rm.NewSession()
	b := rm.NewSession()
	c := rm.NewSession()
	t.Cleanup(a.Close)
	t.Cleanup(b.Close)
	t.Cleanup(c.Close)

	others := a.Others()
	if len(others) != 2 {
		t.Fatalf("others = %d, want 2", len(others))
	}
	for _, o := range others {
		if o.SessionID == a.ID {
			t.Error("roster includes self")
		}
	}
	if others[0].SessionID > others[1].SessionID {
		t.Error("roster not in session-id order")
	}
}

func TestJoinLeave_Events(t *testing.T) {
	rm := newTestRoom(t)
	a := rm.NewSession()
	t.Cleanup(a.Close)

	b := rm.NewSession()
	waitEvent(t, a, room.EventJoin, b.ID)

	b.Close()
	waitEvent(t, a, room.EventLeave, b.ID)
}

func TestClose_DestroysPresenceSlot(t *testing.T) {
	rm := newTestRoom(t)
	a := rm.NewSession()
	b := rm.NewSession()
	t.Cleanup(a.Close)

	b.Close()

	if got := rm.SessionCount(); got != 1 {
		t.Errorf("sessions = %d, want 1", got)
	}
	if got := len(a.Others()); got != 0 {
		t.Errorf("others = %d, want 0", got)
	}
}

// waitEvent drains a session's channel until the wanted event arrives.
func waitEvent(t *testing.T, s *room.Session, typ room.EventType, sessionID string) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-s.Events():
			if ev.Type == typ && ev.SessionID == sessionID {
				return
			}
		case <-deadline:
			t.Fatalf("no %s event for %s", typ, sessionID)
		}
	}
}
