package room_test

import (
	"errors"
	"testing"
	"time"

	"journal/internal/domain"
	"journal/internal/room"
)

// ─────────────────────────────────────────────────────────────
// Room mutation catalogue
// In-memory rooms (nil store) so tests never touch a database.
// ─────────────────────────────────────────────────────────────

func newTestRoom(t *testing.T) *room.Room {
	t.Helper()
	rm := room.NewManager(nil).Get(t.Name())
	select {
	case <-rm.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("room never became ready")
	}
	if err := rm.Err(); err != nil {
		t.Fatalf("room load: %v", err)
	}
	return rm
}

func newTestSession(t *testing.T) *room.Session {
	t.Helper()
	s := newTestRoom(t).NewSession()
	t.Cleanup(s.Close)
	return s
}

func mustPages(t *testing.T, s *room.Session) []domain.Page {
	t.Helper()
	pages, ok := s.Pages()
	if !ok {
		t.Fatal("room reported not loaded")
	}
	return pages
}

func findElement(pages []domain.Page, id string) *domain.Element {
	for i := range pages {
		for j := range pages[i].Elements {
			if pages[i].Elements[j].ID == id {
				return &pages[i].Elements[j]
			}
		}
	}
	return nil
}

func TestSeedDocument(t *testing.T) {
	s := newTestSession(t)
	pages := mustPages(t, s)

	if len(pages) != 3 {
		t.Fatalf("seed has %d pages, want 3", len(pages))
	}
	if pages[0].ID != "cover" || pages[0].Background != domain.BackgroundMangaLines {
		t.Errorf("cover = %+v", pages[0])
	}
	if findElement(pages, "title") == nil {
		t.Error("cover title element missing")
	}
}

func TestAddSpread_AppendsTwoBlankPages(t *testing.T) {
	s := newTestSession(t)
	before := mustPages(t, s)
	v := s.Version()

	s.AddSpread()

	after := mustPages(t, s)
	if len(after) != len(before)+2 {
		t.Fatalf("pages = %d, want %d", len(after), len(before)+2)
	}
	for _, p := range after[len(before):] {
		if p.Background != domain.BackgroundWhite || len(p.Elements) != 0 {
			t.Errorf("new page not blank: %+v", p)
		}
		if p.ID == "" {
			t.Error("new page has empty id")
		}
	}
	if after[len(after)-1].ID == after[len(after)-2].ID {
		t.Error("new pages share an id")
	}
	if s.Version() != v+1 {
		t.Errorf("version = %d, want %d", s.Version(), v+1)
	}
}

func TestRemoveSpread_CoverRejected(t *testing.T) {
	s := newTestSession(t)
	s.AddSpread()

	if err := s.RemoveSpread(0); !errors.Is(err, room.ErrCoverSpread) {
		t.Errorf("err = %v, want ErrCoverSpread", err)
	}
	if got := len(mustPages(t, s)); got != 5 {
		t.Errorf("pages = %d, want 5 (nothing removed)", got)
	}
}

func TestRemoveSpread_MinimumEnforced(t *testing.T) {
	s := newTestSession(t)

	// Seed is already at the floor: cover + one spread.
	if err := s.RemoveSpread(1); !errors.Is(err, room.ErrMinPages) {
		t.Errorf("err = %v, want ErrMinPages", err)
	}
}

func TestRemoveSpread_RemovesBothPages(t *testing.T) {
	s := newTestSession(t)
	s.AddSpread() // 5 pages: cover, p1, p2, new, new

	if err := s.RemoveSpread(1); err != nil {
		t.Fatalf("remove spread: %v", err)
	}
	pages := mustPages(t, s)
	if len(pages) != 3 {
		t.Fatalf("pages = %d, want 3", len(pages))
	}
	for _, p := range pages {
		if p.ID == "p1" || p.ID == "p2" {
			t.Errorf("spread page %s survived removal", p.ID)
		}
	}
}

func TestAddElement_GeneratesID(t *testing.T) {
	s := newTestSession(t)
	s.AddElement("p1", domain.Element{Type: domain.ElementText, Content: "hey", Width: 100, Height: 40})

	pages := mustPages(t, s)
	var page domain.Page
	for _, p := range pages {
		if p.ID == "p1" {
			page = p
		}
	}
	if len(page.Elements) != 1 {
		t.Fatalf("p1 has %d elements, want 1", len(page.Elements))
	}
	if page.Elements[0].ID == "" {
		t.Error("element id not generated")
	}
}

func TestAddElement_UnknownPageNoop(t *testing.T) {
	s := newTestSession(t)
	v := s.Version()

	s.AddElement("nope", domain.Element{ID: "x", Type: domain.ElementText})

	if s.Version() != v {
		t.Error("no-op mutation bumped the version")
	}
}

func TestAddElement_DuplicateIDNoop(t *testing.T) {
	s := newTestSession(t)
	s.AddElement("p1", domain.Element{ID: "dup", Type: domain.ElementText})
	v := s.Version()

	s.AddElement("p2", domain.Element{ID: "dup", Type: domain.ElementShape})

	if s.Version() != v {
		t.Error("duplicate id accepted")
	}
}

func TestUpdateElement_StaleIDNoop(t *testing.T) {
	s := newTestSession(t)
	v := s.Version()

	s.UpdateElement("ghost", domain.ElementPatch{"x": 1.0})

	if s.Version() != v {
		t.Error("stale update bumped the version")
	}
}

func TestDeleteElement_RemovesAndIsIdempotent(t *testing.T) {
	s := newTestSession(t)
	s.AddElement("p1", domain.Element{ID: "e1", Type: domain.ElementText})

	s.DeleteElement("e1")
	if findElement(mustPages(t, s), "e1") != nil {
		t.Fatal("element survived delete")
	}

	v := s.Version()
	s.DeleteElement("e1")
	if s.Version() != v {
		t.Error("second delete bumped the version")
	}
}

func TestSetPageBackground(t *testing.T) {
	s := newTestSession(t)

	s.SetPageBackground("p1", domain.BackgroundDark)
	pages := mustPages(t, s)
	for _, p := range pages {
		if p.ID == "p1" && p.Background != domain.BackgroundDark {
			t.Errorf("background = %q, want dark", p.Background)
		}
	}

	// Unknown values and same-value writes are no-ops.
	v := s.Version()
	s.SetPageBackground("p1", "plaid")
	s.SetPageBackground("p1", domain.BackgroundDark)
	if s.Version() != v {
		t.Error("no-op background writes bumped the version")
	}
}

func TestSnapshot_UnmutatedPagesKeepIdentity(t *testing.T) {
	s := newTestSession(t)
	before := mustPages(t, s)

	s.AddElement("p1", domain.Element{ID: "e1", Type: domain.ElementText})

	after := mustPages(t, s)
	// The cover was not touched, so its element slice is the same array.
	if len(before[0].Elements) > 0 && len(after[0].Elements) > 0 && &before[0].Elements[0] != &after[0].Elements[0] {
		t.Error("untouched page was recopied")
	}
}

func TestEvents_DocumentNotification(t *testing.T) {
	s := newTestSession(t)

	s.AddSpread()

	select {
	case ev := <-s.Events():
		if ev.Type != room.EventDocument {
			t.Errorf("event = %v, want document", ev.Type)
		}
		if ev.Version == 0 {
			t.Error("document event missing version")
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}
