package domain_test

import (
	"testing"

	"journal/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Presence patches: absent key vs explicit null
// ─────────────────────────────────────────────────────────────

func TestDecodePresencePatch_AbsentKeyUntouched(t *testing.T) {
	patch, err := domain.DecodePresencePatch([]byte(`{"cursor":{"x":1,"y":2}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !patch.SetCursor || patch.Cursor == nil || patch.Cursor.X != 1 {
		t.Errorf("cursor not decoded: %+v", patch)
	}
	if patch.SetSelectedID || patch.SetEditingPageID {
		t.Error("absent keys marked as set")
	}
}

func TestDecodePresencePatch_NullClears(t *testing.T) {
	patch, err := domain.DecodePresencePatch([]byte(`{"selectedId":null}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !patch.SetSelectedID || patch.SelectedID != nil {
		t.Errorf("null should set-and-clear: %+v", patch)
	}
}

func TestPresenceApply_FieldsIndependent(t *testing.T) {
	sel := "e1"
	p := domain.Presence{SelectedID: &sel}

	// A cursor-only patch must not clobber the selection.
	p.Apply(domain.PresencePatch{SetCursor: true, Cursor: &domain.Point{X: 3, Y: 4}})

	if p.Cursor == nil || p.Cursor.X != 3 {
		t.Errorf("cursor not applied: %+v", p)
	}
	if p.SelectedID == nil || *p.SelectedID != "e1" {
		t.Error("cursor patch clobbered selection")
	}

	// An explicit clear removes it.
	p.Apply(domain.PresencePatch{SetSelectedID: true, SelectedID: nil})
	if p.SelectedID != nil {
		t.Error("selection not cleared")
	}
}

func TestPresenceClone_SharesNoPointers(t *testing.T) {
	sel := "e1"
	p := domain.Presence{Cursor: &domain.Point{X: 1}, SelectedID: &sel}
	c := p.Clone()

	c.Cursor.X = 99
	*c.SelectedID = "e2"

	if p.Cursor.X != 1 || *p.SelectedID != "e1" {
		t.Errorf("clone aliased original: %+v", p)
	}
}
