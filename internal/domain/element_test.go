package domain_test

import (
	"testing"

	"journal/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Element patch semantics
// ─────────────────────────────────────────────────────────────

func TestApplyPatch_MergesNamedFields(t *testing.T) {
	e := domain.Element{ID: "e1", Type: domain.ElementText, Content: "hi", X: 10, Y: 20}
	e.ApplyPatch(domain.ElementPatch{"x": 40.0, "color": "#ff0000"})

	if e.X != 40 {
		t.Errorf("x = %v, want 40", e.X)
	}
	if e.Color != "#ff0000" {
		t.Errorf("color = %q, want #ff0000", e.Color)
	}
	// Untouched fields keep their values.
	if e.Y != 20 || e.Content != "hi" {
		t.Errorf("unpatched fields changed: y=%v content=%q", e.Y, e.Content)
	}
}

func TestApplyPatch_IDAndTypeImmutable(t *testing.T) {
	e := domain.Element{ID: "e1", Type: domain.ElementText}
	e.ApplyPatch(domain.ElementPatch{"id": "e2", "type": "image"})

	if e.ID != "e1" || e.Type != domain.ElementText {
		t.Errorf("id/type changed: id=%q type=%q", e.ID, e.Type)
	}
}

func TestApplyPatch_ClampsSizeAtZero(t *testing.T) {
	e := domain.Element{Width: 100, Height: 100}
	e.ApplyPatch(domain.ElementPatch{"width": -5.0, "height": -1.0})

	if e.Width != 0 || e.Height != 0 {
		t.Errorf("size = %vx%v, want 0x0", e.Width, e.Height)
	}
}

func TestApplyPatch_IgnoresWrongTypes(t *testing.T) {
	e := domain.Element{X: 10, Content: "keep"}
	e.ApplyPatch(domain.ElementPatch{"x": "not a number", "content": 42})

	if e.X != 10 || e.Content != "keep" {
		t.Errorf("mistyped values applied: x=%v content=%q", e.X, e.Content)
	}
}

func TestCurrentValues_BuildsInverse(t *testing.T) {
	e := domain.Element{X: 10, Color: "#000000"}
	patch := domain.ElementPatch{"x": 99.0, "color": "#ffffff"}
	inverse := e.CurrentValues(patch)

	e.ApplyPatch(patch)
	e.ApplyPatch(inverse)

	if e.X != 10 || e.Color != "#000000" {
		t.Errorf("inverse did not restore: x=%v color=%q", e.X, e.Color)
	}
}

func TestDefaultSize(t *testing.T) {
	if w, h := domain.DefaultSize(domain.ElementText); w != 150 || h != 50 {
		t.Errorf("text default = %vx%v, want 150x50", w, h)
	}
	if w, h := domain.DefaultSize(domain.ElementShape); w != 150 || h != 150 {
		t.Errorf("shape default = %vx%v, want 150x150", w, h)
	}
}

func TestBackgroundValid(t *testing.T) {
	for _, bg := range []domain.Background{"white", "grid", "dots", "dark", "manga-lines"} {
		if !bg.Valid() {
			t.Errorf("%q should be valid", bg)
		}
	}
	if domain.Background("plaid").Valid() {
		t.Error("unknown background accepted")
	}
}
