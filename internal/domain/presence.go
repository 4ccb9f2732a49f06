package domain

import "encoding/json"

// Point is a cursor position in page-local coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Presence is the ephemeral per-session state broadcast to other sessions.
// It exists only while the session is connected, is never persisted, and is
// never touched by undo/redo. Nil pointers serialize as JSON null (the wire
// shape for "absent").
type Presence struct {
	Cursor        *Point  `json:"cursor"`
	EditingPageID *string `json:"editingPageId"`
	SelectedID    *string `json:"selectedId"`
}

// Clone returns a copy that shares no pointers with the original.
func (p Presence) Clone() Presence {
	out := Presence{}
	if p.Cursor != nil {
		c := *p.Cursor
		out.Cursor = &c
	}
	if p.EditingPageID != nil {
		s := *p.EditingPageID
		out.EditingPageID = &s
	}
	if p.SelectedID != nil {
		s := *p.SelectedID
		out.SelectedID = &s
	}
	return out
}

// PresencePatch is a partial presence update. Fields are independent: only
// those whose Set flag is true are touched, and a set field with a nil value
// clears it. Setting the cursor never clobbers the selection.
type PresencePatch struct {
	SetCursor bool
	Cursor    *Point

	SetEditingPageID bool
	EditingPageID    *string

	SetSelectedID bool
	SelectedID    *string
}

// Apply merges the patch into the presence.
func (p *Presence) Apply(patch PresencePatch) {
	if patch.SetCursor {
		p.Cursor = patch.Cursor
	}
	if patch.SetEditingPageID {
		p.EditingPageID = patch.EditingPageID
	}
	if patch.SetSelectedID {
		p.SelectedID = patch.SelectedID
	}
}

// DecodePresencePatch parses a partial presence JSON object, distinguishing
// an absent key (field untouched) from an explicit null (field cleared).
func DecodePresencePatch(data []byte) (PresencePatch, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return PresencePatch{}, err
	}
	var patch PresencePatch
	if v, ok := raw["cursor"]; ok {
		patch.SetCursor = true
		if err := json.Unmarshal(v, &patch.Cursor); err != nil {
			return PresencePatch{}, err
		}
	}
	if v, ok := raw["editingPageId"]; ok {
		patch.SetEditingPageID = true
		if err := json.Unmarshal(v, &patch.EditingPageID); err != nil {
			return PresencePatch{}, err
		}
	}
	if v, ok := raw["selectedId"]; ok {
		patch.SetSelectedID = true
		if err := json.Unmarshal(v, &patch.SelectedID); err != nil {
			return PresencePatch{}, err
		}
	}
	return patch, nil
}
