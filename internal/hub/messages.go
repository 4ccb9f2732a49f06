package hub

import (
	"encoding/json"

	"journal/internal/domain"
	"journal/internal/room"
)

// Client → server frame. Type selects which fields matter.
type clientMsg struct {
	Type string `json:"type"` // init | mutate | presence | undo | redo | gestureBegin | gestureEnd

	// init
	RoomID string `json:"roomId,omitempty"`
	APIKey string `json:"apiKey,omitempty"`

	// mutate
	Op         string              `json:"op,omitempty"` // addSpread | removeSpread | addElement | updateElement | deleteElement | setPageBackground
	PageID     string              `json:"pageId,omitempty"`
	ElementID  string              `json:"elementId,omitempty"`
	Element    *domain.Element     `json:"element,omitempty"`
	Patch      domain.ElementPatch `json:"patch,omitempty"`
	Background string              `json:"background,omitempty"`
	ViewIndex  int                 `json:"viewIndex,omitempty"`

	// presence — kept raw so absent keys stay distinguishable from nulls
	Presence json.RawMessage `json:"presence,omitempty"`
}

// Server → client frame.
type serverMsg struct {
	Type      string           `json:"type"` // snapshot | doc | presence | join | leave | notice | error
	RoomID    string           `json:"roomId,omitempty"`
	SessionID string           `json:"sessionId,omitempty"`
	Version   uint64           `json:"version,omitempty"`
	Pages     []domain.Page    `json:"pages,omitempty"`
	Presence  *domain.Presence `json:"presence,omitempty"`
	Others    []room.Other     `json:"others,omitempty"`
	Message   string           `json:"message,omitempty"`
}
