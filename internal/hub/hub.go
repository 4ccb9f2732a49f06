package hub

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"journal/internal/config"
	"journal/internal/domain"
	"journal/internal/room"
)

// ─────────────────────────────────────────────────────────────
// Hub — WebSocket gateway in front of the room manager
// ─────────────────────────────────────────────────────────────

const (
	readLimit   = 1 << 20 // media travels inline as data URLs
	loadWait    = 30 * time.Second
	writeWait   = 10 * time.Second
	presenceGap = 33 * time.Millisecond // ~30 Hz presence rebroadcast per connection
)

// Hub upgrades connections and binds each to a room session. The room id
// comes from the ?room= query parameter (or the init frame); when absent a
// fresh id is generated and reported in the snapshot so the client can write
// it back into its URL.
type Hub struct {
	manager  *room.Manager
	keys     *config.Keyring
	upgrader websocket.Upgrader
}

func New(manager *room.Manager, keys *config.Keyring) *Hub {
	return &Hub{
		manager: manager,
		keys:    keys,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The journal is an open embed target; rooms gate on API keys.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Routes returns the hub's HTTP handler.
func (h *Hub) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleConn)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (h *Hub) handleConn(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("hub: upgrade: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(readLimit)

	c := &client{hub: h, conn: conn, outbound: make(chan serverMsg, 16), done: make(chan struct{})}
	c.run(r.URL.Query().Get("room"), r.URL.Query().Get("key"))
}

// client is one connection's state: its session, the single-writer outbound
// channel, and the presence throttle.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	sess *room.Session

	outbound chan serverMsg
	done     chan struct{}

	// presence throttle: at most one rebroadcast per presenceGap, with a
	// trailing flush so the final cursor position always lands.
	presMu      sync.Mutex
	presLast    time.Time
	presPending *domain.PresencePatch
	presTimer   *time.Timer
}

func (c *client) run(queryRoom, queryKey string) {
	// Handshake: the first frame must be init.
	var msg clientMsg
	if err := c.conn.ReadJSON(&msg); err != nil || msg.Type != "init" {
		c.writeNow(serverMsg{Type: "error", Message: "expected init frame"})
		return
	}
	roomID := msg.RoomID
	if roomID == "" {
		roomID = queryRoom
	}
	key := msg.APIKey
	if key == "" {
		key = queryKey
	}
	if !c.hub.keys.Allow(key) {
		// Configuration failure: the only error class allowed to block use.
		c.writeNow(serverMsg{Type: "error", Message: "invalid or unauthorized API key"})
		return
	}

	rm := c.hub.manager.Get(roomID)
	select {
	case <-rm.Ready():
	case <-time.After(loadWait):
		c.writeNow(serverMsg{Type: "error", Message: "room load timed out"})
		return
	}
	if err := rm.Err(); err != nil {
		c.writeNow(serverMsg{Type: "error", Message: "room failed to load"})
		return
	}

	c.sess = rm.NewSession()
	defer c.sess.Close()
	defer close(c.done)

	pages, _ := c.sess.Pages()
	c.writeNow(serverMsg{
		Type:      "snapshot",
		RoomID:    rm.ID,
		SessionID: c.sess.ID,
		Version:   c.sess.Version(),
		Pages:     pages,
		Others:    c.sess.Others(),
	})

	go c.writeLoop()
	c.readLoop()
}

// readLoop consumes client frames until the connection drops. All document
// errors stay local (notices at most); nothing here closes the room.
func (c *client) readLoop() {
	for {
		var msg clientMsg
		if err := c.conn.ReadJSON(&msg); err != nil {
			if !isExpectedClose(err) {
				log.Printf("hub: read: %v", err)
			}
			return
		}
		switch msg.Type {
		case "mutate":
			c.handleMutate(msg)
		case "presence":
			c.handlePresence(msg.Presence)
		case "undo":
			c.sess.Undo()
		case "redo":
			c.sess.Redo()
		case "gestureBegin":
			c.sess.BeginGesture()
		case "gestureEnd":
			c.sess.EndGesture()
		default:
			c.send(serverMsg{Type: "error", Message: "unknown frame type: " + msg.Type})
		}
	}
}

func (c *client) handleMutate(msg clientMsg) {
	switch msg.Op {
	case "addSpread":
		c.sess.AddSpread()
	case "removeSpread":
		if err := c.sess.RemoveSpread(msg.ViewIndex); err != nil {
			// Structural guard: rejected at the call site, surfaced as a
			// non-fatal notice.
			c.send(serverMsg{Type: "notice", Message: err.Error()})
		}
	case "addElement":
		if msg.Element != nil {
			c.sess.AddElement(msg.PageID, *msg.Element)
		}
	case "updateElement":
		c.sess.UpdateElement(msg.ElementID, msg.Patch)
	case "deleteElement":
		c.sess.DeleteElement(msg.ElementID)
	case "setPageBackground":
		c.sess.SetPageBackground(msg.PageID, domain.Background(msg.Background))
	default:
		c.send(serverMsg{Type: "error", Message: "unknown op: " + msg.Op})
	}
}

// handlePresence applies the patch through the throttle: the first update in
// a window goes out immediately, later ones coalesce into one trailing
// flush. Patches merge field-wise, so a cursor stream never swallows a
// selection change.
func (c *client) handlePresence(raw json.RawMessage) {
	patch, err := domain.DecodePresencePatch(raw)
	if err != nil {
		c.send(serverMsg{Type: "error", Message: "bad presence frame"})
		return
	}
	c.presMu.Lock()
	defer c.presMu.Unlock()
	if since := time.Since(c.presLast); since >= presenceGap {
		c.presLast = time.Now()
		c.sess.SetPresence(patch)
		return
	}
	if c.presPending == nil {
		p := patch
		c.presPending = &p
		c.presTimer = time.AfterFunc(presenceGap-time.Since(c.presLast), c.flushPresence)
	} else {
		mergePresencePatch(c.presPending, patch)
	}
}

func (c *client) flushPresence() {
	c.presMu.Lock()
	pending := c.presPending
	c.presPending = nil
	c.presLast = time.Now()
	c.presMu.Unlock()
	if pending != nil {
		select {
		case <-c.done:
		default:
			c.sess.SetPresence(*pending)
		}
	}
}

func mergePresencePatch(dst *domain.PresencePatch, src domain.PresencePatch) {
	if src.SetCursor {
		dst.SetCursor = true
		dst.Cursor = src.Cursor
	}
	if src.SetEditingPageID {
		dst.SetEditingPageID = true
		dst.EditingPageID = src.EditingPageID
	}
	if src.SetSelectedID {
		dst.SetSelectedID = true
		dst.SelectedID = src.SelectedID
	}
}

// writeLoop is the single writer for the connection: it turns session events
// into frames and relays notices queued by the read side.
func (c *client) writeLoop() {
	for {
		select {
		case ev := <-c.sess.Events():
			if !c.writeEvent(ev) {
				return
			}
		case msg := <-c.outbound:
			if !c.writeNow(msg) {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *client) writeEvent(ev room.Event) bool {
	switch ev.Type {
	case room.EventDocument:
		pages, ok := c.sess.Pages()
		if !ok {
			return true
		}
		return c.writeNow(serverMsg{Type: "doc", Version: c.sess.Version(), Pages: pages})
	case room.EventPresence:
		if ev.SessionID == c.sess.ID {
			// Own selection cleared by a remote delete.
			p := c.sess.Presence()
			return c.writeNow(serverMsg{Type: "presence", SessionID: ev.SessionID, Presence: &p})
		}
		for _, o := range c.sess.Others() {
			if o.SessionID == ev.SessionID {
				p := o.Presence
				return c.writeNow(serverMsg{Type: "presence", SessionID: ev.SessionID, Presence: &p})
			}
		}
		return true // already gone
	case room.EventJoin:
		return c.writeNow(serverMsg{Type: "join", SessionID: ev.SessionID})
	case room.EventLeave:
		return c.writeNow(serverMsg{Type: "leave", SessionID: ev.SessionID})
	}
	return true
}

// send queues a frame from the read side for the writer goroutine.
func (c *client) send(msg serverMsg) {
	select {
	case c.outbound <- msg:
	case <-c.done:
	}
}

// writeNow writes a frame directly. Only the handshake (before the writer
// starts) and the writer goroutine itself may call it.
func (c *client) writeNow(msg serverMsg) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(msg); err != nil {
		if !isExpectedClose(err) {
			log.Printf("hub: write: %v", err)
		}
		return false
	}
	return true
}

func isExpectedClose(err error) bool {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway
	}
	return false
}
