package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"journal/internal/room"
	"journal/internal/storage"
)

// Server is the MCP server for the journal. It exposes the room mutation
// catalogue as tools so AI agents can read and edit shared documents
// alongside live sessions.
type Server struct {
	mcp     *server.MCPServer
	manager *room.Manager
	store   storage.Store // may be nil (in-memory manager)

	mu       sync.Mutex
	sessions map[string]*room.Session // one agent session per room
}

// New creates and configures the MCP server with all journal tools.
func New(manager *room.Manager, store storage.Store) *Server {
	s := &Server{
		manager:  manager,
		store:    store,
		sessions: make(map[string]*room.Session),
	}
	s.mcp = server.NewMCPServer(
		"journal-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	s.registerRoomTools()
	s.registerElementTools()
	s.registerHistoryTools()
	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Println("mcp: starting stdio server")
	return server.ServeStdio(s.mcp)
}

// Close detaches every agent session.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		sess.Close()
	}
	s.sessions = make(map[string]*room.Session)
}

// session returns the agent's session for a room, attaching on first use and
// waiting for the room's initial snapshot.
func (s *Server) session(ctx context.Context, roomID string) (*room.Session, error) {
	if roomID == "" {
		return nil, fmt.Errorf("roomId is required")
	}
	s.mu.Lock()
	if sess, ok := s.sessions[roomID]; ok {
		s.mu.Unlock()
		return sess, nil
	}
	s.mu.Unlock()

	rm := s.manager.Get(roomID)
	select {
	case <-rm.Ready():
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if err := rm.Err(); err != nil {
		return nil, fmt.Errorf("room %s failed to load: %w", roomID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[roomID]; ok {
		return sess, nil
	}
	sess := rm.NewSession()
	s.sessions[roomID] = sess
	return sess, nil
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// parseJSON decodes a JSON string argument into v.
func parseJSON(raw string, v any) error {
	return json.Unmarshal([]byte(raw), v)
}
