package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"journal/internal/domain"
)

func (s *Server) registerRoomTools() {
	// ── list_rooms ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_rooms",
		mcp.WithDescription("List all persisted journal rooms"),
	), s.handleListRooms)

	// ── get_pages ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_pages",
		mcp.WithDescription("Return the full page list of a room's document"),
		mcp.WithString("roomId",
			mcp.Description("ID of the room"),
			mcp.Required(),
		),
	), s.handleGetPages)

	// ── add_spread ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_spread",
		mcp.WithDescription("Append two blank pages to the end of the book"),
		mcp.WithString("roomId",
			mcp.Description("ID of the room"),
			mcp.Required(),
		),
	), s.handleAddSpread)

	// ── remove_spread ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("remove_spread",
		mcp.WithDescription("Remove the two pages at a spread view index (the cover spread cannot be removed)"),
		mcp.WithString("roomId",
			mcp.Description("ID of the room"),
			mcp.Required(),
		),
		mcp.WithNumber("viewIndex",
			mcp.Description("Spread view index (0 is the cover spread)"),
			mcp.Required(),
		),
	), s.handleRemoveSpread)

	// ── set_page_background ────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_page_background",
		mcp.WithDescription("Set a page's background style"),
		mcp.WithString("roomId",
			mcp.Description("ID of the room"),
			mcp.Required(),
		),
		mcp.WithString("pageId",
			mcp.Description("ID of the page"),
			mcp.Required(),
		),
		mcp.WithString("background",
			mcp.Description("One of: white, grid, dots, dark, manga-lines"),
			mcp.Required(),
		),
	), s.handleSetPageBackground)
}

func (s *Server) registerElementTools() {
	// ── add_element ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_element",
		mcp.WithDescription("Add an element to a page"),
		mcp.WithString("roomId",
			mcp.Description("ID of the room"),
			mcp.Required(),
		),
		mcp.WithString("pageId",
			mcp.Description("ID of the page"),
			mcp.Required(),
		),
		mcp.WithString("type",
			mcp.Description("Element type: text, image, video, audio, shape, sticker"),
			mcp.Required(),
		),
		mcp.WithString("content",
			mcp.Description("Text body, or an embeddable payload (data URL) for media"),
		),
		mcp.WithNumber("x", mcp.Description("X position (default 100)")),
		mcp.WithNumber("y", mcp.Description("Y position (default 100)")),
		mcp.WithNumber("width", mcp.Description("Width (default 150)")),
		mcp.WithNumber("height", mcp.Description("Height (default 150, 50 for text)")),
	), s.handleAddElement)

	// ── update_element ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_element",
		mcp.WithDescription("Merge a partial property set into an element (JSON object keyed by field name)"),
		mcp.WithString("roomId",
			mcp.Description("ID of the room"),
			mcp.Required(),
		),
		mcp.WithString("elementId",
			mcp.Description("ID of the element"),
			mcp.Required(),
		),
		mcp.WithString("patch",
			mcp.Description(`JSON object of fields to merge, e.g. {"x": 40, "color": "#ff0000"}`),
			mcp.Required(),
		),
	), s.handleUpdateElement)

	// ── delete_element ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_element",
		mcp.WithDescription("Delete an element from its page"),
		mcp.WithString("roomId",
			mcp.Description("ID of the room"),
			mcp.Required(),
		),
		mcp.WithString("elementId",
			mcp.Description("ID of the element"),
			mcp.Required(),
		),
	), s.handleDeleteElement)
}

func (s *Server) registerHistoryTools() {
	// ── undo / redo ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the most recent mutation step in a room (shared across all sessions)"),
		mcp.WithString("roomId",
			mcp.Description("ID of the room"),
			mcp.Required(),
		),
	), s.handleUndo)

	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the most recently undone step in a room"),
		mcp.WithString("roomId",
			mcp.Description("ID of the room"),
			mcp.Required(),
		),
	), s.handleRedo)
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleListRooms(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return jsonResult(s.manager.LiveRooms())
	}
	ids, err := s.store.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return jsonResult(ids)
}

func (s *Server) handleGetPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req.GetString("roomId", ""))
	if err != nil {
		return nil, err
	}
	pages, ok := sess.Pages()
	if !ok {
		return nil, fmt.Errorf("room not loaded yet")
	}
	return jsonResult(pages)
}

func (s *Server) handleAddSpread(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req.GetString("roomId", ""))
	if err != nil {
		return nil, err
	}
	sess.AddSpread()
	return textResult("spread added"), nil
}

func (s *Server) handleRemoveSpread(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req.GetString("roomId", ""))
	if err != nil {
		return nil, err
	}
	if err := sess.RemoveSpread(int(getFloat(req.GetArguments(), "viewIndex", 0))); err != nil {
		return textResult("rejected: " + err.Error()), nil
	}
	return textResult("spread removed"), nil
}

func (s *Server) handleSetPageBackground(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req.GetString("roomId", ""))
	if err != nil {
		return nil, err
	}
	bg := domain.Background(req.GetString("background", ""))
	if !bg.Valid() {
		return nil, fmt.Errorf("unknown background %q", bg)
	}
	sess.SetPageBackground(req.GetString("pageId", ""), bg)
	return textResult("background set"), nil
}

func (s *Server) handleAddElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req.GetString("roomId", ""))
	if err != nil {
		return nil, err
	}
	elType := domain.ElementType(req.GetString("type", ""))
	w, h := domain.DefaultSize(elType)
	args := req.GetArguments()
	el := domain.Element{
		Type:    elType,
		Content: req.GetString("content", ""),
		X:       getFloat(args, "x", 100),
		Y:       getFloat(args, "y", 100),
		Width:   getFloat(args, "width", w),
		Height:  getFloat(args, "height", h),
	}
	sess.AddElement(req.GetString("pageId", ""), el)
	return textResult("element added"), nil
}

func (s *Server) handleUpdateElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req.GetString("roomId", ""))
	if err != nil {
		return nil, err
	}
	var patch domain.ElementPatch
	if err := parseJSON(req.GetString("patch", "{}"), &patch); err != nil {
		return nil, fmt.Errorf("parse patch: %w", err)
	}
	sess.UpdateElement(req.GetString("elementId", ""), patch)
	return textResult("element updated"), nil
}

func (s *Server) handleDeleteElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req.GetString("roomId", ""))
	if err != nil {
		return nil, err
	}
	sess.DeleteElement(req.GetString("elementId", ""))
	return textResult("element deleted"), nil
}

func (s *Server) handleUndo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req.GetString("roomId", ""))
	if err != nil {
		return nil, err
	}
	sess.Undo()
	return textResult("undone"), nil
}

func (s *Server) handleRedo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req.GetString("roomId", ""))
	if err != nil {
		return nil, err
	}
	sess.Redo()
	return textResult("redone"), nil
}

func getFloat(args map[string]any, key string, fallback float64) float64 {
	if v, ok := args[key].(float64); ok {
		return v
	}
	return fallback
}
