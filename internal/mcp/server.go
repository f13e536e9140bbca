package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"studyhub-be/internal/service"
	"studyhub-be/pkg/canvas"
	"studyhub-be/pkg/export"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server exposes stored canvases to AI agents over MCP. Every tool works on
// the persisted snapshot of one user, so edits show up the next time the
// user opens the canvas.
type Server struct {
	mcp        *server.MCPServer
	noteCanvas service.INoteCanvasService
	exportOpts export.Options

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(noteCanvas service.INoteCanvasService, exportOpts export.Options) *Server {
	s := &Server{
		noteCanvas: noteCanvas,
		exportOpts: exportOpts,
		locks:      make(map[string]*sync.Mutex),
	}

	s.mcp = server.NewMCPServer(
		"studyhub-canvas",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerCanvasTools()
	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Println("[MCP] Starting stdio server...")
	return server.ServeStdio(s.mcp)
}

// userLock serializes read-modify-write cycles of one user's canvas
// within this process.
func (s *Server) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

func (s *Server) load(ctx context.Context, userID string) (*canvas.Document, error) {
	doc, _, err := s.noteCanvas.LoadDocument(ctx, userID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		doc = canvas.New()
	}
	return doc, nil
}

// mutate loads the user's canvas, applies fn and stores the result.
func (s *Server) mutate(ctx context.Context, userID string, fn func(doc *canvas.Document) error) (*canvas.Document, error) {
	if userID == "" {
		return nil, service.ErrUserIDRequired
	}
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	doc, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := fn(doc); err != nil {
		return nil, err
	}
	if _, err := s.noteCanvas.SaveSnapshot(ctx, userID, doc.Serialize()); err != nil {
		return nil, err
	}
	return doc, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func boolPtr(v bool) *bool { return &v }
