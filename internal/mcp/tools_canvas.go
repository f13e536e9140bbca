package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"

	"studyhub-be/internal/dto"
	"studyhub-be/pkg/canvas"
	"studyhub-be/pkg/export"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerCanvasTools() {
	s.mcp.AddTool(mcp.NewTool("canvas_summary",
		mcp.WithDescription("Describe a user's canvas: pages with their slides, strokes and text boxes"),
		mcp.WithString("userId", mcp.Description("Owner of the canvas"), mcp.Required()),
	), s.handleSummary)

	s.mcp.AddTool(mcp.NewTool("canvas_add_page",
		mcp.WithDescription("Append an empty page and make it the current page"),
		mcp.WithString("userId", mcp.Description("Owner of the canvas"), mcp.Required()),
	), s.handleAddPage)

	s.mcp.AddTool(mcp.NewTool("canvas_add_text",
		mcp.WithDescription("Place a text box on a page"),
		mcp.WithString("userId", mcp.Description("Owner of the canvas"), mcp.Required()),
		mcp.WithNumber("pageIndex", mcp.Description("Zero-based page index"), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("X position"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("Y position"), mcp.Required()),
		mcp.WithString("text", mcp.Description("Text content"), mcp.Required()),
		mcp.WithNumber("fontSize", mcp.Description("Font size (optional, default 18)")),
		mcp.WithString("color", mcp.Description("Text color hex (optional, default #000000)")),
	), s.handleAddText)

	s.mcp.AddTool(mcp.NewTool("canvas_draw_stroke",
		mcp.WithDescription("Draw a freehand stroke through the given points"),
		mcp.WithString("userId", mcp.Description("Owner of the canvas"), mcp.Required()),
		mcp.WithNumber("pageIndex", mcp.Description("Zero-based page index"), mcp.Required()),
		mcp.WithString("points", mcp.Description("JSON array of points [{x, y}, ...]"), mcp.Required()),
		mcp.WithString("tool", mcp.Description("draw or highlighter (optional, default draw)")),
		mcp.WithString("color", mcp.Description("Stroke color hex (optional, default #000000)")),
		mcp.WithNumber("width", mcp.Description("Stroke width (optional, default 4)")),
	), s.handleDrawStroke)

	s.mcp.AddTool(mcp.NewTool("canvas_erase",
		mcp.WithDescription("🛑 DESTRUCTIVE: Erase stroke points within radius of a point. Strokes left without points are removed"),
		mcp.WithString("userId", mcp.Description("Owner of the canvas"), mcp.Required()),
		mcp.WithNumber("pageIndex", mcp.Description("Zero-based page index"), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("X position"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("Y position"), mcp.Required()),
		mcp.WithNumber("radius", mcp.Description("Eraser radius (optional, default 4)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleErase)

	s.mcp.AddTool(mcp.NewTool("canvas_delete_item",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete a stroke or text box by id"),
		mcp.WithString("userId", mcp.Description("Owner of the canvas"), mcp.Required()),
		mcp.WithNumber("pageIndex", mcp.Description("Zero-based page index"), mcp.Required()),
		mcp.WithNumber("itemId", mcp.Description("Stroke or text box id"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteItem)

	s.mcp.AddTool(mcp.NewTool("canvas_render_page",
		mcp.WithDescription("Render a page to a PNG image"),
		mcp.WithString("userId", mcp.Description("Owner of the canvas"), mcp.Required()),
		mcp.WithNumber("pageIndex", mcp.Description("Zero-based page index"), mcp.Required()),
	), s.handleRenderPage)
}

type pageSummary struct {
	Index     int   `json:"index"`
	ID        int64 `json:"id"`
	Slides    int   `json:"slides"`
	Strokes   int   `json:"strokes"`
	TextBoxes []struct {
		ID   int64  `json:"id"`
		Text string `json:"text"`
	} `json:"textBoxes"`
}

func (s *Server) handleSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := req.GetString("userId", "")
	if userID == "" {
		return nil, fmt.Errorf("userId is required")
	}
	doc, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	pages := make([]pageSummary, 0, doc.PageCount())
	for i := 0; i < doc.PageCount(); i++ {
		p, _ := doc.Page(i)
		ps := pageSummary{Index: i, ID: p.ID, Slides: len(p.Slides), Strokes: len(p.Lines)}
		for _, tb := range p.TextBoxes {
			ps.TextBoxes = append(ps.TextBoxes, struct {
				ID   int64  `json:"id"`
				Text string `json:"text"`
			}{tb.ID, tb.Text})
		}
		pages = append(pages, ps)
	}
	return jsonResult(map[string]any{
		"currentPageIndex": doc.CurrentPageIndex(),
		"pages":            pages,
	})
}

func (s *Server) handleAddPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var id int64
	doc, err := s.mutate(ctx, req.GetString("userId", ""), func(doc *canvas.Document) error {
		id = doc.CreatePage()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Page %d added at index %d", id, doc.CurrentPageIndex())), nil
}

func (s *Server) handleAddText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageIndex := req.GetInt("pageIndex", 0)
	pt := canvas.Point{X: req.GetFloat("x", 0), Y: req.GetFloat("y", 0)}
	text := req.GetString("text", "")
	fontSize := req.GetFloat("fontSize", dto.DefaultFontSize)
	color := req.GetString("color", dto.DefaultStrokeColor)

	var id int64
	_, err := s.mutate(ctx, req.GetString("userId", ""), func(doc *canvas.Document) error {
		var ok bool
		id, ok = doc.AddTextBox(pageIndex, pt, text, fontSize, color)
		if !ok {
			return fmt.Errorf("text box not added: page %d missing or text empty", pageIndex)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Text box %d added", id)), nil
}

func (s *Server) handleDrawStroke(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageIndex := req.GetInt("pageIndex", 0)
	var points []canvas.Point
	if err := parseJSON(req.GetString("points", ""), &points); err != nil {
		return nil, fmt.Errorf("invalid points: %w", err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("points must not be empty")
	}
	tool := canvas.Tool(req.GetString("tool", string(canvas.ToolDraw)))
	color := req.GetString("color", dto.DefaultStrokeColor)
	width := req.GetFloat("width", dto.DefaultStrokeWidth)

	var id int64
	_, err := s.mutate(ctx, req.GetString("userId", ""), func(doc *canvas.Document) error {
		var err error
		id, err = doc.BeginStroke(pageIndex, points[0], tool, color, width)
		if err != nil {
			return err
		}
		for _, p := range points[1:] {
			doc.ExtendStroke(pageIndex, p)
		}
		doc.EndStroke(pageIndex)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Stroke %d drawn with %d points", id, len(points))), nil
}

func (s *Server) handleErase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageIndex := req.GetInt("pageIndex", 0)
	pt := canvas.Point{X: req.GetFloat("x", 0), Y: req.GetFloat("y", 0)}
	radius := req.GetFloat("radius", dto.DefaultStrokeWidth)

	var removed int
	_, err := s.mutate(ctx, req.GetString("userId", ""), func(doc *canvas.Document) error {
		removed = doc.Erase(pageIndex, pt, radius)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("%d points erased", removed)), nil
}

func (s *Server) handleDeleteItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageIndex := req.GetInt("pageIndex", 0)
	itemID := int64(req.GetInt("itemId", 0))

	_, err := s.mutate(ctx, req.GetString("userId", ""), func(doc *canvas.Document) error {
		if !doc.DeleteSelected(pageIndex, itemID) {
			return fmt.Errorf("item %d not found on page %d", itemID, pageIndex)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Item %d deleted", itemID)), nil
}

func (s *Server) handleRenderPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := req.GetString("userId", "")
	if userID == "" {
		return nil, fmt.Errorf("userId is required")
	}
	pageIndex := req.GetInt("pageIndex", 0)

	doc, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	p, ok := doc.Page(pageIndex)
	if !ok {
		return nil, fmt.Errorf("page %d not found", pageIndex)
	}

	img, err := export.RenderPage(p, s.exportOpts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode page: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewImageContent(base64.StdEncoding.EncodeToString(buf.Bytes()), "image/png"),
		},
	}, nil
}
