package mcpserver

import (
	"context"
	"path/filepath"
	"testing"

	"studyhub-be/internal/pkg/logger"
	"studyhub-be/internal/repository/implementation"
	"studyhub-be/internal/service"
	"studyhub-be/pkg/canvas"
	"studyhub-be/pkg/export"
	"studyhub-be/pkg/raster"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, service.INoteCanvasService) {
	t.Helper()
	repo, err := implementation.OpenNoteCanvasSQLite(filepath.Join(t.TempDir(), "canvas.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	svc := service.NewNoteCanvasService(repo, nil, nil, logger.NewNop())
	return New(svc, export.Options{ViewportHeight: 200}), svc
}

func call(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestAddTextAndStroke_Persist(t *testing.T) {
	s, svc := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleAddText(ctx, call(map[string]any{
		"userId": "u1", "pageIndex": 0, "x": 10, "y": 20, "text": "  hello  ",
	}))
	require.NoError(t, err)

	_, err = s.handleDrawStroke(ctx, call(map[string]any{
		"userId": "u1", "pageIndex": 0, "points": `[{"x":0,"y":0},{"x":50,"y":0}]`,
	}))
	require.NoError(t, err)

	doc, _, err := svc.LoadDocument(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, doc)

	p, ok := doc.Page(0)
	require.True(t, ok)
	require.Len(t, p.TextBoxes, 1)
	assert.Equal(t, "hello", p.TextBoxes[0].Text)
	assert.Equal(t, "#000000", p.TextBoxes[0].Fill)
	require.Len(t, p.Lines, 1)
	assert.Len(t, p.Lines[0].Points, 2)
	assert.Equal(t, float64(4), p.Lines[0].Width)
}

func TestEraseAndDelete(t *testing.T) {
	s, svc := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleDrawStroke(ctx, call(map[string]any{
		"userId": "u1", "pageIndex": 0, "points": `[{"x":0,"y":0},{"x":2,"y":0}]`,
	}))
	require.NoError(t, err)

	res, err := s.handleErase(ctx, call(map[string]any{"userId": "u1", "pageIndex": 0, "x": 1, "y": 0}))
	require.NoError(t, err)
	assert.Equal(t, "2 points erased", res.Content[0].(mcp.TextContent).Text)

	_, err = s.handleDeleteItem(ctx, call(map[string]any{"userId": "u1", "pageIndex": 0, "itemId": 999}))
	assert.Error(t, err)

	doc, _, err := svc.LoadDocument(ctx, "u1")
	require.NoError(t, err)
	p, _ := doc.Page(0)
	assert.Empty(t, p.Lines)
}

func TestAddPage_And_Summary(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleAddPage(ctx, call(map[string]any{"userId": "u1"}))
	require.NoError(t, err)

	res, err := s.handleSummary(ctx, call(map[string]any{"userId": "u1"}))
	require.NoError(t, err)
	text := res.Content[0].(mcp.TextContent).Text
	assert.Contains(t, text, `"currentPageIndex": 1`)
	assert.Contains(t, text, `"index": 1`)
}

func TestMutate_RequiresUser(t *testing.T) {
	s, _ := newTestServer(t)
	_, err := s.handleAddPage(context.Background(), call(map[string]any{}))
	assert.ErrorIs(t, err, service.ErrUserIDRequired)
}

func TestDrawStroke_RejectsEmptyPoints(t *testing.T) {
	s, _ := newTestServer(t)
	_, err := s.handleDrawStroke(context.Background(), call(map[string]any{
		"userId": "u1", "pageIndex": 0, "points": `[]`,
	}))
	assert.Error(t, err)
}

func TestRenderPage(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleRenderPage(ctx, call(map[string]any{"userId": "u1", "pageIndex": 0}))
	require.NoError(t, err)
	img, ok := res.Content[0].(mcp.ImageContent)
	require.True(t, ok)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.NotEmpty(t, img.Data)

	_, err = s.handleRenderPage(ctx, call(map[string]any{"userId": "u1", "pageIndex": 3}))
	assert.Error(t, err)
}

func TestRenderPage_RefusesOversizedStage(t *testing.T) {
	s, svc := newTestServer(t)
	ctx := context.Background()

	doc := canvas.New()
	doc.AddSlidePage([]canvas.SlideSpec{{Src: "s", Width: 1000, Height: 500}})
	snap := doc.Serialize()
	snap.Pages[1].Slides[0].X = 1e12
	_, err := svc.SaveSnapshot(ctx, "u1", snap)
	require.NoError(t, err)

	_, err = s.handleRenderPage(ctx, call(map[string]any{"userId": "u1", "pageIndex": 1}))
	assert.ErrorIs(t, err, raster.ErrTooLarge)
}
