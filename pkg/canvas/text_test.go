package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddTextBox(t *testing.T) {
	d := New()

	_, ok := d.AddTextBox(0, Point{5, 5}, "  ", 18, "#000000")
	assert.False(t, ok)
	_, ok = d.AddTextBox(0, Point{5, 5}, "\n\t", 18, "#000000")
	assert.False(t, ok)
	pg, _ := d.Page(0)
	assert.Empty(t, pg.TextBoxes)
	assert.Equal(t, int64(1), d.NextID())

	id, ok := d.AddTextBox(0, Point{5, 6}, "  Midterm  ", 18, "#ff0000")
	require.True(t, ok)
	pg, _ = d.Page(0)
	require.Len(t, pg.TextBoxes, 1)
	assert.Equal(t, TextBox{ID: id, X: 5, Y: 6, Text: "Midterm", FontSize: 18, Fill: "#ff0000"}, pg.TextBoxes[0])
}

func TestUpdateTextBox(t *testing.T) {
	d := New()
	id, _ := d.AddTextBox(0, Point{}, "old", 12, "#000")

	assert.True(t, d.UpdateTextBox(0, id, "new"))
	assert.False(t, d.UpdateTextBox(0, id+100, "ghost"))
	assert.False(t, d.UpdateTextBox(4, id, "bad page"))

	pg, _ := d.Page(0)
	assert.Equal(t, "new", pg.TextBoxes[0].Text)
}

func TestTextEditLifecycle(t *testing.T) {
	d := New()
	id, _ := d.AddTextBox(0, Point{}, "draft", 12, "#000")

	require.True(t, d.BeginTextEdit(0, id))
	pg, _ := d.Page(0)
	assert.True(t, pg.TextBoxes[0].Editing)

	require.True(t, d.CommitTextEdit(0, id, "final"))
	pg, _ = d.Page(0)
	assert.False(t, pg.TextBoxes[0].Editing)
	assert.Equal(t, "final", pg.TextBoxes[0].Text)
}

func TestMoveTextBox(t *testing.T) {
	d := New()
	id, _ := d.AddTextBox(0, Point{1, 1}, "drag me", 12, "#000")

	assert.True(t, d.MoveTextBox(0, id, Point{40, 60}))
	pg, _ := d.Page(0)
	assert.Equal(t, 40.0, pg.TextBoxes[0].X)
	assert.Equal(t, 60.0, pg.TextBoxes[0].Y)
}

func TestDeleteSelected(t *testing.T) {
	d := New()
	strokeID, _ := d.BeginStroke(0, Point{}, ToolDraw, "#000", 1)
	textID, _ := d.AddTextBox(0, Point{}, "note", 12, "#000")

	assert.True(t, d.DeleteSelected(0, textID))
	assert.True(t, d.DeleteSelected(0, strokeID))
	assert.False(t, d.DeleteSelected(0, strokeID))

	pg, _ := d.Page(0)
	assert.Empty(t, pg.Lines)
	assert.Empty(t, pg.TextBoxes)

	_, active := d.ActiveStroke(0)
	assert.False(t, active)
}
