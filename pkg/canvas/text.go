package canvas

import "strings"

// AddTextBox places a text annotation on the page. Blank text is ignored.
func (d *Document) AddTextBox(pageIndex int, p Point, text string, fontSize float64, color string) (int64, bool) {
	pg, err := d.page(pageIndex)
	if err != nil {
		return 0, false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}

	tb := TextBox{
		ID:       d.allocID(),
		X:        p.X,
		Y:        p.Y,
		Text:     text,
		FontSize: fontSize,
		Fill:     color,
	}
	pg.TextBoxes = append(pg.TextBoxes, tb)
	return tb.ID, true
}

// UpdateTextBox replaces the content of an existing text box.
func (d *Document) UpdateTextBox(pageIndex int, id int64, text string) bool {
	tb := d.textBox(pageIndex, id)
	if tb == nil {
		return false
	}
	tb.Text = text
	return true
}

// MoveTextBox repositions a text box (drag).
func (d *Document) MoveTextBox(pageIndex int, id int64, p Point) bool {
	tb := d.textBox(pageIndex, id)
	if tb == nil {
		return false
	}
	tb.X, tb.Y = p.X, p.Y
	return true
}

// BeginTextEdit flags a text box as being edited in place.
func (d *Document) BeginTextEdit(pageIndex int, id int64) bool {
	tb := d.textBox(pageIndex, id)
	if tb == nil {
		return false
	}
	tb.Editing = true
	return true
}

// CommitTextEdit ends an in-place edit, storing text.
func (d *Document) CommitTextEdit(pageIndex int, id int64, text string) bool {
	tb := d.textBox(pageIndex, id)
	if tb == nil {
		return false
	}
	tb.Text = text
	tb.Editing = false
	return true
}

// DeleteSelected removes the stroke or text box with the given id.
func (d *Document) DeleteSelected(pageIndex int, id int64) bool {
	pg, err := d.page(pageIndex)
	if err != nil {
		return false
	}
	if i := indexOfStroke(pg.Lines, id); i >= 0 {
		pg.Lines = append(pg.Lines[:i], pg.Lines[i+1:]...)
		if d.active[pg.ID] == id {
			delete(d.active, pg.ID)
		}
		return true
	}
	for i := range pg.TextBoxes {
		if pg.TextBoxes[i].ID == id {
			pg.TextBoxes = append(pg.TextBoxes[:i], pg.TextBoxes[i+1:]...)
			return true
		}
	}
	return false
}

func (d *Document) textBox(pageIndex int, id int64) *TextBox {
	pg, err := d.page(pageIndex)
	if err != nil {
		return nil
	}
	for i := range pg.TextBoxes {
		if pg.TextBoxes[i].ID == id {
			return &pg.TextBoxes[i]
		}
	}
	return nil
}
