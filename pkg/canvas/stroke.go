package canvas

import (
	"fmt"
	"math"
	"strconv"
)

const (
	highlighterAlpha      = 0.3
	highlighterWidthScale = 3
)

// BeginStroke starts a stroke with a single point and makes it the active
// stroke of the page. Highlighter strokes store a translucent color and
// three times the requested width.
func (d *Document) BeginStroke(pageIndex int, p Point, tool Tool, color string, width float64) (int64, error) {
	pg, err := d.page(pageIndex)
	if err != nil {
		return 0, err
	}
	if !tool.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTool, tool)
	}

	if tool == ToolHighlighter {
		color = hexToRGBA(color, highlighterAlpha)
		width *= highlighterWidthScale
	}

	s := Stroke{
		ID:     d.allocID(),
		Points: []Point{p},
		Color:  color,
		Width:  width,
		Tool:   tool,
	}
	pg.Lines = append(pg.Lines, s)
	d.active[pg.ID] = s.ID
	return s.ID, nil
}

// ExtendStroke appends p to the active stroke of the page. It reports false
// when no stroke is in progress there.
func (d *Document) ExtendStroke(pageIndex int, p Point) bool {
	pg, err := d.page(pageIndex)
	if err != nil {
		return false
	}
	id, ok := d.active[pg.ID]
	if !ok {
		return false
	}
	i := indexOfStroke(pg.Lines, id)
	if i < 0 {
		// erased or deleted mid-gesture
		delete(d.active, pg.ID)
		return false
	}
	pg.Lines[i].Points = append(pg.Lines[i].Points, p)
	return true
}

// EndStroke finishes the gesture on the page (pointer up).
func (d *Document) EndStroke(pageIndex int) {
	if pg, err := d.page(pageIndex); err == nil {
		delete(d.active, pg.ID)
	}
}

// ActiveStroke returns the id of the stroke being drawn on the page, if any.
func (d *Document) ActiveStroke(pageIndex int) (int64, bool) {
	pg, err := d.page(pageIndex)
	if err != nil {
		return 0, false
	}
	id, ok := d.active[pg.ID]
	return id, ok
}

// Erase removes every stroke point within radius of p and drops strokes
// left without points. Remaining fragments are kept as they are. It returns
// the number of points removed.
func (d *Document) Erase(pageIndex int, p Point, radius float64) int {
	pg, err := d.page(pageIndex)
	if err != nil {
		return 0
	}

	removed := 0
	lines := pg.Lines[:0]
	for _, s := range pg.Lines {
		if !s.nearBounds(p, radius) {
			lines = append(lines, s)
			continue
		}
		kept := s.Points[:0]
		for _, pt := range s.Points {
			if math.Hypot(pt.X-p.X, pt.Y-p.Y) > radius {
				kept = append(kept, pt)
			}
		}
		removed += len(s.Points) - len(kept)
		if len(kept) == 0 {
			continue
		}
		s.Points = kept
		lines = append(lines, s)
	}
	// clear the tail so dropped strokes can be collected
	for i := len(lines); i < len(pg.Lines); i++ {
		pg.Lines[i] = Stroke{}
	}
	pg.Lines = lines
	return removed
}

// nearBounds reports whether the stroke's bounding box, grown by radius,
// contains p.
func (s Stroke) nearBounds(p Point, radius float64) bool {
	if len(s.Points) == 0 {
		return false
	}
	minX, minY := s.Points[0].X, s.Points[0].Y
	maxX, maxY := minX, minY
	for _, pt := range s.Points[1:] {
		minX = math.Min(minX, pt.X)
		maxX = math.Max(maxX, pt.X)
		minY = math.Min(minY, pt.Y)
		maxY = math.Max(maxY, pt.Y)
	}
	return p.X >= minX-radius && p.X <= maxX+radius &&
		p.Y >= minY-radius && p.Y <= maxY+radius
}

func indexOfStroke(lines []Stroke, id int64) int {
	for i := range lines {
		if lines[i].ID == id {
			return i
		}
	}
	return -1
}

// hexToRGBA turns "#rrggbb" into a css rgba() string. Anything else maps to
// black.
func hexToRGBA(hex string, alpha float64) string {
	var r, g, b uint64
	if len(hex) == 7 && hex[0] == '#' {
		r, _ = strconv.ParseUint(hex[1:3], 16, 8)
		g, _ = strconv.ParseUint(hex[3:5], 16, 8)
		b, _ = strconv.ParseUint(hex[5:7], 16, 8)
	}
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", r, g, b, strconv.FormatFloat(alpha, 'f', -1, 64))
}
