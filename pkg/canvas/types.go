package canvas

import "errors"

var (
	ErrPageOutOfRange = errors.New("canvas: page index out of range")
	ErrUnknownTool    = errors.New("canvas: unknown stroke tool")
)

// Point is a position in unscaled document space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Tool tags how a stroke was drawn.
type Tool string

const (
	ToolDraw        Tool = "draw"
	ToolHighlighter Tool = "highlighter"
)

func (t Tool) Valid() bool {
	return t == ToolDraw || t == ToolHighlighter
}

// Slide is a raster background stacked on a page.
type Slide struct {
	ID      int64   `json:"id"`
	Src     string  `json:"src"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	YOffset float64 `json:"yOffset"`
	X       float64 `json:"x,omitempty"`
}

// Bottom is the lowest y covered by the slide.
func (s Slide) Bottom() float64 {
	return s.YOffset + s.Height
}

// Stroke is one freehand ink path. Color and Width hold the effective
// rendering style, so highlighter strokes are stored already translucent
// and widened.
type Stroke struct {
	ID     int64   `json:"id"`
	Points []Point `json:"points"`
	Color  string  `json:"stroke"`
	Width  float64 `json:"strokeWidth"`
	Tool   Tool    `json:"tool"`
}

// TextBox is a floating text annotation. Editing is UI state and is never
// persisted.
type TextBox struct {
	ID       int64   `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Text     string  `json:"text"`
	FontSize float64 `json:"fontSize"`
	Fill     string  `json:"fill"`
	Editing  bool    `json:"-"`
}

type Page struct {
	ID        int64     `json:"id"`
	Slides    []Slide   `json:"slides"`
	Lines     []Stroke  `json:"lines"`
	TextBoxes []TextBox `json:"textBoxes"`
}

// Snapshot is the persisted form of a Document. NextID is a pointer so
// documents saved before the counter existed can be told apart from a
// counter of zero.
type Snapshot struct {
	Pages            []Page `json:"pages"`
	NextID           *int64 `json:"nextId,omitempty"`
	CurrentPageIndex int    `json:"currentPageIndex"`
}

func newPage(id int64) Page {
	return Page{
		ID:        id,
		Slides:    []Slide{},
		Lines:     []Stroke{},
		TextBoxes: []TextBox{},
	}
}

func (p Page) clone() Page {
	out := Page{
		ID:        p.ID,
		Slides:    make([]Slide, len(p.Slides)),
		Lines:     make([]Stroke, len(p.Lines)),
		TextBoxes: make([]TextBox, len(p.TextBoxes)),
	}
	copy(out.Slides, p.Slides)
	copy(out.TextBoxes, p.TextBoxes)
	for i, l := range p.Lines {
		l.Points = append([]Point(nil), l.Points...)
		out.Lines[i] = l
	}
	return out
}

// StageHeight is the drawing surface height needed to show every slide,
// never smaller than the viewport height.
func (p Page) StageHeight(viewportHeight float64) float64 {
	h := viewportHeight
	for _, s := range p.Slides {
		if b := s.Bottom() + SlideGap; b > h {
			h = b
		}
	}
	return h
}
