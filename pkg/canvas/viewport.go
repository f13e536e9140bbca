package canvas

import "math"

const (
	MinZoom  = 0.2
	MaxZoom  = 3
	zoomStep = 0.2
)

// Viewport holds the zoom applied between screen and document space. It is
// never stored in the document.
type Viewport struct {
	Zoom float64 `json:"zoom"`
}

func NewViewport() Viewport {
	return Viewport{Zoom: 1}
}

func (v *Viewport) ZoomIn() {
	v.SetZoom(v.Zoom + zoomStep)
}

func (v *Viewport) ZoomOut() {
	v.SetZoom(v.Zoom - zoomStep)
}

// SetZoom clamps z into [MinZoom, MaxZoom], rounding away float drift from
// repeated steps.
func (v *Viewport) SetZoom(z float64) {
	z = math.Round(z*100) / 100
	v.Zoom = math.Max(MinZoom, math.Min(MaxZoom, z))
}

// ToDocument maps a pointer position on the scaled stage to document space.
func (v Viewport) ToDocument(screen Point) Point {
	z := v.Zoom
	if z <= 0 {
		z = 1
	}
	return Point{X: screen.X / z, Y: screen.Y / z}
}

// ToScreen maps a document position onto the scaled stage.
func (v Viewport) ToScreen(p Point) Point {
	return Point{X: p.X * v.Zoom, Y: p.Y * v.Zoom}
}
