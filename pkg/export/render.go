// Package export flattens a canvas page into a bitmap and wraps it in a
// single page PDF.
package export

import (
	"fmt"
	"image"
	"image/draw"
	"math"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"studyhub-be/pkg/canvas"
	"studyhub-be/pkg/raster"
)

const (
	DefaultStageWidth     = 1000
	DefaultViewportHeight = 800
)

type Options struct {
	StageWidth     float64
	ViewportHeight float64
	// MaxPixels caps the flattened stage. Zero means raster.DefaultMaxPixels.
	MaxPixels int
}

func (o Options) withDefaults() Options {
	if o.StageWidth <= 0 {
		o.StageWidth = DefaultStageWidth
	}
	if o.ViewportHeight <= 0 {
		o.ViewportHeight = DefaultViewportHeight
	}
	return o
}

// RenderPage draws a page the way the editor stage shows it at zoom 1:
// white background, slides, then strokes in order, then text boxes on top.
// Slides whose source cannot be decoded are left blank. A stage larger than
// opts.MaxPixels is refused with raster.ErrTooLarge.
func RenderPage(p canvas.Page, opts Options) (*image.RGBA, error) {
	opts = opts.withDefaults()

	width := opts.StageWidth
	for _, s := range p.Slides {
		width = math.Max(width, s.X+s.Width)
	}
	height := p.StageHeight(opts.ViewportHeight)
	width, height = math.Ceil(width), math.Ceil(height)
	if err := raster.CheckSize(width, height, opts.MaxPixels); err != nil {
		return nil, fmt.Errorf("render stage: %w", err)
	}

	w, h := int(width), int(height)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	for _, s := range p.Slides {
		drawSlide(img, s)
	}

	z := vector.NewRasterizer(w, h)
	for _, st := range p.Lines {
		drawStroke(img, z, st)
	}

	for _, tb := range p.TextBoxes {
		drawText(img, tb)
	}
	return img, nil
}

func drawSlide(dst *image.RGBA, s canvas.Slide) {
	src, err := raster.DecodeDataURL(s.Src)
	if err != nil {
		return
	}
	r := image.Rect(
		int(math.Round(s.X)), int(math.Round(s.YOffset)),
		int(math.Round(s.X+s.Width)), int(math.Round(s.YOffset+s.Height)),
	)
	xdraw.CatmullRom.Scale(dst, r, src, src.Bounds(), xdraw.Over, nil)
}

func drawStroke(dst *image.RGBA, z *vector.Rasterizer, st canvas.Stroke) {
	if len(st.Points) == 0 {
		return
	}
	b := dst.Bounds()
	z.Reset(b.Dx(), b.Dy())

	pts := make([][2]float64, len(st.Points))
	for i, p := range st.Points {
		pts[i] = [2]float64{p.X, p.Y}
	}
	// Polyline adds overlapping quads and dots, so translucent ink would
	// darken at every joint. Rasterize opaque coverage into a mask first.
	raster.Polyline(z, pts, st.Width)

	mask := image.NewAlpha(b)
	z.Draw(mask, b, image.Opaque, image.Point{})

	c := raster.ParseColor(st.Color)
	draw.DrawMask(dst, b, image.NewUniform(c), image.Point{}, mask, image.Point{}, draw.Over)
}

// drawText renders each line of the box with the 7x13 face scaled to the
// font size, one line height apart.
func drawText(dst *image.RGBA, tb canvas.TextBox) {
	if strings.TrimSpace(tb.Text) == "" {
		return
	}
	face := basicfont.Face7x13
	lineH := face.Metrics().Height.Ceil()
	scale := tb.FontSize / float64(lineH)
	if scale <= 0 {
		scale = 1
	}

	for i, line := range strings.Split(strings.ReplaceAll(tb.Text, "\r\n", "\n"), "\n") {
		if line == "" {
			continue
		}
		d := &font.Drawer{Face: face}
		adv := d.MeasureString(line).Ceil()

		small := image.NewRGBA(image.Rect(0, 0, adv, lineH))
		d.Dst = small
		d.Src = image.NewUniform(raster.ParseColor(tb.Fill))
		d.Dot = fixed.P(0, face.Metrics().Ascent.Ceil())
		d.DrawString(line)

		top := tb.Y + float64(i*lineH)*scale
		r := image.Rect(
			int(math.Round(tb.X)), int(math.Round(top)),
			int(math.Round(tb.X+float64(adv)*scale)), int(math.Round(top+float64(lineH)*scale)),
		)
		xdraw.ApproxBiLinear.Scale(dst, r, small, small.Bounds(), xdraw.Over, nil)
	}
}
