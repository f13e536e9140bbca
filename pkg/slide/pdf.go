package slide

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/pdf"
	pdfcolor "seehuhn.de/go/pdf/graphics/color"
	"seehuhn.de/go/pdf/pagetree"
	"seehuhn.de/go/pdf/reader"
	"seehuhn.de/go/postscript/cid"

	"studyhub-be/pkg/raster"
)

// Letter size, used when a page carries no usable MediaBox.
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// Glyph outlines are loaded at this size and scaled from there.
const glyphPPEM = 1000

var (
	ErrEmptyPDF      = errors.New("slide: pdf has no pages")
	ErrUnreadablePDF = errors.New("slide: pdf content cannot be read")
)

// Rasterizer turns a PDF into one bitmap per page. Pages are handed to emit
// in order, already scaled so that none is wider than maxWidth, and a page
// that would exceed maxPixels fails the whole file.
type Rasterizer interface {
	Rasterize(ctx context.Context, data []byte, maxWidth, maxPixels int, emit func(page image.Image) error) error
}

// PDFRasterizer paints vector paths, embedded images and text. Text is drawn
// with the Go font outlines at the positions and advances the PDF gives; a
// glyph with no known text becomes a grey box.
type PDFRasterizer struct {
	face *sfnt.Font
}

func NewPDFRasterizer() *PDFRasterizer {
	// goregular is compiled in, so a parse error only leaves the boxes.
	face, _ := sfnt.Parse(goregular.TTF)
	return &PDFRasterizer{face: face}
}

func (p *PDFRasterizer) Rasterize(ctx context.Context, data []byte, maxWidth, maxPixels int, emit func(page image.Image) error) (err error) {
	// the content reader panics on some malformed fonts
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrUnreadablePDF, r)
		}
	}()

	doc, err := pdf.NewReader(bytes.NewReader(data), nil)
	if err != nil {
		return fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	numPages, err := pagetree.NumPages(doc)
	if err != nil {
		return fmt.Errorf("count pages: %w", err)
	}
	if numPages == 0 {
		return ErrEmptyPDF
	}

	rd := reader.New(doc, nil)
	for i := 0; i < numPages; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, pageDict, err := pagetree.GetPage(doc, i)
		if err != nil {
			return fmt.Errorf("read page %d: %w", i+1, err)
		}

		box := mediaBox(doc, pageDict)
		scale := 1.0
		if w := box.URx - box.LLx; w > float64(maxWidth) {
			scale = float64(maxWidth) / w
		}
		w := math.Max(1, math.Round((box.URx-box.LLx)*scale))
		h := math.Max(1, math.Round((box.URy-box.LLy)*scale))
		if err := raster.CheckSize(w, h, maxPixels); err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}

		pr := newPageRenderer(rd, box, scale, int(w), int(h), p.face, maxPixels)
		rd.Reset()
		// A page that painted something before failing is kept as it is.
		if err := rd.ParsePage(pageDict, matrix.Identity); err != nil && !pr.painted {
			return fmt.Errorf("%w: page %d: %v", ErrUnreadablePDF, i+1, err)
		}
		if err := emit(pr.img); err != nil {
			return err
		}
	}
	return nil
}

func mediaBox(r pdf.Getter, pageDict pdf.Dict) *pdf.Rectangle {
	box, err := pdf.GetRectangle(r, pageDict["MediaBox"])
	if err != nil || box == nil || box.URx <= box.LLx || box.URy <= box.LLy {
		return &pdf.Rectangle{URx: defaultPageWidth, URy: defaultPageHeight}
	}
	return box
}

type pathOp struct {
	kind int // 0 move, 1 line, 2 cube, 3 close
	args [6]float64
}

type pageRenderer struct {
	rd        *reader.Reader
	box       *pdf.Rectangle
	scale     float64
	maxPixels int
	img       *image.RGBA
	z         *vector.Rasterizer
	path      []pathOp
	painted   bool

	face *sfnt.Font
	buf  sfnt.Buffer
}

func newPageRenderer(rd *reader.Reader, box *pdf.Rectangle, scale float64, w, h int, face *sfnt.Font, maxPixels int) *pageRenderer {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	pr := &pageRenderer{
		rd:        rd,
		box:       box,
		scale:     scale,
		maxPixels: maxPixels,
		img:       img,
		z:         vector.NewRasterizer(w, h),
		face:      face,
	}

	rd.PathMoveTo = func(x, y float64) error {
		pr.path = append(pr.path, pathOp{kind: 0, args: [6]float64{x, y}})
		return nil
	}
	rd.PathLineTo = func(x, y float64) error {
		pr.path = append(pr.path, pathOp{kind: 1, args: [6]float64{x, y}})
		return nil
	}
	rd.PathCurveTo = func(x1, y1, x2, y2, x3, y3 float64) error {
		pr.path = append(pr.path, pathOp{kind: 2, args: [6]float64{x1, y1, x2, y2, x3, y3}})
		return nil
	}
	rd.PathRectangle = func(x, y, w, h float64) error {
		pr.path = append(pr.path,
			pathOp{kind: 0, args: [6]float64{x, y}},
			pathOp{kind: 1, args: [6]float64{x + w, y}},
			pathOp{kind: 1, args: [6]float64{x + w, y + h}},
			pathOp{kind: 1, args: [6]float64{x, y + h}},
			pathOp{kind: 3},
		)
		return nil
	}
	rd.PathClose = func() error {
		pr.path = append(pr.path, pathOp{kind: 3})
		return nil
	}
	rd.PathPaint = pr.paint
	rd.DrawXObject = pr.drawXObject
	rd.Character = pr.character
	return pr
}

// device maps user space through the CTM into pixel coordinates with the
// origin at the top left.
func (pr *pageRenderer) device(x, y float64) (float64, float64) {
	m := pr.rd.CTM
	px, py := m[0]*x+m[2]*y+m[4], m[1]*x+m[3]*y+m[5]
	return pr.pagePoint(px, py)
}

func (pr *pageRenderer) pagePoint(px, py float64) (float64, float64) {
	return (px - pr.box.LLx) * pr.scale, (pr.box.URy - py) * pr.scale
}

func (pr *pageRenderer) paint(op string) error {
	switch op {
	case "f", "F", "f*":
		pr.fill()
	case "S":
		pr.stroke()
	case "s":
		pr.path = append(pr.path, pathOp{kind: 3})
		pr.stroke()
	case "B", "B*":
		pr.fill()
		pr.stroke()
	case "b", "b*":
		pr.path = append(pr.path, pathOp{kind: 3})
		pr.fill()
		pr.stroke()
	}
	pr.path = pr.path[:0]
	return nil
}

func (pr *pageRenderer) fill() {
	b := pr.img.Bounds()
	pr.z.Reset(b.Dx(), b.Dy())
	open := false
	for _, op := range pr.path {
		switch op.kind {
		case 0:
			if open {
				pr.z.ClosePath()
			}
			x, y := pr.device(op.args[0], op.args[1])
			pr.z.MoveTo(float32(x), float32(y))
			open = true
		case 1:
			x, y := pr.device(op.args[0], op.args[1])
			pr.z.LineTo(float32(x), float32(y))
		case 2:
			x1, y1 := pr.device(op.args[0], op.args[1])
			x2, y2 := pr.device(op.args[2], op.args[3])
			x3, y3 := pr.device(op.args[4], op.args[5])
			pr.z.CubeTo(float32(x1), float32(y1), float32(x2), float32(y2), float32(x3), float32(y3))
		case 3:
			pr.z.ClosePath()
			open = false
		}
	}
	if open {
		pr.z.ClosePath()
	}
	pr.z.Draw(pr.img, b, image.NewUniform(toColor(pr.rd.FillColor)), image.Point{})
	pr.painted = true
}

// stroke flattens curves to their end points and draws every subpath as a
// thick polyline.
func (pr *pageRenderer) stroke() {
	b := pr.img.Bounds()
	pr.z.Reset(b.Dx(), b.Dy())

	m := pr.rd.CTM
	width := pr.rd.LineWidth
	if width <= 0 {
		width = 1
	}
	width *= (math.Abs(m[0]) + math.Abs(m[3])) / 2 * pr.scale

	var line [][2]float64
	flush := func() {
		if len(line) > 1 {
			raster.Polyline(pr.z, line, width)
		}
		line = line[:0]
	}
	for _, op := range pr.path {
		switch op.kind {
		case 0:
			flush()
			x, y := pr.device(op.args[0], op.args[1])
			line = append(line, [2]float64{x, y})
		case 1:
			x, y := pr.device(op.args[0], op.args[1])
			line = append(line, [2]float64{x, y})
		case 2:
			x, y := pr.device(op.args[4], op.args[5])
			line = append(line, [2]float64{x, y})
		case 3:
			if len(line) > 0 {
				line = append(line, line[0])
			}
			flush()
		}
	}
	flush()
	pr.z.Draw(pr.img, b, image.NewUniform(toColor(pr.rd.StrokeColor)), image.Point{})
	pr.painted = true
}

// drawXObject paints image XObjects into the unit square mapped by the CTM.
// Form XObjects and images in unsupported encodings are skipped.
func (pr *pageRenderer) drawXObject(name string) error {
	if pr.rd.Resources == nil {
		return nil
	}
	ref, ok := pr.rd.Resources.XObject[pdf.Name(name)]
	if !ok {
		return nil
	}
	stm, err := pdf.GetStream(pr.rd.R, ref)
	if err != nil || stm == nil {
		return nil
	}
	if subtype, _ := pdf.GetName(pr.rd.R, stm.Dict["Subtype"]); subtype != "Image" {
		return nil
	}
	src, err := decodeImageXObject(pr.rd.R, stm, pr.maxPixels)
	if err != nil {
		return nil
	}
	pr.drawImage(src)
	return nil
}

// character draws the glyph for text with the Go font, stretched to the
// advance the PDF reserves for it. Invisible text, used by OCR layers, is
// skipped.
func (pr *pageRenderer) character(_ cid.CID, text string, width float64) error {
	if strings.TrimSpace(text) == "" || pr.rd.TextRenderingMode == 3 {
		return nil
	}
	if !pr.drawGlyphs(text, width) {
		pr.placeholder(width)
	}
	pr.painted = true
	return nil
}

func (pr *pageRenderer) drawGlyphs(text string, width float64) bool {
	if pr.face == nil {
		return false
	}
	ppem := fixed.I(glyphPPEM)

	var (
		glyphs  []sfnt.GlyphIndex
		advance float64
	)
	for _, r := range text {
		gi, err := pr.face.GlyphIndex(&pr.buf, r)
		if err != nil || gi == 0 {
			return false
		}
		adv, err := pr.face.GlyphAdvance(&pr.buf, gi, ppem, font.HintingNone)
		if err != nil {
			return false
		}
		glyphs = append(glyphs, gi)
		advance += float64(adv) / 64 / glyphPPEM
	}

	fs := pr.rd.TextFontSize
	hs := pr.rd.TextHorizontalScaling
	if hs == 0 {
		hs = 1
	}
	fit := 1.0
	if width > 0 && advance > 0 {
		fit = math.Max(0.5, math.Min(2, width/(advance*fs*hs)))
	}

	m := pr.rd.TextMatrix.Mul(pr.rd.CTM)
	// em coordinates, y down, to page pixels
	toPixel := func(pen float64, p fixed.Point26_6) (float32, float32) {
		tx := (pen + float64(p.X)/64/glyphPPEM) * fs * hs * fit
		ty := -float64(p.Y)/64/glyphPPEM*fs + pr.rd.TextRise
		x, y := pr.pagePoint(m[0]*tx+m[2]*ty+m[4], m[1]*tx+m[3]*ty+m[5])
		return float32(x), float32(y)
	}

	b := pr.img.Bounds()
	pr.z.Reset(b.Dx(), b.Dy())
	pen := 0.0
	for _, gi := range glyphs {
		segs, err := pr.face.LoadGlyph(&pr.buf, gi, ppem, nil)
		if err != nil {
			return false
		}
		open := false
		for _, seg := range segs {
			switch seg.Op {
			case sfnt.SegmentOpMoveTo:
				if open {
					pr.z.ClosePath()
				}
				pr.z.MoveTo(toPixel(pen, seg.Args[0]))
				open = true
			case sfnt.SegmentOpLineTo:
				pr.z.LineTo(toPixel(pen, seg.Args[0]))
			case sfnt.SegmentOpQuadTo:
				x1, y1 := toPixel(pen, seg.Args[0])
				x2, y2 := toPixel(pen, seg.Args[1])
				pr.z.QuadTo(x1, y1, x2, y2)
			case sfnt.SegmentOpCubeTo:
				x1, y1 := toPixel(pen, seg.Args[0])
				x2, y2 := toPixel(pen, seg.Args[1])
				x3, y3 := toPixel(pen, seg.Args[2])
				pr.z.CubeTo(x1, y1, x2, y2, x3, y3)
			}
		}
		if open {
			pr.z.ClosePath()
		}
		adv, _ := pr.face.GlyphAdvance(&pr.buf, gi, ppem, font.HintingNone)
		pen += float64(adv) / 64 / glyphPPEM
	}
	pr.z.Draw(pr.img, b, image.NewUniform(toColor(pr.rd.FillColor)), image.Point{})
	return true
}

// placeholder draws a grey box where a glyph would sit.
func (pr *pageRenderer) placeholder(width float64) {
	x, y := pr.rd.GetTextPositionDevice()
	tm := pr.rd.TextMatrix.Mul(pr.rd.CTM)
	w := math.Hypot(tm[0]*width, tm[1]*width)
	h := math.Hypot(tm[2], tm[3]) * pr.rd.TextFontSize * 0.7

	x0, y0 := pr.pagePoint(x, y+h)
	x1, y1 := pr.pagePoint(x+w*0.9, y)

	b := pr.img.Bounds()
	pr.z.Reset(b.Dx(), b.Dy())
	pr.z.MoveTo(float32(x0), float32(y0))
	pr.z.LineTo(float32(x1), float32(y0))
	pr.z.LineTo(float32(x1), float32(y1))
	pr.z.LineTo(float32(x0), float32(y1))
	pr.z.ClosePath()
	pr.z.Draw(pr.img, b, image.NewUniform(color.Gray{Y: 0x99}), image.Point{})
}

func toColor(c pdfcolor.Color) color.Color {
	if c == nil {
		return color.Black
	}
	vals, _, op := pdfcolor.Operator(c)
	switch {
	case op == "G" && len(vals) >= 1:
		return color.Gray{Y: unit(vals[0])}
	case op == "RG" && len(vals) >= 3:
		return color.RGBA{R: unit(vals[0]), G: unit(vals[1]), B: unit(vals[2]), A: 0xff}
	case op == "K" && len(vals) >= 4:
		return color.CMYK{C: unit(vals[0]), M: unit(vals[1]), Y: unit(vals[2]), K: unit(vals[3])}
	}
	return color.Black
}

func unit(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

// readAllLimited reads at most limit bytes and fails when r holds more.
func readAllLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, raster.ErrTooLarge
	}
	return data, nil
}
