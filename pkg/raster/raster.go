// Package raster holds the bitmap helpers shared by slide import and page
// export: color parsing, data URL coding, scaling and polyline filling.
package raster

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"strconv"
	"strings"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"
	_ "golang.org/x/image/webp"
)

// DefaultMaxPixels bounds the bitmaps built from uploads and stored pages.
const DefaultMaxPixels = 40_000_000

var (
	ErrNotDataURL = errors.New("raster: not a base64 data url")
	ErrTooLarge   = errors.New("raster: image too large")
)

// CheckSize fails with ErrTooLarge when a w by h bitmap would hold more than
// maxPixels pixels or has no finite size. maxPixels <= 0 means
// DefaultMaxPixels.
func CheckSize(w, h float64, maxPixels int) error {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if math.IsNaN(w) || math.IsNaN(h) || w*h > float64(maxPixels) || math.IsInf(w, 0) || math.IsInf(h, 0) {
		return fmt.Errorf("%w: %.0fx%.0f is over %d pixels", ErrTooLarge, w, h, maxPixels)
	}
	return nil
}

// Decode reads the header first and refuses images over maxPixels before
// any pixel memory is allocated.
func Decode(data []byte, maxPixels int) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if err := CheckSize(float64(cfg.Width), float64(cfg.Height), maxPixels); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// ParseColor understands "#rgb", "#rrggbb" and css "rgb()/rgba()" strings.
// Unknown input is opaque black.
func ParseColor(s string) color.NRGBA {
	s = strings.TrimSpace(strings.ToLower(s))
	black := color.NRGBA{A: 0xff}

	switch {
	case strings.HasPrefix(s, "#"):
		hex := s[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 {
			return black
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return black
		}
		return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}

	case strings.HasPrefix(s, "rgb"):
		open, end := strings.IndexByte(s, '('), strings.LastIndexByte(s, ')')
		if open < 0 || end <= open {
			return black
		}
		parts := strings.Split(s[open+1:end], ",")
		if len(parts) < 3 {
			return black
		}
		var c [3]uint8
		for i := 0; i < 3; i++ {
			n, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
			if err != nil {
				return black
			}
			c[i] = uint8(math.Max(0, math.Min(255, n)))
		}
		alpha := 1.0
		if len(parts) > 3 {
			if a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64); err == nil {
				alpha = math.Max(0, math.Min(1, a))
			}
		}
		return color.NRGBA{R: c[0], G: c[1], B: c[2], A: uint8(math.Round(alpha * 255))}
	}
	return black
}

// EncodePNGDataURL encodes img as a "data:image/png;base64," url.
func EncodePNGDataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeDataURL decodes a base64 data url holding any registered image
// format, within DefaultMaxPixels.
func DecodeDataURL(src string) (image.Image, error) {
	if !strings.HasPrefix(src, "data:") {
		return nil, ErrNotDataURL
	}
	comma := strings.IndexByte(src, ',')
	if comma < 0 || !strings.HasSuffix(src[:comma], ";base64") {
		return nil, ErrNotDataURL
	}
	data, err := base64.StdEncoding.DecodeString(src[comma+1:])
	if err != nil {
		return nil, fmt.Errorf("decode data url: %w", err)
	}
	return Decode(data, 0)
}

// ScaleToWidth resamples img to the given width keeping the aspect ratio.
// The result must fit in maxPixels.
func ScaleToWidth(img image.Image, width, maxPixels int) (*image.RGBA, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, errors.New("raster: empty image")
	}
	height := math.Max(1, math.Round(float64(b.Dy())*float64(width)/float64(b.Dx())))
	if err := CheckSize(float64(width), height, maxPixels); err != nil {
		return nil, err
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, int(height)))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst, nil
}

// Polyline adds a stroked polyline to z as a set of filled quads with round
// joins. A single point becomes a dot.
func Polyline(z *vector.Rasterizer, pts [][2]float64, width float64) {
	hw := width / 2
	if hw < 0.5 {
		hw = 0.5
	}
	for i, p := range pts {
		Dot(z, p[0], p[1], hw)
		if i == 0 {
			continue
		}
		q := pts[i-1]
		dx, dy := p[0]-q[0], p[1]-q[1]
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		nx, ny := -dy/l*hw, dx/l*hw
		z.MoveTo(float32(q[0]+nx), float32(q[1]+ny))
		z.LineTo(float32(p[0]+nx), float32(p[1]+ny))
		z.LineTo(float32(p[0]-nx), float32(p[1]-ny))
		z.LineTo(float32(q[0]-nx), float32(q[1]-ny))
		z.ClosePath()
	}
}

// Dot adds a filled circle approximated by four cubic arcs.
func Dot(z *vector.Rasterizer, cx, cy, r float64) {
	const k = 0.5522847498
	c := r * k
	f := func(v float64) float32 { return float32(v) }
	z.MoveTo(f(cx+r), f(cy))
	z.CubeTo(f(cx+r), f(cy+c), f(cx+c), f(cy+r), f(cx), f(cy+r))
	z.CubeTo(f(cx-c), f(cy+r), f(cx-r), f(cy+c), f(cx-r), f(cy))
	z.CubeTo(f(cx-r), f(cy-c), f(cx-c), f(cy-r), f(cx), f(cy-r))
	z.CubeTo(f(cx+c), f(cy-r), f(cx+r), f(cy-c), f(cx+r), f(cy))
	z.ClosePath()
}
