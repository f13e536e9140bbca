package slide

import (
	"errors"
	"fmt"
	"image"
	"io"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"seehuhn.de/go/pdf"

	"studyhub-be/pkg/raster"
)

var errUnsupportedImage = errors.New("slide: unsupported image encoding")

// decodeImageXObject decodes JPEG images and 8 bit gray, RGB or CMYK
// samples. Anything else, such as indexed or 1 bit images, is reported as
// unsupported.
func decodeImageXObject(r pdf.Getter, stm *pdf.Stream, maxPixels int) (image.Image, error) {
	w, _ := pdf.GetInteger(r, stm.Dict["Width"])
	h, _ := pdf.GetInteger(r, stm.Dict["Height"])
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", errUnsupportedImage, w, h)
	}
	if err := raster.CheckSize(float64(w), float64(h), maxPixels); err != nil {
		return nil, err
	}
	limit := int64(w) * int64(h) * 4

	filters := filterNames(r, stm.Dict["Filter"])
	if n := len(filters); n > 0 && filters[n-1] == "DCTDecode" {
		var body io.Reader = stm.R
		if n > 1 {
			dec, err := pdf.DecodeStream(r, stm, n-1)
			if err != nil {
				return nil, err
			}
			body = dec
		}
		data, err := readAllLimited(body, limit)
		if err != nil {
			return nil, err
		}
		return raster.Decode(data, maxPixels)
	}

	bpc, _ := pdf.GetInteger(r, stm.Dict["BitsPerComponent"])
	comps := colorComponents(r, stm.Dict["ColorSpace"])
	if bpc != 8 || comps == 0 {
		return nil, errUnsupportedImage
	}
	dec, err := pdf.DecodeStream(r, stm, 0)
	if err != nil {
		return nil, err
	}
	width, height := int(w), int(h)
	samples := make([]byte, width*height*comps)
	if _, err := io.ReadFull(dec, samples); err != nil {
		return nil, fmt.Errorf("read image samples: %w", err)
	}

	rect := image.Rect(0, 0, width, height)
	switch comps {
	case 1:
		return &image.Gray{Pix: samples, Stride: width, Rect: rect}, nil
	case 4:
		return &image.CMYK{Pix: samples, Stride: 4 * width, Rect: rect}, nil
	}
	img := image.NewRGBA(rect)
	for i := 0; i < width*height; i++ {
		copy(img.Pix[4*i:4*i+3], samples[3*i:3*i+3])
		img.Pix[4*i+3] = 0xff
	}
	return img, nil
}

func filterNames(r pdf.Getter, obj pdf.Object) []pdf.Name {
	f, err := pdf.Resolve(r, obj)
	if err != nil {
		return nil
	}
	switch f := f.(type) {
	case pdf.Name:
		return []pdf.Name{f}
	case pdf.Array:
		names := make([]pdf.Name, 0, len(f))
		for _, o := range f {
			name, _ := pdf.GetName(r, o)
			names = append(names, name)
		}
		return names
	}
	return nil
}

// colorComponents gives the samples per pixel of a device or ICC based
// color space, 0 for the ones that are not drawn.
func colorComponents(r pdf.Getter, obj pdf.Object) int {
	cs, err := pdf.Resolve(r, obj)
	if err != nil {
		return 0
	}
	switch cs := cs.(type) {
	case pdf.Name:
		switch cs {
		case "DeviceGray", "G", "CalGray":
			return 1
		case "DeviceRGB", "RGB", "CalRGB":
			return 3
		case "DeviceCMYK", "CMYK":
			return 4
		}
	case pdf.Array:
		if len(cs) < 2 {
			return 0
		}
		family, _ := pdf.GetName(r, cs[0])
		switch family {
		case "CalGray":
			return 1
		case "CalRGB":
			return 3
		case "ICCBased":
			profile, err := pdf.GetStream(r, cs[1])
			if err != nil || profile == nil {
				return 0
			}
			n, _ := pdf.GetInteger(r, profile.Dict["N"])
			if n == 1 || n == 3 || n == 4 {
				return int(n)
			}
		}
	}
	return 0
}

func (pr *pageRenderer) drawImage(src image.Image) {
	b := src.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())

	// image row 0 is the top edge of the unit square
	ox, oy := pr.device(0, 1)
	rx, ry := pr.device(1, 1)
	bx, by := pr.device(0, 0)
	s2d := f64.Aff3{
		(rx - ox) / w, (bx - ox) / h, ox - (rx-ox)/w*float64(b.Min.X) - (bx-ox)/h*float64(b.Min.Y),
		(ry - oy) / w, (by - oy) / h, oy - (ry-oy)/w*float64(b.Min.X) - (by-oy)/h*float64(b.Min.Y),
	}
	if s2d[0]*s2d[4]-s2d[1]*s2d[3] == 0 {
		return
	}
	xdraw.BiLinear.Transform(pr.img, s2d, src, b, xdraw.Over, nil)
	pr.painted = true
}
