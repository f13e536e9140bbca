package slide

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyhub-be/pkg/raster"
)

// writePDF lays out the given object bodies as objects 1..n, object 1 being
// the catalog, and appends the cross reference table.
func writePDF(t *testing.T, objs ...string) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, 0, len(objs))
	for i, body := range objs {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func stream(dict, data string) string {
	return fmt.Sprintf("<< %s /Length %d >>\nstream\n%s\nendstream", dict, len(data), data)
}

// buildPDF writes a minimal uncompressed PDF whose pages all share the given
// media box and content stream.
func buildPDF(t *testing.T, pages int, width, height float64, content string) []byte {
	t.Helper()

	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", 3+i*2)
	}
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pages),
	}
	for i := 0; i < pages; i++ {
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %g %g] /Resources << >> /Contents %d 0 R >>",
				width, height, 4+i*2),
			stream("", content),
		)
	}
	return writePDF(t, objs...)
}

// imagePDF places one image XObject over the whole of a 200x100 page.
func imagePDF(t *testing.T, imageDict, imageData string) []byte {
	t.Helper()
	return writePDF(t,
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 100] /Resources << /XObject << /Im1 5 0 R >> >> /Contents 4 0 R >>",
		stream("", "q 200 0 0 100 0 0 cm /Im1 Do Q"),
		stream("/Type /XObject /Subtype /Image "+imageDict, imageData),
	)
}

func rasterize(t *testing.T, data []byte, maxWidth, maxPixels int) ([]image.Image, error) {
	t.Helper()
	var pages []image.Image
	err := NewPDFRasterizer().Rasterize(context.Background(), data, maxWidth, maxPixels, func(p image.Image) error {
		pages = append(pages, p)
		return nil
	})
	return pages, err
}

func TestPDFRasterizer_PageSizes(t *testing.T) {
	data := buildPDF(t, 2, 2000, 1000, "")

	pages, err := rasterize(t, data, 1000, 0)

	require.NoError(t, err)
	require.Len(t, pages, 2)
	for _, p := range pages {
		assert.Equal(t, 1000, p.Bounds().Dx())
		assert.Equal(t, 500, p.Bounds().Dy())
	}
}

func TestPDFRasterizer_SmallPageNotUpscaled(t *testing.T) {
	data := buildPDF(t, 1, 612, 792, "")

	pages, err := rasterize(t, data, 1000, 0)

	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 612, pages[0].Bounds().Dx())
	assert.Equal(t, 792, pages[0].Bounds().Dy())
}

func TestPDFRasterizer_FillsRectangle(t *testing.T) {
	// red square in the lower left quarter of a 200x200 page
	data := buildPDF(t, 1, 200, 200, "1 0 0 rg 0 0 100 100 re f")

	pages, err := rasterize(t, data, 1000, 0)

	require.NoError(t, err)
	require.Len(t, pages, 1)

	r, g, b, _ := pages[0].At(50, 150).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Zero(t, g)
	assert.Zero(t, b)

	assert.Equal(t, color.RGBAModel.Convert(color.White), color.RGBAModel.Convert(pages[0].At(150, 50)))
}

func TestPDFRasterizer_DrawsRawImage(t *testing.T) {
	// 2x1 pixels: red then blue
	data := imagePDF(t, "/Width 2 /Height 1 /ColorSpace /DeviceRGB /BitsPerComponent 8", "\xff\x00\x00\x00\x00\xff")

	pages, err := rasterize(t, data, 1000, 0)

	require.NoError(t, err)
	require.Len(t, pages, 1)

	r, _, b, _ := pages[0].At(40, 50).RGBA()
	assert.Greater(t, r, uint32(0xe000))
	assert.Less(t, b, uint32(0x2000))

	r, _, b, _ = pages[0].At(160, 50).RGBA()
	assert.Less(t, r, uint32(0x2000))
	assert.Greater(t, b, uint32(0xe000))
}

func TestPDFRasterizer_DrawsJPEGImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i+1], src.Pix[i+3] = 0xff, 0xff
	}
	var jpg bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpg, src, &jpeg.Options{Quality: 95}))

	data := imagePDF(t, "/Width 16 /Height 16 /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /DCTDecode", jpg.String())

	pages, err := rasterize(t, data, 1000, 0)

	require.NoError(t, err)
	r, g, b, _ := pages[0].At(100, 50).RGBA()
	assert.Greater(t, g, uint32(0xc000))
	assert.Less(t, r, uint32(0x4000))
	assert.Less(t, b, uint32(0x4000))
}

func TestPDFRasterizer_DrawsText(t *testing.T) {
	data := writePDF(t,
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 100] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		stream("", "BT /F1 40 Tf 10 30 Td (HH) Tj ET"),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	)

	pages, err := rasterize(t, data, 1000, 0)

	require.NoError(t, err)
	require.Len(t, pages, 1)

	dark := 0
	b := pages[0].Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if r, _, _, _ := pages[0].At(x, y).RGBA(); r < 0x8000 {
				dark++
			}
		}
	}
	assert.Positive(t, dark)
}

func TestPDFRasterizer_CorruptContentFailsFile(t *testing.T) {
	data := writePDF(t,
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 100] /Resources << >> /Contents 4 0 R >>",
		stream("/Filter /FlateDecode", "not a deflate stream"),
	)

	pages, err := rasterize(t, data, 1000, 0)

	assert.ErrorIs(t, err, ErrUnreadablePDF)
	assert.Empty(t, pages)
}

func TestPDFRasterizer_RefusesOversizedPage(t *testing.T) {
	// narrow enough to skip downscaling, tall enough to exceed the limit
	data := buildPDF(t, 1, 100, 200000, "")

	pages, err := rasterize(t, data, 1000, 1_000_000)

	assert.ErrorIs(t, err, raster.ErrTooLarge)
	assert.Empty(t, pages)
}

func TestPDFRasterizer_Garbage(t *testing.T) {
	_, err := rasterize(t, []byte("%PDF-1.4 nonsense"), 1000, 0)

	assert.Error(t, err)
}
