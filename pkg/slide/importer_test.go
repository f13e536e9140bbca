package slide

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyhub-be/pkg/canvas"
	"studyhub-be/pkg/raster"
)

type fakeRasterizer struct {
	pages []image.Image
	err   error
	calls int
}

func (f *fakeRasterizer) Rasterize(_ context.Context, _ []byte, _, _ int, emit func(image.Image) error) error {
	f.calls++
	for _, p := range f.pages {
		if err := emit(p); err != nil {
			return err
		}
	}
	return f.err
}

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

var pdfHeader = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

func TestPrepare_ImageScaledToMaxWidth(t *testing.T) {
	imp := NewImporter(&fakeRasterizer{})

	specs, err := imp.Prepare(context.Background(), File{
		Name: "photo.png",
		Data: pngBytes(t, solid(200, 100, color.White)),
	})

	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, 1000.0, specs[0].Width)
	assert.Equal(t, 500.0, specs[0].Height)
	assert.Contains(t, specs[0].Src, "data:image/png;base64,")
}

func TestPrepare_PDFPages(t *testing.T) {
	fake := &fakeRasterizer{pages: []image.Image{
		solid(1000, 1294, color.White),
		solid(1000, 1294, color.White),
	}}
	imp := NewImporter(fake)

	specs, err := imp.Prepare(context.Background(), File{Name: "deck.pdf", Data: pdfHeader})

	require.NoError(t, err)
	assert.Equal(t, 1, fake.calls)
	require.Len(t, specs, 2)
	for _, s := range specs {
		assert.Equal(t, 1000.0, s.Width)
		assert.Equal(t, 1294.0, s.Height)
	}
}

func TestPrepare_Unsupported(t *testing.T) {
	imp := NewImporter(&fakeRasterizer{})

	_, err := imp.Prepare(context.Background(), File{Name: "notes.txt", ContentType: "text/plain", Data: []byte("hello")})

	assert.ErrorIs(t, err, ErrUnsupportedFile)
}

func TestPrepare_CorruptImage(t *testing.T) {
	imp := NewImporter(&fakeRasterizer{})

	_, err := imp.Prepare(context.Background(), File{Name: "broken.png", ContentType: "image/png", Data: []byte("not a png")})

	assert.Error(t, err)
}

func TestPrepare_ImageOverPixelLimit(t *testing.T) {
	imp := NewImporter(&fakeRasterizer{}, WithMaxPixels(5000))

	_, err := imp.Prepare(context.Background(), File{Name: "big.png", Data: pngBytes(t, solid(100, 100, color.White))})

	assert.ErrorIs(t, err, raster.ErrTooLarge)
}

func TestImportAll_NarrowImageRecordedAsFailure(t *testing.T) {
	// fits on decode, but widening to 1000px would need 1000x20000000
	narrow := image.NewGray(image.Rect(0, 0, 1, 20000))
	imp := NewImporter(&fakeRasterizer{})
	doc := canvas.New()

	res, err := imp.ImportAll(context.Background(), doc, []File{
		{Name: "strip.png", Data: pngBytes(t, narrow)},
		{Name: "ok.png", Data: pngBytes(t, solid(10, 10, color.Black))},
	})

	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "strip.png", res.Failures[0].Name)
	assert.ErrorIs(t, res.Failures[0].Err, raster.ErrTooLarge)
	assert.Len(t, res.PageIDs, 1)
	assert.Equal(t, 2, doc.PageCount())
}

func TestImportAll_SkipsFailedFiles(t *testing.T) {
	fake := &fakeRasterizer{pages: []image.Image{solid(1000, 1294, color.White)}}
	imp := NewImporter(fake, WithConcurrency(3))
	doc := canvas.New()

	res, err := imp.ImportAll(context.Background(), doc, []File{
		{Name: "a.pdf", Data: pdfHeader},
		{Name: "b.png", ContentType: "image/png", Data: []byte("garbage")},
		{Name: "c.png", Data: pngBytes(t, solid(10, 10, color.Black))},
	})

	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "b.png", res.Failures[0].Name)
	require.Len(t, res.PageIDs, 2)

	assert.Equal(t, 3, doc.PageCount())
	assert.Equal(t, 2, doc.CurrentPageIndex())

	first, _ := doc.Page(1)
	second, _ := doc.Page(2)
	assert.Equal(t, res.PageIDs[0], first.ID)
	assert.Equal(t, res.PageIDs[1], second.ID)
	assert.Len(t, first.Slides, 1)
	assert.Len(t, second.Slides, 1)
	assert.Equal(t, 100.0, second.Slides[0].Height)
}

func TestImportAll_PDFFailureLeavesDocumentUnchanged(t *testing.T) {
	imp := NewImporter(&fakeRasterizer{err: errors.New("bad xref")})
	doc := canvas.New()
	before := doc.Serialize()

	res, err := imp.ImportAll(context.Background(), doc, []File{{Name: "bad.pdf", Data: pdfHeader}})

	require.NoError(t, err)
	assert.Empty(t, res.PageIDs)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, before, doc.Serialize())
}

func TestImportAll_Cancelled(t *testing.T) {
	imp := NewImporter(&fakeRasterizer{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	doc := canvas.New()

	_, err := imp.ImportAll(ctx, doc, []File{{Name: "c.png", Data: pngBytes(t, solid(4, 4, color.Black))}})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, doc.PageCount())
}

func TestKind(t *testing.T) {
	cases := []struct {
		name string
		file File
		want fileKind
	}{
		{"sniffed pdf", File{Data: pdfHeader}, kindPDF},
		{"sniffed png", File{Data: pngBytes(t, solid(1, 1, color.White))}, kindImage},
		{"declared pdf", File{ContentType: "application/pdf"}, kindPDF},
		{"pdf extension", File{Name: "Lecture.PDF"}, kindPDF},
		{"declared image", File{ContentType: "image/jpeg"}, kindImage},
		{"plain text", File{Name: "a.txt", Data: []byte("hello")}, kindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, kind(tc.file))
		})
	}
}
