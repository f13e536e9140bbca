package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/jung-kurt/gofpdf"

	"studyhub-be/pkg/canvas"
)

// FileName is the download name used for page index i.
func FileName(pageIndex int) string {
	return fmt.Sprintf("page_%d.pdf", pageIndex+1)
}

// WritePDF embeds img as the only page of a PDF sized to the raster, one
// point per pixel.
func WritePDF(w io.Writer, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode page: %w", err)
	}

	b := img.Bounds()
	wd, ht := float64(b.Dx()), float64(b.Dy())
	doc := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: wd, Ht: ht},
	})
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	doc.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	doc.RegisterImageOptionsReader("page", opts, &buf)
	doc.ImageOptions("page", 0, 0, wd, ht, false, opts, 0, "")

	if err := doc.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// Page renders p and returns the PDF bytes.
func Page(p canvas.Page, opts Options) ([]byte, error) {
	img, err := RenderPage(p, opts)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := WritePDF(&out, img); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
