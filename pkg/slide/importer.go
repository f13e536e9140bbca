// Package slide turns uploaded PDFs and images into canvas slide pages.
package slide

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"

	"studyhub-be/pkg/canvas"
	"studyhub-be/pkg/raster"
)

const DefaultMaxWidth = 1000

var ErrUnsupportedFile = errors.New("slide: file is neither a pdf nor an image")

type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Failure records a file that was skipped during ImportAll.
type Failure struct {
	Name string
	Err  error
}

type Result struct {
	PageIDs  []int64
	Failures []Failure
}

type Importer struct {
	rasterizer  Rasterizer
	maxWidth    int
	maxPixels   int
	concurrency int
}

type Option func(*Importer)

func WithMaxWidth(w int) Option {
	return func(i *Importer) {
		if w > 0 {
			i.maxWidth = w
		}
	}
}

// WithMaxPixels caps the decoded size of any image or PDF page.
func WithMaxPixels(n int) Option {
	return func(i *Importer) {
		if n > 0 {
			i.maxPixels = n
		}
	}
}

func WithConcurrency(n int) Option {
	return func(i *Importer) {
		if n > 0 {
			i.concurrency = n
		}
	}
}

func NewImporter(r Rasterizer, opts ...Option) *Importer {
	i := &Importer{
		rasterizer:  r,
		maxWidth:    DefaultMaxWidth,
		maxPixels:   raster.DefaultMaxPixels,
		concurrency: 2,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Importer) MaxWidth() int {
	return i.maxWidth
}

// Prepare rasterizes a single file into slide specs without touching any
// document. PDFs yield one spec per page, images exactly one.
func (i *Importer) Prepare(ctx context.Context, f File) ([]canvas.SlideSpec, error) {
	switch kind(f) {
	case kindPDF:
		var specs []canvas.SlideSpec
		err := i.rasterizer.Rasterize(ctx, f.Data, i.maxWidth, i.maxPixels, func(page image.Image) error {
			spec, err := toSpec(page)
			if err != nil {
				return fmt.Errorf("encode page %d: %w", len(specs)+1, err)
			}
			specs = append(specs, spec)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("rasterize %s: %w", f.Name, err)
		}
		return specs, nil

	case kindImage:
		img, err := raster.Decode(f.Data, i.maxPixels)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.Name, err)
		}
		scaled, err := raster.ScaleToWidth(img, i.maxWidth, i.maxPixels)
		if err != nil {
			return nil, fmt.Errorf("scale %s: %w", f.Name, err)
		}
		spec, err := toSpec(scaled)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", f.Name, err)
		}
		return []canvas.SlideSpec{spec}, nil
	}
	return nil, fmt.Errorf("%s: %w", f.Name, ErrUnsupportedFile)
}

// ImportAll prepares the files concurrently and then appends one page per
// successful file to doc, in the order the files were given. Failed files
// are reported and leave no page behind.
func (i *Importer) ImportAll(ctx context.Context, doc *canvas.Document, files []File) (Result, error) {
	prepared, failures, err := i.PrepareAll(ctx, files)
	if err != nil {
		return Result{}, err
	}
	res := Result{Failures: failures}
	for _, specs := range prepared {
		if specs == nil {
			continue
		}
		res.PageIDs = append(res.PageIDs, doc.AddSlidePage(specs))
	}
	return res, nil
}

// PrepareAll returns specs indexed like files; entries for failed files are
// nil. Only context cancellation is returned as an error.
func (i *Importer) PrepareAll(ctx context.Context, files []File) ([][]canvas.SlideSpec, []Failure, error) {
	prepared := make([][]canvas.SlideSpec, len(files))
	errs := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.concurrency)
	for idx, f := range files {
		g.Go(func() error {
			specs, err := i.Prepare(gctx, f)
			if err != nil {
				errs[idx] = err
				return nil
			}
			prepared[idx] = specs
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var failures []Failure
	for idx, err := range errs {
		if err != nil {
			failures = append(failures, Failure{Name: files[idx].Name, Err: err})
		}
	}
	return prepared, failures, nil
}

func toSpec(img image.Image) (canvas.SlideSpec, error) {
	src, err := raster.EncodePNGDataURL(img)
	if err != nil {
		return canvas.SlideSpec{}, err
	}
	b := img.Bounds()
	return canvas.SlideSpec{Src: src, Width: float64(b.Dx()), Height: float64(b.Dy())}, nil
}

type fileKind int

const (
	kindUnknown fileKind = iota
	kindPDF
	kindImage
)

// kind sniffs the payload first and falls back to the declared type and
// file extension.
func kind(f File) fileKind {
	if len(f.Data) > 0 {
		m := mimetype.Detect(f.Data)
		switch {
		case m.Is("application/pdf"):
			return kindPDF
		case strings.HasPrefix(m.String(), "image/"):
			return kindImage
		}
	}
	ct := strings.ToLower(f.ContentType)
	name := strings.ToLower(f.Name)
	switch {
	case ct == "application/pdf" || strings.HasSuffix(name, ".pdf"):
		return kindPDF
	case strings.HasPrefix(ct, "image/"):
		return kindImage
	}
	return kindUnknown
}
