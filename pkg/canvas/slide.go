package canvas

// SlideGap is the vertical space left between stacked slides.
const SlideGap = 20

// SlideSpec is one rasterized image waiting to become a slide.
type SlideSpec struct {
	Src    string
	Width  float64
	Height float64
}

// AddSlidePage appends a page holding the given slides stacked top to bottom
// and makes it current. The page id is allocated first, then one id per
// slide. It returns the new page id.
func (d *Document) AddSlidePage(specs []SlideSpec) int64 {
	pg := newPage(d.allocID())

	var yOffset float64
	for _, spec := range specs {
		pg.Slides = append(pg.Slides, Slide{
			ID:      d.allocID(),
			Src:     spec.Src,
			Width:   spec.Width,
			Height:  spec.Height,
			YOffset: yOffset,
		})
		yOffset += spec.Height + SlideGap
	}

	d.pages = append(d.pages, pg)
	d.currentPageIndex = len(d.pages) - 1
	return pg.ID
}

// MoveSlide repositions a slide (drag). The stacking offset becomes p.Y.
func (d *Document) MoveSlide(pageIndex int, id int64, p Point) bool {
	pg, err := d.page(pageIndex)
	if err != nil {
		return false
	}
	for i := range pg.Slides {
		if pg.Slides[i].ID == id {
			pg.Slides[i].X = p.X
			pg.Slides[i].YOffset = p.Y
			return true
		}
	}
	return false
}
