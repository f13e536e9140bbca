// Package canvas implements the multi-page note document behind the note
// canvas: pages holding slide backgrounds, freehand strokes and text
// annotations, plus the snapshot format used for persistence.
//
// A Document is not safe for concurrent use. Callers that share one across
// goroutines must serialize access themselves.
package canvas

// Document is an ordered set of pages with a document-wide id counter.
type Document struct {
	pages            []Page
	currentPageIndex int
	nextID           int64

	// active maps a page id to the stroke currently being extended on it.
	active map[int64]int64
}

// New returns a document with one blank page (id 0).
func New() *Document {
	return &Document{
		pages:  []Page{newPage(0)},
		nextID: 1,
		active: make(map[int64]int64),
	}
}

func (d *Document) allocID() int64 {
	id := d.nextID
	d.nextID++
	return id
}

func (d *Document) PageCount() int {
	return len(d.pages)
}

func (d *Document) CurrentPageIndex() int {
	return d.currentPageIndex
}

// NextID is the id the next created entity will receive.
func (d *Document) NextID() int64 {
	return d.nextID
}

// Page returns a copy of the page at index.
func (d *Document) Page(index int) (Page, bool) {
	if index < 0 || index >= len(d.pages) {
		return Page{}, false
	}
	return d.pages[index].clone(), true
}

// CurrentPage returns a copy of the current page.
func (d *Document) CurrentPage() Page {
	return d.pages[d.currentPageIndex].clone()
}

func (d *Document) page(index int) (*Page, error) {
	if index < 0 || index >= len(d.pages) {
		return nil, ErrPageOutOfRange
	}
	return &d.pages[index], nil
}

// CreatePage appends a blank page, makes it current and returns its id.
func (d *Document) CreatePage() int64 {
	id := d.allocID()
	d.pages = append(d.pages, newPage(id))
	d.currentPageIndex = len(d.pages) - 1
	return id
}

// DeletePage removes the current page. The last remaining page is never
// removed.
func (d *Document) DeletePage() bool {
	if len(d.pages) <= 1 {
		return false
	}
	removed := d.pages[d.currentPageIndex]
	delete(d.active, removed.ID)

	d.pages = append(d.pages[:d.currentPageIndex], d.pages[d.currentPageIndex+1:]...)
	d.currentPageIndex = min(d.currentPageIndex, len(d.pages)-1)
	return true
}

// SetCurrentPage switches the visible page. Out of range indexes are ignored.
func (d *Document) SetCurrentPage(index int) bool {
	if index < 0 || index >= len(d.pages) {
		return false
	}
	d.currentPageIndex = index
	return true
}
