package canvas

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedSnapshot is returned with a usable document when some stored
// fields could not be decoded.
var ErrMalformedSnapshot = errors.New("canvas: malformed snapshot")

// Serialize returns a deep copy of the document in its persisted form.
func (d *Document) Serialize() Snapshot {
	pages := make([]Page, len(d.pages))
	for i, p := range d.pages {
		pages[i] = p.clone()
		for j := range pages[i].TextBoxes {
			pages[i].TextBoxes[j].Editing = false
		}
	}
	next := d.nextID
	return Snapshot{
		Pages:            pages,
		NextID:           &next,
		CurrentPageIndex: d.currentPageIndex,
	}
}

// MarshalJSON encodes the document as its snapshot.
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Serialize())
}

// Hydrate builds a document from a snapshot. It never fails: missing or
// empty pages give a single blank page, the page index is clamped and a
// missing counter is recomputed from the ids present.
func Hydrate(s Snapshot) *Document {
	if len(s.Pages) == 0 {
		return New()
	}

	d := &Document{
		pages:  make([]Page, len(s.Pages)),
		active: make(map[int64]int64),
	}
	for i, p := range s.Pages {
		p = p.clone()
		p.Lines = dropEmptyStrokes(p.Lines)
		d.pages[i] = p
	}

	d.currentPageIndex = max(0, min(s.CurrentPageIndex, len(d.pages)-1))

	floor := nextIDFromPages(s.Pages)
	switch {
	case s.NextID == nil:
		d.nextID = floor
	case *s.NextID < floor:
		d.nextID = floor
	default:
		d.nextID = *s.NextID
	}
	return d
}

// HydrateJSON decodes a snapshot field by field and hydrates it. Null or
// empty input gives a blank document. A field or page that cannot be decoded
// falls back to its default and the error wraps ErrMalformedSnapshot; the
// returned document is never nil.
func HydrateJSON(raw []byte) (*Document, error) {
	raw = bytes.TrimSpace(raw)
	if isNull(raw) {
		return New(), nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return New(), fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}

	var (
		s   Snapshot
		bad []string
	)
	if v := fields["pages"]; !isNull(v) {
		var pages []json.RawMessage
		if err := json.Unmarshal(v, &pages); err != nil {
			bad = append(bad, "pages")
		}
		for i, pr := range pages {
			var p Page
			if err := json.Unmarshal(pr, &p); err != nil {
				bad = append(bad, fmt.Sprintf("pages[%d]", i))
				continue
			}
			s.Pages = append(s.Pages, p)
		}
	}
	if v := fields["nextId"]; !isNull(v) {
		var n int64
		if err := json.Unmarshal(v, &n); err != nil {
			bad = append(bad, "nextId")
		} else {
			s.NextID = &n
		}
	}
	if v := fields["currentPageIndex"]; !isNull(v) {
		if err := json.Unmarshal(v, &s.CurrentPageIndex); err != nil {
			s.CurrentPageIndex = 0
			bad = append(bad, "currentPageIndex")
		}
	}

	d := Hydrate(s)
	if len(bad) > 0 {
		return d, fmt.Errorf("%w: %s", ErrMalformedSnapshot, strings.Join(bad, ", "))
	}
	return d, nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func dropEmptyStrokes(lines []Stroke) []Stroke {
	kept := lines[:0]
	for _, l := range lines {
		if len(l.Points) > 0 {
			kept = append(kept, l)
		}
	}
	return kept
}

// nextIDFromPages is one more than the largest id anywhere in pages, or 1
// when there are none.
func nextIDFromPages(pages []Page) int64 {
	var maxID int64 = -1
	see := func(id int64) {
		if id > maxID {
			maxID = id
		}
	}
	for _, p := range pages {
		see(p.ID)
		for _, s := range p.Slides {
			see(s.ID)
		}
		for _, l := range p.Lines {
			see(l.ID)
		}
		for _, t := range p.TextBoxes {
			see(t.ID)
		}
	}
	if maxID < 0 {
		return 1
	}
	return maxID + 1
}
