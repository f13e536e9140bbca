package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddSlidePage(t *testing.T) {
	d := New()
	d.CreatePage()
	d.SetCurrentPage(0)

	pageID := d.AddSlidePage([]SlideSpec{
		{Src: "p1", Width: 1000, Height: 1294},
		{Src: "p2", Width: 1000, Height: 1294},
		{Src: "p3", Width: 800, Height: 600},
	})

	require.Equal(t, 3, d.PageCount())
	assert.Equal(t, 2, d.CurrentPageIndex())

	pg := d.CurrentPage()
	assert.Equal(t, pageID, pg.ID)
	require.Len(t, pg.Slides, 3)
	assert.Equal(t, 0.0, pg.Slides[0].YOffset)
	assert.Equal(t, 1314.0, pg.Slides[1].YOffset)
	assert.Equal(t, 2628.0, pg.Slides[2].YOffset)

	assert.Equal(t, pageID+1, pg.Slides[0].ID)
	assert.Equal(t, pageID+3, pg.Slides[2].ID)
	assert.Equal(t, pageID+4, d.NextID())
}

func TestStageHeight(t *testing.T) {
	d := New()
	d.AddSlidePage([]SlideSpec{{Src: "a", Width: 100, Height: 700}, {Src: "b", Width: 100, Height: 700}})
	pg := d.CurrentPage()

	assert.Equal(t, 1440.0, pg.StageHeight(900))
	assert.Equal(t, 2000.0, pg.StageHeight(2000))

	blank, _ := d.Page(0)
	assert.Equal(t, 900.0, blank.StageHeight(900))
}

func TestMoveSlide(t *testing.T) {
	d := New()
	d.AddSlidePage([]SlideSpec{{Src: "a", Width: 100, Height: 100}})
	pg := d.CurrentPage()

	assert.True(t, d.MoveSlide(1, pg.Slides[0].ID, Point{15, 30}))
	assert.False(t, d.MoveSlide(1, 999, Point{}))

	pg = d.CurrentPage()
	assert.Equal(t, 15.0, pg.Slides[0].X)
	assert.Equal(t, 30.0, pg.Slides[0].YOffset)
}
