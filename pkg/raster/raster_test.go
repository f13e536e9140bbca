package raster

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{in: "#ff0000", want: color.NRGBA{R: 0xff, A: 0xff}},
		{in: "#0f0", want: color.NRGBA{G: 0xff, A: 0xff}},
		{in: "rgba(255, 255, 0, 0.5)", want: color.NRGBA{R: 0xff, G: 0xff, A: 0x80}},
		{in: "papayawhip", want: color.NRGBA{A: 0xff}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseColor(tt.in))
		})
	}
}

func TestCheckSize(t *testing.T) {
	assert.NoError(t, CheckSize(1000, 1000, 0))
	assert.ErrorIs(t, CheckSize(1000, 1000, 999_999), ErrTooLarge)
	assert.ErrorIs(t, CheckSize(1e12, 800, 0), ErrTooLarge)
	assert.ErrorIs(t, CheckSize(math.NaN(), 800, 0), ErrTooLarge)
	assert.ErrorIs(t, CheckSize(math.Inf(1), 1, 0), ErrTooLarge)
}

func TestDecode_RejectsBeforeAllocating(t *testing.T) {
	data := encodePNG(t, image.NewGray(image.Rect(0, 0, 300, 300)))

	_, err := Decode(data, 300*300-1)
	assert.ErrorIs(t, err, ErrTooLarge)

	img, err := Decode(data, 300*300)
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())
}

func TestScaleToWidth_NarrowImageCapped(t *testing.T) {
	// a few hundred bytes on disk, 20 billion pixels once widened to 1000
	data := encodePNG(t, image.NewGray(image.Rect(0, 0, 1, 20000)))
	require.Less(t, len(data), 1024)

	img, err := Decode(data, 0)
	require.NoError(t, err)

	_, err = ScaleToWidth(img, 1000, 0)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestScaleToWidth_KeepsAspect(t *testing.T) {
	img, err := ScaleToWidth(image.NewGray(image.Rect(0, 0, 200, 100)), 1000, 0)

	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1000, 500), img.Bounds())
}

func TestDataURLRoundTrip(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 3))
	url, err := EncodePNGDataURL(src)
	require.NoError(t, err)

	back, err := DecodeDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), back.Bounds())

	_, err = DecodeDataURL("https://example.com/x.png")
	assert.ErrorIs(t, err, ErrNotDataURL)
}
