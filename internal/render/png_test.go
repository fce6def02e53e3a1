package render

import (
	"bytes"
	"errors"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/findash/internal/charts"
)

func TestPNG_Bar(t *testing.T) {
	fig := charts.Figure{
		Title: "Trend of Sales Over Time",
		Kind:  charts.KindGroupedBar,
		Data: []charts.Trace{
			{Type: "bar", Name: "Sales", X: []string{"2014-01-01", "2014-02-01"}, Y: []float64{100, 250}},
			{Type: "bar", Name: "Profit", X: []string{"2014-01-01", "2014-02-01"}, Y: []float64{-10, 40}},
		},
		Layout: charts.Layout{XAxis: &charts.Axis{Title: charts.Text{Text: "Date"}}},
	}
	var buf bytes.Buffer
	require.NoError(t, PNG(&buf, fig, Options{Width: 400, Height: 300}))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 300, img.Bounds().Dy())

	r, g, b, _ := img.At(0, 0).RGBA()
	assert.Equal(t, []uint32{0, 0, 0}, []uint32{r, g, b}, "black background")
}

func TestPNG_Donut(t *testing.T) {
	fig := charts.Figure{
		Title: "Share",
		Kind:  charts.KindPie,
		Data: []charts.Trace{{
			Type:   "pie",
			Labels: []string{"Canada", "Mexico"},
			Values: []float64{3, 1},
			Hole:   0.4,
			Marker: &charts.Marker{Colors: []string{"#FFC300", "#FF5733"}},
		}},
	}
	var buf bytes.Buffer
	require.NoError(t, PNG(&buf, fig, DefaultOptions()))
	img, err := png.Decode(&buf)
	require.NoError(t, err)

	// The donut centre stays background coloured.
	w, h := 1200.0, 700.0
	cx, cy := int(w*0.4), int((h+marginTop)/2)
	r, g, b, _ := img.At(cx, cy).RGBA()
	assert.Equal(t, []uint32{0, 0, 0}, []uint32{r, g, b})
}

func TestPNG_EmptyFigure(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PNG(&buf, charts.Figure{Kind: charts.KindBar}, Options{Width: 200, Height: 100}))
	assert.NotZero(t, buf.Len())
}

func TestPNG_Unsupported(t *testing.T) {
	for _, k := range []charts.Kind{charts.KindScatter, charts.KindTreemap, charts.KindBox} {
		err := PNG(&bytes.Buffer{}, charts.Figure{Kind: k}, DefaultOptions())
		assert.True(t, errors.Is(err, ErrUnsupportedKind), "kind %s", k)
	}
}

func TestCompact(t *testing.T) {
	assert.Equal(t, "950", compact(950))
	assert.Equal(t, "1.5k", compact(1500))
	assert.Equal(t, "-2.0M", compact(-2e6))
	assert.Equal(t, "3.0B", compact(3e9))
}

func TestHexColor(t *testing.T) {
	r, g, b, _ := hexColor("#C70039").RGBA()
	assert.Equal(t, []uint32{0xC7, 0x00, 0x39}, []uint32{r >> 8, g >> 8, b >> 8})
	assert.Equal(t, gold, hexColor("bogus"))
}
