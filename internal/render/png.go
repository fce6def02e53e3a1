package render

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/fogleman/gg"

	"github.com/KaramelBytes/findash/internal/charts"
)

// ErrUnsupportedKind is returned for figure kinds that have no static rendering.
var ErrUnsupportedKind = errors.New("unsupported figure kind")

// Options controls the PNG canvas.
type Options struct {
	Width    int
	Height   int
	FontPath string  // optional TrueType font; the built-in face is used otherwise
	FontSize float64 // points, used with FontPath
}

// DefaultOptions returns an 1200x700 canvas with the built-in font.
func DefaultOptions() Options {
	return Options{Width: 1200, Height: 700, FontSize: 14}
}

var (
	background = color.Black
	gold       = color.RGBA{255, 215, 0, 255}
	grid       = color.RGBA{68, 68, 68, 255}
)

// fontPaths are probed when Options.FontPath is empty.
var fontPaths = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
	"/System/Library/Fonts/Supplemental/Arial.ttf",
}

// Supported reports whether PNG can draw figures of kind k.
func Supported(k charts.Kind) bool {
	switch k {
	case charts.KindBar, charts.KindGroupedBar, charts.KindPie:
		return true
	}
	return false
}

// PNG draws fig on a black canvas with gold text and writes it to w as PNG.
func PNG(w io.Writer, fig charts.Figure, opt Options) error {
	if !Supported(fig.Kind) {
		return fmt.Errorf("%w: %s", ErrUnsupportedKind, fig.Kind)
	}
	if opt.Width <= 0 || opt.Height <= 0 {
		d := DefaultOptions()
		opt.Width, opt.Height = d.Width, d.Height
	}
	if opt.FontSize <= 0 {
		opt.FontSize = DefaultOptions().FontSize
	}
	dc := gg.NewContext(opt.Width, opt.Height)
	dc.SetColor(background)
	dc.Clear()
	loadFont(dc, opt)

	dc.SetColor(gold)
	dc.DrawStringAnchored(fig.Title, float64(opt.Width)/2, 30, 0.5, 0.5)

	switch fig.Kind {
	case charts.KindPie:
		drawPie(dc, fig)
	default:
		drawBars(dc, fig)
	}
	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func loadFont(dc *gg.Context, opt Options) {
	paths := fontPaths
	if opt.FontPath != "" {
		paths = []string{opt.FontPath}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := dc.LoadFontFace(p, opt.FontSize); err == nil {
			return
		}
	}
}

func hexColor(s string) color.Color {
	if len(s) != 7 || s[0] != '#' {
		return gold
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return gold
	}
	return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 255}
}

func traceColor(t charts.Trace, i int) color.Color {
	if t.Marker != nil && t.Marker.Color != "" {
		return hexColor(t.Marker.Color)
	}
	return hexColor(charts.Palette[i%len(charts.Palette)])
}

const (
	marginLeft   = 90.0
	marginRight  = 30.0
	marginTop    = 70.0
	marginBottom = 90.0
)

// drawBars draws one group of bars per category, one bar per trace.
func drawBars(dc *gg.Context, fig charts.Figure) {
	w, h := float64(dc.Width()), float64(dc.Height())
	if len(fig.Data) == 0 || len(fig.Data[0].Categories()) == 0 {
		dc.DrawStringAnchored("no data", w/2, h/2, 0.5, 0.5)
		return
	}
	cats := fig.Data[0].Categories()
	lo, hi := 0.0, 0.0
	for _, t := range fig.Data {
		for _, v := range t.Y {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	if hi == lo {
		hi = lo + 1
	}
	plotW := w - marginLeft - marginRight
	plotH := h - marginTop - marginBottom
	yOf := func(v float64) float64 { return marginTop + (hi-v)/(hi-lo)*plotH }

	dc.SetLineWidth(1)
	for i := 0; i <= 5; i++ {
		v := lo + (hi-lo)*float64(i)/5
		y := yOf(v)
		dc.SetColor(grid)
		dc.DrawLine(marginLeft, y, w-marginRight, y)
		dc.Stroke()
		dc.SetColor(gold)
		dc.DrawStringAnchored(compact(v), marginLeft-8, y, 1, 0.5)
	}

	slot := plotW / float64(len(cats))
	barW := slot * 0.8 / float64(len(fig.Data))
	zero := yOf(0)
	for ti, t := range fig.Data {
		dc.SetColor(traceColor(t, ti))
		for ci := range cats {
			if ci >= len(t.Y) {
				break
			}
			x := marginLeft + slot*float64(ci) + slot*0.1 + barW*float64(ti)
			y := yOf(t.Y[ci])
			dc.DrawRectangle(x, math.Min(y, zero), barW, math.Abs(zero-y))
			dc.Fill()
		}
	}

	// Thin out category labels so they do not overlap.
	step := 1
	if lw, _ := dc.MeasureString("2006-01-02"); lw > 0 {
		step = max(1, int(math.Ceil((lw+10)/slot)))
	}
	dc.SetColor(gold)
	for ci, c := range cats {
		if ci%step != 0 {
			continue
		}
		dc.DrawStringAnchored(c, marginLeft+slot*(float64(ci)+0.5), h-marginBottom+20, 0.5, 0.5)
	}
	if fig.Layout.XAxis != nil {
		dc.DrawStringAnchored(fig.Layout.XAxis.Title.Text, marginLeft+plotW/2, h-marginBottom+50, 0.5, 0.5)
	}
	if len(fig.Data) > 1 {
		x := w - marginRight - 160
		for ti, t := range fig.Data {
			y := marginTop - 20 + float64(ti)*18
			dc.SetColor(traceColor(t, ti))
			dc.DrawRectangle(x, y-6, 12, 12)
			dc.Fill()
			dc.SetColor(gold)
			dc.DrawStringAnchored(t.Name, x+18, y, 0, 0.5)
		}
	}
}

// drawPie draws the first trace as a pie, or a donut when Hole is set.
func drawPie(dc *gg.Context, fig charts.Figure) {
	w, h := float64(dc.Width()), float64(dc.Height())
	var t charts.Trace
	if len(fig.Data) > 0 {
		t = fig.Data[0]
	}
	total := 0.0
	for _, v := range t.Values {
		if v > 0 {
			total += v
		}
	}
	if total == 0 {
		dc.DrawStringAnchored("no data", w/2, h/2, 0.5, 0.5)
		return
	}
	colors := t.Marker.ColorList()
	colorAt := func(i int) color.Color {
		if i < len(colors) {
			return hexColor(colors[i])
		}
		return hexColor(charts.Palette[i%len(charts.Palette)])
	}
	cx, cy := w*0.4, (h+marginTop)/2
	r := math.Min(w*0.35, (h-marginTop)/2-20)
	angle := -math.Pi / 2
	for i, v := range t.Values {
		if v <= 0 {
			continue
		}
		sweep := v / total * 2 * math.Pi
		dc.SetColor(colorAt(i))
		dc.MoveTo(cx, cy)
		dc.DrawArc(cx, cy, r, angle, angle+sweep)
		dc.ClosePath()
		dc.Fill()
		angle += sweep
	}
	if t.Hole > 0 {
		dc.SetColor(background)
		dc.DrawCircle(cx, cy, r*t.Hole)
		dc.Fill()
	}

	lx := cx + r + 60
	for i, label := range t.Labels {
		if i >= len(t.Values) {
			break
		}
		y := marginTop + 20 + float64(i)*22
		dc.SetColor(colorAt(i))
		dc.DrawRectangle(lx, y-7, 14, 14)
		dc.Fill()
		dc.SetColor(gold)
		pct := math.Max(t.Values[i], 0) / total * 100
		dc.DrawStringAnchored(fmt.Sprintf("%s  %.1f%%", label, pct), lx+22, y, 0, 0.5)
	}
}

// compact formats axis ticks as 1.2k, 3.4M and so on.
func compact(v float64) string {
	a := math.Abs(v)
	switch {
	case a >= 1e9:
		return strconv.FormatFloat(v/1e9, 'f', 1, 64) + "B"
	case a >= 1e6:
		return strconv.FormatFloat(v/1e6, 'f', 1, 64) + "M"
	case a >= 1e3:
		return strconv.FormatFloat(v/1e3, 'f', 1, 64) + "k"
	default:
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
}
