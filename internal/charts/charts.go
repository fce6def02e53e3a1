package charts

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/findash/internal/dataset"
)

// Palette is the discrete colour sequence shared by every figure: gold, orange and red shades.
var Palette = []string{"#FFC300", "#FF5733", "#C70039", "#900C3F", "#581845"}

// ErrUnknownFigure is returned by Lookup when no figure has the requested ID.
var ErrUnknownFigure = errors.New("unknown figure")

// Kind names the chart type of a Figure.
type Kind string

const (
	KindBar        Kind = "bar"
	KindGroupedBar Kind = "grouped-bar"
	KindScatter    Kind = "scatter"
	KindPie        Kind = "pie"
	KindTreemap    Kind = "treemap"
	KindBox        Kind = "box"
)

// Figure IDs in page order.
const (
	SalesTrend   = "sales-trend"
	SalesProfit  = "sales-profit"
	UnitsProfit  = "units-profit"
	CountryShare = "country-share"
	GrossTreemap = "gross-treemap"
	ProfitByBand = "profit-by-band"
)

// Figure is a chart description that serializes to the data/layout pair
// expected by Plotly.newPlot.
type Figure struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Kind   Kind    `json:"kind"`
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Trace is one data series. X holds []string for category axes and
// []float64 for numeric ones.
type Trace struct {
	Type         string    `json:"type"`
	Name         string    `json:"name,omitempty"`
	Mode         string    `json:"mode,omitempty"`
	X            any       `json:"x,omitempty"`
	Y            []float64 `json:"y,omitempty"`
	IDs          []string  `json:"ids,omitempty"`
	Labels       []string  `json:"labels,omitempty"`
	Parents      []string  `json:"parents,omitempty"`
	Values       []float64 `json:"values,omitempty"`
	Hole         float64   `json:"hole,omitempty"`
	BranchValues string    `json:"branchvalues,omitempty"`
	Marker       *Marker   `json:"marker,omitempty"`
}

// Categories returns X as category labels, or nil for numeric axes.
func (t Trace) Categories() []string {
	s, _ := t.X.([]string)
	return s
}

// Marker styles the points, bars or slices of a Trace. Colors holds
// []string for discrete colours and []float64 for a continuous scale.
type Marker struct {
	Color      string    `json:"color,omitempty"`
	Colors     any       `json:"colors,omitempty"`
	ColorScale string    `json:"colorscale,omitempty"`
	Size       []float64 `json:"size,omitempty"`
	SizeMode   string    `json:"sizemode,omitempty"`
	SizeRef    float64   `json:"sizeref,omitempty"`
}

// ColorList returns the discrete colours of the marker, if any.
func (m *Marker) ColorList() []string {
	if m == nil {
		return nil
	}
	s, _ := m.Colors.([]string)
	return s
}

type Layout struct {
	Title   Text   `json:"title"`
	BarMode string `json:"barmode,omitempty"`
	XAxis   *Axis  `json:"xaxis,omitempty"`
	YAxis   *Axis  `json:"yaxis,omitempty"`
	Legend  *Axis  `json:"legend,omitempty"`
}

type Axis struct {
	Title Text `json:"title"`
}

type Text struct {
	Text string `json:"text"`
}

// maxMarker is the diameter in pixels of the largest scatter marker.
const maxMarker = 40

// Build computes every dashboard figure from a prepared dataset, in page order.
func Build(ds *dataset.Dataset) []Figure {
	recs := ds.Records()
	return []Figure{
		salesTrend(recs),
		salesProfit(recs),
		unitsProfit(recs),
		countryShare(recs),
		grossTreemap(recs),
		profitByBand(recs),
	}
}

// Lookup returns the figure with the given ID.
func Lookup(figs []Figure, id string) (Figure, error) {
	for _, f := range figs {
		if f.ID == id {
			return f, nil
		}
	}
	return Figure{}, fmt.Errorf("%w: %q", ErrUnknownFigure, id)
}

func color(i int) string { return Palette[i%len(Palette)] }

func axes(x, y string) (*Axis, *Axis) {
	return &Axis{Title: Text{x}}, &Axis{Title: Text{y}}
}

// sumByDate adds up the values picked for each dated record, dates ascending.
// Records without a date are skipped.
func sumByDate(recs []dataset.Record, picks ...func(dataset.Record) float64) ([]string, [][]float64) {
	sums := map[time.Time][]float64{}
	var dates []time.Time
	for _, r := range recs {
		if r.Date.IsZero() {
			continue
		}
		s, ok := sums[r.Date]
		if !ok {
			s = make([]float64, len(picks))
			dates = append(dates, r.Date)
		}
		for i, pick := range picks {
			s[i] += pick(r)
		}
		sums[r.Date] = s
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	labels := make([]string, len(dates))
	out := make([][]float64, len(picks))
	for i := range out {
		out[i] = make([]float64, len(dates))
	}
	for j, d := range dates {
		labels[j] = dataset.TimeCell(d).String()
		for i := range picks {
			out[i][j] = sums[d][i]
		}
	}
	return labels, out
}

// grouped keeps keys in first-appearance order.
type grouped struct {
	keys []string
	idx  map[string]int
}

func (g *grouped) at(key string) int {
	if g.idx == nil {
		g.idx = map[string]int{}
	}
	i, ok := g.idx[key]
	if !ok {
		i = len(g.keys)
		g.idx[key] = i
		g.keys = append(g.keys, key)
	}
	return i
}

func sales(r dataset.Record) float64  { return r.Sales }
func profit(r dataset.Record) float64 { return r.Profit }

func salesTrend(recs []dataset.Record) Figure {
	dates, sums := sumByDate(recs, sales)
	x, y := axes(dataset.ColumnDate, dataset.ColumnSales)
	return Figure{
		ID:    SalesTrend,
		Title: "Trend of Sales Over Time",
		Kind:  KindBar,
		Data: []Trace{{
			Type:   "bar",
			X:      dates,
			Y:      sums[0],
			Marker: &Marker{Color: color(0)},
		}},
		Layout: Layout{Title: Text{"Trend of Sales Over Time"}, XAxis: x, YAxis: y},
	}
}

func salesProfit(recs []dataset.Record) Figure {
	dates, sums := sumByDate(recs, sales, profit)
	x, y := axes(dataset.ColumnDate, "value")
	names := []string{dataset.ColumnSales, dataset.ColumnProfit}
	data := make([]Trace, len(names))
	for i, name := range names {
		data[i] = Trace{Type: "bar", Name: name, X: dates, Y: sums[i], Marker: &Marker{Color: color(i)}}
	}
	return Figure{
		ID:     SalesProfit,
		Title:  "Comparison of Sales and Profit Over Time",
		Kind:   KindGroupedBar,
		Data:   data,
		Layout: Layout{Title: Text{"Comparison of Sales and Profit Over Time"}, BarMode: "group", XAxis: x, YAxis: y, Legend: &Axis{Title: Text{"variable"}}},
	}
}

func unitsProfit(recs []dataset.Record) Figure {
	var segs grouped
	var data []Trace
	maxSize := 0.0
	for _, r := range recs {
		i := segs.at(r.Segment)
		if i == len(data) {
			data = append(data, Trace{
				Type:   "scatter",
				Mode:   "markers",
				Name:   r.Segment,
				X:      []float64{},
				Marker: &Marker{Color: color(i), SizeMode: "area"},
			})
		}
		t := &data[i]
		t.X = append(t.X.([]float64), r.UnitsSold)
		t.Y = append(t.Y, r.Profit)
		size := max(r.GrossSales, 0)
		t.Marker.Size = append(t.Marker.Size, size)
		maxSize = max(maxSize, size)
	}
	if maxSize > 0 {
		ref := 2 * maxSize / (maxMarker * maxMarker)
		for i := range data {
			data[i].Marker.SizeRef = ref
		}
	}
	x, y := axes(dataset.ColumnUnitsSold, dataset.ColumnProfit)
	return Figure{
		ID:     UnitsProfit,
		Title:  "Relationship between Units Sold and Profit",
		Kind:   KindScatter,
		Data:   data,
		Layout: Layout{Title: Text{"Relationship between Units Sold and Profit"}, XAxis: x, YAxis: y, Legend: &Axis{Title: Text{dataset.ColumnSegment}}},
	}
}

func countryShare(recs []dataset.Record) Figure {
	var countries grouped
	var values []float64
	for _, r := range recs {
		i := countries.at(r.Country)
		if i == len(values) {
			values = append(values, 0)
		}
		values[i] += r.Sales
	}
	colors := make([]string, len(values))
	for i := range colors {
		colors[i] = color(i)
	}
	return Figure{
		ID:    CountryShare,
		Title: "Percentage Share of Sales by Country",
		Kind:  KindPie,
		Data: []Trace{{
			Type:   "pie",
			Labels: countries.keys,
			Values: values,
			Hole:   0.4,
			Marker: &Marker{Colors: colors},
		}},
		Layout: Layout{Title: Text{"Percentage Share of Sales by Country"}},
	}
}

// treemapID escapes backslashes and slashes so that joined leaf IDs never collide
// with each other or with a root ID.
var treemapID = strings.NewReplacer(`\`, `\\`, "/", `\/`)

type leafKey struct{ country, product string }

func grossTreemap(recs []dataset.Record) Figure {
	var roots grouped
	leafIdx := map[leafKey]int{}
	var rootVals, leafVals []float64
	var leafIDs, leafLabels, leafParents []string
	for _, r := range recs {
		ri := roots.at(r.Country)
		if ri == len(rootVals) {
			rootVals = append(rootVals, 0)
		}
		rootVals[ri] += r.GrossSales

		k := leafKey{r.Country, r.Product}
		li, ok := leafIdx[k]
		if !ok {
			li = len(leafVals)
			leafIdx[k] = li
			leafVals = append(leafVals, 0)
			leafIDs = append(leafIDs, treemapID.Replace(r.Country)+"/"+treemapID.Replace(r.Product))
			leafLabels = append(leafLabels, r.Product)
			leafParents = append(leafParents, treemapID.Replace(r.Country))
		}
		leafVals[li] += r.GrossSales
	}
	rootIDs := make([]string, len(roots.keys))
	for i, c := range roots.keys {
		rootIDs[i] = treemapID.Replace(c)
	}
	ids := append(leafIDs, rootIDs...)
	labels := append(leafLabels, roots.keys...)
	parents := append(leafParents, make([]string, len(roots.keys))...)
	values := append(leafVals, rootVals...)
	return Figure{
		ID:    GrossTreemap,
		Title: "Treemap of Gross Sales by Country and Product",
		Kind:  KindTreemap,
		Data: []Trace{{
			Type:         "treemap",
			IDs:          ids,
			Labels:       labels,
			Parents:      parents,
			Values:       values,
			BranchValues: "total",
			Marker:       &Marker{Colors: values, ColorScale: "Reds"},
		}},
		Layout: Layout{Title: Text{"Treemap of Gross Sales by Country and Product"}},
	}
}

func profitByBand(recs []dataset.Record) Figure {
	var bands grouped
	var data []Trace
	for _, r := range recs {
		i := bands.at(r.DiscountBand)
		if i == len(data) {
			data = append(data, Trace{Type: "box", Name: r.DiscountBand, Marker: &Marker{Color: color(i)}})
		}
		data[i].Y = append(data[i].Y, r.Profit)
	}
	x, y := axes(dataset.ColumnDiscountBand, dataset.ColumnProfit)
	return Figure{
		ID:     ProfitByBand,
		Title:  "Profit Distribution by Discount Band",
		Kind:   KindBox,
		Data:   data,
		Layout: Layout{Title: Text{"Profit Distribution by Discount Band"}, XAxis: x, YAxis: y, Legend: &Axis{Title: Text{dataset.ColumnDiscountBand}}},
	}
}
