package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies what a Cell holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindText
	KindNumber
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindTime:
		return "time"
	default:
		return "null"
	}
}

// Cell is a single value of a Dataset row.
type Cell struct {
	Kind Kind
	Str  string
	Num  float64
	Time time.Time
}

func NullCell() Cell { return Cell{} }
func TextCell(s string) Cell { return Cell{Kind: KindText, Str: s} }
func NumberCell(f float64) Cell { return Cell{Kind: KindNumber, Num: f} }
func TimeCell(t time.Time) Cell { return Cell{Kind: KindTime, Time: t} }
func (c Cell) IsNull() bool { return c.Kind == KindNull }
func (c Cell) IsNumber() bool { return c.Kind == KindNumber }
func (c Cell) Finite() (float64, bool) {
	if c.Kind != KindNumber || math.IsNaN(c.Num) || math.IsInf(c.Num, 0) {
		return 0, false
	}
	return c.Num, true
}

// Float returns the numeric value of the cell. Nulls and text yield NaN.
func (c Cell) Float() float64 {
	if c.Kind != KindNumber {
		return math.NaN()
	}
	return c.Num
}

// String renders the cell the way the summary tables and CSV export show it.
// NaN renders as the empty string.
func (c Cell) String() string {
	switch c.Kind {
	case KindText:
		return c.Str
	case KindNumber:
		if math.IsNaN(c.Num) {
			return ""
		}
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	case KindTime:
		if c.Time.Hour() == 0 && c.Time.Minute() == 0 && c.Time.Second() == 0 {
			return c.Time.Format("2006-01-02")
		}
		return c.Time.Format(time.RFC3339)
	default:
		return ""
	}
}

// Dataset is a row-oriented table with ordered column labels.
// Every row has exactly len(Columns) cells.
type Dataset struct {
	// Name is the base name of the source file (plus sheet, when one was chosen).
	Name string
	// Source is the path the dataset was loaded from.
	Source  string
	Columns []string
	Rows    [][]Cell
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// Index returns the position of the first column whose label matches name once
// surrounding whitespace is ignored on both sides, or -1.
func (d *Dataset) Index(name string) int {
	want := strings.TrimSpace(name)
	for i, c := range d.Columns {
		if strings.TrimSpace(c) == want {
			return i
		}
	}
	return -1
}

// Column returns a copy of the cells of the named column, or nil when absent.
func (d *Dataset) Column(name string) []Cell {
	idx := d.Index(name)
	if idx < 0 {
		return nil
	}
	out := make([]Cell, len(d.Rows))
	for i, row := range d.Rows {
		out[i] = row[idx]
	}
	return out
}

// Record is the typed view of one sales line of the Financial Sample layout.
// Columns absent from the source leave the zero value (NaN for DiscountPercentage).
type Record struct {
	Date               time.Time
	Country            string
	Product            string
	Segment            string
	DiscountBand       string
	UnitsSold          float64
	ManufacturingPrice float64
	SalePrice          float64
	GrossSales         float64
	Discounts          float64
	Sales              float64
	COGS               float64
	Profit             float64
	DiscountPercentage float64
	MonthNumber        int
	MonthName          string
	Year               int
}

// Records builds the typed view of every row, in row order.
func (d *Dataset) Records() []Record {
	idx := d.Index
	var (
		iDate    = idx(ColumnDate)
		iCountry = idx(ColumnCountry)
		iProduct = idx(ColumnProduct)
		iSegment = idx(ColumnSegment)
		iBand    = idx(ColumnDiscountBand)
		iUnits   = idx(ColumnUnitsSold)
		iMfg     = idx(ColumnManufacturingPrice)
		iPrice   = idx(ColumnSalePrice)
		iGross   = idx(ColumnGrossSales)
		iDisc    = idx(ColumnDiscounts)
		iSales   = idx(ColumnSales)
		iCOGS    = idx(ColumnCOGS)
		iProfit  = idx(ColumnProfit)
		iPct     = idx(ColumnDiscountPercentage)
		iMonthN  = idx(ColumnMonthNumber)
		iMonth   = idx(ColumnMonthName)
		iYear    = idx(ColumnYear)
	)
	out := make([]Record, 0, len(d.Rows))
	for _, row := range d.Rows {
		rec := Record{
			Date:               timeAt(row, iDate),
			Country:            textAt(row, iCountry),
			Product:            textAt(row, iProduct),
			Segment:            textAt(row, iSegment),
			DiscountBand:       textAt(row, iBand),
			UnitsSold:          numAt(row, iUnits),
			ManufacturingPrice: numAt(row, iMfg),
			SalePrice:          numAt(row, iPrice),
			GrossSales:         numAt(row, iGross),
			Discounts:          numAt(row, iDisc),
			Sales:              numAt(row, iSales),
			COGS:               numAt(row, iCOGS),
			Profit:             numAt(row, iProfit),
			DiscountPercentage: math.NaN(),
			MonthNumber:        int(numAt(row, iMonthN)),
			MonthName:          strings.TrimSpace(textAt(row, iMonth)),
			Year:               int(numAt(row, iYear)),
		}
		if iPct >= 0 {
			rec.DiscountPercentage = row[iPct].Float()
		}
		out = append(out, rec)
	}
	return out
}

func textAt(row []Cell, i int) string {
	if i < 0 {
		return ""
	}
	return row[i].String()
}

func numAt(row []Cell, i int) float64 {
	if i < 0 {
		return 0
	}
	v, ok := row[i].Finite()
	if !ok {
		return 0
	}
	return v
}

func timeAt(row []Cell, i int) time.Time {
	if i < 0 || row[i].Kind != KindTime {
		return time.Time{}
	}
	return row[i].Time
}
