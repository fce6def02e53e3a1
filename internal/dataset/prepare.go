package dataset

import (
	"fmt"
	"math"
	"strings"
)

// Column labels of the Financial Sample layout, without surrounding whitespace.
const (
	ColumnSegment            = "Segment"
	ColumnCountry            = "Country"
	ColumnProduct            = "Product"
	ColumnDiscountBand       = "Discount Band"
	ColumnUnitsSold          = "Units Sold"
	ColumnManufacturingPrice = "Manufacturing Price"
	ColumnSalePrice          = "Sale Price"
	ColumnGrossSales         = "Gross Sales"
	ColumnDiscounts          = "Discounts"
	ColumnSales              = "Sales"
	ColumnCOGS               = "COGS"
	ColumnProfit             = "Profit"
	ColumnDate               = "Date"
	ColumnMonthNumber        = "Month Number"
	ColumnMonthName          = "Month Name"
	ColumnYear               = "Year"

	// ColumnDiscountPercentage is derived during preparation.
	ColumnDiscountPercentage = "Discount Percentage"
)

// NoDiscount replaces missing Discount Band values.
const NoDiscount = "No Discount"

// Prepare loads the file at path and applies, in order: the Discount Band
// null-fill, the Discount Percentage derivation and the label trim.
func Prepare(path string, opt LoadOptions) (*Dataset, error) {
	ds, err := Load(path, opt)
	if err != nil {
		return nil, err
	}
	if err := FillMissing(ds, ColumnDiscountBand, NoDiscount); err != nil {
		return nil, err
	}
	if err := DeriveRatio(ds, ColumnDiscountPercentage, ColumnDiscounts, ColumnGrossSales, 100); err != nil {
		return nil, err
	}
	TrimLabels(ds)
	return ds, nil
}

// FillMissing replaces every null cell of column with value. Non-null cells,
// including whitespace-only text, pass through unchanged.
func FillMissing(ds *Dataset, column, value string) error {
	idx := ds.Index(column)
	if idx < 0 {
		return missingColumn(ds, column)
	}
	for _, row := range ds.Rows {
		if row[idx].IsNull() {
			row[idx] = TextCell(value)
		}
	}
	return nil
}

// DeriveRatio sets column target to numerator/denominator*scale for every row,
// overwriting target when it already exists and appending it otherwise. Nulls in
// either input and zero denominators yield NaN; no rounding is applied.
func DeriveRatio(ds *Dataset, target, numerator, denominator string, scale float64) error {
	ni := ds.Index(numerator)
	if ni < 0 {
		return missingColumn(ds, numerator)
	}
	di := ds.Index(denominator)
	if di < 0 {
		return missingColumn(ds, denominator)
	}
	values := make([]float64, len(ds.Rows))
	for r, row := range ds.Rows {
		n, err := numericInput(ds, row, ni, r)
		if err != nil {
			return err
		}
		d, err := numericInput(ds, row, di, r)
		if err != nil {
			return err
		}
		if d == 0 {
			values[r] = math.NaN()
			continue
		}
		values[r] = n / d * scale
	}

	if ti := ds.Index(target); ti >= 0 {
		for r := range ds.Rows {
			ds.Rows[r][ti] = NumberCell(values[r])
		}
		return nil
	}
	ds.Columns = append(ds.Columns, target)
	for r := range ds.Rows {
		ds.Rows[r] = append(ds.Rows[r], NumberCell(values[r]))
	}
	return nil
}

// TrimLabels strips leading and trailing whitespace from every column label.
// Cell values are left alone.
func TrimLabels(ds *Dataset) {
	for i, c := range ds.Columns {
		ds.Columns[i] = strings.TrimSpace(c)
	}
}

func numericInput(ds *Dataset, row []Cell, col, r int) (float64, error) {
	c := row[col]
	switch c.Kind {
	case KindNull:
		return math.NaN(), nil
	case KindNumber:
		return c.Num, nil
	default:
		return 0, &MalformedInputError{
			Path:   ds.Source,
			Column: strings.TrimSpace(ds.Columns[col]),
			Reason: fmt.Sprintf("row %d: non-numeric value %q", r+1, c.String()),
		}
	}
}

func missingColumn(ds *Dataset, column string) error {
	return &MalformedInputError{Path: ds.Source, Column: column, Reason: "required column not found"}
}
