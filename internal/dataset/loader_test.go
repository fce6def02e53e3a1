package dataset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestLoadCSV_FormattedCurrency(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "sales.csv")
	content := "Segment, Discount Band , Gross Sales , Discounts ,  Sales ,Date\n" +
		"Government,,\"$32,370.00 \", $-   ,\" $32,370.00 \",1/1/2014\n" +
		"Midmarket,Low,\" $1,000.00 \",\" $(25.00)\", $975.00 ,2014-06-01\n" +
		"Channel Partners,High,12\n"
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))

	ds, err := Load(p, DefaultLoadOptions())
	require.NoError(t, err)
	assert.Equal(t, "sales.csv", ds.Name)
	assert.Equal(t, []string{"Segment", " Discount Band ", " Gross Sales ", " Discounts ", "  Sales ", "Date"}, ds.Columns, "labels are not trimmed by Load")
	require.Equal(t, 3, ds.Len())

	gross := ds.Column(ColumnGrossSales)
	assert.Equal(t, NumberCell(32370), gross[0])
	assert.Equal(t, NumberCell(1000), gross[1])
	assert.Equal(t, NumberCell(12), gross[2])

	disc := ds.Column(ColumnDiscounts)
	assert.Equal(t, NumberCell(0), disc[0], "accounting dash reads as zero")
	assert.Equal(t, NumberCell(-25), disc[1])
	assert.True(t, disc[2].IsNull(), "ragged row padded with null")

	band := ds.Column(ColumnDiscountBand)
	assert.True(t, band[0].IsNull())
	assert.Equal(t, TextCell("Low"), band[1])

	dates := ds.Column(ColumnDate)
	assert.Equal(t, KindTime, dates[0].Kind)
	assert.Equal(t, time.Date(2014, time.January, 1, 0, 0, 0, 0, time.UTC), dates[0].Time)
	assert.Equal(t, time.Date(2014, time.June, 1, 0, 0, 0, 0, time.UTC), dates[1].Time)
}

func TestLoadCSV_ExtraCellsGetUnnamedLabels(t *testing.T) {
	p := filepath.Join(t.TempDir(), "wide.tsv")
	require.NoError(t, os.WriteFile(p, []byte("a\tb\n1\t2\t3\n"), 0o644))
	ds, err := Load(p, DefaultLoadOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "Unnamed: 2"}, ds.Columns)
	assert.Equal(t, NumberCell(3), ds.Rows[0][2])
}

func TestLoadXLSX_SheetSelection(t *testing.T) {
	f := excelize.NewFile()
	first := f.GetSheetName(0)
	_, err := f.NewSheet("Data")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow(first, "A1", &[]any{"ignored"}))
	require.NoError(t, f.SetSheetRow("Data", "A1", &[]any{"Country", "Sales"}))
	require.NoError(t, f.SetSheetRow("Data", "A2", &[]any{"Canada", 12.5}))
	p := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.SaveAs(p))
	require.NoError(t, f.Close())

	byName, err := Load(p, LoadOptions{Sheet: "data"})
	require.NoError(t, err)
	assert.Equal(t, "book.xlsx (sheet: Data)", byName.Name)
	assert.Equal(t, []string{"Country", "Sales"}, byName.Columns)
	assert.Equal(t, NumberCell(12.5), byName.Rows[0][1])

	byIndex, err := Load(p, LoadOptions{SheetIndex: 2})
	require.NoError(t, err)
	assert.Equal(t, byName.Columns, byIndex.Columns)

	_, err = Load(p, LoadOptions{Sheet: "Missing"})
	var mal *MalformedInputError
	require.ErrorAs(t, err, &mal)
	assert.Contains(t, mal.Error(), "available sheets")

	_, err = Load(p, LoadOptions{SheetIndex: 9})
	require.ErrorAs(t, err, &mal)
}

func TestLoad_Malformed(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "broken.xlsx")
	require.NoError(t, os.WriteFile(garbage, []byte("this is not a zip archive"), 0o644))
	_, err := Load(garbage, DefaultLoadOptions())
	var mal *MalformedInputError
	require.ErrorAs(t, err, &mal)

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = Load(empty, DefaultLoadOptions())
	require.ErrorAs(t, err, &mal)
	assert.Equal(t, "no header row", mal.Reason)

	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))
	_, err = Load(other, DefaultLoadOptions())
	require.ErrorAs(t, err, &mal)
	assert.Contains(t, mal.Reason, "unsupported format")
}

func TestParseNumeric(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1618.5", 1618.5, true},
		{" $1,618.50 ", 1618.5, true},
		{"$1,618", 1618, true},
		{" $-   ", 0, true},
		{"(250.00)", -250, true},
		{"-$3.25", -3.25, true},
		{"1.000,5", 1000.5, true},
		{"1,234,567", 1234567, true},
		{"4.1E3", 4100, true},
		{"Carretera", 0, false},
		{"-", 0, false},
		{"NaN", 0, false},
		{"2014-01-01", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseNumeric(tc.in, LoadOptions{})
		assert.Equal(t, tc.ok, ok, "parseNumeric(%q)", tc.in)
		if tc.ok {
			assert.InDelta(t, tc.want, got, 1e-9, "parseNumeric(%q)", tc.in)
		}
	}
}
