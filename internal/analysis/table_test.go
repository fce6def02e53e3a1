package analysis

import (
	"math"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/findash/internal/dataset"
)

var (
	segments  = []string{"Government", "Government", "Government", "Midmarket", "Midmarket", "Midmarket", "Government", "Midmarket", "Government", "Midmarket"}
	countries = []string{"Canada", "Canada", "France", "Canada", "France", "Canada", "Mexico", "France", "Canada", "Mexico"}
	units     = []float64{10, 11, 9.5, 10.5, 9.8, 10.2, 8.8, 9.7, 50, 10.1}
	pcts      = []float64{5, 2, math.NaN(), 7, 1, 4, 3, 6, 2, 5}
)

func gross(i int) float64 { return units[i] * 100 }

// fixture mirrors a prepared Financial Sample: trimmed labels and a derived
// Discount Percentage holding one NaN.
func fixture() *dataset.Dataset {
	ds := &dataset.Dataset{
		Name:    "Financial Sample.xlsx",
		Columns: []string{"Segment", "Country", "Units Sold", "Gross Sales", "Date", "Discount Percentage"},
	}
	for i := range units {
		ds.Rows = append(ds.Rows, []dataset.Cell{
			dataset.TextCell(segments[i]),
			dataset.TextCell(countries[i]),
			dataset.NumberCell(units[i]),
			dataset.NumberCell(gross(i)),
			dataset.TimeCell(time.Date(2014, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC)),
			dataset.NumberCell(pcts[i]),
		})
	}
	return ds
}

func TestSummarizeAndMarkdown(t *testing.T) {
	opt := DefaultOptions()
	opt.MaxRows = 9
	opt.SampleRows = 3
	opt.GroupBy = []string{"Segment"}
	opt.Correlations = true
	opt.CorrPerGroup = true

	rep := Summarize(fixture(), opt)
	if rep.Name != "Financial Sample.xlsx" {
		t.Fatalf("report name = %q", rep.Name)
	}
	if rep.Rows != 10 {
		t.Fatalf("rows = %d, want 10", rep.Rows)
	}
	if rep.Processed != 9 {
		t.Fatalf("processed = %d, want 9", rep.Processed)
	}
	if len(rep.Warnings) != 1 || rep.Warnings[0] != "processed only 9/10 rows due to MaxRows" {
		t.Fatalf("warnings = %#v", rep.Warnings)
	}
	if len(rep.Samples) != 3 {
		t.Fatalf("samples = %d, want 3", len(rep.Samples))
	}
	expectFirst := []string{"Government", "Canada", "10", "1000", "2014-01-01", "5"}
	if !equalStrings(rep.Samples[0], expectFirst) {
		t.Fatalf("first sample = %#v, want %#v", rep.Samples[0], expectFirst)
	}
	if rep.Samples[2][5] != "" {
		t.Fatalf("NaN sample = %q, want empty", rep.Samples[2][5])
	}

	processedUnits := units[:9]
	u := columnByName(t, rep, "Units Sold")
	if u.Kind != KindNumeric {
		t.Fatalf("units kind = %q", u.Kind)
	}
	checkStats(t, u, processedUnits)
	count, maxZ := robustOutlierStats(processedUnits, 3.5)
	if count == 0 {
		t.Fatalf("fixture should contain an outlier")
	}
	if u.OutliersCount != count {
		t.Fatalf("units outliers = %d, want %d", u.OutliersCount, count)
	}
	if !almostEqual(u.OutliersMaxAbsZ, maxZ, 1e-6) {
		t.Fatalf("units max |z| = %f, want %f", u.OutliersMaxAbsZ, maxZ)
	}

	pct := columnByName(t, rep, "Discount Percentage")
	if pct.Missing != 1 {
		t.Fatalf("NaN should count as missing: %#v", pct)
	}
	checkStats(t, pct, []float64{5, 2, 7, 1, 4, 3, 6, 2})

	date := columnByName(t, rep, "Date")
	if date.Kind != KindDatetime {
		t.Fatalf("date kind = %q", date.Kind)
	}
	if !date.Earliest.Equal(time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)) || !date.Latest.Equal(time.Date(2014, 9, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date range = %v..%v", date.Earliest, date.Latest)
	}

	country := columnByName(t, rep, "Country")
	if country.Kind != KindCategorical {
		t.Fatalf("country kind = %q", country.Kind)
	}
	if len(country.TopValues) == 0 || country.TopValues[0].Value != "Canada" || country.TopValues[0].Count != 5 {
		t.Fatalf("country top = %#v", country.TopValues)
	}

	if len(rep.Groups) != 2 {
		t.Fatalf("groups len = %d, want 2", len(rep.Groups))
	}
	gov, mid := rep.Groups[0], rep.Groups[1]
	if gov.Key != "Segment=Government" || gov.Size != 5 {
		t.Fatalf("government group = %#v", gov)
	}
	if mid.Key != "Segment=Midmarket" || mid.Size != 4 {
		t.Fatalf("midmarket group = %#v", mid)
	}
	govIdx := []int{0, 1, 2, 6, 8}
	midIdx := []int{3, 4, 5, 7}
	checkNumSummary(t, gov.Metrics["Units Sold"], subset(units, govIdx))
	checkNumSummary(t, mid.Metrics["Units Sold"], subset(units, midIdx))
	if gov.Metrics["Discount Percentage"].Count != 4 {
		t.Fatalf("group metrics should skip NaN: %#v", gov.Metrics["Discount Percentage"])
	}

	if rep.Corr == nil {
		t.Fatalf("corr matrix nil")
	}
	if !equalStrings(rep.Corr.Columns, []string{"Units Sold", "Gross Sales", "Discount Percentage"}) {
		t.Fatalf("corr columns = %#v", rep.Corr.Columns)
	}
	grossVals := make([]float64, 9)
	for i := range grossVals {
		grossVals[i] = gross(i)
	}
	if !almostEqual(rep.Corr.Values[0][1], correlation(processedUnits, grossVals), 1e-6) {
		t.Fatalf("units-gross corr = %f", rep.Corr.Values[0][1])
	}
	// NaN rows drop out of the pair.
	pairIdx := []int{0, 1, 3, 4, 5, 6, 7, 8}
	expPct := correlation(subset(units, pairIdx), subset(pcts, pairIdx))
	if !almostEqual(rep.Corr.Values[0][2], expPct, 1e-6) || !almostEqual(rep.Corr.Values[2][0], expPct, 1e-6) {
		t.Fatalf("units-pct corr = %f, want %f", rep.Corr.Values[0][2], expPct)
	}

	if len(gov.CorrPairs) == 0 || gov.CorrPairs[0].A != "Units Sold" || gov.CorrPairs[0].B != "Gross Sales" || !almostEqual(gov.CorrPairs[0].R, 1, 1e-6) {
		t.Fatalf("government corr pairs = %#v", gov.CorrPairs)
	}

	md := rep.Markdown()
	for _, want := range []string{
		"[DATASET SUMMARY]",
		"File: Financial Sample.xlsx",
		"Rows: ~10 (processed 9)",
		"- Units Sold: numeric (non-null 9, missing 0.0%)",
		"- Date: datetime (non-null 9, missing 0.0%); from 2014-01-01 to 2014-09-01",
		"top: Canada(5)",
		"[GROUP-BY SUMMARY]",
		"- Segment=Government (n=5)",
		"[PER-GROUP CORRELATIONS]",
		"[CORRELATIONS]",
		"- Units Sold ~ Gross Sales: r=1.000",
		"| Segment | Country | Units Sold | Gross Sales | Date | Discount Percentage |",
		"[NOTES]",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestSummarizeUnknownGroupColumn(t *testing.T) {
	opt := DefaultOptions()
	opt.GroupBy = []string{" segment ", "Region"}
	rep := Summarize(fixture(), opt)
	if len(rep.Groups) != 2 {
		t.Fatalf("groups = %d, want 2 (case-insensitive match)", len(rep.Groups))
	}
	if len(rep.Warnings) != 1 || !strings.Contains(rep.Warnings[0], `"Region"`) {
		t.Fatalf("warnings = %#v", rep.Warnings)
	}
	if rep.Processed != rep.Rows {
		t.Fatalf("processed = %d of %d", rep.Processed, rep.Rows)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	rep := Summarize(&dataset.Dataset{Name: "empty"}, DefaultOptions())
	if rep.Rows != 0 || len(rep.Cols) != 0 {
		t.Fatalf("unexpected report %#v", rep)
	}
	if !strings.Contains(rep.Markdown(), "Columns: 0") {
		t.Fatalf("markdown = %q", rep.Markdown())
	}
}

func columnByName(t *testing.T, rep *Report, name string) ColumnSummary {
	t.Helper()
	for _, c := range rep.Cols {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("column %q not found", name)
	return ColumnSummary{}
}

func checkStats(t *testing.T, col ColumnSummary, vals []float64) {
	t.Helper()
	if col.NonNull != len(vals) {
		t.Fatalf("non-null = %d, want %d", col.NonNull, len(vals))
	}
	if !almostEqual(col.Min, minFloat(vals), 1e-6) {
		t.Fatalf("min = %f, want %f", col.Min, minFloat(vals))
	}
	if !almostEqual(col.Max, maxFloat(vals), 1e-6) {
		t.Fatalf("max = %f, want %f", col.Max, maxFloat(vals))
	}
	if !almostEqual(col.Mean, mean(vals), 1e-6) {
		t.Fatalf("mean = %f, want %f", col.Mean, mean(vals))
	}
	if !almostEqual(col.Std, sampleStd(vals), 1e-6) {
		t.Fatalf("std = %f, want %f", col.Std, sampleStd(vals))
	}
}

func checkNumSummary(t *testing.T, s NumSummary, vals []float64) {
	t.Helper()
	if s.Count != len(vals) {
		t.Fatalf("summary count = %d, want %d", s.Count, len(vals))
	}
	if !almostEqual(s.Min, minFloat(vals), 1e-6) {
		t.Fatalf("summary min = %f, want %f", s.Min, minFloat(vals))
	}
	if !almostEqual(s.Max, maxFloat(vals), 1e-6) {
		t.Fatalf("summary max = %f, want %f", s.Max, maxFloat(vals))
	}
	if !almostEqual(s.Mean, mean(vals), 1e-6) {
		t.Fatalf("summary mean = %f, want %f", s.Mean, mean(vals))
	}
}

func robustOutlierStats(vals []float64, threshold float64) (count int, maxAbs float64) {
	cp := append([]float64(nil), vals...)
	sort.Float64s(cp)
	med := quantileValue(cp, 0.5)
	devs := make([]float64, len(cp))
	for i, v := range cp {
		devs[i] = math.Abs(v - med)
	}
	sort.Float64s(devs)
	mad := quantileValue(devs, 0.5)
	if mad == 0 {
		return 0, 0
	}
	for _, v := range cp {
		az := math.Abs(0.6745 * (v - med) / mad)
		if az > threshold {
			count++
		}
		if az > maxAbs {
			maxAbs = az
		}
	}
	return
}

func quantileValue(sortedVals []float64, q float64) float64 {
	if len(sortedVals) == 0 {
		return 0
	}
	pos := q * float64(len(sortedVals)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sortedVals[lo]
	}
	w := pos - float64(lo)
	return sortedVals[lo]*(1-w) + sortedVals[hi]*w
}

func subset(vals []float64, idxs []int) []float64 {
	out := make([]float64, len(idxs))
	for i, idx := range idxs {
		out[i] = vals[idx]
	}
	return out
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func sampleStd(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	m := mean(vals)
	var sum float64
	for _, v := range vals {
		diff := v - m
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(vals)-1))
}

func minFloat(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxFloat(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func correlation(a, b []float64) float64 {
	if len(a) != len(b) {
		panic("length mismatch")
	}
	ma := mean(a)
	mb := mean(b)
	var num, da2, db2 float64
	for i := range a {
		da := a[i] - ma
		db := b[i] - mb
		num += da * db
		da2 += da * da
		db2 += db * db
	}
	if da2 == 0 || db2 == 0 {
		return 0
	}
	return num / math.Sqrt(da2*db2)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}
