package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/findash/internal/dataset"
)

// Options controls how a prepared Dataset is summarized.
type Options struct {
	// MaxRows limits rows processed; 0 means unlimited.
	MaxRows int
	// SampleRows determines how many example rows to include in the report.
	SampleRows int
	// GroupBy computes per-group summaries for the given column names.
	GroupBy []string
	// Correlations computes Pearson correlations among numeric columns.
	Correlations bool
	// CorrPerGroup computes correlations per group key.
	CorrPerGroup bool
	// Outlier detection via robust Z-score (MAD). If Outliers is true, counts |z|>threshold.
	Outliers         bool
	OutlierThreshold float64
}

// DefaultOptions returns reasonable defaults for dataset summaries.
func DefaultOptions() Options {
	return Options{
		MaxRows:    100000,
		SampleRows: 5,
		Outliers:   true,
	}
}

type colAcc struct {
	name   string
	nonNil int
	miss   int
	// numeric stats via Welford
	n      int
	mean   float64
	m2     float64
	min    float64
	max    float64
	vals   []float64
	numCnt int
	// datetime range
	dtCnt    int
	earliest time.Time
	latest   time.Time
	txtCnt   int
	cats     map[string]int
	exText   []string
}

func (c *colAcc) addNumber(x float64) {
	c.numCnt++
	c.n++
	if x < c.min {
		c.min = x
	}
	if x > c.max {
		c.max = x
	}
	delta := x - c.mean
	c.mean += delta / float64(c.n)
	c.m2 += delta * (x - c.mean)
	c.vals = append(c.vals, x)
}

func (c *colAcc) addTime(t time.Time) {
	if c.dtCnt == 0 || t.Before(c.earliest) {
		c.earliest = t
	}
	if c.dtCnt == 0 || t.After(c.latest) {
		c.latest = t
	}
	c.dtCnt++
}

func (c *colAcc) addText(v string) {
	c.txtCnt++
	if len(c.cats) <= 10000 && len(v) <= 64 {
		c.cats[v]++
	}
	if len(c.exText) < 3 {
		c.exText = append(c.exText, v)
	}
}

// pairAcc accumulates exact pairwise sums for a Pearson r with missingness.
type pairAcc struct {
	n, sumX, sumY, sumXX, sumYY, sumXY float64
}

func (p *pairAcc) add(x, y float64) {
	p.n++
	p.sumX += x
	p.sumY += y
	p.sumXX += x * x
	p.sumYY += y * y
	p.sumXY += x * y
}

// r returns the clamped correlation, or false when it is undefined.
func (p *pairAcc) r() (float64, bool) {
	if p == nil || p.n < 2 {
		return 0, false
	}
	denom := math.Sqrt((p.n*p.sumXX - p.sumX*p.sumX) * (p.n*p.sumYY - p.sumY*p.sumY))
	if denom == 0 {
		return 0, false
	}
	r := (p.n*p.sumXY - p.sumX*p.sumY) / denom
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	return math.Max(-1, math.Min(1, r)), true
}

type gAcc struct {
	size  int
	sum   map[int]float64
	cnt   map[int]int
	min   map[int]float64
	max   map[int]float64
	pairs map[int]*pairAcc
}

func newGAcc() *gAcc {
	return &gAcc{sum: map[int]float64{}, cnt: map[int]int{}, min: map[int]float64{}, max: map[int]float64{}, pairs: map[int]*pairAcc{}}
}

func (g *gAcc) add(j int, x float64) {
	g.sum[j] += x
	g.cnt[j]++
	if v, ok := g.min[j]; !ok || x < v {
		g.min[j] = x
	}
	if v, ok := g.max[j]; !ok || x > v {
		g.max[j] = x
	}
}

// addPairs feeds every j>k combination of the row's numeric values into dst.
func addPairs(dst map[int]*pairAcc, rowNums map[int]float64, ncol int) {
	idxs := make([]int, 0, len(rowNums))
	for j := range rowNums {
		idxs = append(idxs, j)
	}
	sort.Ints(idxs)
	for a := 1; a < len(idxs); a++ {
		j := idxs[a]
		for b := 0; b < a; b++ {
			k := idxs[b]
			key := j*ncol + k
			pa := dst[key]
			if pa == nil {
				pa = &pairAcc{}
				dst[key] = pa
			}
			pa.add(rowNums[j], rowNums[k])
		}
	}
}

// Summarize computes a Report over a prepared Dataset. Non-finite numbers,
// such as an undefined Discount Percentage, count as missing values.
func Summarize(ds *dataset.Dataset, opt Options) *Report {
	rep := &Report{Name: ds.Name}
	ncol := len(ds.Columns)
	if ncol == 0 {
		return rep
	}
	cols := make([]*colAcc, ncol)
	gbIndex := map[string]int{}
	for i, label := range ds.Columns {
		name := strings.TrimSpace(label)
		cols[i] = &colAcc{name: name, min: math.Inf(1), max: math.Inf(-1), cats: make(map[string]int)}
		gbIndex[strings.ToLower(name)] = i
	}
	var groupIdx []int
	for _, name := range opt.GroupBy {
		if idx, ok := gbIndex[strings.ToLower(strings.TrimSpace(name))]; ok {
			groupIdx = append(groupIdx, idx)
		} else {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("group-by column %q not found", name))
		}
	}

	maxRows := opt.MaxRows
	if maxRows <= 0 {
		maxRows = math.MaxInt
	}
	sampleRows := opt.SampleRows
	if sampleRows < 0 {
		sampleRows = 0
	}
	pair := make(map[int]*pairAcc) // key = j*ncol + k with j>k
	groups := map[string]*gAcc{}

	for _, row := range ds.Rows {
		rep.Rows++
		if rep.Processed >= maxRows {
			continue
		}
		rep.Processed++
		if len(rep.Samples) < sampleRows {
			sample := make([]string, ncol)
			for j, c := range row {
				sample[j] = c.String()
			}
			rep.Samples = append(rep.Samples, sample)
		}

		var ga *gAcc
		if len(groupIdx) > 0 {
			parts := make([]string, 0, len(groupIdx))
			for _, idx := range groupIdx {
				parts = append(parts, fmt.Sprintf("%s=%s", cols[idx].name, safeVal(strings.TrimSpace(row[idx].String()))))
			}
			key := strings.Join(parts, " | ")
			if ga = groups[key]; ga == nil {
				ga = newGAcc()
				groups[key] = ga
			}
			ga.size++
		}

		rowNums := make(map[int]float64)
		for j, cell := range row {
			c := cols[j]
			switch cell.Kind {
			case dataset.KindNumber:
				x, ok := cell.Finite()
				if !ok {
					c.miss++
					continue
				}
				c.nonNil++
				c.addNumber(x)
				rowNums[j] = x
				if ga != nil {
					ga.add(j, x)
				}
			case dataset.KindTime:
				c.nonNil++
				c.addTime(cell.Time)
			case dataset.KindText:
				v := strings.TrimSpace(cell.Str)
				if v == "" {
					c.miss++
					continue
				}
				c.nonNil++
				c.addText(v)
			default:
				c.miss++
			}
		}
		if len(rowNums) >= 2 {
			if opt.Correlations {
				addPairs(pair, rowNums, ncol)
			}
			if opt.CorrPerGroup && ga != nil {
				addPairs(ga.pairs, rowNums, ncol)
			}
		}
	}

	numCols := []int{}
	for idx, c := range cols {
		s := ColumnSummary{Name: c.name, NonNull: c.nonNil, Missing: c.miss, Kind: KindUnknown}
		switch {
		case c.numCnt > 0 && c.numCnt >= c.dtCnt && c.numCnt >= c.txtCnt:
			s.Kind = KindNumeric
			s.Min, s.Max, s.Mean = c.min, c.max, c.mean
			if c.n > 1 {
				s.Std = math.Sqrt(c.m2 / float64(c.n-1))
			}
			numCols = append(numCols, idx)
			if opt.Outliers && len(c.vals) >= 8 {
				thr := opt.OutlierThreshold
				if thr <= 0 {
					thr = 3.5
				}
				s.OutliersCount, s.OutliersMaxAbsZ = robustOutliers(c.vals, thr)
				s.OutlierThreshold = thr
			}
		case c.dtCnt > 0 && c.dtCnt >= c.txtCnt:
			s.Kind = KindDatetime
			s.Earliest, s.Latest = c.earliest, c.latest
		case len(c.cats) > 0:
			s.Kind = KindCategorical
			s.TopValues = topValues(c.cats, 8)
			s.Unique = len(c.cats)
		case c.txtCnt > 0:
			s.Kind = KindText
			s.ExampleTexts = c.exText
		}
		rep.Cols = append(rep.Cols, s)
	}

	if rep.Processed < rep.Rows {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("processed only %d/%d rows due to MaxRows", rep.Processed, rep.Rows))
	}

	if len(groups) > 0 {
		out := make([]GroupResult, 0, len(groups))
		for key, ga := range groups {
			gr := GroupResult{Key: key, Size: ga.size, Metrics: map[string]NumSummary{}}
			for _, idx := range numCols {
				if ga.cnt[idx] == 0 {
					continue
				}
				gr.Metrics[cols[idx].name] = NumSummary{Count: ga.cnt[idx], Min: ga.min[idx], Max: ga.max[idx], Mean: ga.sum[idx] / float64(ga.cnt[idx])}
			}
			if opt.CorrPerGroup {
				var pairs []PairCorr
				for pk, pa := range ga.pairs {
					r, ok := pa.r()
					if !ok {
						continue
					}
					pairs = append(pairs, PairCorr{A: cols[pk%ncol].name, B: cols[pk/ncol].name, R: r})
				}
				sortPairs(pairs)
				if len(pairs) > 10 {
					pairs = pairs[:10]
				}
				gr.CorrPairs = pairs
			}
			out = append(out, gr)
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Size == out[j].Size {
				return out[i].Key < out[j].Key
			}
			return out[i].Size > out[j].Size
		})
		if len(out) > 20 {
			out = out[:20]
		}
		rep.Groups = out
	}

	if opt.Correlations && len(numCols) >= 2 {
		names := make([]string, len(numCols))
		for i, idx := range numCols {
			names[i] = cols[idx].name
		}
		n := len(numCols)
		mat := make([][]float64, n)
		for a := range mat {
			mat[a] = make([]float64, n)
			for b := range mat[a] {
				if a == b {
					mat[a][b] = 1
					continue
				}
				ia, ib := numCols[a], numCols[b]
				r, _ := pair[max(ia, ib)*ncol+min(ia, ib)].r()
				mat[a][b] = r
			}
		}
		rep.Corr = &CorrMatrix{Columns: names, Values: mat}
	}
	return rep
}

func topValues(cats map[string]int, limit int) []CategoryCount {
	tops := make([]CategoryCount, 0, len(cats))
	for k, v := range cats {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > limit {
		tops = tops[:limit]
	}
	return tops
}

func sortPairs(pairs []PairCorr) {
	sort.Slice(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
}

// robustOutliers counts values whose robust Z-score exceeds thr.
func robustOutliers(vals []float64, thr float64) (count int, maxAbsZ float64) {
	median, mad := medianMAD(vals)
	if mad == 0 {
		return 0, 0
	}
	for _, v := range vals {
		az := math.Abs(0.6745 * (v - median) / mad)
		if az > thr {
			count++
		}
		if az > maxAbsZ {
			maxAbsZ = az
		}
	}
	return count, maxAbsZ
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
