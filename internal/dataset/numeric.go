package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// naTokens are the cell values read as missing. Matching is exact: " None" or
// "none" stay text.
var naTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// IsNAToken reports whether raw is one of the missing-value markers.
func IsNAToken(raw string) bool {
	_, ok := naTokens[raw]
	return ok
}

// parseCell turns a raw spreadsheet string into a Cell. Empty cells and the
// missing-value markers ("None", "NA", "#N/A", ...) are null; anything else that
// does not read as a number stays text, untouched.
func parseCell(raw string, opt LoadOptions) Cell {
	if IsNAToken(raw) {
		return NullCell()
	}
	if x, ok := parseNumeric(raw, opt); ok {
		return NumberCell(x)
	}
	return TextCell(raw)
}

// parseNumeric reads plain numbers as well as formatted currency such as
// " $1,618.50 ", "(250.00)" and the accounting zero " $-   ".
func parseNumeric(s string, opt LoadOptions) (float64, bool) {
	raw := strings.TrimSpace(strings.ReplaceAll(s, "\u00A0", " "))
	if raw == "" {
		return 0, false
	}
	neg, currency := false, false
strip:
	for {
		switch {
		case strings.HasPrefix(raw, "(") && strings.HasSuffix(raw, ")"):
			neg = !neg
			raw = strings.TrimSpace(raw[1 : len(raw)-1])
		case len(raw) > 1 && raw[0] == '-':
			neg = !neg
			raw = strings.TrimSpace(raw[1:])
		case strings.IndexAny(raw, "$€£¥") == 0:
			currency = true
			raw = strings.TrimSpace(strings.TrimLeft(raw, "$€£¥"))
		default:
			break strip
		}
	}
	if currency && raw == "-" {
		return 0, true
	}
	if raw == "" {
		return 0, false
	}

	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0:
			if cpos > dpos {
				dec, thou = ',', '.'
			} else {
				dec, thou = '.', ','
			}
		case cpos >= 0 && (strings.Count(raw, ",") > 1 || currency):
			dec, thou = '.', ','
		case cpos >= 0:
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if neg {
		f = -f
	}
	return f, true
}

var timeLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "01/02/2006", "1/2/2006", "1/2/06",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
}

func parseTimeMaybe(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
