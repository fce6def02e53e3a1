package dataset

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
)

// WriteCSV writes the header and every row. Nulls and NaN become empty fields.
func WriteCSV(w io.Writer, ds *Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(ds.Columns))
	for i, row := range ds.Rows {
		for j, c := range row {
			rec[j] = c.String()
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the rows as a JSON array of objects keyed by column label,
// keeping column order. Nulls and non-finite numbers become null.
func WriteJSON(w io.Writer, ds *Dataset) error {
	bw := bufio.NewWriter(w)
	keys := make([][]byte, len(ds.Columns))
	for j, c := range ds.Columns {
		k, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encode column %q: %w", c, err)
		}
		keys[j] = k
	}
	bw.WriteString("[")
	for i, row := range ds.Rows {
		if i > 0 {
			bw.WriteString(",")
		}
		bw.WriteString("\n  {")
		for j, c := range row {
			if j > 0 {
				bw.WriteString(", ")
			}
			bw.Write(keys[j])
			bw.WriteString(": ")
			v, err := json.Marshal(jsonValue(c))
			if err != nil {
				return fmt.Errorf("encode row %d: %w", i+1, err)
			}
			bw.Write(v)
		}
		bw.WriteString("}")
	}
	if len(ds.Rows) > 0 {
		bw.WriteString("\n")
	}
	bw.WriteString("]\n")
	return bw.Flush()
}

func jsonValue(c Cell) any {
	switch c.Kind {
	case KindText:
		return c.Str
	case KindNumber:
		if math.IsNaN(c.Num) || math.IsInf(c.Num, 0) {
			return nil
		}
		return c.Num
	case KindTime:
		return c.String()
	}
	return nil
}

// Export writes ds to w in the format implied by the extension of name:
// .json for JSON, anything else as CSV.
func Export(w io.Writer, ds *Dataset, name string) error {
	if strings.EqualFold(filepath.Ext(name), ".json") {
		return WriteJSON(w, ds)
	}
	return WriteCSV(w, ds)
}
