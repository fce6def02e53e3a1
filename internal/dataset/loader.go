package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LoadOptions controls how a source file is read into a Dataset.
type LoadOptions struct {
	// Sheet selects an XLSX sheet by name (case-insensitive). Empty means SheetIndex.
	Sheet string
	// SheetIndex is 1-based; values <= 0 select the first sheet.
	SheetIndex int
	// Delimiter for CSV. If 0, it is chosen from the file extension.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// DateColumns are converted to calendar dates (Excel serials or date strings).
	DateColumns []string
}

// DefaultLoadOptions returns the options used for the Financial Sample workbook.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		SheetIndex:  1,
		DateColumns: []string{ColumnDate},
	}
}

// Loader reads one family of tabular file formats.
type Loader interface {
	CanLoad(path string) bool
	Load(path string, opt LoadOptions) (*Dataset, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

func init() {
	Register(xlsxLoader{})
	Register(csvLoader{})
}

// Load parses the file at path with the first registered loader that accepts it.
// Row order and the original column labels are preserved.
func Load(path string, opt LoadOptions) (*Dataset, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &MissingInputError{Path: path, Err: err}
	}
	for _, l := range registry {
		if l.CanLoad(path) {
			return l.Load(path, opt)
		}
	}
	return nil, &MalformedInputError{
		Path:   path,
		Reason: fmt.Sprintf("unsupported format %q (want .xlsx, .xlsm, .csv or .tsv)", filepath.Ext(path)),
	}
}

// openError classifies a failure to open path.
func openError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return &MissingInputError{Path: path, Err: err}
	}
	return &MalformedInputError{Path: path, Reason: "not a readable spreadsheet", Err: err}
}

// dateFunc converts a raw cell string of a date column into a time.
type dateFunc func(raw string) (time.Time, bool)

// build turns header + data records into a Dataset. Short rows are padded with
// nulls; cells past the header get "Unnamed: N" labels.
func build(path, name string, records [][]string, opt LoadOptions, toDate dateFunc) (*Dataset, error) {
	if len(records) == 0 || isBlank(records[0]) {
		return nil, &MalformedInputError{Path: path, Reason: "no header row"}
	}
	header := records[0]
	body := records[1:]

	ncol := len(header)
	for _, rec := range body {
		if len(rec) > ncol {
			ncol = len(rec)
		}
	}
	cols := make([]string, ncol)
	copy(cols, header)
	for i := len(header); i < ncol; i++ {
		cols[i] = fmt.Sprintf("Unnamed: %d", i)
	}

	dateCol := make([]bool, ncol)
	for _, dc := range opt.DateColumns {
		want := strings.TrimSpace(dc)
		for i, c := range cols {
			if strings.TrimSpace(c) == want {
				dateCol[i] = true
			}
		}
	}

	ds := &Dataset{Name: name, Source: path, Columns: cols, Rows: make([][]Cell, 0, len(body))}
	for _, rec := range body {
		row := make([]Cell, ncol)
		for j := 0; j < ncol; j++ {
			if j >= len(rec) {
				continue
			}
			raw := rec[j]
			if dateCol[j] && raw != "" && toDate != nil {
				if t, ok := toDate(raw); ok {
					row[j] = TimeCell(t)
					continue
				}
			}
			row[j] = parseCell(raw, opt)
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
