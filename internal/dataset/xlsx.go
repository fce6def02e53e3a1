package dataset

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(path string) bool {
	name := strings.ToLower(path)
	return strings.HasSuffix(name, ".xlsx") || strings.HasSuffix(name, ".xlsm")
}

// Load reads the selected sheet with raw cell values, so currency cells come
// back as plain numbers and dates as Excel serials.
func (xlsxLoader) Load(path string, opt LoadOptions) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, openError(path, err)
	}
	defer f.Close()

	sheet, err := pickSheet(f.GetSheetList(), opt)
	if err != nil {
		return nil, &MalformedInputError{Path: path, Reason: err.Error()}
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &MalformedInputError{Path: path, Reason: fmt.Sprintf("read sheet %q", sheet), Err: err}
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}
	toDate := func(raw string) (time.Time, bool) {
		if serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			t, err := excelize.ExcelDateToTime(serial, date1904)
			return t, err == nil
		}
		return parseTimeMaybe(raw)
	}

	name := filepath.Base(path)
	if opt.Sheet != "" {
		name = fmt.Sprintf("%s (sheet: %s)", name, sheet)
	}
	return build(path, name, rows, opt, toDate)
}

// pickSheet resolves the sheet by name first, then by 1-based index.
func pickSheet(sheets []string, opt LoadOptions) (string, error) {
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}
	if opt.Sheet != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, opt.Sheet) {
				return s, nil
			}
		}
		return "", fmt.Errorf("sheet %q not found; available sheets: %s", opt.Sheet, strings.Join(sheets, ", "))
	}
	idx := opt.SheetIndex
	if idx <= 0 {
		idx = 1
	}
	if idx > len(sheets) {
		return "", fmt.Errorf("sheet index %d out of range (workbook has %d sheets)", idx, len(sheets))
	}
	return sheets[idx-1], nil
}
