package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/solarstat-cli/internal/table"
)

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(path string) bool {
	name := strings.ToLower(path)
	return strings.HasSuffix(name, ".xlsx") || strings.HasSuffix(name, ".xlsm")
}

// Load reads the selected sheet. The first row is the header; short rows are
// padded with empty cells.
func (xlsxLoader) Load(path string, opt Options) (*table.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheet, err := pickSheet(f.GetSheetList(), opt, path)
	if err != nil {
		return nil, err
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q: %w", sheet, table.ErrEmptyInput)
	}
	width := len(rows[0])
	for i, r := range rows {
		if len(r) > width {
			rows[i] = r[:width]
		}
		for len(rows[i]) < width {
			rows[i] = append(rows[i], "")
		}
	}
	df := dataframe.LoadRecords(rows, loadOptions(',', opt.Types)...)
	if df.Err != nil {
		return nil, fmt.Errorf("parse sheet %q: %w", sheet, df.Err)
	}
	return fromDataFrame(df, opt.Types)
}

func pickSheet(sheets []string, opt Options, path string) (string, error) {
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook %q has no sheets", filepath.Base(path))
	}
	if opt.Sheet != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, opt.Sheet) {
				return s, nil
			}
		}
		return "", fmt.Errorf("sheet '%s' not found in workbook '%s'.\nAvailable sheets: %s",
			opt.Sheet, filepath.Base(path), strings.Join(sheets, ", "))
	}
	if opt.SheetIndex > 0 {
		if opt.SheetIndex > len(sheets) {
			return "", fmt.Errorf("sheet index %d out of range: workbook '%s' has %d sheets",
				opt.SheetIndex, filepath.Base(path), len(sheets))
		}
		return sheets[opt.SheetIndex-1], nil
	}
	return sheets[0], nil
}
