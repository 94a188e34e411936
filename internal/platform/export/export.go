// Package export renders dashboard tables as XLSX workbooks.
package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/nutes/frontdesk/internal/platform/store"
)

// ContentType is the media type of the workbooks produced by WriteXLSX.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// maxSheetName is the Excel limit on sheet name length.
const maxSheetName = 31

// Table is one sheet of a workbook.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]any
}

// Tabler is implemented by dashboards that can be exported.
type Tabler interface {
	Tables() []Table
}

// BucketTable lists grouped counts. The label column falls back to the raw
// key when a bucket has no display label.
func BucketTable(name, keyHeader string, buckets []store.Bucket) Table {
	t := Table{Name: name, Headers: []string{keyHeader, "Total"}}
	for _, b := range buckets {
		t.Rows = append(t.Rows, []any{KeyLabel(b), b.Count})
	}
	return t
}

// KeyLabel is the text shown for a bucket.
func KeyLabel(b store.Bucket) string {
	if b.Label != "" {
		return b.Label
	}
	if b.Key == nil {
		return "(vazio)"
	}
	return fmt.Sprint(b.Key)
}

var sheetReplacer = strings.NewReplacer("[", "(", "]", ")", ":", "-", "*", "-", "?", "", "/", "-", `\`, "-")

func sheetName(name string, used map[string]bool) string {
	base := sheetReplacer.Replace(strings.TrimSpace(name))
	if base == "" {
		base = "Sheet"
	}
	if len([]rune(base)) > maxSheetName {
		base = string([]rune(base)[:maxSheetName])
	}
	candidate := base
	for i := 2; used[strings.ToLower(candidate)]; i++ {
		suffix := fmt.Sprintf(" %d", i)
		r := []rune(base)
		if len(r)+len(suffix) > maxSheetName {
			r = r[:maxSheetName-len(suffix)]
		}
		candidate = string(r) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

// WriteXLSX builds a workbook with one sheet per table, header row in bold.
func WriteXLSX(tables []Table) ([]byte, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("export: no tables")
	}
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	used := make(map[string]bool)
	for i, t := range tables {
		name := sheetName(t.Name, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("rename first sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
		if err := writeTable(f, name, t, headerStyle); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeTable(f *excelize.File, sheet string, t Table, headerStyle int) error {
	if len(t.Headers) > 0 {
		if err := f.SetSheetRow(sheet, "A1", &t.Headers); err != nil {
			return fmt.Errorf("write %s header: %w", sheet, err)
		}
		last, err := excelize.CoordinatesToCellName(len(t.Headers), 1)
		if err != nil {
			return fmt.Errorf("header range: %w", err)
		}
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("style %s header: %w", sheet, err)
		}
		if err := f.SetColWidth(sheet, "A", "A", 40); err != nil {
			return fmt.Errorf("size %s columns: %w", sheet, err)
		}
	}
	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row coordinates: %w", err)
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
