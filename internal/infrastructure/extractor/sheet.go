package extractor

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractXlsx walks the workbook sheet by sheet, emitting a
// "#sheet:<name>" delimiter line before each sheet and every row as a
// CSV-escaped line.
func extractXlsx(path string) (string, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer book.Close()

	var out strings.Builder
	for i, sheet := range book.GetSheetList() {
		if i > 0 {
			out.WriteByte('\n')
		}
		out.WriteString("#sheet:")
		out.WriteString(sheet)
		out.WriteByte('\n')

		rows, err := book.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		for _, row := range rows {
			out.WriteString(joinCSVRow(row))
			out.WriteByte('\n')
		}
	}
	return out.String(), nil
}
