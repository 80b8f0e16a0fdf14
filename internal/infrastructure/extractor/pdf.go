package extractor

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// lineBandTolerance is the vertical distance (in PDF text-space units)
// within which two runs are considered part of the same line.
const lineBandTolerance = 2.0

// extractPDF reconstructs reading order from positioned text runs: top to
// bottom by Y, left to right by X inside the same line band. Pages are
// separated by a blank line.
func extractPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pages = append(pages, renderPage(page.Content().Text))
	}
	return strings.Join(pages, "\n\n"), nil
}

func renderPage(runs []pdf.Text) string {
	if len(runs) == 0 {
		return ""
	}
	sorted := make([]pdf.Text, len(runs))
	copy(sorted, runs)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if math.Abs(a.Y-b.Y) <= lineBandTolerance {
			return a.X < b.X
		}
		return a.Y > b.Y
	})

	var sb strings.Builder
	prev := sorted[0]
	sb.WriteString(prev.S)
	for _, run := range sorted[1:] {
		switch {
		case math.Abs(run.Y-prev.Y) > lineBandTolerance:
			sb.WriteByte('\n')
		case wordGap(prev, run):
			sb.WriteByte(' ')
		}
		sb.WriteString(run.S)
		prev = run
	}
	return sb.String()
}

// wordGap decides a word boundary between two same-line runs: a
// horizontal gap wider than half the glyph height.
func wordGap(prev, cur pdf.Text) bool {
	gap := cur.X - (prev.X + prev.W)
	height := cur.FontSize
	if height <= 0 {
		height = prev.FontSize
	}
	return gap > height/2
}
