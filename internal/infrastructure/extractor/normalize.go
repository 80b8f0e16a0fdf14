package extractor

import (
	"regexp"
	"strings"

	"github.com/shuyossy/ai-notebook-sub000/internal/core/domain"
)

var (
	hwRunPattern      = regexp.MustCompile("[ \t 　]{2,}")
	leadingIndent     = regexp.MustCompile("^[ \t　]*")
	commaOnlyLine     = regexp.MustCompile(`^[ \t]*,[ \t,]*$`)
	trailingCommaRun  = regexp.MustCompile(`,+$`)
	sheetHeaderPrefix = "#sheet:"
)

// Normalize applies the configured cleanup pipeline to extracted text.
// Line endings are always folded to LF before the per-line passes run.
func Normalize(text string, policy domain.NormalizePolicy) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	maxBlank := policy.MaxBlankLines
	if maxBlank <= 0 {
		maxBlank = 2
	}

	blanks := 0
	for _, line := range lines {
		if policy.CollapseWhitespace {
			line = collapseWhitespace(line, policy.PreserveIndent)
		}
		if policy.TrimTrailing {
			line = strings.TrimRight(line, " \t　")
		}
		if policy.DropCommaOnlyLines && commaOnlyLine.MatchString(line) {
			continue
		}
		if policy.StripTrailingCommas {
			line = stripTrailingCommas(line)
		}

		if strings.TrimSpace(line) == "" {
			blanks++
			if blanks > maxBlank {
				continue
			}
			out = append(out, "")
			continue
		}
		blanks = 0
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func collapseWhitespace(line string, preserveIndent bool) string {
	if !preserveIndent {
		return hwRunPattern.ReplaceAllString(line, " ")
	}
	indent := leadingIndent.FindString(line)
	return indent + hwRunPattern.ReplaceAllString(line[len(indent):], " ")
}

// stripTrailingCommas removes a single trailing comma run unless the line
// looks like a CSV row with legitimate internal structure, in which case
// the trailing comma marks a meaningful empty field.
func stripTrailingCommas(line string) string {
	run := trailingCommaRun.FindString(line)
	if run == "" {
		return line
	}
	core := line[:len(line)-len(run)]
	if strings.Contains(core, ",") || strings.Contains(line, `"`) ||
		strings.HasPrefix(strings.TrimSpace(line), sheetHeaderPrefix) {
		return line
	}
	return core
}

// escapeCSV quotes a table cell the CSV way: quote doubling, with quoting
// triggered by commas, quotes or newlines.
func escapeCSV(field string) string {
	if !strings.ContainsAny(field, ",\"\n") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

func joinCSVRow(cells []string) string {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		escaped[i] = escapeCSV(c)
	}
	return strings.Join(escaped, ",")
}
