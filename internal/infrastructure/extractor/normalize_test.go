package extractor

import (
	"strings"
	"testing"

	"github.com/shuyossy/ai-notebook-sub000/internal/core/domain"
)

func TestNormalizeLineEndings(t *testing.T) {
	got := Normalize("a\r\nb\rc\n", domain.DefaultNormalizePolicy())
	if strings.Contains(got, "\r") {
		t.Fatalf("CR survived normalization: %q", got)
	}
	if got != "a\nb\nc\n" && got != "a\nb\nc" {
		t.Fatalf("unexpected result %q", got)
	}
}

func TestNormalizeCollapsesWhitespaceRuns(t *testing.T) {
	got := Normalize("a  \t b", domain.DefaultNormalizePolicy())
	if got != "a b" {
		t.Fatalf("got %q, want %q", got, "a b")
	}
}

func TestNormalizePreservesIndentWhenConfigured(t *testing.T) {
	policy := domain.DefaultNormalizePolicy()
	policy.PreserveIndent = true
	got := Normalize("    code   block", policy)
	if got != "    code block" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeDropsCommaOnlyLines(t *testing.T) {
	got := Normalize("keep\n,,, ,\nalso keep", domain.DefaultNormalizePolicy())
	if got != "keep\nalso keep" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeTrailingCommas(t *testing.T) {
	policy := domain.DefaultNormalizePolicy()
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain line loses trailing run", "hello,,,", "hello"},
		{"interior comma keeps empty field", "a,b,", "a,b,"},
		{"quoted line keeps trailing comma", `"a",`, `"a",`},
		{"sheet header keeps trailing comma", "#sheet:Sales,", "#sheet:Sales,"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.in, policy); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeCapsBlankLineRuns(t *testing.T) {
	got := Normalize("a\n\n\n\n\nb", domain.DefaultNormalizePolicy())
	if got != "a\n\n\nb" {
		t.Fatalf("got %q", got)
	}

	policy := domain.DefaultNormalizePolicy()
	policy.MaxBlankLines = 1
	if got := Normalize("a\n\n\n\nb", policy); got != "a\n\nb" {
		t.Fatalf("MaxBlankLines=1: got %q", got)
	}
}

func TestEscapeCSV(t *testing.T) {
	cases := []struct{ in, want string }{
		{"plain", "plain"},
		{"a,b", `"a,b"`},
		{`say "hi"`, `"say ""hi"""`},
		{"two\nlines", "\"two\nlines\""},
	}
	for _, tc := range cases {
		if got := escapeCSV(tc.in); got != tc.want {
			t.Errorf("escapeCSV(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
