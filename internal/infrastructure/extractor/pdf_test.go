package extractor

import (
	"testing"

	"github.com/ledongthuc/pdf"
)

func run(s string, x, y, w, size float64) pdf.Text {
	return pdf.Text{S: s, X: x, Y: y, W: w, FontSize: size}
}

func TestRenderPageInsertsSpaceOnWideGap(t *testing.T) {
	// Two runs on the same line band; the horizontal gap (10) exceeds
	// half the glyph height (12/2 = 6).
	got := renderPage([]pdf.Text{
		run("Hello", 10, 700, 30, 12),
		run("world", 50, 700, 30, 12),
	})
	if got != "Hello world" {
		t.Fatalf("got %q, want %q", got, "Hello world")
	}
}

func TestRenderPageJoinsAdjacentRunsWithoutSpace(t *testing.T) {
	// Gap of 1 unit is below half the glyph height: same word.
	got := renderPage([]pdf.Text{
		run("Hel", 10, 700, 20, 12),
		run("lo", 31, 700, 14, 12),
	})
	if got != "Hello" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderPageBreaksLinesOnYChange(t *testing.T) {
	got := renderPage([]pdf.Text{
		run("second line", 10, 680, 60, 12),
		run("first line", 10, 700, 60, 12),
	})
	if got != "first line\nsecond line" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderPageToleratesSmallYJitterInsideLine(t *testing.T) {
	// |dY| <= 2 keeps the runs in the same band, ordered by X.
	got := renderPage([]pdf.Text{
		run("b", 50, 699, 10, 12),
		run("a", 10, 700, 10, 12),
	})
	if got != "a b" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderPageEmpty(t *testing.T) {
	if got := renderPage(nil); got != "" {
		t.Fatalf("got %q", got)
	}
}
