package extractor

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeZip(t *testing.T, name string, parts map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for partName, content := range parts {
		f, err := w.Create(partName)
		if err != nil {
			t.Fatalf("create part %s: %v", partName, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("write part %s: %v", partName, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const wordXMLHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`

func docxBody(body string) string {
	return wordXMLHeader + `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`
}

func TestExtractDocxParagraphs(t *testing.T) {
	path := writeZip(t, "doc.docx", map[string]string{
		"word/document.xml": docxBody(
			`<w:p><w:r><w:t>first</w:t></w:r></w:p><w:p><w:r><w:t>second</w:t></w:r></w:p>`,
		),
	})
	got, err := extractDocx(path)
	if err != nil {
		t.Fatalf("extractDocx: %v", err)
	}
	if got != "first\nsecond\n" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractDocxFlattensTablesToCSV(t *testing.T) {
	table := `<w:tbl>` +
		`<w:tr><w:tc><w:p><w:r><w:t>name</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>unit, qty</w:t></w:r></w:p></w:tc></w:tr>` +
		`<w:tr><w:tc><w:p><w:r><w:t>bolt</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>say "ten"</w:t></w:r></w:p></w:tc></w:tr>` +
		`</w:tbl>`
	path := writeZip(t, "table.docx", map[string]string{
		"word/document.xml": docxBody(table + `<w:p><w:r><w:t>after</w:t></w:r></w:p>`),
	})
	got, err := extractDocx(path)
	if err != nil {
		t.Fatalf("extractDocx: %v", err)
	}
	want := "name,\"unit, qty\"\nbolt,\"say \"\"ten\"\"\"\nafter\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestExtractDocxMissingDocumentPart(t *testing.T) {
	path := writeZip(t, "empty.docx", map[string]string{"word/other.xml": "<x/>"})
	if _, err := extractDocx(path); err == nil {
		t.Fatalf("expected error for archive without word/document.xml")
	}
}

func slideXML(texts ...string) string {
	var sb strings.Builder
	sb.WriteString(`<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"><p:cSld><p:spTree>`)
	for _, text := range texts {
		sb.WriteString(`<p:sp><p:txBody><a:p><a:r><a:t>` + text + `</a:t></a:r></a:p></p:txBody></p:sp>`)
	}
	// A shape without a text frame contributes nothing.
	sb.WriteString(`<p:sp><p:spPr/></p:sp>`)
	sb.WriteString(`</p:spTree></p:cSld></p:sld>`)
	return sb.String()
}

func TestExtractPptxWalksSlidesInNumericOrder(t *testing.T) {
	path := writeZip(t, "deck.pptx", map[string]string{
		"ppt/slides/slide10.xml": slideXML("tenth"),
		"ppt/slides/slide2.xml":  slideXML("second"),
		"ppt/slides/slide1.xml":  slideXML("title", "subtitle"),
	})
	got, err := extractPptx(path)
	if err != nil {
		t.Fatalf("extractPptx: %v", err)
	}
	want := "title\nsubtitle\n\nsecond\n\ntenth"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
