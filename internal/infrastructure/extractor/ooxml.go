package extractor

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// extractDocx reads word/document.xml out of the OOXML archive and
// linearizes it. Tables are flattened into CSV-escaped rows embedded in
// the text stream.
func extractDocx(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx archive: %w", err)
	}
	defer archive.Close()

	part, err := openZipPart(&archive.Reader, "word/document.xml")
	if err != nil {
		return "", err
	}
	defer part.Close()
	return linearizeWordXML(part)
}

func linearizeWordXML(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var (
		out        strings.Builder
		cell       strings.Builder
		row        []string
		tableDepth int
		inText     bool
	)

	write := func(s string) {
		if tableDepth > 0 {
			cell.WriteString(s)
			return
		}
		out.WriteString(s)
	}

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
			case "tr":
				if tableDepth == 1 {
					row = row[:0]
				}
			case "tc":
				if tableDepth == 1 {
					cell.Reset()
				}
			case "t":
				inText = true
			case "br":
				write("\n")
			case "tab":
				write("\t")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth--
			case "tr":
				if tableDepth == 1 {
					out.WriteString(joinCSVRow(row))
					out.WriteByte('\n')
				}
			case "tc":
				if tableDepth == 1 {
					row = append(row, strings.TrimRight(cell.String(), "\n"))
				}
			case "p":
				if tableDepth > 0 {
					cell.WriteByte('\n')
				} else {
					out.WriteByte('\n')
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				write(string(t))
			}
		}
	}
	return out.String(), nil
}

var slidePartPattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// extractPptx walks the deck slide by slide, shape by shape, collecting
// only shapes that carry a text body. Slides are separated by a blank
// line.
func extractPptx(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open pptx archive: %w", err)
	}
	defer archive.Close()

	type slidePart struct {
		index int
		file  *zip.File
	}
	parts := make([]slidePart, 0, 8)
	for _, f := range archive.File {
		m := slidePartPattern.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		parts = append(parts, slidePart{index: n, file: f})
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].index < parts[j].index })

	slides := make([]string, 0, len(parts))
	for _, p := range parts {
		rc, err := p.file.Open()
		if err != nil {
			return "", fmt.Errorf("open slide %d: %w", p.index, err)
		}
		text, err := linearizeSlideXML(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("parse slide %d: %w", p.index, err)
		}
		slides = append(slides, strings.TrimRight(text, "\n"))
	}
	return strings.Join(slides, "\n\n"), nil
}

func linearizeSlideXML(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var (
		out         strings.Builder
		txBodyDepth int
		inText      bool
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "txBody":
				txBodyDepth++
			case "t":
				inText = txBodyDepth > 0
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "txBody":
				txBodyDepth--
			case "p":
				if txBodyDepth > 0 {
					out.WriteByte('\n')
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				out.Write(t)
			}
		}
	}
	return out.String(), nil
}

func openZipPart(archive *zip.Reader, name string) (io.ReadCloser, error) {
	for _, f := range archive.File {
		if f.Name == name {
			return f.Open()
		}
	}
	return nil, fmt.Errorf("archive part %s not found", name)
}
