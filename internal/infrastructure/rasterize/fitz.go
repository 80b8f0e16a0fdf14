// Package rasterize renders PDF pages into base64-encoded images for
// image-mode review.
package rasterize

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/jpeg"

	"github.com/gen2brain/go-fitz"

	"github.com/shuyossy/ai-notebook-sub000/internal/core/domain"
)

type Renderer struct {
	quality int
}

func New(quality int) *Renderer {
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	return &Renderer{quality: quality}
}

// Rasterize renders every page of the PDF at path, in page order.
func (r *Renderer) Rasterize(ctx context.Context, path string) ([]string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConversion, "open pdf for rendering", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		return nil, domain.WrapError(domain.ErrConversion, "render pdf",
			fmt.Errorf("document has no pages"))
	}

	pages := make([]string, 0, pageCount)
	for n := 0; n < pageCount; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := doc.Image(n)
		if err != nil {
			return nil, domain.WrapError(domain.ErrConversion,
				fmt.Sprintf("render page %d", n+1), err)
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: r.quality}); err != nil {
			return nil, domain.WrapError(domain.ErrConversion,
				fmt.Sprintf("encode page %d", n+1), err)
		}
		pages = append(pages, base64.StdEncoding.EncodeToString(buf.Bytes()))
	}
	return pages, nil
}
