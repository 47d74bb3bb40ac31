package preview

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	domain "docvault/internal/model"
)

func init() {
	// Keep pdfcpu from creating a config directory under the user's home.
	model.ConfigPath = "disable"
}

// ExtractPDF previews the first raster image object embedded on page one.
// Pages are not rendered; a first page without images has no preview.
func ExtractPDF(ctx context.Context, src []byte, box int) (*domain.Thumbnail, error) {
	if len(src) == 0 {
		return nil, fmt.Errorf("empty pdf")
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pages, err := api.ExtractImagesRaw(bytes.NewReader(src), []string{"1"}, conf)
	if err != nil {
		return nil, fmt.Errorf("read pdf images: %w", err)
	}
	if len(pages) == 0 || len(pages[0]) == 0 {
		return nil, ErrNoPreview
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	images := pages[0]
	objNrs := make([]int, 0, len(images))
	for nr := range images {
		objNrs = append(objNrs, nr)
	}
	sort.Ints(objNrs)

	first := images[objNrs[0]]
	if first.Reader == nil {
		return nil, ErrNoPreview
	}
	data, err := io.ReadAll(first)
	if err != nil {
		return nil, fmt.Errorf("read pdf image %d: %w", first.ObjNr, err)
	}

	img, err := decodeEmbedded(data)
	if err != nil {
		return nil, err
	}
	return thumbnail(img, box, imaging.PNG)
}
