package preview

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"docvault/internal/model"
)

// maxPixels bounds decoded image area to keep hostile headers from exhausting memory.
const maxPixels = 64 << 20

// ExtractImage decodes a raster image and re-encodes it at box×box in the same
// format. Formats without an encoder (webp) are written as PNG.
func ExtractImage(ctx context.Context, src []byte, box int) (*model.Thumbnail, error) {
	cfg, name, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode image config: %w", err)
	}
	if cfg.Width*cfg.Height > maxPixels {
		return nil, fmt.Errorf("image too large: %dx%d", cfg.Width, cfg.Height)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	out, err := imaging.FormatFromExtension(name)
	if err != nil {
		out = imaging.PNG
	}
	return thumbnail(img, box, out)
}

// thumbnail forces img into the box with a bicubic filter and encodes it.
// Aspect ratio is not preserved.
func thumbnail(img image.Image, box int, f imaging.Format) (*model.Thumbnail, error) {
	resized := imaging.Resize(img, box, box, imaging.CatmullRom)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, f, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}

	b := resized.Bounds()
	return &model.Thumbnail{
		Width:  b.Dx(),
		Height: b.Dy(),
		Format: formatName(f),
		Data:   buf.Bytes(),
	}, nil
}

func formatName(f imaging.Format) string {
	switch f {
	case imaging.JPEG:
		return "jpeg"
	case imaging.GIF:
		return "gif"
	case imaging.BMP:
		return "bmp"
	case imaging.TIFF:
		return "tiff"
	default:
		return "png"
	}
}

// decodeEmbedded decodes an image found inside another document, bounded like ExtractImage.
func decodeEmbedded(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode embedded image config: %w", err)
	}
	if cfg.Width*cfg.Height > maxPixels {
		return nil, fmt.Errorf("embedded image too large: %dx%d", cfg.Width, cfg.Height)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode embedded image: %w", err)
	}
	return img, nil
}
