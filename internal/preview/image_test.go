package preview

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(y), B: uint8(x), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func testGIF(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewPaletted(image.Rect(0, 0, w, h), color.Palette{color.White, color.Black})
	img.SetColorIndex(1, 1, 1)
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestExtractImage_KeepsSourceFormat(t *testing.T) {
	tests := []struct {
		name   string
		src    []byte
		format string
	}{
		{"png", testPNG(t, 300, 120), "png"},
		{"jpeg", testJPEG(t, 90, 200), "jpeg"},
		{"gif", testGIF(t, 10, 10), "gif"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th, err := ExtractImage(context.Background(), tt.src, 50)
			require.NoError(t, err)
			assert.Equal(t, tt.format, th.Format)
			assert.Equal(t, 50, th.Width)
			assert.Equal(t, 50, th.Height)

			cfg, name, err := image.DecodeConfig(bytes.NewReader(th.Data))
			require.NoError(t, err)
			assert.Equal(t, tt.format, name)
			assert.Equal(t, 50, cfg.Width)
			assert.Equal(t, 50, cfg.Height)
		})
	}
}

func TestExtractImage_Corrupt(t *testing.T) {
	_, err := ExtractImage(context.Background(), []byte("GIF89a garbage"), 50)
	assert.Error(t, err)

	_, err = ExtractImage(context.Background(), nil, 50)
	assert.Error(t, err)
}

func TestExtractImage_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ExtractImage(ctx, testPNG(t, 10, 10), 50)
	assert.ErrorIs(t, err, context.Canceled)
}
