package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"docvault/internal/model"
)

// maxTextBytes is how much of a text source is considered for the card.
const maxTextBytes = 64 << 10

var errNotText = errors.New("source is not readable text")

// ExtractText renders the beginning of a text document onto a white card
// using a fixed 7x13 bitmap font.
func ExtractText(ctx context.Context, src []byte, box int) (*model.Thumbnail, error) {
	text, err := decodeText(src)
	if err != nil {
		return nil, err
	}

	face := basicfont.Face7x13
	canvas := image.NewRGBA(image.Rect(0, 0, box, box))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	d := &font.Drawer{Dst: canvas, Src: image.NewUniform(color.Black), Face: face}
	cols := box / face.Advance
	if cols < 1 {
		cols = 1
	}
	ascent := face.Ascent
	for i, line := range wrapLines(text, cols, box/face.Height+1) {
		d.Dot = fixed.P(0, ascent+i*face.Height)
		d.DrawString(line)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode text card: %w", err)
	}
	return &model.Thumbnail{Width: box, Height: box, Format: "png", Data: buf.Bytes()}, nil
}

// decodeText strips a UTF-8 BOM or converts BOM-marked UTF-16 input to UTF-8.
// Sources that are not valid UTF-8 are read as Windows-1252, so legacy
// single-byte text still renders. Only NUL bytes mark a source as binary.
func decodeText(src []byte) (string, error) {
	out, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), src)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errNotText, err)
	}
	if bytes.IndexByte(out, 0) >= 0 {
		return "", errNotText
	}
	if !utf8.Valid(out) {
		out, err = charmap.Windows1252.NewDecoder().Bytes(out)
		if err != nil {
			return "", fmt.Errorf("%w: %v", errNotText, err)
		}
	}
	if len(out) > maxTextBytes {
		out = out[:maxTextBytes]
		// Drop only the bytes of a rune cut at the limit.
		for len(out) > 0 {
			r, size := utf8.DecodeLastRune(out)
			if r != utf8.RuneError || size != 1 {
				break
			}
			out = out[:len(out)-1]
		}
	}
	return string(out), nil
}

// wrapLines breaks text into at most maxLines lines of at most cols runes.
// Tabs become spaces and other control characters are dropped.
func wrapLines(text string, cols, maxLines int) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\t", "    ")

	lines := make([]string, 0, maxLines)
	for _, raw := range strings.Split(text, "\n") {
		runes := make([]rune, 0, len(raw))
		for _, r := range raw {
			if r < 0x20 || r == 0x7f {
				continue
			}
			runes = append(runes, r)
		}
		if len(runes) == 0 {
			lines = append(lines, "")
		}
		for len(runes) > 0 {
			n := cols
			if n > len(runes) {
				n = len(runes)
			}
			lines = append(lines, string(runes[:n]))
			runes = runes[n:]
			if len(lines) >= maxLines {
				return lines
			}
		}
		if len(lines) >= maxLines {
			return lines
		}
	}
	return lines
}
