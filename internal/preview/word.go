package preview

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/klauspost/compress/zip"

	"docvault/internal/model"
)

const (
	wordMainPart = "word/document.xml"
	wordRelsPart = "word/_rels/document.xml.rels"
	wordMediaDir = "word/media/"

	imageRelType = "/relationships/image"

	// maxPartBytes caps how much of a single package part is read.
	maxPartBytes = 32 << 20
)

var errNotWordPackage = errors.New("not a word-processing package")

type relationships struct {
	Items []relationship `xml:"Relationship"`
}

type relationship struct {
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

// ExtractWord previews the first image part of an OOXML word-processing package.
// Legacy binary documents are not packages and yield an error.
func ExtractWord(ctx context.Context, src []byte, box int) (*model.Thumbnail, error) {
	zr, err := zip.NewReader(bytes.NewReader(src), int64(len(src)))
	if err != nil {
		return nil, fmt.Errorf("open package: %w", err)
	}

	parts := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		parts[f.Name] = f
	}
	if _, ok := parts[wordMainPart]; !ok {
		return nil, errNotWordPackage
	}

	part, err := firstImagePart(parts)
	if err != nil {
		return nil, err
	}
	if part == nil {
		return nil, ErrNoPreview
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := readPart(part)
	if err != nil {
		return nil, err
	}
	img, err := decodeEmbedded(data)
	if err != nil {
		return nil, err
	}
	return thumbnail(img, box, imaging.JPEG)
}

// firstImagePart follows the main document relationships in order and falls
// back to the first media part by name.
func firstImagePart(parts map[string]*zip.File) (*zip.File, error) {
	if relsPart, ok := parts[wordRelsPart]; ok {
		data, err := readPart(relsPart)
		if err != nil {
			return nil, err
		}
		var rels relationships
		if err := xml.Unmarshal(data, &rels); err != nil {
			return nil, fmt.Errorf("parse relationships: %w", err)
		}
		for _, rel := range rels.Items {
			if !strings.HasSuffix(rel.Type, imageRelType) || strings.EqualFold(rel.TargetMode, "External") {
				continue
			}
			if f, ok := parts[resolveTarget(rel.Target)]; ok {
				return f, nil
			}
		}
	}

	media := make([]string, 0)
	for name := range parts {
		if strings.HasPrefix(name, wordMediaDir) && !strings.HasSuffix(name, "/") {
			media = append(media, name)
		}
	}
	if len(media) == 0 {
		return nil, nil
	}
	sort.Strings(media)
	return parts[media[0]], nil
}

// resolveTarget maps a relationship target to a package part name.
func resolveTarget(target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Clean(path.Join("word", target))
}

func readPart(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open part %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxPartBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read part %s: %w", f.Name, err)
	}
	if len(data) > maxPartBytes {
		return nil, fmt.Errorf("part %s exceeds %d bytes", f.Name, maxPartBytes)
	}
	return data, nil
}
