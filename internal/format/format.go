// Package format maps file extensions to content types, preview strategies and icons.
package format

import "strings"

// Strategy selects the preview extractor used for a document.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyPDF
	StrategyWord
	StrategyText
	StrategyImage
)

// Strategies lists every preview strategy, StrategyNone included.
var Strategies = []Strategy{StrategyNone, StrategyPDF, StrategyWord, StrategyText, StrategyImage}

func (s Strategy) String() string {
	switch s {
	case StrategyPDF:
		return "pdf"
	case StrategyWord:
		return "word"
	case StrategyText:
		return "text"
	case StrategyImage:
		return "image"
	default:
		return "none"
	}
}

const (
	DefaultContentType = "application/octet-stream"
	DefaultIcon        = "default-icon.png"
)

// Kind is the classification of a single extension.
type Kind struct {
	ContentType string
	Strategy    Strategy
	Icon        string
}

// Unknown is returned for extensions missing from a table.
var Unknown = Kind{ContentType: DefaultContentType, Strategy: StrategyNone, Icon: DefaultIcon}

// Table is an immutable extension lookup. Keys are lower-case and dot-prefixed.
type Table struct {
	kinds map[string]Kind
}

// NewTable builds a table from an extension map. Keys are normalized.
func NewTable(kinds map[string]Kind) *Table {
	t := &Table{kinds: make(map[string]Kind, len(kinds))}
	for ext, k := range kinds {
		t.kinds[normalize(ext)] = k
	}
	return t
}

// DefaultTable returns the built-in extension table.
func DefaultTable() *Table {
	pdf := Kind{ContentType: "application/pdf", Strategy: StrategyPDF, Icon: "pdf-icon.png"}
	word := Kind{ContentType: "application/msword", Strategy: StrategyWord, Icon: "word-icon.png"}
	excel := Kind{ContentType: "application/vnd.ms-excel", Strategy: StrategyNone, Icon: "excel-icon.png"}
	text := Kind{ContentType: "text/plain", Strategy: StrategyText, Icon: "txt-icon.png"}

	image := func(contentType string) Kind {
		return Kind{ContentType: contentType, Strategy: StrategyImage, Icon: "image-icon.png"}
	}

	return NewTable(map[string]Kind{
		".pdf":  pdf,
		".doc":  word,
		".docx": word,
		".xls":  excel,
		".xlsx": excel,
		".txt":  text,
		".jpg":  image("image/jpeg"),
		".jpeg": image("image/jpeg"),
		".png":  image("image/png"),
		".gif":  image("image/gif"),
		".bmp":  image("image/bmp"),
		".webp": image("image/webp"),
	})
}

// Classify returns the kind for ext. It is case-insensitive, accepts the
// extension with or without a leading dot, and never fails.
func (t *Table) Classify(ext string) Kind {
	if t == nil {
		return Unknown
	}
	if k, ok := t.kinds[normalize(ext)]; ok {
		return k
	}
	return Unknown
}

// Len returns the number of known extensions.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.kinds)
}

func normalize(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
