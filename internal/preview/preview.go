// Package preview builds fixed-size thumbnails for stored documents.
//
// Extraction is best-effort: a Generator never returns an error. Corrupt
// sources, unsupported formats, parser panics and timeouts all yield a nil
// thumbnail.
package preview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"docvault/internal/format"
	"docvault/internal/logging"
	"docvault/internal/model"
)

// DefaultSize is the edge of the thumbnail box when none is configured.
const DefaultSize = 50

// ErrNoPreview reports a well-formed source that has nothing to preview,
// such as a PDF without an embedded image on its first page.
var ErrNoPreview = errors.New("no preview available")

// Extractor turns source bytes into a box×box thumbnail.
type Extractor interface {
	Extract(ctx context.Context, src []byte, box int) (*model.Thumbnail, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, src []byte, box int) (*model.Thumbnail, error)

func (f ExtractorFunc) Extract(ctx context.Context, src []byte, box int) (*model.Thumbnail, error) {
	return f(ctx, src, box)
}

// Options configures a Generator. Zero values fall back to defaults;
// Cache, Metrics and Logger are optional.
type Options struct {
	Size           int
	Timeout        time.Duration
	MaxSourceBytes int64
	Cache          Cache
	Metrics        *Metrics
	Logger         logging.Logger
}

// Generator dispatches extraction by strategy and enforces the failure policy.
type Generator struct {
	size       int
	timeout    time.Duration
	maxSource  int64
	cache      Cache
	metrics    *Metrics
	log        logging.Logger
	extractors map[format.Strategy]Extractor
	group      singleflight.Group
}

// NewGenerator returns a Generator with the built-in PDF, word, text and image extractors.
func NewGenerator(opts Options) *Generator {
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	g := &Generator{
		size:      opts.Size,
		timeout:   opts.Timeout,
		maxSource: opts.MaxSourceBytes,
		cache:     opts.Cache,
		metrics:   opts.Metrics,
		log:       opts.Logger.With("component", "preview"),
		extractors: map[format.Strategy]Extractor{
			format.StrategyPDF:   ExtractorFunc(ExtractPDF),
			format.StrategyWord:  ExtractorFunc(ExtractWord),
			format.StrategyText:  ExtractorFunc(ExtractText),
			format.StrategyImage: ExtractorFunc(ExtractImage),
		},
	}
	return g
}

// Register replaces the extractor used for a strategy.
func (g *Generator) Register(s format.Strategy, e Extractor) {
	g.extractors[s] = e
}

// Size returns the thumbnail box edge in pixels.
func (g *Generator) Size() int {
	return g.size
}

// Wants reports whether a source of the given strategy and size would be
// handed to an extractor. Callers use it to avoid reading blobs needlessly.
func (g *Generator) Wants(s format.Strategy, size int64) bool {
	if _, ok := g.extractors[s]; !ok || s == format.StrategyNone {
		return false
	}
	return g.maxSource <= 0 || size <= g.maxSource
}

// Generate returns the thumbnail for a document, or nil when none can be built.
func (g *Generator) Generate(ctx context.Context, documentID string, strategy format.Strategy, src []byte) *model.Thumbnail {
	ext, ok := g.extractors[strategy]
	if !ok || strategy == format.StrategyNone {
		g.metrics.observe(strategy, outcomeUnsupported)
		return nil
	}
	if g.maxSource > 0 && int64(len(src)) > g.maxSource {
		g.log.Debug(ctx, "preview source too large", "document_id", documentID, "size", len(src))
		g.metrics.observe(strategy, outcomeSkipped)
		return nil
	}

	ctx, span := otel.Tracer("docvault/preview").Start(ctx, "preview.generate")
	span.SetAttributes(
		attribute.String("document.id", documentID),
		attribute.String("preview.strategy", strategy.String()),
		attribute.Int("preview.source_bytes", len(src)),
	)
	defer span.End()

	key := CacheKey(documentID, src)
	if g.cache != nil {
		if th, ok := g.cache.Get(ctx, key); ok {
			g.metrics.observe(strategy, outcomeCached)
			span.SetAttributes(attribute.Bool("preview.cached", true))
			return withDocumentID(th, documentID)
		}
	}

	// Shared by every caller joining key; run bounds it by timeout.
	shared := context.WithoutCancel(ctx)
	v, err, _ := g.group.Do(key, func() (any, error) {
		th, err := g.run(shared, ext, src)
		if err != nil {
			return nil, err
		}
		if g.cache != nil {
			g.cache.Set(shared, key, th)
		}
		return th, nil
	})

	th, _ := v.(*model.Thumbnail)
	if err != nil || th == nil {
		outcome := failureOutcome(err)
		g.metrics.observe(strategy, outcome)
		if outcome != outcomeAbsent {
			span.SetStatus(codes.Error, outcome)
		}
		return nil
	}
	g.metrics.observe(strategy, outcomeGenerated)
	return withDocumentID(th, documentID)
}

type result struct {
	th  *model.Thumbnail
	err error
}

// run executes one extraction under the configured timeout. The extractor keeps
// running in its goroutine after a timeout but its result is discarded.
func (g *Generator) run(ctx context.Context, ext Extractor, src []byte) (*model.Thumbnail, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("extractor panic: %v", r)}
			}
		}()
		th, err := ext.Extract(ctx, src, g.size)
		if err == nil && th == nil {
			err = ErrNoPreview
		}
		ch <- result{th: th, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			g.degraded(ctx, r.err)
		}
		return r.th, r.err
	case <-ctx.Done():
		g.degraded(ctx, ctx.Err())
		return nil, ctx.Err()
	}
}

func (g *Generator) degraded(ctx context.Context, err error) {
	if errors.Is(err, ErrNoPreview) {
		return
	}
	g.log.Debug(ctx, "preview extraction degraded", "error", err.Error())
}

func failureOutcome(err error) string {
	switch {
	case err == nil, errors.Is(err, ErrNoPreview):
		return outcomeAbsent
	case errors.Is(err, context.DeadlineExceeded):
		return outcomeTimeout
	default:
		return outcomeFailed
	}
}

func withDocumentID(th *model.Thumbnail, documentID string) *model.Thumbnail {
	out := *th
	out.DocumentID = documentID
	return &out
}
