package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"

	"docvault/internal/format"
	"docvault/internal/logging"
	"docvault/internal/model"
	"docvault/internal/preview"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

// maxIDAttempts bounds the search for a free document id during upload.
const maxIDAttempts = 16

var errEmptyFile = errors.New("file is empty")

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// DownloadResult carries a document's bytes and the content type to serve them with.
type DownloadResult struct {
	Document    model.Document
	ContentType string
	Data        []byte
}

// UploadFile is one file of an upload batch. Open is called once.
type UploadFile struct {
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// UploadFailure names a file of a batch that was not stored and why.
type UploadFailure struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// UploadResult reports the outcome of every file in a batch.
type UploadResult struct {
	Uploaded []model.Document `json:"uploaded"`
	Failed   []UploadFailure  `json:"failed"`
}

// DocumentService defines the use cases for handling documents.
type DocumentService interface {
	// List enumerates the blob store in key order. limit 0 returns every document.
	List(ctx context.Context, limit, offset int) (*DocumentListResult, error)

	// Get returns a single document with its preview.
	Get(ctx context.Context, id string) (*model.Document, error)

	// Download reads a document and records the download.
	Download(ctx context.Context, id string) (*DownloadResult, error)

	// Upload stores each file independently. A failed file never rolls back its siblings;
	// its blob is removed if the metadata row cannot be written.
	Upload(ctx context.Context, files []UploadFile) (*UploadResult, error)
}

// DocumentServiceConfig carries the catalog settings fixed at construction.
type DocumentServiceConfig struct {
	Formats        *format.Table
	Previews       *preview.Generator
	Concurrency    int
	MaxUploadBytes int64
	Logger         logging.Logger
	Now            func() time.Time
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store       storage.Storage
	repo        repository.DocumentRepository
	formats     *format.Table
	previews    *preview.Generator
	concurrency int
	maxUpload   int64
	log         logging.Logger
	now         func() time.Time
}

// NewDocumentService constructs a new DocumentService.
// A nil Previews generator disables thumbnails.
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, cfg DocumentServiceConfig) DocumentService {
	if cfg.Formats == nil {
		cfg.Formats = format.DefaultTable()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &documentService{
		store:       store,
		repo:        repo,
		formats:     cfg.Formats,
		previews:    cfg.Previews,
		concurrency: cfg.Concurrency,
		maxUpload:   cfg.MaxUploadBytes,
		log:         cfg.Logger.With("component", "catalog"),
		now:         cfg.Now,
	}
}

func (s *documentService) List(ctx context.Context, limit, offset int) (*DocumentListResult, error) {
	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}

	objects, err := s.store.List(ctx)
	if err != nil {
		return nil, unavailable("list blobs", err)
	}

	total := len(objects)
	if offset > total {
		offset = total
	}
	window := objects[offset:]
	if limit > 0 && limit < len(window) {
		window = window[:limit]
	}

	items := make([]model.Document, len(window))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, info := range window {
		g.Go(func() error {
			doc := s.describe(gctx, info)
			s.attachPreview(gctx, &doc)
			items[i] = doc
			return nil
		})
	}
	_ = g.Wait()

	return &DocumentListResult{Items: items, Total: total}, nil
}

func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	info, err := s.stat(ctx, id)
	if err != nil {
		return nil, err
	}
	doc := s.describe(ctx, info)
	s.attachPreview(ctx, &doc)
	return &doc, nil
}

func (s *documentService) Download(ctx context.Context, id string) (*DownloadResult, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: id is required", ErrValidation)
	}
	data, info, err := storage.ReadAll(ctx, s.store, id)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable("read blob", err)
	}
	if err := s.repo.IncrementDownloadCount(ctx, id); err != nil {
		return nil, unavailable("increment download count", err)
	}

	info.Key = id
	info.Size = int64(len(data))
	doc := s.describe(ctx, info)
	return &DownloadResult{Document: doc, ContentType: doc.ContentType, Data: data}, nil
}

func (s *documentService) Upload(ctx context.Context, files []UploadFile) (*UploadResult, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files supplied", ErrValidation)
	}

	res := &UploadResult{Uploaded: []model.Document{}, Failed: []UploadFailure{}}
	for _, f := range files {
		doc, err := s.uploadOne(ctx, f)
		if err != nil {
			s.log.Warn(ctx, "upload item failed", "filename", f.Filename, "error", err.Error())
			res.Failed = append(res.Failed, UploadFailure{Filename: f.Filename, Reason: err.Error()})
			continue
		}
		s.log.Info(ctx, "document uploaded", "document_id", doc.ID, "size", humanize.IBytes(uint64(doc.Size)))
		res.Uploaded = append(res.Uploaded, *doc)
	}
	return res, nil
}

func (s *documentService) uploadOne(ctx context.Context, f UploadFile) (*model.Document, error) {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(f.Filename), `\`, "/"))
	if name == "" || name == "." || name == "/" {
		return nil, errors.New("filename is required")
	}
	if f.Open == nil {
		return nil, errors.New("file is not readable")
	}

	data, err := s.readUpload(f)
	if err != nil {
		return nil, err
	}

	ext := safeExt(name)
	id, err := s.newID(ctx, safeStem(name), ext)
	if err != nil {
		return nil, err
	}

	kind := s.formats.Classify(ext)
	objInfo, err := s.store.Put(ctx, id, bytes.NewReader(data), storage.PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: kind.ContentType,
		Metadata: map[string]string{
			"original-filename": name,
			"detected-type":     mimetype.Detect(data).String(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	rec := model.DocumentRecord{
		ID:          id,
		DisplayName: name,
		Extension:   ext,
		UploadedAt:  s.now().UTC(),
	}
	if err := s.repo.Create(ctx, &rec); err != nil {
		// Rollback: delete the object from storage
		if delErr := s.store.Delete(ctx, id); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	doc := s.document(rec, objInfo.Size)
	return &doc, nil
}

func (s *documentService) readUpload(f UploadFile) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer rc.Close()

	r := io.Reader(rc)
	if s.maxUpload > 0 {
		r = io.LimitReader(rc, s.maxUpload+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if s.maxUpload > 0 && int64(len(data)) > s.maxUpload {
		return nil, fmt.Errorf("file exceeds %s", humanize.IBytes(uint64(s.maxUpload)))
	}
	if len(data) == 0 {
		return nil, errEmptyFile
	}
	return data, nil
}

// newID derives a unique id from the file name and the upload time,
// moving the suffix forward while it collides with an existing blob.
func (s *documentService) newID(ctx context.Context, stem, ext string) (string, error) {
	suffix := s.now().UnixNano()
	for i := 0; i < maxIDAttempts; i++ {
		id := fmt.Sprintf("%s_%d%s", stem, suffix+int64(i), ext)
		exists, err := storage.Exists(ctx, s.store, id)
		if err != nil {
			return "", unavailable("check id", err)
		}
		if !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("no free id for %s%s", stem, ext)
}

func (s *documentService) stat(ctx context.Context, id string) (storage.ObjectInfo, error) {
	if strings.TrimSpace(id) == "" {
		return storage.ObjectInfo{}, fmt.Errorf("%w: id is required", ErrValidation)
	}
	info, err := s.store.Stat(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return storage.ObjectInfo{}, ErrNotFound
		}
		return storage.ObjectInfo{}, unavailable("stat blob", err)
	}
	info.Key = id
	return info, nil
}

// describe assembles the public representation of a blob without its preview.
func (s *documentService) describe(ctx context.Context, info storage.ObjectInfo) model.Document {
	rec := resolveRecord(ctx, s.repo, s.log, info)

	count, err := s.repo.GetDownloadCount(ctx, info.Key)
	if err != nil {
		s.log.Warn(ctx, "download count lookup failed", "document_id", info.Key, "error", err.Error())
	}
	rec.DownloadCount = count
	return s.document(rec, info.Size)
}

func (s *documentService) document(rec model.DocumentRecord, size int64) model.Document {
	kind := s.formats.Classify(rec.Extension)
	return model.Document{
		DocumentRecord: rec,
		Type:           strings.ToLower(strings.TrimPrefix(rec.Extension, ".")),
		ContentType:    kind.ContentType,
		Icon:           kind.Icon,
		Size:           size,
	}
}

// attachPreview reads the blob and builds its thumbnail. Every failure leaves Preview nil.
func (s *documentService) attachPreview(ctx context.Context, doc *model.Document) {
	if s.previews == nil {
		return
	}
	strategy := s.formats.Classify(doc.Extension).Strategy
	if !s.previews.Wants(strategy, doc.Size) {
		return
	}
	src, _, err := storage.ReadAll(ctx, s.store, doc.ID)
	if err != nil {
		s.log.Debug(ctx, "preview source unreadable", "document_id", doc.ID, "error", err.Error())
		return
	}
	doc.Preview = s.previews.Generate(ctx, doc.ID, strategy, src)
}
