package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zip"

	"docvault/internal/logging"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

// ArchiveName is the file name archives are served under.
const ArchiveName = "documents.zip"

// ArchiveResult is an in-memory zip of the resolvable ids of a request.
type ArchiveResult struct {
	Data     []byte
	Included []string
	Skipped  []string
}

// ArchiveService bundles documents into a single zip.
type ArchiveService interface {
	// Build adds one entry per resolvable id in input order, named by display name,
	// and counts a download for each once the archive is complete. Unresolvable
	// ids are skipped; an empty selection yields a valid empty archive.
	Build(ctx context.Context, ids []string) (*ArchiveResult, error)
}

type archiveService struct {
	store storage.Storage
	repo  repository.DocumentRepository
	log   logging.Logger
}

func NewArchiveService(store storage.Storage, repo repository.DocumentRepository, log logging.Logger) ArchiveService {
	if log == nil {
		log = logging.Nop()
	}
	return &archiveService{store: store, repo: repo, log: log.With("component", "archive")}
}

func (s *archiveService) Build(ctx context.Context, ids []string) (*ArchiveResult, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	res := &ArchiveResult{Included: []string{}, Skipped: []string{}}
	names := make(map[string]int, len(ids))

	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			res.Skipped = append(res.Skipped, id)
			continue
		}
		data, info, err := storage.ReadAll(ctx, s.store, id)
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				s.log.Debug(ctx, "archive entry skipped", "document_id", id)
				res.Skipped = append(res.Skipped, id)
				continue
			}
			return nil, unavailable("read blob", err)
		}
		info.Key = id

		rec := resolveRecord(ctx, s.repo, s.log, info)
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     entryName(names, rec.DisplayName),
			Method:   zip.Deflate,
			Modified: rec.UploadedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("create archive entry: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("write archive entry: %w", err)
		}
		res.Included = append(res.Included, id)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}

	// Counted only once the archive is complete, all or nothing.
	if len(res.Included) > 0 {
		if err := s.repo.IncrementDownloadCounts(ctx, res.Included); err != nil {
			return nil, unavailable("increment download counts", err)
		}
	}
	res.Data = buf.Bytes()

	s.log.Info(ctx, "archive built",
		"included", len(res.Included),
		"skipped", len(res.Skipped),
		"size", humanize.IBytes(uint64(len(res.Data))),
	)
	return res, nil
}

// entryName keeps zip entry names unique: a second "a.pdf" becomes "a (1).pdf".
func entryName(seen map[string]int, name string) string {
	n := seen[name]
	seen[name] = n + 1
	if n == 0 {
		return name
	}
	ext := path.Ext(name)
	candidate := fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, ext), n, ext)
	if _, taken := seen[candidate]; taken {
		return entryName(seen, name)
	}
	seen[candidate] = 1
	return candidate
}
