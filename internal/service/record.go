package service

import (
	"context"
	"database/sql"
	"errors"
	"path"
	"regexp"
	"strings"

	"docvault/internal/logging"
	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

// idSuffix matches the uniqueness suffix appended to document ids at upload.
var idSuffix = regexp.MustCompile(`_\d+$`)

// unsafeIDChars are replaced when deriving a document id from a file name.
var unsafeIDChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// resolveRecord returns the persisted metadata for a blob. Missing rows and
// lookup failures fall back to values derived from the id and the blob itself;
// metadata never hides a document that exists in the blob store.
func resolveRecord(ctx context.Context, repo repository.DocumentRepository, log logging.Logger, info storage.ObjectInfo) model.DocumentRecord {
	rec, err := repo.FindByID(ctx, info.Key)
	switch {
	case err == nil && rec != nil:
		out := *rec
		if out.DisplayName == "" {
			out.DisplayName = displayNameFromID(info.Key)
		}
		if out.Extension == "" {
			out.Extension = path.Ext(info.Key)
		}
		return out
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		log.Warn(ctx, "metadata lookup failed, using derived values", "document_id", info.Key, "error", err.Error())
	}
	return model.DocumentRecord{
		ID:          info.Key,
		DisplayName: displayNameFromID(info.Key),
		Extension:   path.Ext(info.Key),
		UploadedAt:  info.LastModified,
	}
}

// displayNameFromID strips the uniqueness suffix: report_1760000000.pdf -> report.pdf.
func displayNameFromID(id string) string {
	ext := path.Ext(id)
	stem := strings.TrimSuffix(id, ext)
	if trimmed := idSuffix.ReplaceAllString(stem, ""); trimmed != "" {
		stem = trimmed
	}
	return stem + ext
}

// safeStem turns a display name into the filesystem-safe stem of a document id.
func safeStem(name string) string {
	stem := strings.TrimSuffix(name, path.Ext(name))
	stem = strings.Trim(unsafeIDChars.ReplaceAllString(stem, "_"), "._-")
	if stem == "" {
		stem = "document"
	}
	return stem
}

// safeExt keeps an extension only when it is id-safe.
func safeExt(name string) string {
	ext := path.Ext(name)
	if ext == "." || unsafeIDChars.MatchString(ext) {
		return ""
	}
	return ext
}
