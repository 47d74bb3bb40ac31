package repository

import (
	"context"

	"docvault/internal/model"
)

// DocumentRepository defines data access for document metadata and download counters using SQL queries only.
// No business logic here, strictly persistence operations.
// Missing rows are reported as sql.ErrNoRows.
type DocumentRepository interface {
	// Create inserts a new document metadata record.
	Create(ctx context.Context, doc *model.DocumentRecord) error

	// FindByID returns the metadata record of a document, without its download count.
	FindByID(ctx context.Context, id string) (*model.DocumentRecord, error)

	// GetDownloadCount returns how many times a document was fetched; zero if never.
	GetDownloadCount(ctx context.Context, id string) (int64, error)

	// IncrementDownloadCount atomically adds one to the document's counter.
	IncrementDownloadCount(ctx context.Context, id string) error

	// IncrementDownloadCounts adds one per occurrence of each id in a single
	// transaction: either every counter moves or none does.
	IncrementDownloadCounts(ctx context.Context, ids []string) error
}

// TokenRepository persists public access token bindings.
type TokenRepository interface {
	// StoreToken inserts a new token binding.
	StoreToken(ctx context.Context, tok *model.AccessToken) error

	// ResolveToken looks up a binding by token value.
	ResolveToken(ctx context.Context, token string) (*model.AccessToken, error)
}
