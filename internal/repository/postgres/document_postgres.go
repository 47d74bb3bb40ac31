package postgres

import (
	"context"
	"database/sql"
	"errors"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

// Create inserts a new document row.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.DocumentRecord) error {
	const q = `
		INSERT INTO documents (id, display_name, extension, uploaded_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, q,
		doc.ID,
		doc.DisplayName,
		doc.Extension,
		doc.UploadedAt,
	)
	return err
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.DocumentRecord, error) {
	const q = `
		SELECT id, display_name, extension, uploaded_at
		FROM documents
		WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, q, id)
	var d model.DocumentRecord
	if err := row.Scan(
		&d.ID,
		&d.DisplayName,
		&d.Extension,
		&d.UploadedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDownloadCount returns the stored counter, or zero when the document was never downloaded.
func (r *DocumentPostgres) GetDownloadCount(ctx context.Context, id string) (int64, error) {
	const q = `SELECT download_count FROM document_downloads WHERE document_id = $1`
	var n int64
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

const incrementDownloadsQuery = `
	INSERT INTO document_downloads (document_id, download_count)
	VALUES ($1, 1)
	ON CONFLICT (document_id)
	DO UPDATE SET download_count = document_downloads.download_count + 1
`

// IncrementDownloadCount upserts the counter row; the database serializes concurrent increments.
func (r *DocumentPostgres) IncrementDownloadCount(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, incrementDownloadsQuery, id)
	return err
}

// IncrementDownloadCounts runs one upsert per id inside a transaction.
func (r *DocumentPostgres) IncrementDownloadCounts(ctx context.Context, ids []string) (err error) {
	if len(ids) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, id := range ids {
		if _, err = tx.ExecContext(ctx, incrementDownloadsQuery, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}
