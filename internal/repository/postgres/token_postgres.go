package postgres

import (
	"context"
	"database/sql"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// TokenPostgres is a PostgreSQL implementation of repository.TokenRepository.
type TokenPostgres struct {
	db *sql.DB
}

// NewTokenPostgres creates a new TokenPostgres repository.
func NewTokenPostgres(db *sql.DB) *TokenPostgres {
	return &TokenPostgres{db: db}
}

var _ repository.TokenRepository = (*TokenPostgres)(nil)

// StoreToken inserts a token binding. Tokens are never updated afterwards.
func (r *TokenPostgres) StoreToken(ctx context.Context, tok *model.AccessToken) error {
	const q = `
		INSERT INTO document_tokens (token, document_id, created_at)
		VALUES ($1, $2, $3)
	`
	_, err := r.db.ExecContext(ctx, q, tok.Token, tok.DocumentID, tok.CreatedAt)
	return err
}

// ResolveToken returns the binding for token or sql.ErrNoRows.
func (r *TokenPostgres) ResolveToken(ctx context.Context, token string) (*model.AccessToken, error) {
	const q = `
		SELECT token, document_id, created_at
		FROM document_tokens
		WHERE token = $1
	`
	var t model.AccessToken
	if err := r.db.QueryRowContext(ctx, q, token).Scan(&t.Token, &t.DocumentID, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}
