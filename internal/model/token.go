package model

import "time"

// AccessToken binds an opaque public token to exactly one document.
// Tokens are immutable once created.
type AccessToken struct {
	Token      string    `json:"token"`
	DocumentID string    `json:"document_id"`
	CreatedAt  time.Time `json:"created_at"`
}
