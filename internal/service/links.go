package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	nanoid "github.com/jaevor/go-nanoid"

	"docvault/internal/logging"
	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

// TokenLength is the number of characters in an issued token.
const TokenLength = 32

// tokenAlphabet is the URL-safe alphabet of nanoid.Standard.
const tokenAlphabet = "_-0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// LinkService issues and redeems public access tokens.
// Tokens never expire and are not consumed by redemption.
type LinkService interface {
	// Issue mints a fresh token for an existing document. Nothing is stored
	// when the document does not exist.
	Issue(ctx context.Context, documentID string) (*model.AccessToken, error)

	// Redeem returns the document id bound to token, or ErrTokenInvalid.
	Redeem(ctx context.Context, token string) (string, error)
}

type linkService struct {
	store    storage.Storage
	tokens   repository.TokenRepository
	generate func() string
	log      logging.Logger
	now      func() time.Time
}

// NewLinkService constructs a LinkService backed by a crypto-random nanoid source.
func NewLinkService(store storage.Storage, tokens repository.TokenRepository, log logging.Logger) (LinkService, error) {
	gen, err := nanoid.Standard(TokenLength)
	if err != nil {
		return nil, fmt.Errorf("token generator: %w", err)
	}
	if log == nil {
		log = logging.Nop()
	}
	return &linkService{
		store:    store,
		tokens:   tokens,
		generate: gen,
		log:      log.With("component", "links"),
		now:      time.Now,
	}, nil
}

func (s *linkService) Issue(ctx context.Context, documentID string) (*model.AccessToken, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, fmt.Errorf("%w: document id is required", ErrValidation)
	}
	exists, err := storage.Exists(ctx, s.store, documentID)
	if err != nil {
		return nil, unavailable("check document", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	tok := &model.AccessToken{
		Token:      s.generate(),
		DocumentID: documentID,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.tokens.StoreToken(ctx, tok); err != nil {
		return nil, unavailable("store token", err)
	}
	s.log.Info(ctx, "public link issued", "document_id", documentID)
	return tok, nil
}

func (s *linkService) Redeem(ctx context.Context, token string) (string, error) {
	if !IsValidToken(token) {
		return "", ErrTokenInvalid
	}
	tok, err := s.tokens.ResolveToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrTokenInvalid
		}
		return "", unavailable("resolve token", err)
	}
	return tok.DocumentID, nil
}

// IsValidToken checks the shape of a token without consulting the store.
func IsValidToken(token string) bool {
	if len(token) != TokenLength {
		return false
	}
	for _, c := range token {
		if !strings.ContainsRune(tokenAlphabet, c) {
			return false
		}
	}
	return true
}
