package mocks

import (
	"context"

	"docvault/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockTokenRepository struct {
	mock.Mock
}

func (m *MockTokenRepository) StoreToken(ctx context.Context, tok *model.AccessToken) error {
	args := m.Called(ctx, tok)
	return args.Error(0)
}

func (m *MockTokenRepository) ResolveToken(ctx context.Context, token string) (*model.AccessToken, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessToken), args.Error(1)
}
