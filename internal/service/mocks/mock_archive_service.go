package mocks

import (
	"context"

	"docvault/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockArchiveService struct {
	mock.Mock
}

func (m *MockArchiveService) Build(ctx context.Context, ids []string) (*service.ArchiveResult, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ArchiveResult), args.Error(1)
}
