package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/cfpractice/internal/services"
)

// MockProgressService is a mock implementation of services.ProgressService
type MockProgressService struct {
	mock.Mock
}

func (m *MockProgressService) Load(ctx context.Context, handle string) (*services.Overview, error) {
	args := m.Called(ctx, handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Overview), args.Error(1)
}

func (m *MockProgressService) Recheck(ctx context.Context, handle string) (*services.Overview, error) {
	args := m.Called(ctx, handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Overview), args.Error(1)
}

func (m *MockProgressService) ClearHistory(ctx context.Context, handle string) error {
	args := m.Called(ctx, handle)
	return args.Error(0)
}
