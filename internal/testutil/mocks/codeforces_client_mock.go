package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/cfpractice/internal/codeforces"
	"github.com/vytor/cfpractice/internal/models"
)

// MockCodeforcesClient is a mock implementation of codeforces.ClientInterface
type MockCodeforcesClient struct {
	mock.Mock
}

func (m *MockCodeforcesClient) FetchUserInfo(ctx context.Context, handle string) (*codeforces.UserInfo, error) {
	args := m.Called(ctx, handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*codeforces.UserInfo), args.Error(1)
}

func (m *MockCodeforcesClient) FetchFullSubmissions(ctx context.Context, handle string) ([]codeforces.Submission, error) {
	args := m.Called(ctx, handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]codeforces.Submission), args.Error(1)
}

func (m *MockCodeforcesClient) FetchRecentSubmissions(ctx context.Context, handle string, count int) ([]codeforces.Submission, error) {
	args := m.Called(ctx, handle, count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]codeforces.Submission), args.Error(1)
}

func (m *MockCodeforcesClient) FetchProblemset(ctx context.Context) ([]models.Problem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Problem), args.Error(1)
}

func (m *MockCodeforcesClient) FetchContests(ctx context.Context) ([]codeforces.Contest, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]codeforces.Contest), args.Error(1)
}
