package codeforces

import (
	"context"

	"github.com/vytor/cfpractice/internal/models"
)

// ClientInterface defines the interface for Codeforces API operations.
// This interface enables testability by allowing mock implementations.
type ClientInterface interface {
	FetchUserInfo(ctx context.Context, handle string) (*UserInfo, error)
	FetchFullSubmissions(ctx context.Context, handle string) ([]Submission, error)
	FetchRecentSubmissions(ctx context.Context, handle string, count int) ([]Submission, error)
	FetchProblemset(ctx context.Context) ([]models.Problem, error)
	FetchContests(ctx context.Context) ([]Contest, error)
}

// Ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)
