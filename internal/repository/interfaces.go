package repository

import (
	"context"
	"time"

	"github.com/vytor/cfpractice/internal/models"
)

// UserCacheRepository persists the per-handle tiered cache entry.
type UserCacheRepository interface {
	// Get returns nil, nil when no entry exists for the handle.
	Get(ctx context.Context, handle string) (*models.UserData, error)
	Save(ctx context.Context, data *models.UserData) error
	Delete(ctx context.Context, handle string) error
	Handles(ctx context.Context) ([]string, error)
}

// HistoryRepository persists recommendation history entries.
type HistoryRepository interface {
	List(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryEntry, error)
	UpsertBatch(ctx context.Context, handle string, entries []models.HistoryEntry) error
	MarkSolved(ctx context.Context, handle, problemKey string, solveTime *int64, solvedAt time.Time) error
	Clear(ctx context.Context, handle string) error
	Handles(ctx context.Context) ([]string, error)
}

// CatalogRepository persists the problem catalog and contest-year caches.
// Get methods return nil, nil on a cache miss.
type CatalogRepository interface {
	GetProblemset(ctx context.Context) (*models.CachedProblemset, error)
	SaveProblemset(ctx context.Context, cache *models.CachedProblemset) error
	GetContestYears(ctx context.Context) (*models.CachedContestYears, error)
	SaveContestYears(ctx context.Context, cache *models.CachedContestYears) error
}

// SettingsRepository persists small key-value settings such as the last
// used handle and the year filter.
type SettingsRepository interface {
	// Get returns ok=false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	All(ctx context.Context) (map[string]string, error)
}

// TimerRepository persists the coordinator's process-wide timer state so
// it survives restarts.
type TimerRepository interface {
	LoadActive(ctx context.Context) (map[string]time.Time, error)
	SaveActive(ctx context.Context, timers map[string]time.Time) error
	LoadSolved(ctx context.Context) (map[string]models.SolvedRecord, error)
	SaveSolved(ctx context.Context, records map[string]models.SolvedRecord) error
}
