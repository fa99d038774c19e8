package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/vytor/cfpractice/internal/logger"
	"github.com/vytor/cfpractice/internal/models"
	"github.com/vytor/cfpractice/internal/repository"
)

const (
	problemsetKey   = "problemset"
	contestYearsKey = "contest_years"
)

type catalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository creates a sqlite-backed CatalogRepository
func NewCatalogRepository(db *sql.DB) repository.CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) get(ctx context.Context, key string, out any) (time.Time, bool, error) {
	var (
		payload   string
		fetchedAt time.Time
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT payload, fetched_at FROM catalog_cache WHERE cache_key = ?`, key).
		Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return time.Time{}, false, err
	}
	return fetchedAt, true, nil
}

func (r *catalogRepository) set(ctx context.Context, key string, payload any, fetchedAt time.Time) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO catalog_cache (cache_key, payload, fetched_at)
VALUES (?, ?, ?)
ON CONFLICT(cache_key) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at
`, key, string(raw), fetchedAt)
	return err
}

func (r *catalogRepository) GetProblemset(ctx context.Context) (*models.CachedProblemset, error) {
	log := logger.FromContext(ctx).WithPrefix("catalog_repo")

	var problems []models.Problem
	fetchedAt, ok, err := r.get(ctx, problemsetKey, &problems)
	if err != nil {
		log.Error("failed to read problemset cache: %v", err)
		return nil, err
	}
	if !ok {
		log.Debug("problemset cache miss")
		return nil, nil
	}
	log.Debug("problemset cache hit: %d problems", len(problems))
	return &models.CachedProblemset{Problems: problems, FetchedAt: fetchedAt}, nil
}

func (r *catalogRepository) SaveProblemset(ctx context.Context, cache *models.CachedProblemset) error {
	log := logger.FromContext(ctx).WithPrefix("catalog_repo")
	log.Debug("saving problemset cache: %d problems", len(cache.Problems))
	return r.set(ctx, problemsetKey, cache.Problems, cache.FetchedAt)
}

func (r *catalogRepository) GetContestYears(ctx context.Context) (*models.CachedContestYears, error) {
	log := logger.FromContext(ctx).WithPrefix("catalog_repo")

	var years map[int64]int
	fetchedAt, ok, err := r.get(ctx, contestYearsKey, &years)
	if err != nil {
		log.Error("failed to read contest-year cache: %v", err)
		return nil, err
	}
	if !ok {
		log.Debug("contest-year cache miss")
		return nil, nil
	}
	log.Debug("contest-year cache hit: %d contests", len(years))
	return &models.CachedContestYears{Years: years, FetchedAt: fetchedAt}, nil
}

func (r *catalogRepository) SaveContestYears(ctx context.Context, cache *models.CachedContestYears) error {
	log := logger.FromContext(ctx).WithPrefix("catalog_repo")
	log.Debug("saving contest-year cache: %d contests", len(cache.Years))
	return r.set(ctx, contestYearsKey, cache.Years, cache.FetchedAt)
}
