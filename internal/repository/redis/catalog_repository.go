// Package redis implements the catalog cache repository on Redis. The
// 24-hour freshness window maps onto key TTLs, so an expired cache simply
// reads as a miss.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vytor/cfpractice/internal/logger"
	"github.com/vytor/cfpractice/internal/models"
	"github.com/vytor/cfpractice/internal/repository"
)

const (
	problemsetKey   = "cfpractice:problemset"
	contestYearsKey = "cfpractice:contest_years"
)

type catalogRepository struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewCatalogRepository creates a redis-backed CatalogRepository. Entries
// expire after ttl, matching the full-recheck window.
func NewCatalogRepository(addr string, db int, ttl time.Duration) repository.CatalogRepository {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return &catalogRepository{
		client: client,
		ttl:    ttl,
		log:    logger.Default().WithPrefix("redis_catalog"),
	}
}

func (r *catalogRepository) get(ctx context.Context, key string, out any) (bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (r *catalogRepository) set(ctx context.Context, key string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, raw, r.ttl).Err()
}

func (r *catalogRepository) GetProblemset(ctx context.Context) (*models.CachedProblemset, error) {
	var cache models.CachedProblemset
	ok, err := r.get(ctx, problemsetKey, &cache)
	if err != nil {
		r.log.Error("failed to read problemset cache: %v", err)
		return nil, err
	}
	if !ok {
		r.log.Debug("problemset cache miss")
		return nil, nil
	}
	r.log.Debug("problemset cache hit: %d problems", len(cache.Problems))
	return &cache, nil
}

func (r *catalogRepository) SaveProblemset(ctx context.Context, cache *models.CachedProblemset) error {
	r.log.Debug("saving problemset cache: %d problems, ttl=%v", len(cache.Problems), r.ttl)
	return r.set(ctx, problemsetKey, cache)
}

func (r *catalogRepository) GetContestYears(ctx context.Context) (*models.CachedContestYears, error) {
	var cache models.CachedContestYears
	ok, err := r.get(ctx, contestYearsKey, &cache)
	if err != nil {
		r.log.Error("failed to read contest-year cache: %v", err)
		return nil, err
	}
	if !ok {
		r.log.Debug("contest-year cache miss")
		return nil, nil
	}
	return &cache, nil
}

func (r *catalogRepository) SaveContestYears(ctx context.Context, cache *models.CachedContestYears) error {
	r.log.Debug("saving contest-year cache: %d contests, ttl=%v", len(cache.Years), r.ttl)
	return r.set(ctx, contestYearsKey, cache)
}
