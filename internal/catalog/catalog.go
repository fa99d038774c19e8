// Package catalog serves the problem catalog and the contest-year index
// from cache, refreshing wholesale when the daily window elapses.
package catalog

import (
	"context"
	"time"

	"github.com/vytor/cfpractice/internal/codeforces"
	"github.com/vytor/cfpractice/internal/logger"
	"github.com/vytor/cfpractice/internal/models"
	"github.com/vytor/cfpractice/internal/repository"
)

type Catalog struct {
	client codeforces.ClientInterface
	repo   repository.CatalogRepository
	window time.Duration
	now    func() time.Time
}

func New(client codeforces.ClientInterface, repo repository.CatalogRepository, window time.Duration) *Catalog {
	return &Catalog{
		client: client,
		repo:   repo,
		window: window,
		now:    time.Now,
	}
}

// WithClock overrides the clock. Test hook.
func (c *Catalog) WithClock(now func() time.Time) *Catalog {
	c.now = now
	return c
}

// Problems returns the cached problemset, refetching it wholesale on
// expiry. There is no partial merge: catalog entries are immutable.
func (c *Catalog) Problems(ctx context.Context) ([]models.Problem, error) {
	log := logger.FromContext(ctx).WithPrefix("catalog")

	cached, err := c.repo.GetProblemset(ctx)
	if err == nil && cached != nil && c.now().Sub(cached.FetchedAt) < c.window {
		log.Debug("serving problemset from cache (%d problems)", len(cached.Problems))
		return cached.Problems, nil
	}
	if err != nil {
		log.Warn("problemset cache read failed, falling through to fetch: %v", err)
	}

	problems, err := c.client.FetchProblemset(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.repo.SaveProblemset(ctx, &models.CachedProblemset{
		Problems:  problems,
		FetchedAt: c.now(),
	}); err != nil {
		log.Warn("failed to persist problemset cache: %v", err)
	}
	return problems, nil
}

// ContestYears returns the contest id to year index, deriving it from the
// contest list on expiry. Contests without a start time are left out of
// the index (year unknown).
func (c *Catalog) ContestYears(ctx context.Context) (map[int64]int, error) {
	log := logger.FromContext(ctx).WithPrefix("catalog")

	cached, err := c.repo.GetContestYears(ctx)
	if err == nil && cached != nil && c.now().Sub(cached.FetchedAt) < c.window {
		log.Debug("serving contest years from cache (%d contests)", len(cached.Years))
		return cached.Years, nil
	}
	if err != nil {
		log.Warn("contest-year cache read failed, falling through to fetch: %v", err)
	}

	contests, err := c.client.FetchContests(ctx)
	if err != nil {
		return nil, err
	}

	years := make(map[int64]int, len(contests))
	for _, contest := range contests {
		if contest.StartTimeSeconds == nil {
			continue
		}
		years[contest.ID] = time.Unix(*contest.StartTimeSeconds, 0).UTC().Year()
	}

	if err := c.repo.SaveContestYears(ctx, &models.CachedContestYears{
		Years:     years,
		FetchedAt: c.now(),
	}); err != nil {
		log.Warn("failed to persist contest-year cache: %v", err)
	}
	return years, nil
}
