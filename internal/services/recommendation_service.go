package services

import (
	"context"
	"encoding/json"
	"math/rand/v2"

	"github.com/vytor/cfpractice/internal/catalog"
	"github.com/vytor/cfpractice/internal/errors"
	"github.com/vytor/cfpractice/internal/history"
	"github.com/vytor/cfpractice/internal/logger"
	"github.com/vytor/cfpractice/internal/models"
	"github.com/vytor/cfpractice/internal/recommend"
	"github.com/vytor/cfpractice/internal/repository"
	"github.com/vytor/cfpractice/internal/syncer"
	"github.com/vytor/cfpractice/internal/timers"
)

// Settings keys persisted across sessions.
const (
	SettingLastHandle = "lastHandle"
	SettingYearFilter = "yearFilter"
)

// RecommendationResult is one produced batch.
type RecommendationResult struct {
	Problems []models.Problem `json:"problems"`
	Order    int              `json:"recommendationOrder"`
	Rating   int              `json:"rating"`
}

// RecommendationService produces recommendation batches.
type RecommendationService interface {
	// Recommend syncs the handle, selects a batch of unsolved problems in
	// the user's band, records it in the ledger, and returns it. An empty
	// batch is a valid outcome, not an error.
	Recommend(ctx context.Context, handle string, years models.YearRange) (*RecommendationResult, error)
	// LastSession returns the persisted handle and year filter, if any.
	LastSession(ctx context.Context) (handle string, years models.YearRange, err error)
}

type recommendationService struct {
	syncer      *syncer.Syncer
	catalog     *catalog.Catalog
	ledger      *history.Ledger
	coordinator *timers.Coordinator
	settings    repository.SettingsRepository
	batchSize   int
	rng         *rand.Rand
}

// NewRecommendationService creates a new RecommendationService. A nil rng
// uses the shared random source.
func NewRecommendationService(s *syncer.Syncer, c *catalog.Catalog, l *history.Ledger,
	tc *timers.Coordinator, settings repository.SettingsRepository, batchSize int, rng *rand.Rand) RecommendationService {
	return &recommendationService{
		syncer:      s,
		catalog:     c,
		ledger:      l,
		coordinator: tc,
		settings:    settings,
		batchSize:   batchSize,
		rng:         rng,
	}
}

func (s *recommendationService) Recommend(ctx context.Context, handle string, years models.YearRange) (*RecommendationResult, error) {
	log := logger.FromContext(ctx)

	handle = normalizeHandle(handle)
	if handle == "" {
		return nil, errors.NewValidationError("handle", "cannot be empty")
	}

	if err := s.rememberSession(ctx, handle, years); err != nil {
		log.Warn("failed to persist session settings: %v", err)
	}

	count, order, err := s.ledger.NextBatch(ctx, handle, s.batchSize)
	if err != nil {
		return nil, err
	}

	data, err := s.syncer.Sync(ctx, handle, false)
	if err != nil {
		return nil, err
	}
	problems, err := s.catalog.Problems(ctx)
	if err != nil {
		return nil, err
	}
	contestYears, err := s.catalog.ContestYears(ctx)
	if err != nil {
		return nil, err
	}

	picked := recommend.Select(problems, data.Solved, data.Rating, years, contestYears, count, s.rng)
	log.Info("selected %d of %d requested problems for handle=%s (rating=%d, order=%d)",
		len(picked), count, handle, data.Rating, order)

	if len(picked) > 0 {
		if err := s.ledger.RecordBatch(ctx, handle, picked, order); err != nil {
			return nil, err
		}
	}

	if err := reconcile(ctx, s.coordinator, s.ledger, handle, data.Solved); err != nil {
		return nil, err
	}

	return &RecommendationResult{Problems: picked, Order: order, Rating: data.Rating}, nil
}

func (s *recommendationService) rememberSession(ctx context.Context, handle string, years models.YearRange) error {
	if err := s.settings.Set(ctx, SettingLastHandle, handle); err != nil {
		return err
	}
	raw, err := json.Marshal(years)
	if err != nil {
		return err
	}
	return s.settings.Set(ctx, SettingYearFilter, string(raw))
}

func (s *recommendationService) LastSession(ctx context.Context) (string, models.YearRange, error) {
	var years models.YearRange

	handle, _, err := s.settings.Get(ctx, SettingLastHandle)
	if err != nil {
		return "", years, errors.NewInternalError(err)
	}

	raw, ok, err := s.settings.Get(ctx, SettingYearFilter)
	if err != nil {
		return handle, years, errors.NewInternalError(err)
	}
	if ok {
		if err := json.Unmarshal([]byte(raw), &years); err != nil {
			logger.FromContext(ctx).Warn("corrupt year filter setting, ignoring: %v", err)
		}
	}
	return handle, years, nil
}
