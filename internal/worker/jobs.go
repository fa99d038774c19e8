package worker

import (
	"context"

	"github.com/vytor/cfpractice/internal/catalog"
	"github.com/vytor/cfpractice/internal/logger"
	"github.com/vytor/cfpractice/internal/repository"
	"github.com/vytor/cfpractice/internal/services"
)

// CatalogRefreshJob warms the problem catalog and contest-year caches so
// the first recommendation request does not pay the fetch cost.
type CatalogRefreshJob struct {
	Catalog *catalog.Catalog
}

func (j *CatalogRefreshJob) Name() string { return "catalog_refresh" }

func (j *CatalogRefreshJob) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)

	problems, err := j.Catalog.Problems(ctx)
	if err != nil {
		return err
	}
	years, err := j.Catalog.ContestYears(ctx)
	if err != nil {
		return err
	}

	log.Info("catalog warm: %d problems, %d contest years", len(problems), len(years))
	return nil
}

// QuickRecheckJob is the low-frequency background tick: it re-syncs the
// last used handle with the quick tier forced and reconciles timers and
// history, so a solve is detected even with no foreground activity.
type QuickRecheckJob struct {
	Progress services.ProgressService
	Settings repository.SettingsRepository
}

func (j *QuickRecheckJob) Name() string { return "quick_recheck" }

func (j *QuickRecheckJob) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)

	handle, ok, err := j.Settings.Get(ctx, services.SettingLastHandle)
	if err != nil {
		return err
	}
	if !ok || handle == "" {
		log.Debug("no last handle recorded, nothing to recheck")
		return nil
	}

	overview, err := j.Progress.Recheck(ctx, handle)
	if err != nil {
		return err
	}
	log.Debug("background recheck complete for handle=%s: %d solved problems",
		handle, len(overview.User.Solved))
	return nil
}
