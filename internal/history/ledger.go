// Package history is the single writer of recommendation lifecycle state:
// entries are created as recommended and flip to solved exactly once.
package history

import (
	"context"
	"time"

	apperrors "github.com/vytor/cfpractice/internal/errors"
	"github.com/vytor/cfpractice/internal/logger"
	"github.com/vytor/cfpractice/internal/models"
	"github.com/vytor/cfpractice/internal/repository"
)

// DayLayout is the calendar-day granularity used for recommendedOn.
const DayLayout = "2006-01-02"

type Ledger struct {
	repo  repository.HistoryRepository
	users repository.UserCacheRepository
	now   func() time.Time
}

func NewLedger(repo repository.HistoryRepository, users repository.UserCacheRepository) *Ledger {
	return &Ledger{
		repo:  repo,
		users: users,
		now:   time.Now,
	}
}

// WithClock overrides the clock. Test hook.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// List returns the handle's history entries, newest batches first.
func (l *Ledger) List(ctx context.Context, handle string) ([]models.HistoryEntry, error) {
	entries, err := l.repo.List(ctx, models.HistoryFilter{Handle: handle})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return entries, nil
}

// NextBatch computes today's batch parameters: the first batch of a
// calendar day asks for defaultSize problems with order 1; every later
// batch that day asks for one problem with a strictly higher order.
func (l *Ledger) NextBatch(ctx context.Context, handle string, defaultSize int) (size, order int, err error) {
	today := l.now().Format(DayLayout)
	entries, err := l.repo.List(ctx, models.HistoryFilter{Handle: handle, Day: today})
	if err != nil {
		return 0, 0, apperrors.NewInternalError(err)
	}
	if len(entries) == 0 {
		return defaultSize, 1, nil
	}

	maxOrder := 0
	for _, e := range entries {
		if e.Order > maxOrder {
			maxOrder = e.Order
		}
	}
	return 1, maxOrder + 1, nil
}

// RecordBatch creates or overwrites history entries for a set of
// recommended problems. Overwriting is intentional: re-recommending an
// unsolved problem just refreshes its batch tag.
func (l *Ledger) RecordBatch(ctx context.Context, handle string, problems []models.Problem, order int) error {
	log := logger.FromContext(ctx).WithPrefix("history")

	today := l.now().Format(DayLayout)
	entries := make([]models.HistoryEntry, 0, len(problems))
	for _, p := range problems {
		entries = append(entries, models.HistoryEntry{
			ContestID: p.ContestID,
			Index:     p.Index,
			Name:      p.Name,
			Rating:    p.Rating,
			Status:    models.StatusRecommended,
			Day:       today,
			Order:     order,
		})
	}

	log.Info("recording batch %d with %d problems for handle=%s", order, len(entries), handle)
	if err := l.repo.UpsertBatch(ctx, handle, entries); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// Reconcile flips every recommended entry whose key is in the solved set
// to solved. Idempotent: a second call with the same solved set changes
// nothing and reports changed=false.
func (l *Ledger) Reconcile(ctx context.Context, handle string, solved map[string]bool) (changed bool, err error) {
	log := logger.FromContext(ctx).WithPrefix("history")

	pending, err := l.repo.List(ctx, models.HistoryFilter{Handle: handle, Status: models.StatusRecommended})
	if err != nil {
		return false, apperrors.NewInternalError(err)
	}

	now := l.now()
	for _, e := range pending {
		if !solved[e.Key()] {
			continue
		}
		if err := l.repo.MarkSolved(ctx, handle, e.Key(), nil, now); err != nil {
			return changed, apperrors.NewInternalError(err)
		}
		log.Info("problem %s solved by handle=%s", e.Key(), handle)
		changed = true
	}
	return changed, nil
}

// AttachSolveTime marks an entry solved with the elapsed duration of a
// tracked attempt. Called on behalf of the timer coordinator, which never
// writes history itself.
func (l *Ledger) AttachSolveTime(ctx context.Context, handle, problemKey string, solveTime int64) error {
	log := logger.FromContext(ctx).WithPrefix("history")
	log.Info("attaching solve time %ds to %s for handle=%s", solveTime, problemKey, handle)

	if err := l.repo.MarkSolved(ctx, handle, problemKey, &solveTime, l.now()); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// Clear deletes all history and cached user data for a handle.
// Irreversible; callers are responsible for confirming first.
func (l *Ledger) Clear(ctx context.Context, handle string) error {
	log := logger.FromContext(ctx).WithPrefix("history")
	log.Warn("clearing all history and cache for handle=%s", handle)

	if err := l.repo.Clear(ctx, handle); err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := l.users.Delete(ctx, handle); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}
