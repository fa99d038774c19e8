package services

import (
	"context"
	"strings"

	"github.com/vytor/cfpractice/internal/errors"
	"github.com/vytor/cfpractice/internal/history"
	"github.com/vytor/cfpractice/internal/logger"
	"github.com/vytor/cfpractice/internal/models"
	"github.com/vytor/cfpractice/internal/syncer"
	"github.com/vytor/cfpractice/internal/timers"
)

// Overview is the data a progress view needs: the fresh cache entry and
// the reconciled history.
type Overview struct {
	User    *models.UserData      `json:"user"`
	History []models.HistoryEntry `json:"history"`
}

// ProgressService handles sync-and-reconcile flows for a handle.
type ProgressService interface {
	// Load syncs the handle (respecting cache windows), reconciles timers
	// and history against the solved set, and returns both.
	Load(ctx context.Context, handle string) (*Overview, error)
	// Recheck is Load with the quick tier forced regardless of its window.
	Recheck(ctx context.Context, handle string) (*Overview, error)
	// ClearHistory irreversibly deletes the handle's ledger and cache.
	ClearHistory(ctx context.Context, handle string) error
}

type progressService struct {
	syncer      *syncer.Syncer
	ledger      *history.Ledger
	coordinator *timers.Coordinator
}

// NewProgressService creates a new ProgressService
func NewProgressService(s *syncer.Syncer, l *history.Ledger, c *timers.Coordinator) ProgressService {
	return &progressService{syncer: s, ledger: l, coordinator: c}
}

func (s *progressService) Load(ctx context.Context, handle string) (*Overview, error) {
	return s.load(ctx, handle, false)
}

func (s *progressService) Recheck(ctx context.Context, handle string) (*Overview, error) {
	return s.load(ctx, handle, true)
}

func (s *progressService) load(ctx context.Context, handle string, forceQuick bool) (*Overview, error) {
	log := logger.FromContext(ctx)

	handle = normalizeHandle(handle)
	if handle == "" {
		return nil, errors.NewValidationError("handle", "cannot be empty")
	}

	data, err := s.syncer.Sync(ctx, handle, forceQuick)
	if err != nil {
		log.Error("sync failed for handle=%s: %v", handle, err)
		return nil, err
	}

	if err := reconcile(ctx, s.coordinator, s.ledger, handle, data.Solved); err != nil {
		return nil, err
	}

	entries, err := s.ledger.List(ctx, handle)
	if err != nil {
		return nil, err
	}
	return &Overview{User: data, History: entries}, nil
}

func (s *progressService) ClearHistory(ctx context.Context, handle string) error {
	handle = normalizeHandle(handle)
	if handle == "" {
		return errors.NewValidationError("handle", "cannot be empty")
	}
	return s.ledger.Clear(ctx, handle)
}

// reconcile runs the two-step solve detection shared by every flow that
// refreshes the solved set: first stop any timers for freshly solved
// problems and attach their durations through the ledger, then flip the
// remaining recommended entries. The ledger stays the single writer of
// history status.
func reconcile(ctx context.Context, c *timers.Coordinator, l *history.Ledger,
	handle string, solved map[string]bool) error {
	log := logger.FromContext(ctx)

	stopped, err := c.Reconcile(ctx, solved)
	if err != nil {
		return errors.NewInternalError(err)
	}
	for _, st := range stopped {
		if err := l.AttachSolveTime(ctx, handle, st.ProblemKey, st.SolveTime); err != nil {
			return err
		}
	}

	changed, err := l.Reconcile(ctx, handle, solved)
	if err != nil {
		return err
	}
	if changed || len(stopped) > 0 {
		log.Info("reconciled handle=%s: %d timers stopped, history changed=%v", handle, len(stopped), changed)
	}
	return nil
}

func normalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}
