// Package syncer decides, per read, which tiers of a handle's cached
// remote data are stale, refreshes only those, and merges the result.
package syncer

import (
	"context"
	"time"

	"github.com/vytor/cfpractice/internal/codeforces"
	apperrors "github.com/vytor/cfpractice/internal/errors"
	"github.com/vytor/cfpractice/internal/logger"
	"github.com/vytor/cfpractice/internal/models"
	"github.com/vytor/cfpractice/internal/repository"
)

type Syncer struct {
	client      codeforces.ClientInterface
	users       repository.UserCacheRepository
	fullWindow  time.Duration
	quickWindow time.Duration
	quickCount  int
	now         func() time.Time
}

func New(client codeforces.ClientInterface, users repository.UserCacheRepository,
	fullWindow, quickWindow time.Duration, quickCount int) *Syncer {
	return &Syncer{
		client:      client,
		users:       users,
		fullWindow:  fullWindow,
		quickWindow: quickWindow,
		quickCount:  quickCount,
		now:         time.Now,
	}
}

// WithClock overrides the clock. Test hook.
func (s *Syncer) WithClock(now func() time.Time) *Syncer {
	s.now = now
	return s
}

// Sync refreshes the expired cache tiers for a handle and returns the
// merged entry. Tier order is fixed: rating, full scan, quick scan, so a
// full-scan recomputation is never clobbered by an earlier quick union.
// A failed required tier (rating, full scan) only aborts when no prior
// cached value exists; otherwise the stale value is kept silently. The
// merged entry is persisted once, after all attempted tiers resolve.
func (s *Syncer) Sync(ctx context.Context, handle string, forceQuick bool) (*models.UserData, error) {
	log := logger.FromContext(ctx).WithPrefix("syncer").WithField("handle", handle)
	now := s.now()

	data, err := s.users.Get(ctx, handle)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if data == nil {
		log.Debug("no cache entry, all tiers treated as expired")
		data = &models.UserData{Handle: handle}
	}
	if data.Solved == nil {
		data.Solved = make(map[string]bool)
	}

	if s.expired(data.RatingCheckedAt, now, s.fullWindow) {
		info, err := s.client.FetchUserInfo(ctx, handle)
		switch {
		case err != nil && data.RatingCheckedAt == nil:
			return nil, err
		case err != nil:
			log.Warn("rating refresh failed, keeping stale value %d: %v", data.Rating, err)
		default:
			log.Debug("rating refreshed: %d -> %d", data.Rating, info.Rating)
			data.Rating = info.Rating
			data.RatingCheckedAt = timePtr(now)
		}
	}

	if s.expired(data.FullCheckedAt, now, s.fullWindow) {
		subs, err := s.client.FetchFullSubmissions(ctx, handle)
		switch {
		case err != nil && data.FullCheckedAt == nil:
			return nil, err
		case err != nil:
			log.Warn("full recheck failed, keeping %d cached solved problems: %v", len(data.Solved), err)
		default:
			fresh := acceptedKeys(subs)
			// Union with the prior set: the solved set must never shrink,
			// even if the remote returns a truncated history.
			for k := range data.Solved {
				fresh[k] = true
			}
			data.Solved = fresh
			data.FullCheckedAt = timePtr(now)
			log.Info("full recheck complete: %d solved problems", len(data.Solved))
		}
	}

	if forceQuick || s.expired(data.QuickCheckedAt, now, s.quickWindow) {
		subs, err := s.client.FetchRecentSubmissions(ctx, handle, s.quickCount)
		if err != nil {
			log.Warn("quick recheck failed, skipping: %v", err)
		} else {
			added := 0
			for k := range acceptedKeys(subs) {
				if !data.Solved[k] {
					data.Solved[k] = true
					added++
				}
			}
			log.Debug("quick recheck merged %d newly solved problems", added)
		}
		// Stamped even on failure so a flaky remote is not hammered
		// before the quick window elapses.
		data.QuickCheckedAt = timePtr(now)
	}

	if err := s.users.Save(ctx, data); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return data, nil
}

func (s *Syncer) expired(checkedAt *time.Time, now time.Time, window time.Duration) bool {
	return checkedAt == nil || now.Sub(*checkedAt) >= window
}

func acceptedKeys(subs []codeforces.Submission) map[string]bool {
	keys := make(map[string]bool)
	for _, sub := range subs {
		if sub.Verdict == codeforces.VerdictAccepted {
			keys[sub.Problem.Key()] = true
		}
	}
	return keys
}

func timePtr(t time.Time) *time.Time {
	return &t
}
