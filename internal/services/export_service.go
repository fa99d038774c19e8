package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/vytor/cfpractice/internal/errors"
	"github.com/vytor/cfpractice/internal/logger"
	"github.com/vytor/cfpractice/internal/models"
	"github.com/vytor/cfpractice/internal/repository"
	"github.com/vytor/cfpractice/internal/timers"
)

// Key prefixes and names of the snapshot document. These match the
// key layout browser exports use, so snapshots stay interchangeable.
const (
	keyUserDataPrefix = "userData_"
	keyHistoryPrefix  = "history_"
	keyProblemset     = "problemsetCache"
	keyContestData    = "contestDataCache"
	keyActiveTimers   = "activeTimers"
	keySolvedProblems = "solvedProblems"
)

// Snapshot is the full persistent store as one structured document.
type Snapshot map[string]json.RawMessage

// storedUserData is the wire shape of a user cache entry inside a
// snapshot, with the solved set flattened to a list.
type storedUserData struct {
	Rating          int        `json:"rating"`
	RatingCheckedAt *time.Time `json:"ratingCheckedAt,omitempty"`
	FullCheckedAt   *time.Time `json:"fullCheckedAt,omitempty"`
	QuickCheckedAt  *time.Time `json:"quickCheckedAt,omitempty"`
	SolvedList      []string   `json:"solvedList"`
}

// ExportService produces and consumes full-store snapshots.
type ExportService interface {
	Export(ctx context.Context) (Snapshot, error)
	// Import replaces the whole store with the snapshot's content,
	// lower-casing handle-derived keys and dropping records that violate
	// their own identity, then reloads the timer coordinator.
	Import(ctx context.Context, snap Snapshot) error
}

type exportService struct {
	users       repository.UserCacheRepository
	history     repository.HistoryRepository
	catalog     repository.CatalogRepository
	settings    repository.SettingsRepository
	timers      repository.TimerRepository
	coordinator *timers.Coordinator
}

// NewExportService creates a new ExportService
func NewExportService(users repository.UserCacheRepository, history repository.HistoryRepository,
	catalog repository.CatalogRepository, settings repository.SettingsRepository,
	timerRepo repository.TimerRepository, coordinator *timers.Coordinator) ExportService {
	return &exportService{
		users:       users,
		history:     history,
		catalog:     catalog,
		settings:    settings,
		timers:      timerRepo,
		coordinator: coordinator,
	}
}

func (s *exportService) Export(ctx context.Context) (Snapshot, error) {
	log := logger.FromContext(ctx)
	snap := make(Snapshot)

	handles, err := s.users.Handles(ctx)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	for _, handle := range handles {
		data, err := s.users.Get(ctx, handle)
		if err != nil {
			return nil, errors.NewInternalError(err)
		}
		if data == nil {
			continue
		}
		if err := snap.put(keyUserDataPrefix+handle, storedUserData{
			Rating:          data.Rating,
			RatingCheckedAt: data.RatingCheckedAt,
			FullCheckedAt:   data.FullCheckedAt,
			QuickCheckedAt:  data.QuickCheckedAt,
			SolvedList:      data.SolvedList(),
		}); err != nil {
			return nil, errors.NewInternalError(err)
		}
	}

	historyHandles, err := s.history.Handles(ctx)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	for _, handle := range historyHandles {
		entries, err := s.history.List(ctx, models.HistoryFilter{Handle: handle})
		if err != nil {
			return nil, errors.NewInternalError(err)
		}
		keyed := make(map[string]models.HistoryEntry, len(entries))
		for _, e := range entries {
			keyed[e.Key()] = e
		}
		if err := snap.put(keyHistoryPrefix+handle, keyed); err != nil {
			return nil, errors.NewInternalError(err)
		}
	}

	if problemset, err := s.catalog.GetProblemset(ctx); err == nil && problemset != nil {
		if err := snap.put(keyProblemset, problemset); err != nil {
			return nil, errors.NewInternalError(err)
		}
	}
	if contestYears, err := s.catalog.GetContestYears(ctx); err == nil && contestYears != nil {
		if err := snap.put(keyContestData, contestYears); err != nil {
			return nil, errors.NewInternalError(err)
		}
	}

	settings, err := s.settings.All(ctx)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if handle, ok := settings[SettingLastHandle]; ok {
		if err := snap.put(SettingLastHandle, handle); err != nil {
			return nil, errors.NewInternalError(err)
		}
	}
	if raw, ok := settings[SettingYearFilter]; ok {
		snap[SettingYearFilter] = json.RawMessage(raw)
	}

	timerState, err := s.coordinator.Snapshot(ctx)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if err := snap.put(keyActiveTimers, timerState.ActiveTimers); err != nil {
		return nil, errors.NewInternalError(err)
	}
	if err := snap.put(keySolvedProblems, timerState.SolvedProblems); err != nil {
		return nil, errors.NewInternalError(err)
	}

	log.Info("exported snapshot with %d keys", len(snap))
	return snap, nil
}

func (snap Snapshot) put(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	snap[key] = raw
	return nil
}

func (s *exportService) Import(ctx context.Context, snap Snapshot) error {
	log := logger.FromContext(ctx)
	if len(snap) == 0 {
		return errors.NewBadRequestError("snapshot is empty")
	}

	if err := s.wipe(ctx); err != nil {
		return err
	}

	for key, raw := range snap {
		var err error
		switch {
		case strings.HasPrefix(key, keyUserDataPrefix):
			err = s.importUserData(ctx, strings.TrimPrefix(key, keyUserDataPrefix), raw)
		case strings.HasPrefix(key, keyHistoryPrefix):
			err = s.importHistory(ctx, strings.TrimPrefix(key, keyHistoryPrefix), raw)
		case key == keyProblemset:
			err = s.importProblemset(ctx, raw)
		case key == keyContestData:
			err = s.importContestYears(ctx, raw)
		case key == SettingLastHandle:
			err = s.importLastHandle(ctx, raw)
		case key == SettingYearFilter:
			err = s.importYearFilter(ctx, raw)
		case key == keyActiveTimers:
			err = s.importActiveTimers(ctx, raw)
		case key == keySolvedProblems:
			err = s.importSolvedRecords(ctx, raw)
		default:
			log.Warn("skipping unknown snapshot key: %s", key)
		}
		if err != nil {
			return err
		}
	}

	if err := s.coordinator.Reload(ctx); err != nil {
		return errors.NewInternalError(err)
	}

	log.Info("imported snapshot with %d keys", len(snap))
	return nil
}

// wipe clears everything the snapshot will replace. Import is a full
// replace, not a merge.
func (s *exportService) wipe(ctx context.Context) error {
	handles, err := s.users.Handles(ctx)
	if err != nil {
		return errors.NewInternalError(err)
	}
	for _, handle := range handles {
		if err := s.users.Delete(ctx, handle); err != nil {
			return errors.NewInternalError(err)
		}
	}

	historyHandles, err := s.history.Handles(ctx)
	if err != nil {
		return errors.NewInternalError(err)
	}
	for _, handle := range historyHandles {
		if err := s.history.Clear(ctx, handle); err != nil {
			return errors.NewInternalError(err)
		}
	}

	for _, key := range []string{SettingLastHandle, SettingYearFilter} {
		if err := s.settings.Delete(ctx, key); err != nil {
			return errors.NewInternalError(err)
		}
	}

	if err := s.timers.SaveActive(ctx, map[string]time.Time{}); err != nil {
		return errors.NewInternalError(err)
	}
	if err := s.timers.SaveSolved(ctx, map[string]models.SolvedRecord{}); err != nil {
		return errors.NewInternalError(err)
	}
	return nil
}

func (s *exportService) importUserData(ctx context.Context, handle string, raw json.RawMessage) error {
	var stored storedUserData
	if err := json.Unmarshal(raw, &stored); err != nil {
		return errors.NewBadRequestError("malformed user data for handle " + handle)
	}

	solved := make(map[string]bool, len(stored.SolvedList))
	for _, key := range stored.SolvedList {
		solved[key] = true
	}

	data := &models.UserData{
		Handle:          normalizeHandle(handle),
		Rating:          stored.Rating,
		RatingCheckedAt: stored.RatingCheckedAt,
		FullCheckedAt:   stored.FullCheckedAt,
		QuickCheckedAt:  stored.QuickCheckedAt,
		Solved:          solved,
	}
	if err := s.users.Save(ctx, data); err != nil {
		return errors.NewInternalError(err)
	}
	return nil
}

func (s *exportService) importHistory(ctx context.Context, handle string, raw json.RawMessage) error {
	log := logger.FromContext(ctx)

	var keyed map[string]models.HistoryEntry
	if err := json.Unmarshal(raw, &keyed); err != nil {
		return errors.NewBadRequestError("malformed history for handle " + handle)
	}

	entries := make([]models.HistoryEntry, 0, len(keyed))
	for key, entry := range keyed {
		// An entry whose map key disagrees with its own identity would
		// orphan itself; drop it rather than import a broken record.
		if entry.Key() != key {
			log.Warn("dropping history entry with mismatched key %s (record says %s)", key, entry.Key())
			continue
		}
		if entry.Status != models.StatusRecommended && entry.Status != models.StatusSolved {
			log.Warn("dropping history entry %s with unknown status %q", key, entry.Status)
			continue
		}
		entries = append(entries, entry)
	}

	if err := s.history.UpsertBatch(ctx, normalizeHandle(handle), entries); err != nil {
		return errors.NewInternalError(err)
	}
	return nil
}

func (s *exportService) importProblemset(ctx context.Context, raw json.RawMessage) error {
	var cache models.CachedProblemset
	if err := json.Unmarshal(raw, &cache); err != nil {
		return errors.NewBadRequestError("malformed problemset cache")
	}
	if err := s.catalog.SaveProblemset(ctx, &cache); err != nil {
		return errors.NewInternalError(err)
	}
	return nil
}

func (s *exportService) importContestYears(ctx context.Context, raw json.RawMessage) error {
	var cache models.CachedContestYears
	if err := json.Unmarshal(raw, &cache); err != nil {
		return errors.NewBadRequestError("malformed contest data cache")
	}
	if err := s.catalog.SaveContestYears(ctx, &cache); err != nil {
		return errors.NewInternalError(err)
	}
	return nil
}

func (s *exportService) importLastHandle(ctx context.Context, raw json.RawMessage) error {
	var handle string
	if err := json.Unmarshal(raw, &handle); err != nil {
		return errors.NewBadRequestError("malformed lastHandle")
	}
	if err := s.settings.Set(ctx, SettingLastHandle, normalizeHandle(handle)); err != nil {
		return errors.NewInternalError(err)
	}
	return nil
}

func (s *exportService) importYearFilter(ctx context.Context, raw json.RawMessage) error {
	var years models.YearRange
	if err := json.Unmarshal(raw, &years); err != nil {
		return errors.NewBadRequestError("malformed yearFilter")
	}
	if err := s.settings.Set(ctx, SettingYearFilter, string(raw)); err != nil {
		return errors.NewInternalError(err)
	}
	return nil
}

func (s *exportService) importActiveTimers(ctx context.Context, raw json.RawMessage) error {
	var active map[string]time.Time
	if err := json.Unmarshal(raw, &active); err != nil {
		return errors.NewBadRequestError("malformed activeTimers")
	}
	if err := s.timers.SaveActive(ctx, active); err != nil {
		return errors.NewInternalError(err)
	}
	return nil
}

func (s *exportService) importSolvedRecords(ctx context.Context, raw json.RawMessage) error {
	var solved map[string]models.SolvedRecord
	if err := json.Unmarshal(raw, &solved); err != nil {
		return errors.NewBadRequestError("malformed solvedProblems")
	}
	if err := s.timers.SaveSolved(ctx, solved); err != nil {
		return errors.NewInternalError(err)
	}
	return nil
}
