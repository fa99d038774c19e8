package services_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/vytor/cfpractice/internal/history"
	"github.com/vytor/cfpractice/internal/models"
	"github.com/vytor/cfpractice/internal/repository"
	"github.com/vytor/cfpractice/internal/repository/sqlite"
	"github.com/vytor/cfpractice/internal/services"
	"github.com/vytor/cfpractice/internal/testutil"
	"github.com/vytor/cfpractice/internal/timers"
)

type ExportServiceSuite struct {
	suite.Suite
	db       *sql.DB
	users    repository.UserCacheRepository
	history  repository.HistoryRepository
	catalog  repository.CatalogRepository
	settings repository.SettingsRepository
	timers   repository.TimerRepository
	ledger   *history.Ledger
	coord    *timers.Coordinator
	svc      services.ExportService
	now      time.Time
	cancel   context.CancelFunc
}

func (s *ExportServiceSuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return s.now }

	s.users = sqlite.NewUserCacheRepository(s.db)
	s.history = sqlite.NewHistoryRepository(s.db)
	s.catalog = sqlite.NewCatalogRepository(s.db)
	s.settings = sqlite.NewSettingsRepository(s.db)
	s.timers = sqlite.NewTimerRepository(s.db)

	s.ledger = history.NewLedger(s.history, s.users).WithClock(clock)
	s.coord = timers.NewCoordinator(s.timers, time.Hour).WithClock(clock)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.coord.Run(ctx)

	s.svc = services.NewExportService(s.users, s.history, s.catalog, s.settings, s.timers, s.coord)
}

func (s *ExportServiceSuite) TearDownTest() {
	s.cancel()
	testutil.MustClose(s.T(), s.db)
}

func (s *ExportServiceSuite) seedStore() {
	ctx := context.Background()

	s.Require().NoError(s.users.Save(ctx, &models.UserData{
		Handle:          "tourist",
		Rating:          1543,
		RatingCheckedAt: &s.now,
		Solved:          map[string]bool{"1500A": true},
	}))
	s.Require().NoError(s.ledger.RecordBatch(ctx, "tourist",
		[]models.Problem{{ContestID: 1600, Index: "B", Name: "P", Rating: intPtr(1600)}}, 1))
	s.Require().NoError(s.settings.Set(ctx, services.SettingLastHandle, "tourist"))
	s.Require().NoError(s.settings.Set(ctx, services.SettingYearFilter, `{"from":2018,"to":2022}`))

	started, err := s.coord.StartTimer(ctx, "1600B")
	s.Require().NoError(err)
	s.Require().True(started)
}

func (s *ExportServiceSuite) TestExportContainsEveryStoreKey() {
	s.seedStore()

	snap, err := s.svc.Export(context.Background())
	s.Require().NoError(err)

	s.Assert().Contains(snap, "userData_tourist")
	s.Assert().Contains(snap, "history_tourist")
	s.Assert().Contains(snap, "lastHandle")
	s.Assert().Contains(snap, "yearFilter")
	s.Assert().Contains(snap, "activeTimers")
	s.Assert().Contains(snap, "solvedProblems")

	var active map[string]time.Time
	s.Require().NoError(json.Unmarshal(snap["activeTimers"], &active))
	s.Assert().Contains(active, "1600B")
}

func (s *ExportServiceSuite) TestExportImportRoundTrip() {
	ctx := context.Background()
	s.seedStore()

	snap, err := s.svc.Export(ctx)
	s.Require().NoError(err)

	// Mutate the store, then restore from the snapshot.
	s.Require().NoError(s.ledger.Clear(ctx, "tourist"))
	s.Require().NoError(s.settings.Set(ctx, services.SettingLastHandle, "petr"))

	s.Require().NoError(s.svc.Import(ctx, snap))

	data, err := s.users.Get(ctx, "tourist")
	s.Require().NoError(err)
	s.Require().NotNil(data)
	s.Assert().Equal(1543, data.Rating)
	s.Assert().True(data.Solved["1500A"])

	entries, err := s.ledger.List(ctx, "tourist")
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Assert().Equal("1600B", entries[0].Key())

	handle, ok, err := s.settings.Get(ctx, services.SettingLastHandle)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Assert().Equal("tourist", handle)

	// The coordinator picked the restored timers back up.
	timerSnap, err := s.coord.Snapshot(ctx)
	s.Require().NoError(err)
	s.Assert().Contains(timerSnap.ActiveTimers, "1600B")
}

func (s *ExportServiceSuite) TestImportIsFullReplace() {
	ctx := context.Background()
	s.seedStore()

	snap := services.Snapshot{}
	raw, err := json.Marshal(map[string]any{"rating": 2000, "solvedList": []string{"42A"}})
	s.Require().NoError(err)
	snap["userData_petr"] = raw

	s.Require().NoError(s.svc.Import(ctx, snap))

	// Prior contents are gone, not merged.
	old, err := s.users.Get(ctx, "tourist")
	s.Require().NoError(err)
	s.Assert().Nil(old)

	entries, err := s.ledger.List(ctx, "tourist")
	s.Require().NoError(err)
	s.Assert().Empty(entries)

	data, err := s.users.Get(ctx, "petr")
	s.Require().NoError(err)
	s.Require().NotNil(data)
	s.Assert().Equal(2000, data.Rating)
	s.Assert().True(data.Solved["42A"])
}

func (s *ExportServiceSuite) TestImportLowercasesHandles() {
	ctx := context.Background()

	raw, err := json.Marshal(map[string]any{"rating": 1543, "solvedList": []string{}})
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Import(ctx, services.Snapshot{"userData_Tourist": raw}))

	data, err := s.users.Get(ctx, "tourist")
	s.Require().NoError(err)
	s.Require().NotNil(data)
}

func (s *ExportServiceSuite) TestImportDropsMismatchedHistoryKeys() {
	ctx := context.Background()

	historyDoc := map[string]models.HistoryEntry{
		"1600B": {ContestID: 1600, Index: "B", Name: "P", Status: models.StatusRecommended, Day: "2024-06-15", Order: 1},
		// Key says 999Z but the record identifies as 1600B.
		"999Z": {ContestID: 1600, Index: "B", Name: "P", Status: models.StatusRecommended, Day: "2024-06-15", Order: 1},
		// Unknown status.
		"1700C": {ContestID: 1700, Index: "C", Name: "P", Status: "paused", Day: "2024-06-15", Order: 1},
	}
	raw, err := json.Marshal(historyDoc)
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Import(ctx, services.Snapshot{"history_tourist": raw}))

	entries, err := s.ledger.List(ctx, "tourist")
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Assert().Equal("1600B", entries[0].Key())
}

func (s *ExportServiceSuite) TestImportRejectsEmptySnapshot() {
	err := s.svc.Import(context.Background(), services.Snapshot{})
	s.Require().Error(err)
}

func TestExportServiceSuite(t *testing.T) {
	suite.Run(t, new(ExportServiceSuite))
}
