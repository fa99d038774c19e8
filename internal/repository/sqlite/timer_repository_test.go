package sqlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/vytor/cfpractice/internal/models"
	"github.com/vytor/cfpractice/internal/repository"
	"github.com/vytor/cfpractice/internal/repository/sqlite"
	"github.com/vytor/cfpractice/internal/testutil"
)

type TimerRepositorySuite struct {
	suite.Suite
	db   *sql.DB
	repo repository.TimerRepository
}

func (s *TimerRepositorySuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.repo = sqlite.NewTimerRepository(s.db)
}

func (s *TimerRepositorySuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func (s *TimerRepositorySuite) TestActiveRoundTrip() {
	ctx := context.Background()
	started := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	s.Require().NoError(s.repo.SaveActive(ctx, map[string]time.Time{
		"1500A": started,
		"1600B": started.Add(time.Minute),
	}))

	loaded, err := s.repo.LoadActive(ctx)
	s.Require().NoError(err)
	s.Require().Len(loaded, 2)
	s.Assert().True(loaded["1500A"].Equal(started))
	s.Assert().True(loaded["1600B"].Equal(started.Add(time.Minute)))
}

func (s *TimerRepositorySuite) TestSaveActiveReplacesWholesale() {
	ctx := context.Background()
	now := time.Now().UTC()

	s.Require().NoError(s.repo.SaveActive(ctx, map[string]time.Time{"1500A": now}))
	s.Require().NoError(s.repo.SaveActive(ctx, map[string]time.Time{"1600B": now}))

	loaded, err := s.repo.LoadActive(ctx)
	s.Require().NoError(err)
	s.Require().Len(loaded, 1)
	s.Assert().Contains(loaded, "1600B")
}

func (s *TimerRepositorySuite) TestSolvedRoundTrip() {
	ctx := context.Background()
	solvedOn := time.Date(2024, 6, 15, 12, 10, 0, 0, time.UTC)

	s.Require().NoError(s.repo.SaveSolved(ctx, map[string]models.SolvedRecord{
		"1500A": {SolveTime: 600, SolvedOn: solvedOn},
	}))

	loaded, err := s.repo.LoadSolved(ctx)
	s.Require().NoError(err)
	s.Require().Len(loaded, 1)
	s.Assert().Equal(int64(600), loaded["1500A"].SolveTime)
	s.Assert().True(loaded["1500A"].SolvedOn.Equal(solvedOn))
}

func (s *TimerRepositorySuite) TestEmptyLoads() {
	ctx := context.Background()

	active, err := s.repo.LoadActive(ctx)
	s.Require().NoError(err)
	s.Assert().Empty(active)

	solved, err := s.repo.LoadSolved(ctx)
	s.Require().NoError(err)
	s.Assert().Empty(solved)
}

func TestTimerRepositorySuite(t *testing.T) {
	suite.Run(t, new(TimerRepositorySuite))
}
