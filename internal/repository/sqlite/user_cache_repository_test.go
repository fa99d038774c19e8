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

type UserCacheRepositorySuite struct {
	suite.Suite
	db   *sql.DB
	repo repository.UserCacheRepository
}

func (s *UserCacheRepositorySuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.repo = sqlite.NewUserCacheRepository(s.db)
}

func (s *UserCacheRepositorySuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func (s *UserCacheRepositorySuite) TestGetMissingReturnsNil() {
	data, err := s.repo.Get(context.Background(), "nobody")
	s.Require().NoError(err)
	s.Assert().Nil(data)
}

func (s *UserCacheRepositorySuite) TestSaveAndGetRoundTrip() {
	ctx := context.Background()
	checked := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	err := s.repo.Save(ctx, &models.UserData{
		Handle:          "tourist",
		Rating:          3800,
		RatingCheckedAt: &checked,
		FullCheckedAt:   &checked,
		Solved:          map[string]bool{"1500A": true, "1600B": true},
	})
	s.Require().NoError(err)

	got, err := s.repo.Get(ctx, "tourist")
	s.Require().NoError(err)
	s.Require().NotNil(got)

	s.Assert().Equal("tourist", got.Handle)
	s.Assert().Equal(3800, got.Rating)
	s.Require().NotNil(got.RatingCheckedAt)
	s.Assert().True(got.RatingCheckedAt.Equal(checked))
	s.Require().NotNil(got.FullCheckedAt)
	s.Assert().Nil(got.QuickCheckedAt, "never-fetched tiers stay nil")
	s.Assert().Equal(map[string]bool{"1500A": true, "1600B": true}, got.Solved)
}

func (s *UserCacheRepositorySuite) TestSaveOverwrites() {
	ctx := context.Background()

	s.Require().NoError(s.repo.Save(ctx, &models.UserData{
		Handle: "tourist", Rating: 3700, Solved: map[string]bool{"1500A": true},
	}))
	s.Require().NoError(s.repo.Save(ctx, &models.UserData{
		Handle: "tourist", Rating: 3800, Solved: map[string]bool{"1500A": true, "1700C": true},
	}))

	got, err := s.repo.Get(ctx, "tourist")
	s.Require().NoError(err)
	s.Assert().Equal(3800, got.Rating)
	s.Assert().Len(got.Solved, 2)
}

func (s *UserCacheRepositorySuite) TestDeleteAndHandles() {
	ctx := context.Background()

	s.Require().NoError(s.repo.Save(ctx, &models.UserData{Handle: "alice"}))
	s.Require().NoError(s.repo.Save(ctx, &models.UserData{Handle: "bob"}))

	handles, err := s.repo.Handles(ctx)
	s.Require().NoError(err)
	s.Assert().Equal([]string{"alice", "bob"}, handles)

	s.Require().NoError(s.repo.Delete(ctx, "alice"))

	handles, err = s.repo.Handles(ctx)
	s.Require().NoError(err)
	s.Assert().Equal([]string{"bob"}, handles)

	data, err := s.repo.Get(ctx, "alice")
	s.Require().NoError(err)
	s.Assert().Nil(data)
}

func TestUserCacheRepositorySuite(t *testing.T) {
	suite.Run(t, new(UserCacheRepositorySuite))
}
