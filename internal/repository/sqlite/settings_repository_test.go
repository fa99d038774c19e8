package sqlite_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/vytor/cfpractice/internal/repository"
	"github.com/vytor/cfpractice/internal/repository/sqlite"
	"github.com/vytor/cfpractice/internal/testutil"
)

type SettingsRepositorySuite struct {
	suite.Suite
	db   *sql.DB
	repo repository.SettingsRepository
}

func (s *SettingsRepositorySuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.repo = sqlite.NewSettingsRepository(s.db)
}

func (s *SettingsRepositorySuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func (s *SettingsRepositorySuite) TestGetMissing() {
	_, ok, err := s.repo.Get(context.Background(), "lastHandle")
	s.Require().NoError(err)
	s.Assert().False(ok)
}

func (s *SettingsRepositorySuite) TestSetGetOverwriteDelete() {
	ctx := context.Background()

	s.Require().NoError(s.repo.Set(ctx, "lastHandle", "tourist"))

	value, ok, err := s.repo.Get(ctx, "lastHandle")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Assert().Equal("tourist", value)

	s.Require().NoError(s.repo.Set(ctx, "lastHandle", "petr"))
	value, ok, err = s.repo.Get(ctx, "lastHandle")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Assert().Equal("petr", value)

	s.Require().NoError(s.repo.Delete(ctx, "lastHandle"))
	_, ok, err = s.repo.Get(ctx, "lastHandle")
	s.Require().NoError(err)
	s.Assert().False(ok)
}

func (s *SettingsRepositorySuite) TestAll() {
	ctx := context.Background()

	s.Require().NoError(s.repo.Set(ctx, "lastHandle", "tourist"))
	s.Require().NoError(s.repo.Set(ctx, "yearFilter", `{"from":2018,"to":2022}`))

	all, err := s.repo.All(ctx)
	s.Require().NoError(err)
	s.Assert().Equal(map[string]string{
		"lastHandle": "tourist",
		"yearFilter": `{"from":2018,"to":2022}`,
	}, all)
}

func TestSettingsRepositorySuite(t *testing.T) {
	suite.Run(t, new(SettingsRepositorySuite))
}
