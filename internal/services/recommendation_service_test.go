package services_test

import (
	"context"
	"database/sql"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/vytor/cfpractice/internal/catalog"
	"github.com/vytor/cfpractice/internal/codeforces"
	"github.com/vytor/cfpractice/internal/history"
	"github.com/vytor/cfpractice/internal/models"
	"github.com/vytor/cfpractice/internal/repository"
	"github.com/vytor/cfpractice/internal/repository/sqlite"
	"github.com/vytor/cfpractice/internal/services"
	"github.com/vytor/cfpractice/internal/syncer"
	"github.com/vytor/cfpractice/internal/testutil"
	"github.com/vytor/cfpractice/internal/testutil/mocks"
	"github.com/vytor/cfpractice/internal/timers"
)

type RecommendationServiceSuite struct {
	suite.Suite
	db       *sql.DB
	client   *mocks.MockCodeforcesClient
	settings repository.SettingsRepository
	ledger   *history.Ledger
	coord    *timers.Coordinator
	svc      services.RecommendationService
	now      time.Time
	cancel   context.CancelFunc
}

func (s *RecommendationServiceSuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.client = new(mocks.MockCodeforcesClient)
	s.now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return s.now }

	users := sqlite.NewUserCacheRepository(s.db)
	historyRepo := sqlite.NewHistoryRepository(s.db)
	catalogRepo := sqlite.NewCatalogRepository(s.db)
	timerRepo := sqlite.NewTimerRepository(s.db)
	s.settings = sqlite.NewSettingsRepository(s.db)

	sync := syncer.New(s.client, users, 24*time.Hour, 5*time.Minute, 20).WithClock(clock)
	cat := catalog.New(s.client, catalogRepo, 24*time.Hour).WithClock(clock)
	s.ledger = history.NewLedger(historyRepo, users).WithClock(clock)
	s.coord = timers.NewCoordinator(timerRepo, time.Hour).WithClock(clock)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.coord.Run(ctx)

	s.svc = services.NewRecommendationService(sync, cat, s.ledger, s.coord, s.settings, 3,
		rand.New(rand.NewPCG(1, 2)))
}

func (s *RecommendationServiceSuite) TearDownTest() {
	s.cancel()
	testutil.MustClose(s.T(), s.db)
}

func intPtr(v int) *int { return &v }

// expectSync wires the three remote fetches a cold-cache sync performs.
func (s *RecommendationServiceSuite) expectSync(rating int, solvedSubs []codeforces.Submission) {
	s.client.On("FetchUserInfo", mock.Anything, "tourist").
		Return(&codeforces.UserInfo{Handle: "tourist", Rating: rating}, nil)
	s.client.On("FetchFullSubmissions", mock.Anything, "tourist").
		Return(solvedSubs, nil)
	s.client.On("FetchRecentSubmissions", mock.Anything, "tourist", 20).
		Return([]codeforces.Submission{}, nil)
}

func (s *RecommendationServiceSuite) expectCatalog(problems []models.Problem) {
	s.client.On("FetchProblemset", mock.Anything).Return(problems, nil)
	s.client.On("FetchContests", mock.Anything).Return([]codeforces.Contest{}, nil)
}

func bandProblems(n int) []models.Problem {
	problems := make([]models.Problem, 0, n)
	for i := 0; i < n; i++ {
		problems = append(problems, models.Problem{
			ContestID: int64(1000 + i), Index: "A", Name: "P", Rating: intPtr(1600),
		})
	}
	return problems
}

func (s *RecommendationServiceSuite) TestRecommendFirstBatchOfDay() {
	ctx := context.Background()

	s.expectSync(1543, []codeforces.Submission{})
	s.expectCatalog(bandProblems(10))

	result, err := s.svc.Recommend(ctx, "Tourist", models.YearRange{})
	s.Require().NoError(err)

	s.Assert().Len(result.Problems, 3)
	s.Assert().Equal(1, result.Order)
	s.Assert().Equal(1543, result.Rating)

	// The batch is recorded as recommended under the lowercase handle.
	entries, err := s.ledger.List(ctx, "tourist")
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	for _, e := range entries {
		s.Assert().Equal(models.StatusRecommended, e.Status)
	}
}

func (s *RecommendationServiceSuite) TestRecommendLaterBatchesGrowOrder() {
	ctx := context.Background()

	s.expectSync(1543, []codeforces.Submission{})
	s.expectCatalog(bandProblems(10))

	first, err := s.svc.Recommend(ctx, "tourist", models.YearRange{})
	s.Require().NoError(err)
	s.Require().Equal(1, first.Order)

	second, err := s.svc.Recommend(ctx, "tourist", models.YearRange{})
	s.Require().NoError(err)
	s.Assert().Len(second.Problems, 1, "later batches of the day hold a single problem")
	s.Assert().Equal(2, second.Order)

	third, err := s.svc.Recommend(ctx, "tourist", models.YearRange{})
	s.Require().NoError(err)
	s.Assert().Equal(3, third.Order)
}

func (s *RecommendationServiceSuite) TestRecommendExcludesSolvedProblems() {
	ctx := context.Background()

	solved := []codeforces.Submission{
		{Problem: models.Problem{ContestID: 1000, Index: "A", Rating: intPtr(1600)}, Verdict: codeforces.VerdictAccepted},
	}
	s.expectSync(1543, solved)
	s.expectCatalog(bandProblems(2))

	result, err := s.svc.Recommend(ctx, "tourist", models.YearRange{})
	s.Require().NoError(err)
	s.Require().Len(result.Problems, 1)
	s.Assert().Equal("1001A", result.Problems[0].Key())
}

func (s *RecommendationServiceSuite) TestRecommendEmptyBatchIsValid() {
	ctx := context.Background()

	s.expectSync(1543, []codeforces.Submission{})
	s.expectCatalog([]models.Problem{
		// Everything outside the band.
		{ContestID: 1, Index: "A", Name: "Too easy", Rating: intPtr(800)},
	})

	result, err := s.svc.Recommend(ctx, "tourist", models.YearRange{})
	s.Require().NoError(err)
	s.Assert().Empty(result.Problems)

	entries, err := s.ledger.List(ctx, "tourist")
	s.Require().NoError(err)
	s.Assert().Empty(entries, "an empty batch records nothing")
}

func (s *RecommendationServiceSuite) TestRecommendPersistsSession() {
	ctx := context.Background()

	s.expectSync(1543, []codeforces.Submission{})
	s.expectCatalog(bandProblems(5))

	_, err := s.svc.Recommend(ctx, "Tourist", models.YearRange{From: 2018, To: 2022})
	s.Require().NoError(err)

	handle, years, err := s.svc.LastSession(ctx)
	s.Require().NoError(err)
	s.Assert().Equal("tourist", handle)
	s.Assert().Equal(models.YearRange{From: 2018, To: 2022}, years)
}

func (s *RecommendationServiceSuite) TestLastSessionEmptyStore() {
	handle, years, err := s.svc.LastSession(context.Background())
	s.Require().NoError(err)
	s.Assert().Empty(handle)
	s.Assert().Equal(models.YearRange{}, years)
}

func (s *RecommendationServiceSuite) TestRecommendValidatesHandle() {
	_, err := s.svc.Recommend(context.Background(), "   ", models.YearRange{})
	s.Require().Error(err)
}

func TestRecommendationServiceSuite(t *testing.T) {
	suite.Run(t, new(RecommendationServiceSuite))
}
