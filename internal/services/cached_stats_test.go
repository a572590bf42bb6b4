package services_test

import (
	"testing"
	"time"

	"taskzen/backend/internal/cache"
	"taskzen/backend/internal/models"
	"taskzen/backend/internal/services"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type CachedStatsTestSuite struct {
	suite.Suite
	db      *gorm.DB
	tasks   *services.TaskServiceImpl
	service *services.CachedStatsService
	ownerID uuid.UUID
}

func (suite *CachedStatsTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)
	suite.Require().NoError(db.AutoMigrate(&models.User{}, &models.Task{}))

	mr := miniredis.RunT(suite.T())
	redisCache := cache.NewRedisCache(&cache.CacheConfig{Addr: mr.Addr()})

	suite.db = db
	suite.tasks = services.NewTaskService(nil)
	suite.service = services.NewCachedStatsService(services.NewStatsService(), redisCache)
	suite.ownerID = uuid.Must(uuid.NewV4())
}

func (suite *CachedStatsTestSuite) TestWriteInvalidationKeepsViewsFresh() {
	_, err := suite.tasks.CreateTask(suite.db, suite.ownerID, services.TaskInput{Title: "One"})
	suite.Require().NoError(err)

	counts, err := suite.service.StatusDistribution(suite.db, suite.ownerID)
	suite.Require().NoError(err)
	suite.Require().Len(counts, 1)
	suite.Equal(int64(1), counts[0].Count)

	// A second task behind the cache's back would be invisible until the
	// TTL lapses; the invalidation hook is what keeps reads exact.
	_, err = suite.tasks.CreateTask(suite.db, suite.ownerID, services.TaskInput{Title: "Two"})
	suite.Require().NoError(err)
	suite.service.InvalidateUser(suite.ownerID)

	counts, err = suite.service.StatusDistribution(suite.db, suite.ownerID)
	suite.Require().NoError(err)
	suite.Require().Len(counts, 1)
	suite.Equal(int64(2), counts[0].Count)
}

func (suite *CachedStatsTestSuite) TestCachedReadServedWithoutRecompute() {
	_, err := suite.tasks.CreateTask(suite.db, suite.ownerID, services.TaskInput{Title: "One"})
	suite.Require().NoError(err)

	first, err := suite.service.StatusDistribution(suite.db, suite.ownerID)
	suite.Require().NoError(err)

	// Mutate the store directly; without invalidation the cached view wins.
	suite.Require().NoError(suite.db.Where("user_id = ?", suite.ownerID).Delete(&models.Task{}).Error)

	second, err := suite.service.StatusDistribution(suite.db, suite.ownerID)
	suite.Require().NoError(err)
	suite.Equal(first, second)
}

func (suite *CachedStatsTestSuite) TestDailyCompletionKeyedByDay() {
	now := time.Now()

	series, err := suite.service.DailyCompletion(suite.db, suite.ownerID, now)
	suite.Require().NoError(err)
	suite.Len(series, 7)

	// A different day must not be served from yesterday's entry.
	tomorrow, err := suite.service.DailyCompletion(suite.db, suite.ownerID, now.AddDate(0, 0, 1))
	suite.Require().NoError(err)
	suite.NotEqual(series[6].Date, tomorrow[6].Date)
}

func (suite *CachedStatsTestSuite) TestNilCacheDegradesToRawQueries() {
	service := services.NewCachedStatsService(services.NewStatsService(), nil)

	_, err := suite.tasks.CreateTask(suite.db, suite.ownerID, services.TaskInput{Title: "One"})
	suite.Require().NoError(err)

	counts, err := service.StatusDistribution(suite.db, suite.ownerID)
	suite.Require().NoError(err)
	suite.Len(counts, 1)

	service.InvalidateUser(suite.ownerID)
}

func TestCachedStatsTestSuite(t *testing.T) {
	suite.Run(t, new(CachedStatsTestSuite))
}
