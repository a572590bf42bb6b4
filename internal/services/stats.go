package services

import (
	"time"

	"taskzen/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

type DailyCompletion struct {
	Date           string `json:"date"`
	CompletedTasks int64  `json:"completedTasks"`
}

// StatsService derives aggregate views from the task store. Every view is
// scoped to one owner and recomputed from the base records on each call.
type StatsService interface {
	StatusDistribution(db *gorm.DB, ownerID uuid.UUID) ([]StatusCount, error)
	CategoryDistribution(db *gorm.DB, ownerID uuid.UUID) ([]CategoryCount, error)
	DailyCompletion(db *gorm.DB, ownerID uuid.UUID, now time.Time) ([]DailyCompletion, error)
}

type StatsServiceImpl struct{}

func NewStatsService() *StatsServiceImpl {
	return &StatsServiceImpl{}
}

// StatusDistribution counts the owner's tasks per status. Only statuses
// that actually occur are returned.
func (s *StatsServiceImpl) StatusDistribution(db *gorm.DB, ownerID uuid.UUID) ([]StatusCount, error) {
	// Initialized so an owner with no tasks serializes as [] rather than null.
	counts := make([]StatusCount, 0)
	err := db.Model(&models.Task{}).
		Select("status, COUNT(*) as count").
		Where("user_id = ?", ownerID).
		Group("status").
		Order("status").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// CategoryDistribution counts the owner's tasks per category, skipping
// tasks that carry no category label.
func (s *StatsServiceImpl) CategoryDistribution(db *gorm.DB, ownerID uuid.UUID) ([]CategoryCount, error) {
	counts := make([]CategoryCount, 0)
	err := db.Model(&models.Task{}).
		Select("category, COUNT(*) as count").
		Where("user_id = ? AND category IS NOT NULL AND category <> ''", ownerID).
		Group("category").
		Order("category").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// DailyCompletion reports how many tasks reached Completed on each of the
// trailing 7 calendar days, oldest first with today last. Days without a
// completion still appear with a zero count. Bucketing happens in Go so
// the query stays portable between postgres and sqlite.
func (s *StatsServiceImpl) DailyCompletion(db *gorm.DB, ownerID uuid.UUID, now time.Time) ([]DailyCompletion, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	windowStart := today.AddDate(0, 0, -6)

	var completed []models.Task
	err := db.Select("updated_at").
		Where("user_id = ? AND status = ? AND updated_at >= ?", ownerID, models.StatusCompleted, windowStart).
		Find(&completed).Error
	if err != nil {
		return nil, err
	}

	perDay := make(map[string]int64)
	for _, task := range completed {
		perDay[task.UpdatedAt.In(now.Location()).Format("2006-01-02")]++
	}

	series := make([]DailyCompletion, 0, 7)
	for i := 6; i >= 0; i-- {
		date := today.AddDate(0, 0, -i).Format("2006-01-02")
		series = append(series, DailyCompletion{
			Date:           date,
			CompletedTasks: perDay[date],
		})
	}
	return series, nil
}
