package services

import (
	"time"

	"taskzen/backend/internal/models"

	"gorm.io/gorm"
)

// ApplyOverduePolicy forces a task whose due date has already passed into
// the Overdue status. Completed tasks are never touched, and no other
// transition happens automatically. The store calls this immediately
// before every persist; it returns true when the status was rewritten.
func ApplyOverduePolicy(task *models.Task, now time.Time) bool {
	if task.DueDate == nil {
		return false
	}
	if !task.DueDate.Before(now) {
		return false
	}
	if task.Status == models.StatusCompleted {
		return false
	}
	task.Status = models.StatusOverdue
	return true
}

// SweepOverdue applies the overdue policy to every stored task in one pass.
// The policy otherwise runs only at write time, so a task whose due date
// passes without further traffic keeps a stale status until the next sweep.
func SweepOverdue(db *gorm.DB, now time.Time) (int64, error) {
	result := db.Model(&models.Task{}).
		Where("due_date IS NOT NULL AND due_date < ? AND status NOT IN ?",
			now, []string{models.StatusCompleted, models.StatusOverdue}).
		Update("status", models.StatusOverdue)
	return result.RowsAffected, result.Error
}
