package services

import (
	"context"
	"log"
	"strings"
	"time"

	"taskzen/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// AssetReleaser removes an uploaded image from the external asset store.
// Releases are best-effort: a failure is logged and never blocks the task
// operation that triggered it.
type AssetReleaser interface {
	Release(ctx context.Context, publicID string) error
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

type TaskInput struct {
	Title         string     `json:"title" binding:"required"`
	Description   string     `json:"description"`
	DueDate       *time.Time `json:"due_date"`
	Priority      string     `json:"priority"`
	Status        string     `json:"status"`
	Category      string     `json:"category"`
	ImageURL      string     `json:"image_url"`
	ImagePublicID string     `json:"image_public_id"`
}

type TaskService interface {
	CreateTask(db *gorm.DB, ownerID uuid.UUID, input TaskInput) (models.Task, error)
	ListTasks(db *gorm.DB, ownerID uuid.UUID, category string) ([]models.Task, error)
	GetTask(db *gorm.DB, ownerID, taskID uuid.UUID) (models.Task, error)
	UpdateTask(db *gorm.DB, ownerID, taskID uuid.UUID, fields map[string]interface{}) (models.Task, error)
	DeleteTask(db *gorm.DB, ownerID, taskID uuid.UUID) error
}

type TaskServiceImpl struct {
	releaser AssetReleaser
	now      func() time.Time
}

func NewTaskService(releaser AssetReleaser) *TaskServiceImpl {
	return &TaskServiceImpl{releaser: releaser, now: time.Now}
}

func (s *TaskServiceImpl) CreateTask(db *gorm.DB, ownerID uuid.UUID, input TaskInput) (models.Task, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return models.Task{}, &ValidationError{Field: "title", Message: "title is required"}
	}

	if input.Priority == "" {
		input.Priority = models.PriorityMedium
	}
	if !models.ValidPriority(input.Priority) {
		return models.Task{}, &ValidationError{Field: "priority", Message: "must be one of Low, Medium, High"}
	}

	if input.Status == "" {
		input.Status = models.StatusPending
	}
	if !models.ValidStatus(input.Status) {
		return models.Task{}, &ValidationError{Field: "status", Message: "unknown status"}
	}

	taskID, err := uuid.NewV4()
	if err != nil {
		return models.Task{}, err
	}

	task := models.Task{
		ID:            taskID,
		UserID:        ownerID,
		Title:         input.Title,
		Description:   input.Description,
		DueDate:       input.DueDate,
		Priority:      input.Priority,
		Status:        input.Status,
		Category:      strings.TrimSpace(input.Category),
		ImageURL:      input.ImageURL,
		ImagePublicID: input.ImagePublicID,
	}

	ApplyOverduePolicy(&task, s.now())

	if err := db.Create(&task).Error; err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// likeEscaper neutralizes LIKE metacharacters so a category filter such
// as "50%" matches the literal text instead of acting as a wildcard.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListTasks returns the owner's tasks, newest first. A non-empty category
// narrows the result with a case-insensitive substring match.
func (s *TaskServiceImpl) ListTasks(db *gorm.DB, ownerID uuid.UUID, category string) ([]models.Task, error) {
	query := db.Where("user_id = ?", ownerID)
	if category != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(category)) + "%"
		query = query.Where(`LOWER(category) LIKE ? ESCAPE '\'`, pattern)
	}

	var tasks []models.Task
	if err := query.Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *TaskServiceImpl) GetTask(db *gorm.DB, ownerID, taskID uuid.UUID) (models.Task, error) {
	var task models.Task
	err := db.Where("id = ? AND user_id = ?", taskID, ownerID).First(&task).Error
	return task, err
}

// updatableTaskFields is the allow-list for partial updates. Anything not
// named here never reaches the stored record.
var updatableTaskFields = map[string]bool{
	"title":           true,
	"description":     true,
	"due_date":        true,
	"priority":        true,
	"status":          true,
	"category":        true,
	"image_url":       true,
	"image_public_id": true,
}

func (s *TaskServiceImpl) UpdateTask(db *gorm.DB, ownerID, taskID uuid.UUID, fields map[string]interface{}) (models.Task, error) {
	task, err := s.GetTask(db, ownerID, taskID)
	if err != nil {
		return models.Task{}, err
	}

	previousImageID := task.ImagePublicID

	if err := applyTaskPatch(&task, fields); err != nil {
		return models.Task{}, err
	}

	// Replacing or clearing the image orphans the old asset unless it is
	// released. Do it before persisting, matching the delete ordering.
	if previousImageID != "" && task.ImagePublicID != previousImageID {
		s.releaseImage(previousImageID)
	}

	ApplyOverduePolicy(&task, s.now())

	if err := db.Save(&task).Error; err != nil {
		return models.Task{}, err
	}
	return task, nil
}

func (s *TaskServiceImpl) DeleteTask(db *gorm.DB, ownerID, taskID uuid.UUID) error {
	task, err := s.GetTask(db, ownerID, taskID)
	if err != nil {
		return err
	}

	// Release the external asset first: if the record delete fails the
	// asset is gone but nothing dangles unreferenced. The two steps are
	// not transactional.
	if task.ImagePublicID != "" {
		s.releaseImage(task.ImagePublicID)
	}

	return db.Where("id = ? AND user_id = ?", taskID, ownerID).Delete(&models.Task{}).Error
}

func (s *TaskServiceImpl) releaseImage(publicID string) {
	if s.releaser == nil || publicID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.releaser.Release(ctx, publicID); err != nil {
		log.Printf("Failed to release image asset %s: %v", publicID, err)
	}
}

func applyTaskPatch(task *models.Task, fields map[string]interface{}) error {
	for key, raw := range fields {
		if !updatableTaskFields[key] {
			continue
		}

		switch key {
		case "due_date":
			if raw == nil {
				task.DueDate = nil
				continue
			}
			value, ok := raw.(string)
			if !ok {
				return &ValidationError{Field: key, Message: "must be a timestamp string or null"}
			}
			due, err := parseDueDate(value)
			if err != nil {
				return &ValidationError{Field: key, Message: "must be an RFC 3339 timestamp or YYYY-MM-DD date"}
			}
			task.DueDate = &due

		default:
			value, err := stringField(key, raw)
			if err != nil {
				return err
			}
			switch key {
			case "title":
				value = strings.TrimSpace(value)
				if value == "" {
					return &ValidationError{Field: "title", Message: "title is required"}
				}
				task.Title = value
			case "description":
				task.Description = value
			case "priority":
				if !models.ValidPriority(value) {
					return &ValidationError{Field: "priority", Message: "must be one of Low, Medium, High"}
				}
				task.Priority = value
			case "status":
				if !models.ValidStatus(value) {
					return &ValidationError{Field: "status", Message: "unknown status"}
				}
				task.Status = value
			case "category":
				task.Category = strings.TrimSpace(value)
			case "image_url":
				task.ImageURL = value
			case "image_public_id":
				task.ImagePublicID = value
			}
		}
	}
	return nil
}

func stringField(key string, raw interface{}) (string, error) {
	if raw == nil {
		return "", nil
	}
	value, ok := raw.(string)
	if !ok {
		return "", &ValidationError{Field: key, Message: "must be a string"}
	}
	return value, nil
}

func parseDueDate(value string) (time.Time, error) {
	if due, err := time.Parse(time.RFC3339, value); err == nil {
		return due, nil
	}
	return time.Parse("2006-01-02", value)
}
