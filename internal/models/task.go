package models

import (
	"time"

	"github.com/gofrs/uuid"
)

const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
	StatusOverdue    = "Overdue"
)

const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// Task is owned by exactly one user; every query against it is scoped
// to the owner's id.
type Task struct {
	ID            uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	UserID        uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	Title         string     `json:"title" gorm:"not null"`
	Description   string     `json:"description"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	Priority      string     `json:"priority" gorm:"not null;default:'Medium'"`
	Status        string     `json:"status" gorm:"not null;default:'Pending'"`
	Category      string     `json:"category"`
	ImageURL      string     `json:"image_url,omitempty"`
	ImagePublicID string     `json:"image_public_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusOverdue:
		return true
	}
	return false
}

func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}
