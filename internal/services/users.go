package services

import (
	"errors"
	"strings"

	"taskzen/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type ProfileUpdate struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type UserService interface {
	GetProfile(db *gorm.DB, userID uuid.UUID) (*models.User, error)
	UpdateProfile(db *gorm.DB, userID uuid.UUID, update ProfileUpdate) (*models.User, error)
}

type UserServiceImpl struct{}

func NewUserService() *UserServiceImpl {
	return &UserServiceImpl{}
}

func (s *UserServiceImpl) GetProfile(db *gorm.DB, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile changes only the fields that were provided; an empty value
// leaves the stored one untouched.
func (s *UserServiceImpl) UpdateProfile(db *gorm.DB, userID uuid.UUID, update ProfileUpdate) (*models.User, error) {
	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}

	if username := strings.TrimSpace(update.Username); username != "" {
		user.Username = username
	}

	if email := strings.ToLower(strings.TrimSpace(update.Email)); email != "" && email != user.Email {
		var other models.User
		if err := db.Where("email = ? AND id <> ?", email, userID).First(&other).Error; err == nil {
			return nil, ErrEmailTaken
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		user.Email = email
	}

	if err := db.Save(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
