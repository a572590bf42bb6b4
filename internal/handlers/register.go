package handlers

import (
	"errors"
	"log"
	"net/http"

	"taskzen/backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RegisterHandler struct {
	db              *gorm.DB
	registerService services.RegisterService
	authService     services.AuthService
}

func NewRegisterHandler(db *gorm.DB, registerService services.RegisterService, authService services.AuthService) *RegisterHandler {
	return &RegisterHandler{db: db, registerService: registerService, authService: authService}
}

// Registration creates the account and immediately returns a bearer token
// so the client can skip a separate login.
func (h *RegisterHandler) Registration(c *gin.Context) {
	var req services.RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	user, err := h.registerService.RegisterUser(h.db, req)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "User already exists"})
			return
		}
		log.Printf("Registration error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		log.Printf("Token generation error during registration: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"token":   token,
	})
}
