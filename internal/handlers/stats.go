package handlers

import (
	"log"
	"net/http"
	"time"

	"taskzen/backend/internal/middleware"
	"taskzen/backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type StatsHandler struct {
	db           *gorm.DB
	statsService services.StatsService
}

func NewStatsHandler(db *gorm.DB, statsService services.StatsService) *StatsHandler {
	return &StatsHandler{db: db, statsService: statsService}
}

func (h *StatsHandler) StatusDistribution(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, no token"})
		return
	}

	counts, err := h.statsService.StatusDistribution(h.db, userID)
	if err != nil {
		log.Printf("Status distribution error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	c.JSON(http.StatusOK, counts)
}

func (h *StatsHandler) CategoryDistribution(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, no token"})
		return
	}

	counts, err := h.statsService.CategoryDistribution(h.db, userID)
	if err != nil {
		log.Printf("Category distribution error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	c.JSON(http.StatusOK, counts)
}

func (h *StatsHandler) DailyCompletion(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, no token"})
		return
	}

	series, err := h.statsService.DailyCompletion(h.db, userID, time.Now())
	if err != nil {
		log.Printf("Daily completion error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	c.JSON(http.StatusOK, series)
}
