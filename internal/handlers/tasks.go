package handlers

import (
	"errors"
	"log"
	"net/http"

	"taskzen/backend/internal/middleware"
	"taskzen/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// StatsInvalidator drops cached statistics for an owner after a write.
type StatsInvalidator interface {
	InvalidateUser(ownerID uuid.UUID)
}

type TaskHandler struct {
	db          *gorm.DB
	taskService services.TaskService
	invalidator StatsInvalidator
}

func NewTaskHandler(db *gorm.DB, taskService services.TaskService, invalidator StatsInvalidator) *TaskHandler {
	return &TaskHandler{db: db, taskService: taskService, invalidator: invalidator}
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, no token"})
		return
	}

	var input services.TaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	task, err := h.taskService.CreateTask(h.db, userID, input)
	if err != nil {
		handleTaskError(c, err)
		return
	}

	h.invalidateStats(userID)
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) GetTasks(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, no token"})
		return
	}

	tasks, err := h.taskService.ListTasks(h.db, userID, c.Query("category"))
	if err != nil {
		handleTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) GetTaskByID(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, no token"})
		return
	}

	taskID, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
		return
	}

	task, err := h.taskService.GetTask(h.db, userID, taskID)
	if err != nil {
		handleTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, no token"})
		return
	}

	taskID, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
		return
	}

	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	task, err := h.taskService.UpdateTask(h.db, userID, taskID, fields)
	if err != nil {
		handleTaskError(c, err)
		return
	}

	h.invalidateStats(userID)
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, no token"})
		return
	}

	taskID, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
		return
	}

	if err := h.taskService.DeleteTask(h.db, userID, taskID); err != nil {
		handleTaskError(c, err)
		return
	}

	h.invalidateStats(userID)
	c.JSON(http.StatusOK, gin.H{"message": "Task removed"})
}

func (h *TaskHandler) invalidateStats(userID uuid.UUID) {
	if h.invalidator != nil {
		h.invalidator.InvalidateUser(userID)
	}
}

func handleTaskError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"message": validationErr.Error()})
	default:
		log.Printf("Task request error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
	}
}
