package handlers

import (
	"context"
	"io"
	"log"
	"net/http"

	"taskzen/backend/internal/assets"

	"github.com/gin-gonic/gin"
)

// ImageUploader is the slice of the asset store the upload route needs.
type ImageUploader interface {
	Upload(ctx context.Context, filename string, content io.Reader) (*assets.UploadResult, error)
}

type UploadHandler struct {
	store ImageUploader
}

func NewUploadHandler(store ImageUploader) *UploadHandler {
	return &UploadHandler{store: store}
}

func (h *UploadHandler) UploadImage(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No file uploaded."})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Printf("Failed to open uploaded file: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	defer file.Close()

	result, err := h.store.Upload(c.Request.Context(), fileHeader.Filename, file)
	if err != nil {
		log.Printf("Image upload failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error uploading image"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Image uploaded successfully",
		"public_id": result.PublicID,
		"url":       result.URL,
	})
}
