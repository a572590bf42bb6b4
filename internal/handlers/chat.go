package handlers

import (
	"context"
	"log"
	"net/http"

	"taskzen/backend/internal/chat"

	"github.com/gin-gonic/gin"
)

// ChatStreamer is the slice of the chat client the handler needs.
type ChatStreamer interface {
	StreamCompletion(ctx context.Context, messages []chat.Message, emit func(delta string) error) error
}

type ChatHandler struct {
	client ChatStreamer
}

func NewChatHandler(client ChatStreamer) *ChatHandler {
	return &ChatHandler{client: client}
}

type chatRequest struct {
	Messages []chat.Message `json:"messages" binding:"required"`
}

// Chat relays the conversation to the model endpoint and streams the
// reply back chunk by chunk. A client disconnect cancels the upstream
// call through the request context; errors after the first byte can only
// be logged since the status line is already gone.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Messages) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "messages are required"})
		return
	}

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	flusher, _ := c.Writer.(http.Flusher)
	started := false

	err := h.client.StreamCompletion(c.Request.Context(), req.Messages, func(delta string) error {
		if _, err := c.Writer.WriteString(delta); err != nil {
			return err
		}
		started = true
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	if err != nil {
		if !started {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error generating AI response"})
			return
		}
		log.Printf("Chat stream aborted mid-response: %v", err)
	}
}
