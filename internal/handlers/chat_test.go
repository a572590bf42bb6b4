package handlers_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"taskzen/backend/internal/assets"
	"taskzen/backend/internal/chat"
	"taskzen/backend/internal/handlers"

	"github.com/gin-gonic/gin"
)

type MockChatStreamer struct {
	deltas     []string
	failBefore bool
	received   []chat.Message
}

func (m *MockChatStreamer) StreamCompletion(ctx context.Context, messages []chat.Message, emit func(delta string) error) error {
	m.received = messages
	if m.failBefore {
		return errors.New("upstream unavailable")
	}
	for _, delta := range m.deltas {
		if err := emit(delta); err != nil {
			return err
		}
	}
	return nil
}

type MockUploader struct {
	failUpload bool
	filename   string
}

func (m *MockUploader) Upload(ctx context.Context, filename string, content io.Reader) (*assets.UploadResult, error) {
	if m.failUpload {
		return nil, errors.New("asset store unavailable")
	}
	m.filename = filename
	return &assets.UploadResult{
		URL:      "https://cdn.example.com/uploads/photo.png",
		PublicID: "uploads/photo",
	}, nil
}

func TestChatStreamsDeltas(t *testing.T) {
	gin.SetMode(gin.TestMode)
	streamer := &MockChatStreamer{deltas: []string{"Hel", "lo ", "there"}}
	handler := handlers.NewChatHandler(streamer)
	router := gin.New()
	router.POST("/chat", handler.Chat)

	w := postJSON(router, "/chat", map[string]interface{}{
		"messages": []map[string]string{{"role": "user", "content": "hi"}},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if w.Body.String() != "Hello there" {
		t.Errorf("Expected streamed body 'Hello there', got '%s'", w.Body.String())
	}
	if len(streamer.received) != 1 || streamer.received[0].Content != "hi" {
		t.Errorf("Expected forwarded history, got %v", streamer.received)
	}
}

func TestChatEmptyMessagesRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := handlers.NewChatHandler(&MockChatStreamer{})
	router := gin.New()
	router.POST("/chat", handler.Chat)

	w := postJSON(router, "/chat", map[string]interface{}{"messages": []string{}})

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestChatUpstreamFailureSurfacesOnce(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := handlers.NewChatHandler(&MockChatStreamer{failBefore: true})
	router := gin.New()
	router.POST("/chat", handler.Chat)

	w := postJSON(router, "/chat", map[string]interface{}{
		"messages": []map[string]string{{"role": "user", "content": "hi"}},
	})

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
}

func TestUploadImage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	uploader := &MockUploader{}
	handler := handlers.NewUploadHandler(uploader)
	router := gin.New()
	router.POST("/upload", handler.UploadImage)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, _ := writer.CreateFormFile("image", "photo.png")
	part.Write([]byte("fake image bytes"))
	writer.Close()

	req, _ := http.NewRequest("POST", "/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	if uploader.filename != "photo.png" {
		t.Errorf("Expected filename 'photo.png', got '%s'", uploader.filename)
	}
}

func TestUploadImageMissingFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := handlers.NewUploadHandler(&MockUploader{})
	router := gin.New()
	router.POST("/upload", handler.UploadImage)

	req, _ := http.NewRequest("POST", "/upload", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}

	expected := `{"message":"No file uploaded."}`
	if w.Body.String() != expected {
		t.Errorf("Expected body %s, got %s", expected, w.Body.String())
	}
}

func TestUploadImageStoreFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := handlers.NewUploadHandler(&MockUploader{failUpload: true})
	router := gin.New()
	router.POST("/upload", handler.UploadImage)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, _ := writer.CreateFormFile("image", "photo.png")
	part.Write([]byte("fake image bytes"))
	writer.Close()

	req, _ := http.NewRequest("POST", "/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
}
