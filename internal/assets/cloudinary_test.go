package assets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"taskzen/backend/internal/config"
)

func testConfig() config.CloudinaryConfig {
	return config.CloudinaryConfig{
		CloudName: "demo",
		APIKey:    "key",
		APISecret: "secret",
		Folder:    "taskzen_uploads",
	}
}

func TestUpload(t *testing.T) {
	var gotPath string
	var gotPublicID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("Failed to parse multipart form: %v", err)
		}
		gotPublicID = r.FormValue("public_id")
		if r.FormValue("api_key") != "key" {
			t.Errorf("Expected api_key field, got '%s'", r.FormValue("api_key"))
		}
		if r.FormValue("signature") == "" {
			t.Error("Expected signature field")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"secure_url":"https://res.example.com/demo/image.png","public_id":"taskzen_uploads/image"}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(testConfig(), server.URL)

	result, err := client.Upload(context.Background(), "my photo.png", strings.NewReader("image-bytes"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if gotPath != "/v1_1/demo/image/upload" {
		t.Errorf("Unexpected upload path: %s", gotPath)
	}
	if !strings.HasPrefix(gotPublicID, "taskzen_uploads/") {
		t.Errorf("Expected folder-prefixed public id, got '%s'", gotPublicID)
	}
	if result.URL != "https://res.example.com/demo/image.png" {
		t.Errorf("Unexpected URL: %s", result.URL)
	}
	if result.PublicID != "taskzen_uploads/image" {
		t.Errorf("Unexpected public id: %s", result.PublicID)
	}
}

func TestUpload_MissingCredentials(t *testing.T) {
	client := NewClient(config.CloudinaryConfig{})

	_, err := client.Upload(context.Background(), "photo.png", strings.NewReader("bytes"))
	if err == nil {
		t.Error("Expected error without credentials")
	}
}

func TestUpload_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Invalid signature"}}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(testConfig(), server.URL)

	_, err := client.Upload(context.Background(), "photo.png", strings.NewReader("bytes"))
	if err == nil {
		t.Fatal("Expected error from API failure")
	}
	if !strings.Contains(err.Error(), "Invalid signature") {
		t.Errorf("Expected API error message surfaced, got: %v", err)
	}
}

func TestDestroy(t *testing.T) {
	var gotPublicID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1_1/demo/image/destroy" {
			t.Errorf("Unexpected destroy path: %s", r.URL.Path)
		}
		r.ParseForm()
		gotPublicID = r.FormValue("public_id")
		w.Write([]byte(`{"result":"ok"}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(testConfig(), server.URL)

	if err := client.Destroy(context.Background(), "taskzen_uploads/image"); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if gotPublicID != "taskzen_uploads/image" {
		t.Errorf("Expected public id forwarded, got '%s'", gotPublicID)
	}
}

func TestDestroy_NotFoundTreatedAsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"not found"}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(testConfig(), server.URL)

	if err := client.Destroy(context.Background(), "taskzen_uploads/gone"); err != nil {
		t.Errorf("Expected 'not found' to count as released, got %v", err)
	}
}

func TestDestroy_RejectedResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"error"}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(testConfig(), server.URL)

	if err := client.Destroy(context.Background(), "taskzen_uploads/image"); err == nil {
		t.Error("Expected error for rejected release")
	}
}

func TestSign_SortedParams(t *testing.T) {
	client := NewClient(testConfig())

	// Same parameters in any map order must produce the same signature.
	a := client.sign(map[string]string{"timestamp": "123", "public_id": "x"})
	b := client.sign(map[string]string{"public_id": "x", "timestamp": "123"})
	if a != b {
		t.Error("Signature must not depend on map iteration order")
	}
	if len(a) != 40 {
		t.Errorf("Expected 40-char SHA-1 hex signature, got %d chars", len(a))
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"my photo.png":   "my_photo",
		"Report (1).pdf": "Report__1_",
		"":               "upload",
		"clean-name.jpg": "clean-name",
	}
	for input, expected := range cases {
		if got := sanitizeFilename(input); got != expected {
			t.Errorf("sanitizeFilename(%q): expected %q, got %q", input, expected, got)
		}
	}
}
