package assets

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"taskzen/backend/internal/config"
)

// Client talks to the Cloudinary-compatible image API. Uploads land in a
// configured folder; each upload yields a URL plus an opaque public id
// that later releases the asset.
type Client struct {
	cloudName string
	apiKey    string
	apiSecret string
	folder    string
	baseURL   string
	client    *http.Client
}

type UploadResult struct {
	URL      string `json:"secure_url"`
	PublicID string `json:"public_id"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewClient(cfg config.CloudinaryConfig) *Client {
	return &Client{
		cloudName: cfg.CloudName,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		folder:    cfg.Folder,
		baseURL:   "https://api.cloudinary.com",
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// NewClientWithBaseURL points the client at a different endpoint. Tests
// use it to talk to a local stub.
func NewClientWithBaseURL(cfg config.CloudinaryConfig, baseURL string) *Client {
	c := NewClient(cfg)
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	return c
}

// Upload stores one image and returns its URL and public id.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (*UploadResult, error) {
	if c.cloudName == "" || c.apiKey == "" || c.apiSecret == "" {
		return nil, fmt.Errorf("cloudinary credentials are not configured")
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	publicID := fmt.Sprintf("%s/%d-%s", c.folder, time.Now().UnixMilli(), sanitizeFilename(filename))

	params := map[string]string{
		"folder":    c.folder,
		"public_id": publicID,
		"timestamp": timestamp,
	}

	var body strings.Builder
	writer := multipart.NewWriter(&body)
	for key, value := range params {
		if err := writer.WriteField(key, value); err != nil {
			return nil, err
		}
	}
	if err := writer.WriteField("api_key", c.apiKey); err != nil {
		return nil, err
	}
	if err := writer.WriteField("signature", c.sign(params)); err != nil {
		return nil, err
	}

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to buffer upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v1_1/%s/image/upload", c.baseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body.String()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	respBody, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var result UploadResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	return &result, nil
}

// Destroy releases a previously uploaded asset. A "not found" result is
// treated as success so the call stays idempotent.
func (c *Client) Destroy(ctx context.Context, publicID string) error {
	if c.cloudName == "" || c.apiKey == "" || c.apiSecret == "" {
		return fmt.Errorf("cloudinary credentials are not configured")
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	params := map[string]string{
		"public_id": publicID,
		"timestamp": timestamp,
	}

	form := url.Values{}
	for key, value := range params {
		form.Set(key, value)
	}
	form.Set("api_key", c.apiKey)
	form.Set("signature", c.sign(params))

	endpoint := fmt.Sprintf("%s/v1_1/%s/image/destroy", c.baseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	respBody, err := c.do(req)
	if err != nil {
		return err
	}

	var result struct {
		Result string `json:"result"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("failed to decode destroy response: %w", err)
	}

	if result.Result != "ok" && result.Result != "not found" {
		return fmt.Errorf("asset release rejected: %s", result.Result)
	}
	return nil
}

// Release implements the task store's AssetReleaser.
func (c *Client) Release(ctx context.Context, publicID string) error {
	return c.Destroy(ctx, publicID)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("asset store request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset store response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("asset store error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("asset store error (%d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// sign builds the API signature: all request parameters except api_key and
// the file itself, sorted by name, joined with &, followed by the secret,
// hashed with SHA-1.
func (c *Client) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+params[key])
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + c.apiSecret))
	return hex.EncodeToString(sum[:])
}

func sanitizeFilename(name string) string {
	name = strings.TrimSuffix(name, "."+extension(name))
	replaced := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
	if replaced == "" {
		return "upload"
	}
	return replaced
}

func extension(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 && idx < len(name)-1 {
		return name[idx+1:]
	}
	return ""
}
