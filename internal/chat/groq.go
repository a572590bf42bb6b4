package chat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	groqBaseURL  = "https://api.groq.com/openai/v1/chat/completions"
	defaultModel = "llama3-8b-8192"

	// Prepended to every conversation before it reaches the model.
	SystemPrompt = "You are a helpful assistant for a productivity app called TaskZen. " +
		"You can answer questions about tasks, productivity, and general knowledge. " +
		"Keep your responses concise and helpful."
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client streams chat completions from the Groq OpenAI-compatible API.
// There is no retry: a failure surfaces once to the caller, and client
// disconnects cancel the upstream request through the context.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = defaultModel
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: groqBaseURL,
		model:   model,
		// No overall timeout: the response is an open-ended stream. The
		// request context bounds its lifetime instead.
		client: &http.Client{},
	}
}

func NewClientWithBaseURL(apiKey, model, baseURL string) *Client {
	c := NewClient(apiKey, model)
	c.baseURL = baseURL
	return c
}

// StreamCompletion sends the conversation, prefixed with the system
// prompt, and invokes emit for every text delta as it arrives.
func (c *Client) StreamCompletion(ctx context.Context, messages []Message, emit func(delta string) error) error {
	if c.apiKey == "" {
		return fmt.Errorf("GROQ_API_KEY not set")
	}
	if len(messages) == 0 {
		return fmt.Errorf("no messages provided")
	}

	payload := chatRequest{
		Model:    c.model,
		Messages: append([]Message{{Role: "system", Content: SystemPrompt}}, messages...),
		Stream:   true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		var apiErr chatError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("chat API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return fmt.Errorf("chat API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return consumeEventStream(resp.Body, emit)
}

// consumeEventStream reads server-sent "data:" lines until the [DONE]
// marker and forwards each non-empty content delta.
func consumeEventStream(body io.Reader, emit func(delta string) error) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			return nil
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return fmt.Errorf("failed to decode stream chunk: %w", err)
		}

		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			if err := emit(choice.Delta.Content); err != nil {
				return err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stream interrupted: %w", err)
	}
	return nil
}

// Configured reports whether an API key is present, so the router can
// reject chat requests early instead of failing upstream.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}
