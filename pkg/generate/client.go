// Package generate wraps the OpenRouter chat-completions API for section
// generation, brainstorm streaming and embeddings.
package generate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fablecraft/gofable/internal/store"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

var (
	// ErrSafetyBlocked means the provider refused to complete the request.
	ErrSafetyBlocked = errors.New("generation blocked by content filter")
	// ErrEmptyResponse means the model returned no usable content.
	ErrEmptyResponse = errors.New("empty response from model")
)

// Config holds client settings.
type Config struct {
	APIKey     string
	Model      string
	EmbedModel string
	BaseURL    string
	HTTPClient *http.Client
}

// Client talks to an OpenRouter-compatible endpoint.
type Client struct {
	cfg  Config
	http *http.Client
	log  zerolog.Logger
}

func NewClient(cfg Config, log zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{
		cfg:  cfg,
		http: hc,
		log:  log.With().Str("component", "generate").Logger(),
	}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMsg       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Stream         bool            `json:"stream"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("X-Title", "Fablecraft")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return resp, nil
}

// Complete runs a non-streaming chat completion. With jsonMode the model is
// forced into a JSON object response.
func (c *Client) Complete(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	req := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMsg{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.7,
	}
	if jsonMode {
		req.Temperature = 0.3
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	resp, err := c.post(ctx, "/chat/completions", req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("API error %d: %s", out.Error.Code, out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	if out.Choices[0].FinishReason == "content_filter" {
		return "", ErrSafetyBlocked
	}
	content := out.Choices[0].Message.Content
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// StreamChat streams a brainstorm reply over server-sent events, invoking
// onChunk for every content delta. Satisfies chat.Streamer.
func (c *Client) StreamChat(ctx context.Context, system string, history []store.Message, onChunk func(string)) error {
	msgs := make([]chatMsg, 0, len(history)+1)
	msgs = append(msgs, chatMsg{Role: "system", Content: system})
	for _, m := range history {
		role := "user"
		if m.Author == store.AuthorAI {
			role = "assistant"
		}
		msgs = append(msgs, chatMsg{Role: role, Content: m.Text})
	}

	resp, err := c.post(ctx, "/chat/completions", chatRequest{
		Model:       c.cfg.Model,
		Messages:    msgs,
		Temperature: 0.8,
		Stream:      true,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	chunks := 0
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			c.log.Warn().Err(err).Msg("skipping malformed stream chunk")
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if chunk.Choices[0].FinishReason == "content_filter" {
			return ErrSafetyBlocked
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			chunks++
			onChunk(delta)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stream read failed: %w", err)
	}
	if chunks == 0 {
		return ErrEmptyResponse
	}
	return nil
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *apiError `json:"error,omitempty"`
}

// Embed returns one vector per input text, in input order. Satisfies
// session.Embedder.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := c.post(ctx, "/embeddings", embedRequest{
		Model: c.cfg.EmbedModel,
		Input: texts,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode embeddings: %w", err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("API error %d: %s", out.Error.Code, out.Error.Message)
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: want %d, got %d", len(texts), len(out.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}
