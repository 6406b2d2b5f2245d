// Package openai implements the paraphraser adapter on the OpenAI Chat
// Completions API. It asks the model for a single canonicalized rendering
// of a validated answer and pins the output shape with a strict JSON
// schema.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"onboarding-agent/internal/domain"
)

const defaultModel = "gpt-4o-mini"

// chatMessage is the provider chat message shape.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the minimal request shape for the Chat Completions endpoint.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type       string           `json:"type"`
	JSONSchema jsonSchemaConfig `json:"json_schema"`
}

type jsonSchemaConfig struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

// chatResponse is the minimal response shape returned by the endpoint.
type chatResponse struct {
	Choices []struct {
		Index   int         `json:"index"`
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type paraphraseResult struct {
	Paraphrase string `json:"paraphrase"`
}

// tokenPayload is the JSON shape stored in SSM for the API token.
type tokenPayload struct {
	Token string `json:"token"`
}

// Getter fetches a named parameter, typically backed by paramstore.Client.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// KeySource resolves the API key. It is called once per process; the
// result is cached.
type KeySource func(ctx context.Context) (string, error)

// StaticKey returns a KeySource for a key already in hand (env config).
func StaticKey(key string) KeySource {
	return func(context.Context) (string, error) {
		if strings.TrimSpace(key) == "" {
			return "", errors.New("openai: api key is empty")
		}
		return key, nil
	}
}

// KeyFromParamStore returns a KeySource reading a {"token": "..."} JSON
// payload from the given parameter.
func KeyFromParamStore(getter Getter, name string) KeySource {
	return func(ctx context.Context) (string, error) {
		if getter == nil {
			return "", errors.New("openai: paramstore getter is nil")
		}
		raw, err := getter.GetParameter(ctx, strings.TrimSpace(name))
		if err != nil {
			return "", fmt.Errorf("openai: fetch token from paramstore: %w", err)
		}
		var tp tokenPayload
		if err := json.Unmarshal([]byte(raw), &tp); err != nil {
			return "", fmt.Errorf("openai: unmarshal paramstore token value as JSON: %w", err)
		}
		if tp.Token == "" {
			return "", errors.New("openai: API token is empty")
		}
		return tp.Token, nil
	}
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("openai: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client paraphrases validated onboarding answers.
type Client struct {
	baseURL    string
	httpClient *http.Client
	key        KeySource
	model      string
	prompt     string

	keyOnce sync.Once
	apiKey  string
	keyErr  error
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithModel(model string) Option {
	return func(c *Client) {
		if strings.TrimSpace(model) != "" {
			c.model = model
		}
	}
}

// WithSystemPrompt overrides the built-in paraphrase instructions.
func WithSystemPrompt(prompt string) Option {
	return func(c *Client) {
		if strings.TrimSpace(prompt) != "" {
			c.prompt = prompt
		}
	}
}

// NewClient creates a paraphraser client. The API key is resolved on the
// first call and reused for the lifetime of the process.
func NewClient(key KeySource, opts ...Option) (*Client, error) {
	if key == nil {
		return nil, errors.New("openai: key source must not be nil")
	}
	c := &Client{
		baseURL:    "https://api.openai.com/v1",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		key:        key,
		model:      defaultModel,
		prompt:     paraphrasePrompt,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	c.keyOnce.Do(func() {
		c.apiKey, c.keyErr = c.key(ctx)
	})
	return c.apiKey, c.keyErr
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func chatURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}

// Paraphrase asks the model for the canonical display form of value. It is
// called once per accepted answer; callers own the timeout and the
// raw-value fallback.
func (c *Client) Paraphrase(ctx context.Context, step domain.Step, value string) (string, error) {
	apiKey, err := c.resolveAPIKey(ctx)
	if err != nil {
		return "", err
	}

	temperature := 0.0
	body, err := json.Marshal(chatRequest{
		Model:          c.model,
		Temperature:    &temperature,
		Messages:       buildParaphraseMessages(c.prompt, step, value),
		ResponseFormat: paraphraseResponseFormat(),
	})
	if err != nil {
		return "", fmt.Errorf("openai: marshal request: %w", err)
	}

	url := chatURL(c.baseURL)
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if reqErr != nil {
		return "", fmt.Errorf("openai: create request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	raw, err := c.doJSONRequest(req, url)
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", err)
	}

	var payload chatResponse
	if decErr := json.Unmarshal(raw, &payload); decErr != nil {
		return "", fmt.Errorf("openai: decode response: %w", decErr)
	}
	if len(payload.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}

	var result paraphraseResult
	if err := json.Unmarshal([]byte(payload.Choices[0].Message.Content), &result); err != nil {
		return "", fmt.Errorf("openai: decode paraphrase: %w", err)
	}
	if strings.TrimSpace(result.Paraphrase) == "" {
		return "", errors.New("openai: empty paraphrase")
	}
	return strings.TrimSpace(result.Paraphrase), nil
}

func paraphraseResponseFormat() *responseFormat {
	return &responseFormat{
		Type: "json_schema",
		JSONSchema: jsonSchemaConfig{
			Name:   "paraphrase",
			Strict: true,
			Schema: json.RawMessage(`{
				"type":"object",
				"additionalProperties":false,
				"properties":{
					"paraphrase":{"type":"string"}
				},
				"required":["paraphrase"]
			}`),
		},
	}
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}
