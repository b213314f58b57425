package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lamim/reportforge/internal/config"
	"github.com/lamim/reportforge/internal/util"
)

// maxErrorBodyChars bounds how much of an upstream error body is kept in APIError
const maxErrorBodyChars = 512

// ErrResponseTooLarge is returned when an upstream body exceeds the configured cap
var ErrResponseTooLarge = errors.New("upstream response too large")

// Client sends prompts to the configured upstream research or chat API.
// Requests are not retried: a failed call fails the report.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new API client. Timeouts are applied per request
// from the upstream config rather than on the shared http.Client.
func NewClient(logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{},
		logger:     logger.With("component", "api"),
	}
}

// Ask sends prompt to the upstream described by upstream and returns its answer
func (c *Client) Ask(
	ctx context.Context,
	upstream config.UpstreamConfig,
	apiKey string,
	prompt string,
) (*Answer, error) {
	if upstream.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(upstream.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	switch upstream.Provider {
	case config.ProviderOpenAI:
		resp, err := c.ChatCompletion(ctx, upstream, apiKey, []Message{
			{Role: "user", Content: prompt},
		})
		if err != nil {
			return nil, err
		}
		content := util.StripThinkTags(resp.Choices[0].Message.Content)
		return &Answer{Body: []byte(content)}, nil
	default:
		return c.Research(ctx, upstream, apiKey, prompt)
	}
}

// Research posts a query to a research endpoint and returns the raw body
func (c *Client) Research(
	ctx context.Context,
	upstream config.UpstreamConfig,
	apiKey string,
	query string,
) (*Answer, error) {
	if apiKey == "" {
		c.logger.Warn("Research request without key", "endpoint", upstream.BaseURL)
	}

	headers := http.Header{}
	headers.Set("Accept", "*/*")
	headers.Set("Accept-Language", "en-US,en;q=0.9")

	body, err := c.post(ctx, upstream, upstream.BaseURL, headers, ResearchRequest{
		APIKey: apiKey,
		Query:  query,
	})
	if err != nil {
		return nil, err
	}

	return &Answer{Body: body}, nil
}

// ChatCompletion sends a chat completion request to an OpenAI-compatible endpoint
func (c *Client) ChatCompletion(
	ctx context.Context,
	upstream config.UpstreamConfig,
	apiKey string,
	messages []Message,
) (*ChatCompletionResponse, error) {
	endpoint := strings.TrimRight(upstream.BaseURL, "/") + "/chat/completions"

	headers := http.Header{}
	if apiKey != "" {
		headers.Set("Authorization", "Bearer "+apiKey)
		c.logger.Debug("API request", "endpoint", endpoint, "has_key", true, "key_length", len(apiKey))
	} else {
		c.logger.Warn("API request without key", "endpoint", endpoint)
	}

	respBody, err := c.post(ctx, upstream, endpoint, headers, ChatCompletionRequest{
		Model:       upstream.ModelName,
		Messages:    messages,
		Temperature: upstream.Temperature,
		MaxTokens:   upstream.MaxOutputTokens,
		N:           1,
	})
	if err != nil {
		return nil, err
	}

	var resp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned in response")
	}

	return &resp, nil
}

// post encodes payload as JSON, sends it and returns the body of a 2xx response.
// Bodies larger than upstream.MaxResponseBytes are rejected.
func (c *Client) post(
	ctx context.Context,
	upstream config.UpstreamConfig,
	endpoint string,
	headers http.Header,
	payload any,
) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range headers {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if upstream.UserAgent != "" {
		httpReq.Header.Set("User-Agent", upstream.UserAgent)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &APIError{
			Message:    fmt.Sprintf("request failed: %v", err),
			StatusCode: 0,
		}
	}
	defer func() {
		if err := httpResp.Body.Close(); err != nil {
			c.logger.Warn("Failed to close response body", "error", err)
		}
	}()

	limit := upstream.MaxResponseBytes
	if limit <= 0 {
		limit = config.DefaultMaxResponseBytes
	}
	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(respBody)) > limit {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrResponseTooLarge, limit)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, newAPIError(httpResp.StatusCode, respBody)
	}

	return respBody, nil
}

func newAPIError(statusCode int, body []byte) *APIError {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return &APIError{
			Message:    errResp.Error.Message,
			StatusCode: statusCode,
			Type:       errResp.Error.Type,
			Code:       errResp.Error.Code,
		}
	}

	return &APIError{
		Message:    fmt.Sprintf("API request failed with status %d: %s", statusCode, util.TruncateString(string(body), maxErrorBodyChars)),
		StatusCode: statusCode,
	}
}

// APIError represents an error returned by the upstream API.
// StatusCode is 0 when the request never got a response.
type APIError struct {
	Message    string
	StatusCode int
	Type       string
	Code       string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error: %s", e.Message)
}
