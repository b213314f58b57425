package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/lamim/reportforge/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestResearch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected Content-Type 'application/json', got '%s'", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("Accept") != "*/*" {
			t.Errorf("Expected Accept '*/*', got '%s'", r.Header.Get("Accept"))
		}
		if r.Header.Get("User-Agent") != "reportforge-test" {
			t.Errorf("Expected User-Agent 'reportforge-test', got '%s'", r.Header.Get("User-Agent"))
		}

		var req ResearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.APIKey != "tvly-test" {
			t.Errorf("Expected api_key 'tvly-test', got '%s'", req.APIKey)
		}
		if req.Query != "Analyze <regression> & correlation" {
			t.Errorf("Unexpected query: %q", req.Query)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`"# Report\n\nBody"`))
	}))
	defer server.Close()

	client := NewClient(testLogger())
	upstream := config.UpstreamConfig{
		Provider:  config.ProviderResearch,
		BaseURL:   server.URL,
		UserAgent: "reportforge-test",
	}

	answer, err := client.Ask(context.Background(), upstream, "tvly-test", "Analyze <regression> & correlation")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if answer.Text() != "# Report\n\nBody" {
		t.Errorf("Unexpected text: %q", answer.Text())
	}
}

func TestResearch_HTMLNotEscaped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), `\u003c`) {
			t.Errorf("Request body has HTML-escaped characters: %s", body)
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(testLogger())
	_, err := client.Research(context.Background(), config.UpstreamConfig{BaseURL: server.URL}, "", "a < b")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}

func TestResearch_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`upstream exploded`))
	}))
	defer server.Close()

	client := NewClient(testLogger())
	_, err := client.Ask(context.Background(), config.UpstreamConfig{BaseURL: server.URL}, "k", "q")
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", apiErr.StatusCode)
	}
	if !strings.Contains(apiErr.Message, "upstream exploded") {
		t.Errorf("Expected body in message, got %q", apiErr.Message)
	}
}

func TestResearch_NoRetry(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(testLogger())
	if _, err := client.Ask(context.Background(), config.UpstreamConfig{BaseURL: server.URL}, "k", "q"); err == nil {
		t.Fatal("Expected error, got nil")
	}
	if attempts != 1 {
		t.Errorf("Expected exactly 1 attempt, got %d", attempts)
	}
}

func TestResearch_ResponseSizeLimit(t *testing.T) {
	body := `"` + strings.Repeat("a", 62) + `"` // 64 bytes
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	client := NewClient(testLogger())

	t.Run("at limit", func(t *testing.T) {
		upstream := config.UpstreamConfig{BaseURL: server.URL, MaxResponseBytes: 64}
		answer, err := client.Ask(context.Background(), upstream, "k", "q")
		if err != nil {
			t.Fatalf("Ask() error = %v", err)
		}
		if string(answer.Body) != body {
			t.Errorf("Expected full body, got %d bytes", len(answer.Body))
		}
	})

	t.Run("over limit", func(t *testing.T) {
		upstream := config.UpstreamConfig{BaseURL: server.URL, MaxResponseBytes: 63}
		_, err := client.Ask(context.Background(), upstream, "k", "q")
		if !errors.Is(err, ErrResponseTooLarge) {
			t.Errorf("Expected ErrResponseTooLarge, got %v", err)
		}
	})
}

func TestAsk_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(testLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Ask(ctx, config.UpstreamConfig{BaseURL: server.URL, TimeoutSeconds: 30}, "k", "q")
	if err == nil {
		t.Fatal("Expected timeout error, got nil")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 0 {
		t.Errorf("Expected transport APIError, got %v", err)
	}
}

func TestChatCompletion_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header 'Bearer test-key', got '%s'", r.Header.Get("Authorization"))
		}

		var req ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("Expected model test-model, got %s", req.Model)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("Unexpected messages: %+v", req.Messages)
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{
			"id": "test-123",
			"object": "chat.completion",
			"created": 1234567890,
			"model": "test-model",
			"choices": [{
				"index": 0,
				"message": {
					"role": "assistant",
					"content": "<think>pick a bar chart</think>{\"chartType\":\"bar\"}"
				},
				"finish_reason": "stop"
			}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer server.Close()

	client := NewClient(testLogger())
	upstream := config.UpstreamConfig{
		Provider:        config.ProviderOpenAI,
		BaseURL:         server.URL + "/v1/",
		ModelName:       "test-model",
		Temperature:     0.7,
		MaxOutputTokens: 100,
	}

	answer, err := client.Ask(context.Background(), upstream, "test-key", "chart please")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if answer.Text() != `{"chartType":"bar"}` {
		t.Errorf("Expected think tags stripped, got %q", answer.Text())
	}
}

func TestChatCompletion_ErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "Rate limit exceeded", "type": "rate_limit", "code": "429"}}`))
	}))
	defer server.Close()

	client := NewClient(testLogger())
	upstream := config.UpstreamConfig{Provider: config.ProviderOpenAI, BaseURL: server.URL, ModelName: "m"}

	_, err := client.ChatCompletion(context.Background(), upstream, "k", []Message{{Role: "user", Content: "x"}})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %v", err)
	}
	if apiErr.Message != "Rate limit exceeded" || apiErr.Type != "rate_limit" {
		t.Errorf("Unexpected error fields: %+v", apiErr)
	}
	if !strings.Contains(apiErr.Error(), "status 429") {
		t.Errorf("Unexpected error string: %s", apiErr.Error())
	}
}

func TestChatCompletion_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": "x", "choices": []}`))
	}))
	defer server.Close()

	client := NewClient(testLogger())
	upstream := config.UpstreamConfig{Provider: config.ProviderOpenAI, BaseURL: server.URL, ModelName: "m"}

	if _, err := client.Ask(context.Background(), upstream, "k", "x"); err == nil {
		t.Error("Expected error for empty choices, got nil")
	}
}

func TestAPIError_NoStatus(t *testing.T) {
	err := &APIError{Message: "connection refused"}
	if err.Error() != "API error: connection refused" {
		t.Errorf("Unexpected error string: %s", err.Error())
	}
}
