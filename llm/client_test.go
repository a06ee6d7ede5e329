package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/spicecouncil/llm"
	_ "github.com/c360studio/spicecouncil/llm/providers" // Register providers
)

// chatResponse builds an OpenAI-format success body.
func chatResponse(model, content string) map[string]any {
	return map[string]any{
		"id":    "chatcmpl-123",
		"model": model,
		"choices": []map[string]any{
			{
				"index": 0,
				"message": map[string]string{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{
			"prompt_tokens":     10,
			"completion_tokens": 8,
			"total_tokens":      18,
		},
	}
}

func testEndpoint(serverURL string) llm.Endpoint {
	return llm.Endpoint{
		Provider: "ollama",
		URL:      serverURL,
		Model:    "test-model",
	}
}

func fastRetry() llm.RetryConfig {
	return llm.RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       1 * time.Millisecond,
		BackoffMultiplier: 1.0,
		MaxBackoff:        10 * time.Millisecond,
	}
}

func TestClient_Query_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatResponse("test-model", "Hello! How can I help you?"))
	}))
	defer server.Close()

	client := llm.NewClient()

	resp, err := client.Query(context.Background(), testEndpoint(server.URL), llm.Request{
		Prompt: "Hello",
	})

	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help you?", resp.Content)
	assert.Equal(t, "test-model", resp.Model)
	assert.Equal(t, 18, resp.Usage.TotalTokens)
	assert.Equal(t, "stop", resp.FinishReason)
}

func TestClient_Query_RetryOnTransientError(t *testing.T) {
	var attempts atomic.Int32

	// Fails first 2 times, then succeeds
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("Service temporarily unavailable"))
			return
		}
		json.NewEncoder(w).Encode(chatResponse("test-model", "Success after retries"))
	}))
	defer server.Close()

	client := llm.NewClient(llm.WithRetryConfig(fastRetry()))

	resp, err := client.Query(context.Background(), testEndpoint(server.URL), llm.Request{
		Prompt: "Test",
	})

	require.NoError(t, err)
	assert.Equal(t, "Success after retries", resp.Content)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClient_Query_NoRetryOnFatalError(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("Invalid API key"))
	}))
	defer server.Close()

	client := llm.NewClient(llm.WithRetryConfig(fastRetry()))

	_, err := client.Query(context.Background(), testEndpoint(server.URL), llm.Request{
		Prompt: "Test",
	})

	require.Error(t, err)
	assert.True(t, llm.IsFatal(err))
	assert.Equal(t, int32(1), attempts.Load()) // Only one attempt
}

func TestClient_Query_RateLimitRetry(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte("Rate limited"))
			return
		}
		json.NewEncoder(w).Encode(chatResponse("test-model", "Success"))
	}))
	defer server.Close()

	client := llm.NewClient(llm.WithRetryConfig(fastRetry()))

	resp, err := client.Query(context.Background(), testEndpoint(server.URL), llm.Request{
		Prompt: "Test",
	})

	require.NoError(t, err)
	assert.Equal(t, "Success", resp.Content)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestClient_Query_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := llm.NewClient()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Query(ctx, testEndpoint(server.URL), llm.Request{Prompt: "Test"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "context")
}

func TestClient_Query_UnknownProvider(t *testing.T) {
	client := llm.NewClient()

	_, err := client.Query(context.Background(), llm.Endpoint{
		Provider: "nonexistent",
		Model:    "test-model",
	}, llm.Request{Prompt: "Test"})

	require.Error(t, err)
	assert.True(t, llm.IsFatal(err))
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestClient_Query_ValidationErrors(t *testing.T) {
	client := llm.NewClient()

	tests := []struct {
		name    string
		ep      llm.Endpoint
		req     llm.Request
		wantErr string
	}{
		{
			name:    "empty provider",
			ep:      llm.Endpoint{Model: "m"},
			req:     llm.Request{Prompt: "hi"},
			wantErr: "provider is required",
		},
		{
			name:    "empty prompt",
			ep:      llm.Endpoint{Provider: "ollama", Model: "m"},
			req:     llm.Request{},
			wantErr: "prompt is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Query(context.Background(), tt.ep, tt.req)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
