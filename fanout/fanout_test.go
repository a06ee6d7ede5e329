package fanout_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/spicecouncil/fanout"
	"github.com/c360studio/spicecouncil/llm"
	_ "github.com/c360studio/spicecouncil/llm/providers" // Register providers
)

// chatServer returns an httptest server answering every request with the
// given content in OpenAI format.
func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"model": "test-model",
			"choices": []map[string]any{
				{
					"message":       map[string]string{"role": "assistant", "content": content},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]int{"prompt_tokens": 5, "completion_tokens": 3, "total_tokens": 8},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func failingServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte("provider is unhappy"))
	}))
}

func target(serverURL, model string) fanout.Target {
	return fanout.Target{Endpoint: llm.Endpoint{
		Provider: "ollama",
		URL:      serverURL,
		Model:    model,
	}}
}

func TestFanout_AllSucceed(t *testing.T) {
	s1 := chatServer(t, "answer one")
	defer s1.Close()
	s2 := chatServer(t, "answer two")
	defer s2.Close()

	c := fanout.New(llm.NewClient(), nil)

	answers := c.Fanout(context.Background(), []fanout.Target{
		target(s1.URL, "model-a"),
		target(s2.URL, "model-b"),
	}, llm.Request{Prompt: "question"})

	require.Len(t, answers, 2)

	// Slice order matches target order regardless of completion order.
	assert.Equal(t, "model-a", answers[0].Model)
	assert.Equal(t, "answer one", answers[0].Text)
	assert.Empty(t, answers[0].Error)

	assert.Equal(t, "model-b", answers[1].Model)
	assert.Equal(t, "answer two", answers[1].Text)
	assert.Empty(t, answers[1].Error)
}

func TestFanout_PartialFailure(t *testing.T) {
	ok := chatServer(t, "still here")
	defer ok.Close()
	bad := failingServer(t, http.StatusUnauthorized)
	defer bad.Close()

	c := fanout.New(llm.NewClient(), nil)

	answers := c.Fanout(context.Background(), []fanout.Target{
		target(bad.URL, "broken-model"),
		target(ok.URL, "working-model"),
	}, llm.Request{Prompt: "question"})

	require.Len(t, answers, 2)

	// A failing provider yields an error-carrying answer, not an aborted run.
	assert.Empty(t, answers[0].Text)
	assert.NotEmpty(t, answers[0].Error)
	assert.Equal(t, "broken-model", answers[0].Model)

	assert.Equal(t, "still here", answers[1].Text)
	assert.Empty(t, answers[1].Error)
}

func TestFanout_AllFail(t *testing.T) {
	bad := failingServer(t, http.StatusForbidden)
	defer bad.Close()

	c := fanout.New(llm.NewClient(), nil)

	answers := c.Fanout(context.Background(), []fanout.Target{
		target(bad.URL, "m1"),
		target(bad.URL, "m2"),
	}, llm.Request{Prompt: "question"})

	require.Len(t, answers, 2)
	for _, a := range answers {
		assert.NotEmpty(t, a.Error)
	}
}

func TestFanout_NoTargets(t *testing.T) {
	c := fanout.New(llm.NewClient(), nil)
	answers := c.Fanout(context.Background(), nil, llm.Request{Prompt: "question"})
	assert.Empty(t, answers)
}

func TestFanout_MetaCarriesTiming(t *testing.T) {
	s := chatServer(t, "answer")
	defer s.Close()

	c := fanout.New(llm.NewClient(), nil)

	answers := c.Fanout(context.Background(), []fanout.Target{
		target(s.URL, "model-a"),
	}, llm.Request{Prompt: "question"})

	require.Len(t, answers, 1)
	require.NotNil(t, answers[0].Meta)
	assert.Contains(t, answers[0].Meta, "duration_ms")
	assert.Contains(t, answers[0].Meta, "total_tokens")
}
