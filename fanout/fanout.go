// Package fanout issues one completion request per enabled provider
// concurrently and collects every result, successful or not.
//
// Each provider call owns an independent result slot, so no locking is needed
// across the in-flight requests. The join is all-or-nothing: a failing
// provider contributes an error-carrying answer instead of aborting the rest.
package fanout

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/c360studio/spicecouncil/llm"
)

// ModelAnswer is one provider's response to the fanned-out question.
// Immutable once created; the collected sequence is persisted verbatim for
// audit.
type ModelAnswer struct {
	// Provider is the provider name the answer came from.
	Provider string `json:"provider"`

	// Model is the model identifier that was queried.
	Model string `json:"model"`

	// Text is the raw answer text; possibly empty.
	Text string `json:"text"`

	// Error carries the failure message when the call failed; empty otherwise.
	Error string `json:"error,omitempty"`

	// Meta holds optional side-channel data (timing, token usage).
	Meta map[string]any `json:"meta,omitempty"`
}

// Target is one enabled (provider, model) pair to query.
type Target struct {
	Endpoint llm.Endpoint
}

// Coordinator fans a prompt out to a set of targets.
type Coordinator struct {
	client *llm.Client
	logger *slog.Logger
}

// New creates a Coordinator.
func New(client *llm.Client, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{client: client, logger: logger}
}

// Fanout queries every target concurrently and waits for all of them.
// The returned slice preserves target order. It never fails as a whole:
// per-target failures are captured in the corresponding answer's Error field.
func (c *Coordinator) Fanout(ctx context.Context, targets []Target, req llm.Request) []ModelAnswer {
	answers := make([]ModelAnswer, len(targets))

	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(slot int, t Target) {
			defer wg.Done()
			answers[slot] = c.queryOne(ctx, t, req)
		}(i, target)
	}
	wg.Wait()

	return answers
}

// queryOne performs a single provider call and folds the outcome into a
// ModelAnswer.
func (c *Coordinator) queryOne(ctx context.Context, t Target, req llm.Request) ModelAnswer {
	started := time.Now()
	answer := ModelAnswer{
		Provider: t.Endpoint.Provider,
		Model:    t.Endpoint.Model,
	}

	resp, err := c.client.Query(ctx, t.Endpoint, req)
	duration := time.Since(started)

	if err != nil {
		c.logger.Warn("Provider call failed",
			"provider", t.Endpoint.Provider,
			"model", t.Endpoint.Model,
			"duration", duration,
			"error", err)
		answer.Error = err.Error()
		answer.Meta = map[string]any{"duration_ms": duration.Milliseconds()}
		return answer
	}

	answer.Text = resp.Content
	answer.Meta = map[string]any{
		"duration_ms": duration.Milliseconds(),
	}
	if resp.Usage.TotalTokens > 0 {
		answer.Meta["prompt_tokens"] = resp.Usage.PromptTokens
		answer.Meta["completion_tokens"] = resp.Usage.CompletionTokens
		answer.Meta["total_tokens"] = resp.Usage.TotalTokens
	}

	c.logger.Info("Provider answered",
		"provider", t.Endpoint.Provider,
		"model", t.Endpoint.Model,
		"duration", duration,
		"bytes", len(resp.Content))

	return answer
}
