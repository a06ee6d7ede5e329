// Package storage persists run records in NATS JetStream KV so every
// fanned-out answer and ensemble result is auditable after the fact.
package storage

import (
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/spicecouncil/ensemble"
	"github.com/c360studio/spicecouncil/fanout"
)

// BucketRuns is the KV bucket holding run records.
const BucketRuns = "SPICECOUNCIL_RUNS"

// RunStatus describes how a run ended.
type RunStatus string

const (
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one complete pipeline execution: the question, every provider's
// verbatim answer, and the recovered ensemble outputs.
type Run struct {
	ID           string    `json:"id"`
	Question     string    `json:"question"`
	ReferenceURL string    `json:"reference_url,omitempty"`
	Status       RunStatus `json:"status"`
	Error        string    `json:"error,omitempty"`

	// Answers are the per-provider responses exactly as collected.
	Answers []fanout.ModelAnswer `json:"answers"`

	// EnsembleModel identifies the provider/model that performed ensembling.
	EnsembleProvider string `json:"ensemble_provider,omitempty"`
	EnsembleModel    string `json:"ensemble_model,omitempty"`

	// RawEnsembleResponse is the unparsed ensembling reply, kept for audit.
	RawEnsembleResponse string `json:"raw_ensemble_response,omitempty"`

	// Outputs are the three recovered fields.
	FinalMarkdown string `json:"final_markdown"`
	SpiceNetlist  string `json:"spice_netlist"`
	CircuitJSON   string `json:"circuit_json"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
}

// NewRun creates a run record with a fresh ID.
func NewRun(question string) *Run {
	return &Run{
		ID:        uuid.New().String(),
		Question:  question,
		StartedAt: time.Now().UTC(),
	}
}

// Finish stamps completion time, duration, and status.
func (r *Run) Finish(status RunStatus, outputs ensemble.Outputs) {
	r.Status = status
	r.FinalMarkdown = outputs.FinalMarkdown
	r.SpiceNetlist = outputs.SpiceNetlist
	r.CircuitJSON = outputs.CircuitJSON
	r.CompletedAt = time.Now().UTC()
	r.DurationMs = r.CompletedAt.Sub(r.StartedAt).Milliseconds()
}
