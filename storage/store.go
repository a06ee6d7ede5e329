package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// Store reads and writes run records in a JetStream KV bucket.
type Store struct {
	runs jetstream.KeyValue
}

// NewStore opens (creating if needed) the run bucket.
func NewStore(ctx context.Context, js jetstream.JetStream) (*Store, error) {
	runs, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      BucketRuns,
		Description: "spicecouncil run audit records",
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("open runs bucket: %w", err)
	}

	return &Store{runs: runs}, nil
}

// SaveRun persists a run record under its ID.
func (s *Store) SaveRun(ctx context.Context, run *Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", run.ID, err)
	}

	if _, err := s.runs.Put(ctx, run.ID, data); err != nil {
		return fmt.Errorf("store run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun loads one run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	entry, err := s.runs.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	var run Run
	if err := json.Unmarshal(entry.Value(), &run); err != nil {
		return nil, fmt.Errorf("unmarshal run %s: %w", id, err)
	}
	return &run, nil
}

// ListRunIDs returns the IDs of all stored runs.
func (s *Store) ListRunIDs(ctx context.Context) ([]string, error) {
	lister, err := s.runs.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	var ids []string
	for key := range lister.Keys() {
		ids = append(ids, key)
	}
	return ids, nil
}
