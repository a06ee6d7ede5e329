package llm_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/spicecouncil/llm"
)

func TestErrorClassification(t *testing.T) {
	base := errors.New("connection reset")

	tests := []struct {
		name          string
		err           error
		wantTransient bool
		wantFatal     bool
	}{
		{
			name:          "transient",
			err:           llm.NewTransientError(base),
			wantTransient: true,
		},
		{
			name:      "fatal",
			err:       llm.NewFatalError(base),
			wantFatal: true,
		},
		{
			name: "unclassified",
			err:  base,
		},
		{
			name:          "classification survives wrapping",
			err:           fmt.Errorf("query anthropic: %w", llm.NewTransientError(base)),
			wantTransient: true,
		},
		{
			name:      "fatal survives wrapping",
			err:       fmt.Errorf("query openai: %w", llm.NewFatalError(base)),
			wantFatal: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantTransient, llm.IsTransient(tt.err))
			assert.Equal(t, tt.wantFatal, llm.IsFatal(tt.err))
		})
	}
}

func TestErrorUnwrapPreservesCause(t *testing.T) {
	cause := errors.New("HTTP 401")

	err := llm.NewFatalError(fmt.Errorf("provider rejected request: %w", cause))
	require.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "HTTP 401")

	// A classified error never double-classifies.
	assert.False(t, llm.IsTransient(err))
}
