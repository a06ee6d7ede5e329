package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/spicecouncil/llm"
)

func TestOpenAIProvider_BuildURL(t *testing.T) {
	p := &OpenAIProvider{}

	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{
			name:    "empty uses default",
			baseURL: "",
			want:    "https://api.openai.com/v1/chat/completions",
		},
		{
			name:    "openrouter base URL",
			baseURL: "https://openrouter.ai/api/v1",
			want:    "https://openrouter.ai/api/v1/chat/completions",
		},
		{
			name:    "full path passed through",
			baseURL: "https://api.openai.com/v1/chat/completions",
			want:    "https://api.openai.com/v1/chat/completions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.BuildURL(tt.baseURL))
		})
	}
}

func TestOpenAIProvider_SharesWireFormat(t *testing.T) {
	p := &OpenAIProvider{}

	// Request/response handling is inherited from the OpenAI-compatible base.
	body, err := p.BuildRequestBody("gpt-4o", "Hello", nil, nil, 0)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"model":"gpt-4o"`)

	resp, err := p.ParseResponse([]byte(`{
		"model": "gpt-4o",
		"choices": [
			{"message": {"role": "assistant", "content": "hi"}, "finish_reason": "stop"}
		]
	}`), "gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Content)
}

func TestProviderRegistration(t *testing.T) {
	// init() registration makes all three adapters available by name.
	for _, name := range []string{"anthropic", "openai", "ollama"} {
		p := llm.GetProvider(name)
		require.NotNil(t, p, "provider %s not registered", name)
		assert.Equal(t, name, p.Name())
	}
}
