package providers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/spicecouncil/llm"
)

func TestOllamaProvider_BuildURL(t *testing.T) {
	p := &OllamaProvider{}

	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{
			name:    "empty uses default",
			baseURL: "",
			want:    "http://localhost:11434/v1/chat/completions",
		},
		{
			name:    "custom base URL",
			baseURL: "http://gpu-box:8000/v1",
			want:    "http://gpu-box:8000/v1/chat/completions",
		},
		{
			name:    "full path passed through",
			baseURL: "http://gpu-box:8000/v1/chat/completions",
			want:    "http://gpu-box:8000/v1/chat/completions",
		},
		{
			name:    "trailing slash handled",
			baseURL: "http://gpu-box:8000/v1/",
			want:    "http://gpu-box:8000/v1/chat/completions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.BuildURL(tt.baseURL))
		})
	}
}

func TestOllamaProvider_BuildRequestBody(t *testing.T) {
	p := &OllamaProvider{}

	temp := 0.3
	body, err := p.BuildRequestBody("qwen2.5-coder:32b", "Hello", nil, &temp, 1024)
	require.NoError(t, err)

	assert.Contains(t, string(body), `"model":"qwen2.5-coder:32b"`)
	assert.Contains(t, string(body), `"temperature":0.3`)
	assert.Contains(t, string(body), `"max_tokens":1024`)
	// Text-only prompts use the plain string content form.
	assert.Contains(t, string(body), `"content":"Hello"`)
}

func TestOllamaProvider_BuildRequestBody_NoOptionalFields(t *testing.T) {
	p := &OllamaProvider{}

	body, err := p.BuildRequestBody("test-model", "Hello", nil, nil, 0)
	require.NoError(t, err)

	assert.NotContains(t, string(body), `"temperature"`)
	assert.NotContains(t, string(body), `"max_tokens"`)
}

func TestOllamaProvider_BuildRequestBody_Image(t *testing.T) {
	p := &OllamaProvider{}

	image := &llm.Image{MIMEType: "image/jpeg", Base64Data: "aGVsbG8="}
	body, err := p.BuildRequestBody("test-model", "What is this?", image, nil, 0)
	require.NoError(t, err)

	// Image attachments switch to multi-part content with a data URL.
	assert.Contains(t, string(body), `"type":"text"`)
	assert.Contains(t, string(body), `"type":"image_url"`)
	assert.Contains(t, string(body), `data:image/jpeg;base64,aGVsbG8=`)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
}

func TestOllamaProvider_ParseResponse(t *testing.T) {
	p := &OllamaProvider{}

	responseBody := []byte(`{
		"id": "chatcmpl-1",
		"model": "qwen2.5-coder:32b",
		"choices": [
			{
				"index": 0,
				"message": {"role": "assistant", "content": "An RC filter."},
				"finish_reason": "stop"
			}
		],
		"usage": {"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16}
	}`)

	resp, err := p.ParseResponse(responseBody, "qwen2.5-coder:32b")
	require.NoError(t, err)

	assert.Equal(t, "An RC filter.", resp.Content)
	assert.Equal(t, "qwen2.5-coder:32b", resp.Model)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 16, resp.Usage.TotalTokens)
}

func TestOllamaProvider_ParseResponse_NoChoices(t *testing.T) {
	p := &OllamaProvider{}

	_, err := p.ParseResponse([]byte(`{"model": "m", "choices": []}`), "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestOllamaProvider_ParseResponse_ModelFallback(t *testing.T) {
	p := &OllamaProvider{}

	responseBody := []byte(`{
		"choices": [
			{"message": {"role": "assistant", "content": "hi"}, "finish_reason": "stop"}
		]
	}`)

	resp, err := p.ParseResponse(responseBody, "requested-model")
	require.NoError(t, err)
	assert.Equal(t, "requested-model", resp.Model)
}
