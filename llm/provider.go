package llm

import (
	"net/http"
	"sync"
)

// Image is an optional attachment sent alongside a prompt, typically a
// baseline schematic screenshot.
type Image struct {
	// MIMEType is the image media type (e.g. "image/png").
	MIMEType string

	// Base64Data is the base64-encoded image payload.
	Base64Data string

	// Filename is an optional original file name, for logging only.
	Filename string
}

// Provider defines the interface for text-completion provider adapters.
// Adapters are pure request/response translators: all retry and error
// classification lives in the Client.
type Provider interface {
	// Name returns the provider identifier (e.g. "anthropic", "openai").
	Name() string

	// BuildURL constructs the full API endpoint URL.
	BuildURL(baseURL string) string

	// SetHeaders adds provider-specific headers to the request.
	SetHeaders(req *http.Request)

	// BuildRequestBody creates the JSON request body for one prompt.
	// image is nil when no attachment is supplied. temperature is nil to use
	// the provider default.
	BuildRequestBody(model, prompt string, image *Image, temperature *float64, maxTokens int) ([]byte, error)

	// ParseResponse extracts the completion from provider-specific JSON.
	ParseResponse(body []byte, model string) (*Response, error)
}

// providerRegistry holds registered providers.
var (
	providerRegistry = make(map[string]Provider)
	providerMu       sync.RWMutex
)

// RegisterProvider adds a provider to the registry.
func RegisterProvider(p Provider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	providerRegistry[p.Name()] = p
}

// GetProvider retrieves a provider by name, or nil when unregistered.
func GetProvider(name string) Provider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return providerRegistry[name]
}

// ListProviders returns all registered provider names.
func ListProviders() []string {
	providerMu.RLock()
	defer providerMu.RUnlock()

	names := make([]string, 0, len(providerRegistry))
	for name := range providerRegistry {
		names = append(names, name)
	}
	return names
}
