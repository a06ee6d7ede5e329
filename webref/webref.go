package webref

import (
	"context"
	"time"
)

// Load fetches a reference URL and returns its readable content as Markdown.
// It is a convenience wrapper over Fetcher and Converter for the CLI path.
// maxBytes of 0 uses the fetcher default.
func Load(ctx context.Context, rawURL string, timeout time.Duration, maxBytes int64) (*Reference, error) {
	body, err := NewFetcher(timeout, maxBytes).Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return NewConverter().Convert(body, rawURL)
}
