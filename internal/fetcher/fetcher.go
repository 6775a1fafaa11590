package fetcher

import (
	"context"
	"fmt"
)

// PageFetcher retrieves the raw markup of a registry page.
type PageFetcher interface {
	// Fetch returns the response body of a 200 response. Any other status
	// is a *StatusError and a challenge page is a *BlockedError; transport
	// failures are returned wrapped.
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// StatusError reports a response that was received but was not a 200.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetcher: unexpected status %d from %s", e.StatusCode, e.URL)
}
