package llm

import (
	"errors"
	"fmt"
)

// RateLimitError indicates a provider rejected a request with HTTP 429.
// RetryAfter is the provider's suggested wait in seconds, or a default
// when the provider did not say.
type RateLimitError struct {
	Provider   string
	RetryAfter int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited, retry after %ds", e.Provider, e.RetryAfter)
}

// IsRateLimit reports whether err is (or wraps) a rate-limit rejection,
// returning the typed error when it is.
func IsRateLimit(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}
