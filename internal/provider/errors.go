package provider

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// defaultRetryAfter is the pause applied after a 429 without a usable
// Retry-After header.
const defaultRetryAfter = time.Minute

// ErrMissingAPIKey is returned when a provider that requires a key has none.
var ErrMissingAPIKey = errors.New("missing api key")

// APIError is a non-200 response from an upstream API.
type APIError struct {
	Provider string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error %d: %s", e.Provider, e.Status, e.Body)
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(header string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || secs <= 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}
