package providers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Outcome buckets a provider attempt for the fallback chain.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	// OutcomeRetryable covers quota, rate limiting, and transient server
	// failures: a different provider may still succeed.
	OutcomeRetryable
	// OutcomeFatal covers malformed or rejected requests. The chain decides
	// whether fatal outcomes still advance.
	OutcomeFatal
)

// StatusError is a provider HTTP failure with enough detail to classify.
type StatusError struct {
	Provider string
	Status   int
	Message  string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Message)
}

var retryableFragments = []string{
	"quota",
	"rate limit",
	"ratelimit",
	"resource_exhausted",
	"resource exhausted",
	"overloaded",
	"too many requests",
	"service unavailable",
	"internal error",
	"internalerror",
	"timeout",
	"timed out",
	"deadline exceeded",
}

// Classify maps an attempt error onto an outcome bucket. HTTP 429 and 5xx are
// retryable, as is any vendor message naming quota or rate limiting; anything
// else is fatal.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Status == http.StatusTooManyRequests || statusErr.Status >= http.StatusInternalServerError {
			return OutcomeRetryable
		}
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range retryableFragments {
		if strings.Contains(msg, fragment) {
			return OutcomeRetryable
		}
	}
	return OutcomeFatal
}
