package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrCancelled indicates the operator stopped the operation.
	ErrCancelled = errors.New("operation cancelled")
	// ErrTransportDown indicates the catalog service could not be reached.
	ErrTransportDown = errors.New("catalog service unreachable")
	// ErrRateLimited signals a rate-limited call that may be retried.
	ErrRateLimited = errors.New("rate limited by catalog service")
	// ErrRateLimitExceeded indicates rate-limit retries were exhausted.
	ErrRateLimitExceeded = errors.New("rate limit retries exhausted")
	// ErrInconsistent indicates no response and no error while the network is up.
	ErrInconsistent = errors.New("catalog service returned no response")
)

// ClientError is a 4xx outcome other than rate limiting.
type ClientError struct {
	Status  int      `json:"status"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func (e *ClientError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("catalog client error %d: %s: %s", e.Status, e.Message, strings.Join(e.Details, "; "))
	}
	return fmt.Sprintf("catalog client error %d: %s", e.Status, e.Message)
}

// NotFound reports whether the error is a 404.
func (e *ClientError) NotFound() bool {
	return e.Status == http.StatusNotFound
}

// ServerError is a 5xx or 409 outcome.
type ServerError struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("catalog server error %d: %s", e.Status, truncate(e.Body, 200))
}

// UnexpectedStatusError is any status code the interpreter has no rule for.
type UnexpectedStatusError struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected catalog status %d: %s", e.Status, truncate(e.Body, 200))
}

// IsNotFound reports whether err is a 404 client error.
func IsNotFound(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.NotFound()
}

// IsServerError reports whether err is a server error.
func IsServerError(err error) bool {
	var se *ServerError
	return errors.As(err, &se)
}

// IsServerFault reports whether err carries any 5xx status.
func IsServerFault(err error) bool {
	var se *ServerError
	if errors.As(err, &se) {
		return se.Status >= 500
	}
	var ue *UnexpectedStatusError
	return errors.As(err, &ue) && ue.Status >= 500
}

// Checkpoint returns ErrCancelled once ctx is done.
func Checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}
	return nil
}

func cancelled(cause error) error {
	if errors.Is(cause, ErrCancelled) {
		return cause
	}
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
