package llm

import (
	"context"
	"errors"
	"fmt"
)

// ConfigurationError means no usable credential/config is present. It is
// fatal for the call and never retried.
type ConfigurationError struct {
	Missing string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("llm not configured: missing %s", e.Missing)
}

// UpstreamError wraps a non-success status from the generation backend.
// The provider's own status text and body are preserved for diagnostics.
type UpstreamError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("llm upstream %s: %s", e.Status, e.Body)
}

// HTTPStatusCode makes UpstreamError retry-classifiable by httpx.
func (e *UpstreamError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// ErrUpstreamTimeout is surfaced when a generation call exceeds its
// request deadline; job handlers turn it into a job failure instead of
// hanging.
var ErrUpstreamTimeout = errors.New("llm upstream timed out")

func wrapTimeout(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
	}
	return err
}
