package analysis

import (
	"errors"
	"fmt"

	"github.com/SanchitCoder/PortIQ/internal/usage"
)

var (
	ErrEntitlementExhausted = errors.New("entitlement exhausted")
	ErrEmptyResult          = errors.New("no content received")
)

// ValidationError is bad user input. It is raised before any store or
// network access.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ExhaustedError reports a free user with no remaining uses of Feature.
type ExhaustedError struct {
	Feature usage.Feature
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("You have reached your usage limit for %s. Please upgrade to continue.", e.Feature.DisplayName())
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrEntitlementExhausted
}

// TransportError covers unreachable endpoints, timeouts and non-2xx replies.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("webhook %s returned status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("webhook %s request failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
