package gateway

import (
	"fmt"
	"time"

	"weatherproxy/internal/models"
)

// Kind classifies a pipeline failure. The api package maps each kind to an
// HTTP status.
type Kind string

const (
	KindBadRequest          Kind = models.OutcomeBadRequest
	KindUnauthorized        Kind = models.OutcomeUnauthorized
	KindRateLimited         Kind = models.OutcomeRateLimited
	KindUpstreamUnavailable Kind = models.OutcomeUpstreamUnavailable
	KindUpstreamError       Kind = models.OutcomeUpstreamError
	KindInternal            Kind = models.OutcomeInternalError
)

// Error is the single error type the pipeline returns. Message is safe to
// show to callers; Err holds the server-side detail.
type Error struct {
	Kind       Kind
	Message    string
	Err        error
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Outcome is the usage ledger outcome recorded for this error.
func (e *Error) Outcome() string { return string(e.Kind) }

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}
