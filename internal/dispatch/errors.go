package dispatch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrNotConnected     = errors.New("session not connected")
	ErrEmptyContent     = errors.New("empty content")
	ErrInvalidPeer      = errors.New("invalid peer")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrTooLarge         = errors.New("media too large")
	ErrNotRetryable     = errors.New("message cannot be retried")
)

// ValidationError describes the first request field that failed validation.
type ValidationError struct {
	Field string
	Rule  string
	cause error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: failed %q (%v)", strings.ToLower(e.Field), e.Rule, e.cause)
}

// Unwrap returns the sentinel for the failing field so callers can use errors.Is.
func (e *ValidationError) Unwrap() error { return e.cause }

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	ve := &ValidationError{Field: fe.Field(), Rule: fe.Tag()}
	switch fe.Field() {
	case "Peer":
		ve.cause = ErrInvalidPeer
	case "Kind":
		ve.cause = ErrUnsupportedMedia
	default:
		ve.cause = ErrEmptyContent
	}
	return ve
}
