package transformer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrEmptyResponse marks a response that arrived without usable content.
// It is retryable.
var ErrEmptyResponse = errors.New("empty response from service")

// StatusError is returned by services for non-2xx HTTP responses so the
// retry policy can classify them by status code.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("service returned status %d", e.Code)
	}
	return fmt.Sprintf("service returned status %d: %s", e.Code, e.Body)
}

// Class is the retry classification of a transformation error.
type Class int

const (
	// Retryable errors consume one retry attempt after a fixed delay:
	// network timeouts, server errors, malformed or empty responses.
	Retryable Class = iota
	// RateLimited errors wait out a longer cooldown without consuming a
	// retry attempt.
	RateLimited
	// Fatal errors abort the fragment immediately: bad input, bad
	// credentials, missing permission, or a cancelled context.
	Fatal
)

// Classify maps an error from a Service call onto its retry class.
func Classify(err error) Class {
	var se *StatusError
	if errors.As(err, &se) {
		switch {
		case se.Code == http.StatusTooManyRequests:
			return RateLimited
		case se.Code == http.StatusBadRequest,
			se.Code == http.StatusUnauthorized,
			se.Code == http.StatusForbidden:
			return Fatal
		default:
			return Retryable
		}
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return Retryable
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Fatal
	}

	return Retryable
}
