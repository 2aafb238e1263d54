package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Outcome classifies a completed HTTP exchange or a transport failure.
type Outcome int

const (
	// OutcomeSuccess covers 2xx and 3xx codes other than 301 and 302.
	OutcomeSuccess Outcome = iota
	// OutcomeRedirection is a 301 or 302. Redirects are never followed.
	OutcomeRedirection
	// OutcomeBadRequest is a 400.
	OutcomeBadRequest
	// OutcomeUnauthorizedAccess is a 401.
	OutcomeUnauthorizedAccess
	// OutcomeForbiddenAccess is a 403.
	OutcomeForbiddenAccess
	// OutcomeResourceNotFound is a 404.
	OutcomeResourceNotFound
	// OutcomeMethodNotAllowed is a 405.
	OutcomeMethodNotAllowed
	// OutcomeResourceConflict is a 409.
	OutcomeResourceConflict
	// OutcomeResourceGone is a 410.
	OutcomeResourceGone
	// OutcomeResourceInvalid is a 422.
	OutcomeResourceInvalid
	// OutcomeClientError is any other 4xx.
	OutcomeClientError
	// OutcomeServerError is any 5xx.
	OutcomeServerError
	// OutcomeConnectionError is an unknown status code or a failure to
	// reach the server at all.
	OutcomeConnectionError
	// OutcomeTimeout is a transport timeout. Never produced by the classifier.
	OutcomeTimeout
	// OutcomeTLS is a TLS handshake or certificate failure. Never produced
	// by the classifier.
	OutcomeTLS
)

var outcomeNames = map[Outcome]string{
	OutcomeSuccess:            "success",
	OutcomeRedirection:        "redirection",
	OutcomeBadRequest:         "bad_request",
	OutcomeUnauthorizedAccess: "unauthorized_access",
	OutcomeForbiddenAccess:    "forbidden_access",
	OutcomeResourceNotFound:   "resource_not_found",
	OutcomeMethodNotAllowed:   "method_not_allowed",
	OutcomeResourceConflict:   "resource_conflict",
	OutcomeResourceGone:       "resource_gone",
	OutcomeResourceInvalid:    "resource_invalid",
	OutcomeClientError:        "client_error",
	OutcomeServerError:        "server_error",
	OutcomeConnectionError:    "connection_error",
	OutcomeTimeout:            "timeout",
	OutcomeTLS:                "tls",
}

// String returns the outcome name.
func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// IsSuccess reports whether o is OutcomeSuccess.
func (o Outcome) IsSuccess() bool {
	return o == OutcomeSuccess
}

// IsTransport reports whether o comes from the transport rather than a
// status code.
func (o Outcome) IsTransport() bool {
	return o == OutcomeTimeout || o == OutcomeTLS
}

// ClassifyStatusCode maps an HTTP status code to its outcome. Specific codes
// are matched before the ranges that contain them.
func ClassifyStatusCode(statusCode int) Outcome {
	switch {
	case statusCode == 301, statusCode == 302:
		return OutcomeRedirection
	case statusCode >= 200 && statusCode < 400:
		return OutcomeSuccess
	case statusCode == 400:
		return OutcomeBadRequest
	case statusCode == 401:
		return OutcomeUnauthorizedAccess
	case statusCode == 403:
		return OutcomeForbiddenAccess
	case statusCode == 404:
		return OutcomeResourceNotFound
	case statusCode == 405:
		return OutcomeMethodNotAllowed
	case statusCode == 409:
		return OutcomeResourceConflict
	case statusCode == 410:
		return OutcomeResourceGone
	case statusCode == 422:
		return OutcomeResourceInvalid
	case statusCode >= 401 && statusCode < 500:
		return OutcomeClientError
	case statusCode >= 500 && statusCode < 600:
		return OutcomeServerError
	default:
		return OutcomeConnectionError
	}
}

// Error is a classified HTTP client error.
type Error struct {
	// Outcome classifies the error.
	Outcome Outcome
	// StatusCode is the HTTP status code (0 for transport failures).
	StatusCode int
	// Message describes the error.
	Message string
	// Body is the response body, if a response was received.
	Body []byte
	// Err is the underlying error for transport failures.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Outcome, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("httpclient: %s: %s", e.Outcome, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// newStatusError builds the error for a non-success outcome.
func newStatusError(outcome Outcome, resp *Response) *Error {
	msg := http.StatusText(resp.StatusCode)
	if outcome == OutcomeConnectionError {
		msg = fmt.Sprintf("Unknown response code: %d", resp.StatusCode)
	}
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return &Error{
		Outcome:    outcome,
		StatusCode: resp.StatusCode,
		Message:    msg,
		Body:       resp.Body,
	}
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(err error) *Error {
	return &Error{Outcome: OutcomeTimeout, Message: err.Error(), Err: err}
}

// NewTLSError creates a TLS failure error.
func NewTLSError(err error) *Error {
	return &Error{Outcome: OutcomeTLS, Message: err.Error(), Err: err}
}

// NewConnectionError creates a connection failure error.
func NewConnectionError(err error) *Error {
	return &Error{Outcome: OutcomeConnectionError, Message: err.Error(), Err: err}
}

// OutcomeOf returns the outcome carried by err, if err is or wraps an *Error.
func OutcomeOf(err error) (Outcome, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Outcome, true
	}
	return 0, false
}

func isOutcome(err error, o Outcome) bool {
	got, ok := OutcomeOf(err)
	return ok && got == o
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool { return isOutcome(err, OutcomeTimeout) }

// IsTLS checks if an error is a TLS failure.
func IsTLS(err error) bool { return isOutcome(err, OutcomeTLS) }

// IsConnection checks if an error is a connection error.
func IsConnection(err error) bool { return isOutcome(err, OutcomeConnectionError) }

// IsRedirection checks if an error is a 301/302 redirection.
func IsRedirection(err error) bool { return isOutcome(err, OutcomeRedirection) }

// IsNotFound checks if an error is a 404.
func IsNotFound(err error) bool { return isOutcome(err, OutcomeResourceNotFound) }

// IsUnauthorized checks if an error is a 401.
func IsUnauthorized(err error) bool { return isOutcome(err, OutcomeUnauthorizedAccess) }

// IsForbidden checks if an error is a 403.
func IsForbidden(err error) bool { return isOutcome(err, OutcomeForbiddenAccess) }

// IsInvalid checks if an error is a 422.
func IsInvalid(err error) bool { return isOutcome(err, OutcomeResourceInvalid) }

// IsConflict checks if an error is a 409.
func IsConflict(err error) bool { return isOutcome(err, OutcomeResourceConflict) }

// IsClientError checks if an error is in the 4xx family.
func IsClientError(err error) bool {
	o, ok := OutcomeOf(err)
	return ok && o >= OutcomeBadRequest && o <= OutcomeClientError
}

// IsServerError checks if an error is a 5xx.
func IsServerError(err error) bool { return isOutcome(err, OutcomeServerError) }
