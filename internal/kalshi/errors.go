package kalshi

import (
	"errors"
	"fmt"
)

// ErrNoPrivateKey is returned when signing is attempted before a key was loaded.
var ErrNoPrivateKey = errors.New("kalshi: private key not loaded")

// KeyLoadError indicates the private key file could not be read or parsed.
// This is fatal at startup and never retried mid-run.
type KeyLoadError struct {
	Path string
	Err  error
}

func (e *KeyLoadError) Error() string {
	return fmt.Sprintf("kalshi: load private key %s: %v", e.Path, e.Err)
}

func (e *KeyLoadError) Unwrap() error { return e.Err }

// AuthError represents a 401 response. It is never retried and usually
// means the operator has to fix the API credentials.
type AuthError struct {
	Body string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("kalshi: authentication failed (401): %s", e.Body)
}

// APIError represents a non-2xx, non-401 HTTP response. Not retried by
// the client layer; the caller decides whether to skip or escalate.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kalshi: API returned %d: %s", e.Status, e.Body)
}

// TransientError represents a network-level failure (timeout, connection
// refused) that survived the retry budget.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("kalshi: transient failure on %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// MalformedResponseError indicates the response body did not contain the
// field the typed operation expected. Callers treat it like a transient
// failure: log and skip the current item.
type MalformedResponseError struct {
	Op    string
	Field string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("kalshi: malformed response for %s: missing %q", e.Op, e.Field)
}

// IsAuthError reports whether err is an authentication failure.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsTransient reports whether err is a retryable network-level failure.
func IsTransient(err error) bool {
	var transientErr *TransientError
	return errors.As(err, &transientErr)
}

// IsMalformedResponse reports whether err came from an unexpected body shape.
func IsMalformedResponse(err error) bool {
	var malformedErr *MalformedResponseError
	return errors.As(err, &malformedErr)
}
