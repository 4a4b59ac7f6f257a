// Package errors provides custom error types for the sydney chat client.
package errors

import (
	"errors"
	"fmt"
	"net"
)

// Sentinel errors for common cases
var (
	ErrAuthFailed      = errors.New("authentication failed")
	ErrNoCookies       = errors.New("no cookies found")
	ErrSessionFailed   = errors.New("session could not be established")
	ErrInvalidResponse = errors.New("invalid response format")
	ErrResponseRevoked = errors.New("response revoked")
	ErrEmptyResponse   = errors.New("empty response")
	ErrThrottled       = errors.New("request throttled")
	ErrTranscriptIO    = errors.New("transcript i/o failed")
)

// SessionError is a failure to establish a session with the chat service:
// network failures, bad status codes, rejected conversation creation.
type SessionError struct {
	Op         string
	Endpoint   string
	HTTPStatus int
	Message    string
	Body       string
	Err        error
}

func (e *SessionError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.HTTPStatus > 0 {
		return fmt.Sprintf("%s failed [%d]: %s", e.Op, e.HTTPStatus, msg)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, msg)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// Is allows comparison with sentinel errors
func (e *SessionError) Is(target error) bool {
	return target == ErrSessionFailed
}

// WithBody attaches a (truncated) response body for diagnostics.
func (e *SessionError) WithBody(body string) *SessionError {
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	e.Body = body
	return e
}

// NewSessionError creates a new SessionError
func NewSessionError(op, endpoint, message string) *SessionError {
	return &SessionError{Op: op, Endpoint: endpoint, Message: message}
}

// NewNetworkError wraps a transport failure into a SessionError
func NewNetworkError(op, endpoint string, err error) *SessionError {
	return &SessionError{Op: op, Endpoint: endpoint, Err: err}
}

// AuthError represents rejected credentials. It is also a SessionError.
type AuthError struct {
	SessionError
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "authentication failed: cookies may have expired"
	}
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

// Is allows comparison with sentinel errors
func (e *AuthError) Is(target error) bool {
	if target == ErrAuthFailed || target == ErrSessionFailed {
		return true
	}
	_, ok := target.(*AuthError)
	return ok
}

// NewAuthError creates a new AuthError
func NewAuthError(endpoint, message string) *AuthError {
	return &AuthError{SessionError{Op: "authenticate", Endpoint: endpoint, Message: message}}
}

// ThrottledError is returned when the service refuses more requests for now.
type ThrottledError struct {
	Message string
}

func (e *ThrottledError) Error() string {
	if e.Message == "" {
		return "request throttled"
	}
	return fmt.Sprintf("request throttled: %s", e.Message)
}

func (e *ThrottledError) Is(target error) bool {
	return target == ErrThrottled
}

// NewThrottledError creates a new ThrottledError
func NewThrottledError(message string) *ThrottledError {
	return &ThrottledError{Message: message}
}

// RevokedError is raised when the service retracts a response mid-stream.
type RevokedError struct {
	Message string
}

func (e *RevokedError) Error() string {
	if e.Message == "" {
		return "response revoked by the service"
	}
	return fmt.Sprintf("response revoked by the service: %s", e.Message)
}

func (e *RevokedError) Is(target error) bool {
	return target == ErrResponseRevoked
}

// NewRevokedError creates a new RevokedError
func NewRevokedError(message string) *RevokedError {
	return &RevokedError{Message: message}
}

// EmptyResponseError means the exchange finished without any usable text,
// which the service does when a request is filtered.
type EmptyResponseError struct {
	Reason string
}

func (e *EmptyResponseError) Error() string {
	if e.Reason == "" {
		return "empty response: the request was probably filtered"
	}
	return fmt.Sprintf("empty response: %s", e.Reason)
}

func (e *EmptyResponseError) Is(target error) bool {
	return target == ErrEmptyResponse
}

// NewEmptyResponseError creates a new EmptyResponseError
func NewEmptyResponseError(reason string) *EmptyResponseError {
	return &EmptyResponseError{Reason: reason}
}

// IOError is a transcript file load/save failure.
type IOError struct {
	Op   string // "load" or "save"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s transcript %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func (e *IOError) Is(target error) bool {
	return target == ErrTranscriptIO
}

// NewIOError creates a new IOError
func NewIOError(op, path string, err error) *IOError {
	return &IOError{Op: op, Path: path, Err: err}
}

// ParseError represents a response parsing error
type ParseError struct {
	Message string
	Path    string
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("parse error at %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// Is allows comparison with sentinel errors
func (e *ParseError) Is(target error) bool {
	if target == ErrInvalidResponse {
		return true
	}
	_, ok := target.(*ParseError)
	return ok
}

// NewParseError creates a new ParseError
func NewParseError(message, path string) *ParseError {
	return &ParseError{Message: message, Path: path}
}

// IsAuthError reports whether err is an authentication failure
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthFailed)
}

// IsSessionError reports whether err prevented a session from being established
func IsSessionError(err error) bool {
	return errors.Is(err, ErrSessionFailed)
}

// IsRevoked reports whether err is a revoked response
func IsRevoked(err error) bool {
	return errors.Is(err, ErrResponseRevoked)
}

// IsEmptyResponse reports whether err is an empty (filtered) response
func IsEmptyResponse(err error) bool {
	return errors.Is(err, ErrEmptyResponse)
}

// IsThrottled reports whether err is a throttling refusal
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}

// IsIOError reports whether err is a transcript file failure
func IsIOError(err error) bool {
	return errors.Is(err, ErrTranscriptIO)
}

// IsNetworkError reports whether err was caused by the network
func IsNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// GetHTTPStatus extracts the HTTP status from a session error, or 0
func GetHTTPStatus(err error) int {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.HTTPStatus
	}
	var sessErr *SessionError
	if errors.As(err, &sessErr) {
		return sessErr.HTTPStatus
	}
	return 0
}

// IsWarning reports whether err should be shown as a warning rather than a
// failure. Revocations keep the partial answer, so they are warnings.
func IsWarning(err error) bool {
	return IsRevoked(err)
}
