package vaultik

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed request into one of a fixed set of categories.
type Kind int

const (
	// KindNone means the error carries no classification (nil errors, or
	// errors from outside this package).
	KindNone Kind = iota
	KindInvalidRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindUnsupportedMethod
	KindPreconditionFailed
	KindRateLimited
	KindInternal
	KindNotInitialized
	KindSealed
	KindUnexpected
	KindTransport
	KindMissingToken
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not found"
	case KindUnsupportedMethod:
		return "unsupported method"
	case KindPreconditionFailed:
		return "precondition failed"
	case KindRateLimited:
		return "rate limit exceeded"
	case KindInternal:
		return "internal server error"
	case KindNotInitialized:
		return "not initialized"
	case KindSealed:
		return "sealed"
	case KindUnexpected:
		return "unexpected status"
	case KindTransport:
		return "transport failure"
	case KindMissingToken:
		return "missing token field"
	default:
		return "unclassified"
	}
}

// classifyStatus maps a failing HTTP status code to its Kind. Statuses not
// in the table classify as KindUnexpected.
func classifyStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest:
		return KindInvalidRequest
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusMethodNotAllowed:
		return KindUnsupportedMethod
	case http.StatusPreconditionFailed:
		return KindPreconditionFailed
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusInternalServerError:
		return KindInternal
	case http.StatusNotImplemented:
		return KindNotInitialized
	case http.StatusServiceUnavailable:
		return KindSealed
	default:
		return KindUnexpected
	}
}

// ResponseError reports a request that reached the server and came back with
// a failing status. Errors holds the server's structured error strings when
// the body carried them; otherwise RawBody holds the body text.
type ResponseError struct {
	Method     string
	URL        string
	Errors     []string
	RawBody    string
	Kind       Kind
	StatusCode int
}

func (e *ResponseError) Error() string {
	detail := e.RawBody
	if len(e.Errors) > 0 {
		detail = strings.Join(e.Errors, ", ")
	}

	if detail == "" {
		return fmt.Sprintf("%s %s: %d (%s)", e.Method, e.URL, e.StatusCode, e.Kind)
	}

	return fmt.Sprintf("%s %s: %d (%s): %s", e.Method, e.URL, e.StatusCode, e.Kind, detail)
}

// newResponseError classifies resp's status and extracts the server's error
// strings. The structured "errors" array is preferred when the body is JSON;
// a missing or malformed array falls back to the raw body text.
func newResponseError(method, url string, resp *Response) *ResponseError {
	e := &ResponseError{
		Method:     method,
		URL:        url,
		Kind:       classifyStatus(resp.StatusCode),
		StatusCode: resp.StatusCode,
	}

	if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(ct, "application/json") {
		var payload struct {
			Errors []string `json:"errors"`
		}

		if err := json.Unmarshal(resp.Body, &payload); err == nil && payload.Errors != nil {
			e.Errors = payload.Errors

			return e
		}
	}

	e.RawBody = string(resp.Body)

	return e
}

// TransportError reports a failure that happened before any response
// arrived: connection refused, TLS handshake, timeout. It carries no status
// and is never classified against the status table.
type TransportError struct {
	Err    error
	Method string
	URL    string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// MissingTokenError reports a login response that did not carry an
// auth.client_token field. The HTTP call itself succeeded; the payload just
// cannot authenticate the client.
type MissingTokenError struct{}

func (e *MissingTokenError) Error() string {
	return "login response has no auth.client_token field"
}

// KindOf reports the Kind of err, unwrapping as needed. Errors that did not
// originate here report KindNone.
func KindOf(err error) Kind {
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return respErr.Kind
	}

	var transErr *TransportError
	if errors.As(err, &transErr) {
		return KindTransport
	}

	var tokenErr *MissingTokenError
	if errors.As(err, &tokenErr) {
		return KindMissingToken
	}

	return KindNone
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool { return KindOf(err) == KindUnauthorized }

// IsForbidden reports whether err is a 403 response.
func IsForbidden(err error) bool { return KindOf(err) == KindForbidden }

// IsSealed reports whether err is a 503 response, which the upstream service
// uses to signal a sealed or unavailable server.
func IsSealed(err error) bool { return KindOf(err) == KindSealed }

// IsTransport reports whether err happened below the HTTP layer.
func IsTransport(err error) bool { return KindOf(err) == KindTransport }

// IsMissingToken reports whether err is a login payload missing its token.
func IsMissingToken(err error) bool { return KindOf(err) == KindMissingToken }
