package httpclient

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/compozy/storymapper/engine/core"
)

var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
)

const maxErrorBody = 512

// StatusError is returned for any response with a status of 400 or above.
type StatusError struct {
	StatusCode int
	Method     string
	URL        string
	Body       string
}

func newStatusError(method, url string, status int, body []byte) *StatusError {
	text := string(body)
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	return &StatusError{
		StatusCode: status,
		Method:     method,
		URL:        core.RedactString(url),
		Body:       core.RedactString(text),
	}
}

func (e *StatusError) Error() string {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return fmt.Sprintf("bad request: %s %s: %s", e.Method, e.URL, e.Body)
	case http.StatusUnauthorized:
		return fmt.Sprintf("unauthorized: invalid API key or token (%s %s)", e.Method, e.URL)
	case http.StatusForbidden:
		return fmt.Sprintf("forbidden: no permission to access %s", e.URL)
	case http.StatusNotFound:
		return fmt.Sprintf("not found: the requested resource could not be found at %s", e.URL)
	case http.StatusTooManyRequests:
		return fmt.Sprintf("too many requests: rate limit exceeded at %s, try again later", e.URL)
	default:
		return fmt.Sprintf("%d %s: %s %s", e.StatusCode, http.StatusText(e.StatusCode), e.Method, e.URL)
	}
}

func (e *StatusError) Is(target error) bool {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return target == ErrBadRequest
	case http.StatusUnauthorized:
		return target == ErrUnauthorized
	case http.StatusForbidden:
		return target == ErrForbidden
	case http.StatusNotFound:
		return target == ErrNotFound
	case http.StatusTooManyRequests:
		return target == ErrRateLimited
	default:
		return false
	}
}
