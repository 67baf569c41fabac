// internal/estimator/errors.go
package estimator

import "errors"

var (
	ErrNotConfigured = errors.New("estimator not configured")
	ErrRequestFailed = errors.New("estimation request failed")
	ErrEmptyResponse = errors.New("empty estimation response")
	ErrParseFailed   = errors.New("could not parse estimation response")
	ErrOutOfRange    = errors.New("estimate out of accepted range")
)

// Kind names the failure class of an error returned by the client, or ""
// when err is not one of them.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, ErrRequestFailed):
		return "request_failed"
	case errors.Is(err, ErrEmptyResponse):
		return "empty_response"
	case errors.Is(err, ErrParseFailed):
		return "parse_failed"
	case errors.Is(err, ErrOutOfRange):
		return "out_of_range"
	default:
		return ""
	}
}
