package crawler

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrHeadlessDisabled is returned when a headless fetch is requested but no browser is configured.
var ErrHeadlessDisabled = errors.New("headless fetcher not configured")

// StatusError reports a response with a non-2xx status code.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: status %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// StatusCodeOf extracts the HTTP status carried by err, or 0.
func StatusCodeOf(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}
	return 0
}
