package httpserver

import "net/http"

// statusError pairs an HTTP status with the message written as the
// response body, matching spec.md §6's status-code table.
type statusError struct {
	status  int
	message string
}

func (e *statusError) Error() string { return e.message }

var (
	errBadRequest     = &statusError{http.StatusBadRequest, "bad request"}
	errForbidden      = &statusError{http.StatusForbidden, "forbidden"}
	errNotFound       = &statusError{http.StatusNotFound, "unknown style"}
	errNotImplemented = &statusError{http.StatusNotImplemented, "unsupported format"}
	errQueueFull      = &statusError{http.StatusServiceUnavailable, "queue full"}
	errInternal       = &statusError{http.StatusInternalServerError, "internal error"}
)
