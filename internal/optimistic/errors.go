package optimistic

import (
	"context"
	"errors"
	"net/http"

	"mini-task-manager/internal/client"
)

var (
	// ErrSuperseded is returned by Query when a mutation started while the
	// fetch was in flight and nothing is cached to fall back on.
	ErrSuperseded = errors.New("optimistic: fetch superseded by a newer mutation")
	// ErrSettled is returned when a mutation is confirmed or failed twice.
	ErrSettled = errors.New("optimistic: mutation already settled")
)

// Failure is the class of a failed request.
type Failure int

const (
	FailureNone Failure = iota
	FailureNetwork
	FailureValidation
	FailureUnauthorized
	FailureForbidden
	FailureNotFound
	FailureConflict
	FailureServer
	FailureCanceled
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureNetwork:
		return "network"
	case FailureValidation:
		return "validation"
	case FailureUnauthorized:
		return "unauthorized"
	case FailureForbidden:
		return "forbidden"
	case FailureNotFound:
		return "not found"
	case FailureConflict:
		return "conflict"
	case FailureServer:
		return "server"
	case FailureCanceled:
		return "canceled"
	}
	return "unknown"
}

// Classify sorts err into the failures callers react to differently. An
// unauthorized failure ends the session on top of the rollback.
func Classify(err error) Failure {
	if err == nil {
		return FailureNone
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return FailureCanceled
	}
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return FailureNetwork
	}
	switch apiErr.Status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return FailureValidation
	case http.StatusUnauthorized:
		return FailureUnauthorized
	case http.StatusForbidden:
		return FailureForbidden
	case http.StatusNotFound:
		return FailureNotFound
	case http.StatusConflict:
		return FailureConflict
	}
	return FailureServer
}
