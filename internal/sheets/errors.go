package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

// ErrNotFound reports that no row matched a lookup.
var ErrNotFound = errors.New("sheets: record not found")

// StoreError wraps a failed spreadsheet call. Retryable marks transient
// faults (rate limits, 5xx, network) that are worth another attempt;
// everything else (bad range, auth failure) is permanent and surfaces to the
// caller as a server fault.
type StoreError struct {
	Op        string
	Retryable bool
	err       error
}

func (e *StoreError) Error() string {
	kind := "permanent"
	if e.Retryable {
		kind = "retryable"
	}
	return fmt.Sprintf("sheets: %s (%s): %v", e.Op, kind, e.err)
}

func (e *StoreError) Unwrap() error { return e.err }

// IsRetryable reports whether err is a transient store fault.
func IsRetryable(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Retryable
}

// classify folds a raw API error into the store taxonomy. Context
// cancellation passes through untouched so callers can tell shutdown apart
// from store trouble.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		retryable := apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
		return &StoreError{Op: op, Retryable: retryable, err: err}
	}
	// Anything that never reached the API (DNS, connection reset) is
	// transient by assumption.
	return &StoreError{Op: op, Retryable: true, err: err}
}
