package store

import "errors"

// Sentinel errors for the two recoverable failure classes in the ingestion
// path. Wrap with fmt.Errorf("...: %w", ...) and branch with errors.Is.
var (
	// ErrNotFound: a beacon or admin read referenced a row that does not
	// exist (typically an expired session token). The caller should treat
	// it as a signal to re-initialize, not as a pipeline failure.
	ErrNotFound = errors.New("not found")

	// ErrValidation: malformed input to a create operation. Rejecting the
	// single beacon recovers; other sessions are unaffected.
	ErrValidation = errors.New("validation failed")
)
