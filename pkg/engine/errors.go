package engine

import "fmt"

// IndexingError reports an indexing call that could not complete for a
// session, beyond per-unit failures already reflected in the counters.
type IndexingError struct {
	SessionID string
	Reason    string
	Err       error
}

func (e *IndexingError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("indexing failed for session %q: %s", e.SessionID, e.Reason)
	}
	return fmt.Sprintf("indexing failed for session %q: %s: %v", e.SessionID, e.Reason, e.Err)
}

func (e *IndexingError) Unwrap() error {
	return e.Err
}

// QueryError reports malformed query parameters or a query that could
// not be resolved.
type QueryError struct {
	Reason string
	Err    error
}

func (e *QueryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("query failed: %s", e.Reason)
	}
	return fmt.Sprintf("query failed: %s: %v", e.Reason, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
