package whistlevault

import "fmt"

// ValidationError means the caller left out a required field. Always
// user-correctable, surfaced with a 400.
type ValidationError struct {
	Field string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// NotFoundError means the referenced report id does not exist in the store.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("no report with id %s", e.ID)
}

// UploadError means the pinning gateway returned a non-success response. The
// whole operation that needed the upload fails, nothing is retried.
type UploadError struct {
	Op     string
	Status int
	Body   string
}

func (e UploadError) Error() string {
	return fmt.Sprintf("%s failed with status %d: %s", e.Op, e.Status, e.Body)
}

// LookupError wraps whatever the ledger gateway said when a read-only call
// failed or reverted. The underlying message is carried raw, not parsed.
type LookupError struct {
	Reason string
}

func (e LookupError) Error() string {
	return e.Reason
}
