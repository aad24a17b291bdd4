package forge

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors distinguishing expected not-found conditions from failures.
var (
	// ErrRepositoryNotFound reports that the target repository does not exist.
	ErrRepositoryNotFound = errors.New("repository not found")
	// ErrBranchNotFound reports that the branch has no commits yet. Callers
	// treat this as "first commit on this repo", not as a failure.
	ErrBranchNotFound = errors.New("branch not found")
)

// FieldError is one per-field detail from a validation rejection.
type FieldError struct {
	Resource string `json:"resource"`
	Field    string `json:"field"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// APIError is a non-2xx response from the hosting API, keeping per-field
// validation detail when the server provides it.
type APIError struct {
	StatusCode int
	Message    string
	Errors     []FieldError
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("forge API error (status %d): %s", e.StatusCode, e.Message)
	}
	details := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		details = append(details, fmt.Sprintf("%s.%s: %s (%s)", fe.Resource, fe.Field, fe.Message, fe.Code))
	}
	return fmt.Sprintf("forge API error (status %d): %s [%s]", e.StatusCode, e.Message, strings.Join(details, "; "))
}

// IsValidation reports whether the error is a request-validation rejection.
func (e *APIError) IsValidation() bool { return e.StatusCode == 422 }

// IsConflict reports whether the error is a precondition conflict, which the
// update path maps to a stale content hash.
func (e *APIError) IsConflict() bool { return e.StatusCode == 409 }
