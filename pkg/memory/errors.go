package memory

import "github.com/chaharhimanshu/system-design-interviewer-coach/pkg/interview"

// Re-exported so callers of the store can match errors without importing interview.
var (
	ErrNotFound      = interview.ErrNotFound
	ErrAlreadyExists = interview.ErrAlreadyExists
	ErrValidation    = interview.ErrValidation
)
