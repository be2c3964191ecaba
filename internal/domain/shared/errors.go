package shared

import "errors"

// ErrorKind classifies engine failures for the calling layer
type ErrorKind string

const (
	// KindConflict is a duplicate primary key or unique value
	KindConflict ErrorKind = "CONFLICT"
	// KindNotFound is a missing or already soft-deleted write target
	KindNotFound ErrorKind = "NOT_FOUND"
	// KindValidationFailed is an entity-specific business rule rejection
	KindValidationFailed ErrorKind = "VALIDATION_FAILED"
	// KindPersistenceFailure is a write that affected zero rows
	KindPersistenceFailure ErrorKind = "PERSISTENCE_FAILURE"
	// KindUnhandled is any other failure inside a transactional branch
	KindUnhandled ErrorKind = "UNHANDLED"
	// KindInvalidInput is a malformed request rejected before any work
	KindInvalidInput ErrorKind = "INVALID_INPUT"
	// KindConfiguration is an inconsistent descriptor caught at registration
	KindConfiguration ErrorKind = "CONFIGURATION"
)

// DomainError represents a domain-level error with a machine-readable kind
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Message: message,
	}
}

// NewConflict creates a Conflict error
func NewConflict(message string) *DomainError {
	return NewDomainError(KindConflict, message)
}

// NewNotFound creates a NotFound error
func NewNotFound(message string) *DomainError {
	return NewDomainError(KindNotFound, message)
}

// NewValidationFailed creates a ValidationFailed error
func NewValidationFailed(message string) *DomainError {
	return NewDomainError(KindValidationFailed, message)
}

// NewPersistenceFailure creates a PersistenceFailure error
func NewPersistenceFailure(message string) *DomainError {
	return NewDomainError(KindPersistenceFailure, message)
}

// NewConfiguration creates a Configuration error
func NewConfiguration(message string) *DomainError {
	return NewDomainError(KindConfiguration, message)
}

// Common domain errors
var (
	ErrNotFound      = NewNotFound("Resource not found")
	ErrAlreadyExists = NewConflict("Resource already exists")
	ErrInvalidInput  = NewDomainError(KindInvalidInput, "Invalid input provided")
)

// KindOf extracts the error kind, defaulting to Unhandled for foreign errors
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnhandled
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// IsConflict reports whether err is a Conflict error
func IsConflict(err error) bool { return IsKind(err, KindConflict) }

// IsNotFound reports whether err is a NotFound error
func IsNotFound(err error) bool { return IsKind(err, KindNotFound) }
