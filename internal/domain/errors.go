package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeAlreadyExists     = "ALREADY_EXISTS"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeInvalidOperation  = "INVALID_OPERATION"
	ErrCodeEmptyCorpus       = "EMPTY_CORPUS"
	ErrCodeDimensionMismatch = "DIMENSION_MISMATCH"
	ErrCodeEmbeddingProvider = "EMBEDDING_PROVIDER_ERROR"
	ErrCodeSynthesizer       = "SYNTHESIZER_ERROR"
	ErrCodeAlreadyAnswered   = "ALREADY_ANSWERED"
	ErrCodeAuditWrite        = "AUDIT_WRITE_ERROR"
)

// Similarity engine input-contract violations. Configuration/setup errors,
// never retried.
var (
	ErrEmptyCorpus       = NewDomainError(ErrCodeEmptyCorpus, "reference corpus has no embedded entries")
	ErrDimensionMismatch = NewDomainError(ErrCodeDimensionMismatch, "embedding dimensions do not match")
)

// Escalation state machine errors
var (
	ErrAlreadyAnswered    = NewDomainError(ErrCodeAlreadyAnswered, "escalation has already been answered")
	ErrEscalationNotFound = NewDomainError(ErrCodeNotFound, "escalated question not found")
)

// Validation errors
var (
	ErrInvalidRole             = NewDomainError(ErrCodeValidation, "invalid user role")
	ErrInvalidEscalationStatus = NewDomainError(ErrCodeValidation, "invalid escalation status")
	ErrMissingRequiredField    = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrQuestionNotFound = NewDomainError(ErrCodeNotFound, "question not found")
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrUserNotFound     = NewDomainError(ErrCodeNotFound, "user not found")
)

// Already exists errors
var (
	ErrUsernameTaken = NewDomainError(ErrCodeAlreadyExists, "username already exists")
)

// Authorization errors
var (
	ErrInvalidCredentials  = NewDomainError(ErrCodeUnauthorized, "invalid username or password")
	ErrInvalidSessionToken = NewDomainError(ErrCodeUnauthorized, "invalid session token")
	ErrTeacherOnly         = NewDomainError(ErrCodeForbidden, "teacher role required")
)
