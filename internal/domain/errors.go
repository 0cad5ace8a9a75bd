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
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrInvalidKnowledgeBaseType = NewDomainError(ErrCodeValidation, "invalid knowledge base type")
	ErrInvalidSourceType        = NewDomainError(ErrCodeValidation, "invalid source type")
	ErrInvalidLogicType         = NewDomainError(ErrCodeValidation, "invalid logic type")
	ErrInvalidTriggerType       = NewDomainError(ErrCodeValidation, "invalid trigger type")
	ErrInvalidSenderType        = NewDomainError(ErrCodeValidation, "invalid sender type")
	ErrMissingRequiredField     = NewDomainError(ErrCodeValidation, "missing required field")
	ErrMissingChatbotScope      = NewDomainError(ErrCodeValidation, "chunk operation requires a chatbot scope")
	ErrEmbeddingDimension       = NewDomainError(ErrCodeValidation, "embedding dimension does not match the store")
)

// Not found errors
var (
	ErrChatbotNotFound       = NewDomainError(ErrCodeNotFound, "chatbot not found")
	ErrKnowledgeBaseNotFound = NewDomainError(ErrCodeNotFound, "knowledge base not found")
	ErrDocumentNotFound      = NewDomainError(ErrCodeNotFound, "document not found")
	ErrConversationNotFound  = NewDomainError(ErrCodeNotFound, "conversation not found")
	ErrLogicNotFound         = NewDomainError(ErrCodeNotFound, "logic not found")
	ErrWorkspaceNotFound     = NewDomainError(ErrCodeNotFound, "workspace not found")
	ErrAPIKeyNotFound        = NewDomainError(ErrCodeNotFound, "api key not found")
)

// Already exists errors
var (
	ErrWorkspaceAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "workspace already exists")
	ErrAPIKeyAlreadyExists    = NewDomainError(ErrCodeAlreadyExists, "api key already exists")
)

// Authorization errors
var (
	ErrAPIKeyRevoked = NewDomainError(ErrCodeUnauthorized, "api key has been revoked")
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)
