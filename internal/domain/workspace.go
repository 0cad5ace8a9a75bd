package domain

import "time"

// Workspace is the tenant root: chatbots belong to a workspace, and the
// access predicate "caller may touch chatbot X" reduces to workspace
// membership via the API key.
type Workspace struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// APIKey authenticates a workspace. Only the hash of the token is stored.
type APIKey struct {
	ID          string
	WorkspaceID string
	Name        string
	KeyHash     string
	CreatedAt   time.Time
	RevokedAt   *time.Time
}

// IsRevoked reports whether the key has been revoked.
func (k *APIKey) IsRevoked() bool {
	return k.RevokedAt != nil
}

// ValidateWorkspace validates a Workspace instance
func ValidateWorkspace(w *Workspace) error {
	if w == nil {
		return NewDomainError(ErrCodeValidation, "workspace cannot be nil")
	}
	if w.ID == "" {
		return NewDomainError(ErrCodeValidation, "workspace ID is required")
	}
	if w.Name == "" {
		return NewDomainError(ErrCodeValidation, "workspace Name is required")
	}
	return nil
}

// ValidateAPIKey validates an APIKey instance
func ValidateAPIKey(k *APIKey) error {
	if k == nil {
		return NewDomainError(ErrCodeValidation, "API key cannot be nil")
	}
	if k.ID == "" {
		return NewDomainError(ErrCodeValidation, "API key ID is required")
	}
	if k.WorkspaceID == "" {
		return NewDomainError(ErrCodeValidation, "API key WorkspaceID is required")
	}
	if k.Name == "" {
		return NewDomainError(ErrCodeValidation, "API key Name is required")
	}
	if k.KeyHash == "" {
		return NewDomainError(ErrCodeValidation, "API key KeyHash is required")
	}
	return nil
}
