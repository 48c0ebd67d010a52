package model

// CredentialStatus is the ledger's judgment about a stored credential.
type CredentialStatus struct {
	ID     string `json:"id"`
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Reasons reported by a ledger for invalid credentials.
const (
	StatusReasonNotFound     = "not found"
	StatusReasonRevoked      = "revoked"
	StatusReasonExpired      = "expired"
	StatusReasonUnauthorized = "issuer not authorized"
)
