package model

// Role identifies which party a key signs for.
type Role string

const (
	RoleIssuer Role = "issuer"
	RoleHolder Role = "holder"
)

// KeyRef addresses a key by role and, optionally, owner DID. An empty DID
// selects the default key of the role.
type KeyRef struct {
	Role Role
	DID  string
}

// KeyMaterial is a stored P-256 key pair. Both halves are flat base64:
// PKCS#8 for the private key and SubjectPublicKeyInfo for the public key.
type KeyMaterial struct {
	ID         string `json:"id"`
	Role       Role   `json:"role,omitempty"`
	DID        string `json:"did"`
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}
