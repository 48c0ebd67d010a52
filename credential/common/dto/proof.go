package dto

// Proof type and purposes understood by the signer and verifier.
const (
	ProofTypeSecp256r1 = "Secp256r1Signature2018"

	PurposeAssertionMethod = "assertionMethod"
	PurposeAuthentication  = "authentication"
)

// Proof represents a Linked Data Proof for a Verifiable Credential or Presentation.
type Proof struct {
	Type               string `json:"type" mapstructure:"type"`
	Created            string `json:"created" mapstructure:"created"`
	VerificationMethod string `json:"verificationMethod" mapstructure:"verificationMethod"`
	ProofPurpose       string `json:"proofPurpose" mapstructure:"proofPurpose"`
	ProofValue         string `json:"proofValue,omitempty" mapstructure:"proofValue"`
	Challenge          string `json:"challenge,omitempty" mapstructure:"challenge"`
	Domain             string `json:"domain,omitempty" mapstructure:"domain"`
}
