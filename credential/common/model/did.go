package model

import "fmt"

// DID document status values recorded on the ledger.
const (
	DIDStatusActive  = "ACTIVE"
	DIDStatusRevoked = "REVOKED"
)

// VerificationKeyType is the verification method type of P-256 keys.
const VerificationKeyType = "Secp256r1VerificationKey2018"

// DID document types.
const (
	DIDTypeUser    = "USER"
	DIDTypeIssuer  = "ISSUER"
	DIDTypeLicense = "LICENSE"
	DIDTypeStudent = "STUDENT"
)

// DefaultKeyFragment names the single active key of a DID.
const DefaultKeyFragment = "keys-1"

type DIDDocument struct {
	Context            []string                  `json:"@context"`
	ID                 string                    `json:"id"`
	Type               string                    `json:"type,omitempty"` // USER | ISSUER | LICENSE | STUDENT
	Controller         interface{}               `json:"controller,omitempty"` // Can be string or []string
	Holder             string                    `json:"holder,omitempty"`
	VerificationMethod []VerificationMethodEntry `json:"verificationMethod"`
	Authentication     []string                  `json:"authentication,omitempty"`
	AssertionMethod    []string                  `json:"assertionMethod,omitempty"`
	AdditionalInfo     map[string]interface{}    `json:"additionalInfo,omitempty"`
	Status             string                    `json:"status,omitempty"`
	Created            string                    `json:"created,omitempty"`
	Updated            string                    `json:"updated,omitempty"`
}

// VerificationMethodEntry represents a single verification method in a DID Document.
// Exactly one of the key fields is expected to be set.
type VerificationMethodEntry struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Controller   string `json:"controller"`
	PublicKeyPem string `json:"publicKeyPem,omitempty"`
	PublicKeyHex string `json:"publicKeyHex,omitempty"`
	PublicKeyJwk *JWK   `json:"publicKeyJwk,omitempty"`
}

// HasKey reports whether the entry carries any key material.
func (v VerificationMethodEntry) HasKey() bool {
	return v.PublicKeyPem != "" || v.PublicKeyHex != "" || v.PublicKeyJwk != nil
}

// JWK represents a JSON Web Key structure
type JWK struct {
	Kty string `json:"kty"` // Key type
	Crv string `json:"crv"` // Curve
	X   string `json:"x"`   // X coordinate
	Y   string `json:"y"`   // Y coordinate
}

// NewDIDDocument builds the document of a DID controlled by a single P-256
// key given as PEM.
func NewDIDDocument(did, didType, publicKeyPEM, created string) *DIDDocument {
	keyID := VerificationMethodID(did)
	return &DIDDocument{
		Context:    []string{"https://www.w3.org/ns/did/v1"},
		ID:         did,
		Type:       didType,
		Controller: did,
		VerificationMethod: []VerificationMethodEntry{{
			ID:           keyID,
			Type:         VerificationKeyType,
			Controller:   did,
			PublicKeyPem: publicKeyPEM,
		}},
		Authentication:  []string{keyID},
		AssertionMethod: []string{keyID},
		Status:          DIDStatusActive,
		Created:         created,
		Updated:         created,
	}
}

// VerificationMethodID returns the id of the default key of did.
func VerificationMethodID(did string) string {
	return fmt.Sprintf("%s#%s", did, DefaultKeyFragment)
}

// FindVerificationMethod returns the entry with the given id, falling back
// to the first entry when id is empty or unknown.
func (d *DIDDocument) FindVerificationMethod(id string) (*VerificationMethodEntry, bool) {
	if d == nil || len(d.VerificationMethod) == 0 {
		return nil, false
	}
	for i := range d.VerificationMethod {
		if d.VerificationMethod[i].ID == id {
			return &d.VerificationMethod[i], true
		}
	}
	return &d.VerificationMethod[0], true
}

// NewSubjectDIDDocument builds the document of a DID that names a
// credential subject, such as a licence, controlled by its issuer.
func NewSubjectDIDDocument(did, didType, issuerDID, holderDID, created string, info map[string]interface{}) *DIDDocument {
	return &DIDDocument{
		Context:            []string{"https://www.w3.org/ns/did/v1"},
		ID:                 did,
		Type:               didType,
		Controller:         issuerDID,
		Holder:             holderDID,
		VerificationMethod: []VerificationMethodEntry{},
		AdditionalInfo:     info,
		Status:             DIDStatusActive,
		Created:            created,
		Updated:            created,
	}
}

// IsActive reports whether the DID has not been revoked.
func (d *DIDDocument) IsActive() bool {
	return d != nil && d.Status != DIDStatusRevoked
}
