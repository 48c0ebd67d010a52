package vc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anam145/go-credential-sdk/credential/common/canonical"
	"github.com/anam145/go-credential-sdk/credential/common/dto"
	"github.com/anam145/go-credential-sdk/credential/common/jsonmap"
	"github.com/anam145/go-credential-sdk/credential/common/model"
	"github.com/anam145/go-credential-sdk/credential/common/schema"
)

// Credential is a verifiable credential document. Values are immutable:
// methods that change the document return a new Credential.
type Credential struct {
	doc jsonmap.JSONMap
	// raw holds the compacted input of ParseCredential. It is dropped by
	// every method that derives a changed document.
	raw json.RawMessage
}

// CredentialContents represents the structured contents of a Credential.
type CredentialContents struct {
	Context      []interface{} // JSON-LD contexts
	ID           string        // Credential identifier
	Types        []string      // Credential types
	Issuer       Issuer        // Issuer identifier and display name
	IssuanceDate time.Time     // Issuance date
	ValidFrom    time.Time     // Start of validity
	ValidUntil   time.Time     // Expiration date
	Subject      []Subject     // Credential subjects
}

// Issuer identifies the issuing party. A credential whose issuer has no
// name serializes the issuer as a bare DID string.
type Issuer struct {
	ID   string
	Name string
}

// Subject represents the credentialSubject field.
type Subject struct {
	ID           string                 // Subject identifier
	CustomFields map[string]interface{} // Additional subject data
}

// CredentialOpt configures credential processing options.
type CredentialOpt func(*credentialOptions)

// credentialOptions holds configuration for credential processing.
type credentialOptions struct {
	validate bool
}

// WithDisableValidation skips the required-field check when building a credential.
func WithDisableValidation() CredentialOpt {
	return func(c *credentialOptions) {
		c.validate = false
	}
}

// WithSchemaValidation checks required fields while parsing a credential.
func WithSchemaValidation() CredentialOpt {
	return func(c *credentialOptions) {
		c.validate = true
	}
}

func getOptions(validate bool, opts ...CredentialOpt) *credentialOptions {
	options := &credentialOptions{validate: validate}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// NewCredential builds an unsigned credential from its contents.
func NewCredential(vcc CredentialContents, opts ...CredentialOpt) (*Credential, error) {
	m, err := serializeCredentialContents(&vcc)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize credential contents: %w", err)
	}

	options := getOptions(true, opts...)
	if options.validate {
		if err := schema.Validate(m, schema.UnsignedCredential); err != nil {
			return nil, fmt.Errorf("failed to validate credential: %w", err)
		}
	}
	return &Credential{doc: m}, nil
}

// ParseCredential parses a JSON credential. Without WithSchemaValidation
// only well-formedness is checked.
func ParseCredential(rawCredential []byte, opts ...CredentialOpt) (*Credential, error) {
	if len(rawCredential) == 0 {
		return nil, fmt.Errorf("JSON string is empty")
	}
	m, err := jsonmap.Parse(rawCredential)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential: %w", err)
	}

	options := getOptions(false, opts...)
	if options.validate {
		shape := schema.UnsignedCredential
		if _, signed := m["proof"]; signed {
			shape = schema.SignedCredential
		}
		if err := schema.Validate(m, shape); err != nil {
			return nil, fmt.Errorf("failed to validate credential: %w", err)
		}
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, rawCredential); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential: %w", err)
	}
	return &Credential{doc: m, raw: compact.Bytes()}, nil
}

// FromJSONMap wraps a copy of m.
func FromJSONMap(m jsonmap.JSONMap) *Credential {
	return &Credential{doc: m.Copy()}
}

func (c *Credential) Kind() model.DocumentKind {
	return model.KindCredential
}

// JSON serializes the credential with sorted keys, proof included.
func (c *Credential) JSON() ([]byte, error) {
	return c.doc.ToJSON()
}

// Bytes returns the credential as it was parsed, key order and escapes
// intact. Credentials built or changed in memory fall back to JSON.
func (c *Credential) Bytes() ([]byte, error) {
	if len(c.raw) > 0 {
		out := make([]byte, len(c.raw))
		copy(out, c.raw)
		return out, nil
	}
	return c.JSON()
}

// Document returns a copy of the underlying JSON object.
func (c *Credential) Document() jsonmap.JSONMap {
	return c.doc.Copy()
}

// ID returns the credential identifier.
func (c *Credential) ID() string {
	return c.doc.String("id")
}

// IssuerDID returns the issuer, given either as a string or as issuer.id.
func (c *Credential) IssuerDID() string {
	switch issuer := c.doc["issuer"].(type) {
	case string:
		return issuer
	case map[string]interface{}:
		id, _ := issuer["id"].(string)
		return id
	}
	return ""
}

// ValidUntil returns the expiry of the credential, read from validUntil or
// expirationDate.
func (c *Credential) ValidUntil() (time.Time, bool) {
	for _, field := range []string{"validUntil", "expirationDate"} {
		if s := c.doc.String(field); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// Proof returns the attached proof.
func (c *Credential) Proof() (*dto.Proof, error) {
	return c.doc.Proof()
}

// IsSigned reports whether a proof is attached.
func (c *Credential) IsSigned() bool {
	_, ok := c.doc["proof"]
	return ok
}

// Validate checks the required fields of the unsigned or signed shape.
func (c *Credential) Validate(signed bool) error {
	shape := schema.UnsignedCredential
	if signed {
		shape = schema.SignedCredential
	}
	return schema.Validate(c.doc, shape)
}

// GetSigningInput returns the canonical bytes the issuer signs.
func (c *Credential) GetSigningInput(profile canonical.Profile) ([]byte, error) {
	return c.doc.Canonicalize(profile.CredentialOptions())
}

// WithID returns a copy of the credential with the given identifier.
func (c *Credential) WithID(id string) *Credential {
	m := c.doc.Copy()
	m["id"] = id
	return &Credential{doc: m}
}

// WithProof returns a copy of the credential carrying proof.
func (c *Credential) WithProof(proof *dto.Proof) (*Credential, error) {
	m, err := c.doc.WithProof(proof)
	if err != nil {
		return nil, fmt.Errorf("failed to add proof: %w", err)
	}
	return &Credential{doc: m}, nil
}

// Contents parses the credential back into its structured form.
func (c *Credential) Contents() (*CredentialContents, error) {
	contents := &CredentialContents{}
	parseFuncs := []func(jsonmap.JSONMap, *CredentialContents) error{
		parseContext,
		parseID,
		parseTypes,
		parseIssuer,
		parseDates,
		parseSubject,
	}
	for _, parseFunc := range parseFuncs {
		if err := parseFunc(c.doc, contents); err != nil {
			return nil, err
		}
	}
	return contents, nil
}
