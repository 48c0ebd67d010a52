package vp

import (
	"fmt"

	"github.com/anam145/go-credential-sdk/credential/common/canonical"
	"github.com/anam145/go-credential-sdk/credential/common/dto"
	"github.com/anam145/go-credential-sdk/credential/common/jsonmap"
	"github.com/anam145/go-credential-sdk/credential/common/model"
	"github.com/anam145/go-credential-sdk/credential/common/schema"
	"github.com/anam145/go-credential-sdk/credential/vc"
)

// Presentation is a verifiable presentation document. Embedded credentials
// are held as the exact bytes they were received or built with, so their
// issuer signatures keep verifying after the presentation is re-encoded.
type Presentation struct {
	doc jsonmap.JSONMap
}

// PresentationContents represents the structured contents of a Presentation.
type PresentationContents struct {
	Context               []interface{}
	ID                    string
	Types                 []string
	Holder                string
	VerifiableCredentials []*vc.Credential
}

// PresentationOpt configures presentation processing options.
type PresentationOpt func(*presentationOptions)

// presentationOptions holds configuration for presentation processing.
type presentationOptions struct {
	validate bool
}

// WithDisableValidation skips the required-field check when building a presentation.
func WithDisableValidation() PresentationOpt {
	return func(p *presentationOptions) {
		p.validate = false
	}
}

// WithSchemaValidation checks required fields while parsing a presentation.
func WithSchemaValidation() PresentationOpt {
	return func(p *presentationOptions) {
		p.validate = true
	}
}

func getOptions(validate bool, opts ...PresentationOpt) *presentationOptions {
	options := &presentationOptions{validate: validate}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// NewPresentation builds an unsigned presentation embedding the given
// credentials.
func NewPresentation(vpc PresentationContents, opts ...PresentationOpt) (*Presentation, error) {
	m, err := serializePresentationContents(&vpc)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize presentation contents: %w", err)
	}

	options := getOptions(true, opts...)
	if options.validate {
		if err := schema.Validate(m, schema.UnsignedPresentation); err != nil {
			return nil, fmt.Errorf("failed to validate presentation: %w", err)
		}
	}
	return &Presentation{doc: m}, nil
}

// ParsePresentation parses a JSON presentation. The verifiableCredential
// field is kept byte for byte.
func ParsePresentation(rawPresentation []byte, opts ...PresentationOpt) (*Presentation, error) {
	if len(rawPresentation) == 0 {
		return nil, fmt.Errorf("presentation is empty")
	}
	m, err := jsonmap.Parse(rawPresentation, fieldCredentials)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal presentation: %w", err)
	}

	options := getOptions(false, opts...)
	if options.validate {
		shape := schema.UnsignedPresentation
		if _, signed := m["proof"]; signed {
			shape = schema.SignedPresentation
		}
		if err := schema.Validate(m, shape); err != nil {
			return nil, fmt.Errorf("failed to validate presentation: %w", err)
		}
	}
	return &Presentation{doc: m}, nil
}

func (p *Presentation) Kind() model.DocumentKind {
	return model.KindPresentation
}

// JSON serializes the presentation with sorted keys and embedded
// credentials verbatim.
func (p *Presentation) JSON() ([]byte, error) {
	return p.doc.ToJSON()
}

// Document returns a copy of the underlying JSON object.
func (p *Presentation) Document() jsonmap.JSONMap {
	return p.doc.Copy()
}

// Holder returns the holder DID.
func (p *Presentation) Holder() string {
	return p.doc.String("holder")
}

// ID returns the presentation identifier, if any.
func (p *Presentation) ID() string {
	return p.doc.String("id")
}

// Proof returns the attached proof.
func (p *Presentation) Proof() (*dto.Proof, error) {
	return p.doc.Proof()
}

// IsSigned reports whether a proof is attached.
func (p *Presentation) IsSigned() bool {
	_, ok := p.doc["proof"]
	return ok
}

// Credentials returns the embedded credentials, whether a single object or
// an array was embedded.
func (p *Presentation) Credentials() ([]*vc.Credential, error) {
	raws, err := embeddedCredentials(p.doc[fieldCredentials])
	if err != nil {
		return nil, err
	}
	creds := make([]*vc.Credential, 0, len(raws))
	for i, raw := range raws {
		cred, err := vc.ParseCredential(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse credential at index %d: %w", i, err)
		}
		creds = append(creds, cred)
	}
	return creds, nil
}

// Validate checks the required fields of the unsigned or signed shape.
func (p *Presentation) Validate(signed bool) error {
	shape := schema.UnsignedPresentation
	if signed {
		shape = schema.SignedPresentation
	}
	return schema.Validate(p.doc, shape)
}

// GetSigningInput returns the canonical bytes the holder signs when
// answering challenge.
func (p *Presentation) GetSigningInput(profile canonical.Profile, challenge string) ([]byte, error) {
	return p.doc.Canonicalize(profile.PresentationOptions(challenge))
}

// WithProof returns a copy of the presentation carrying proof.
func (p *Presentation) WithProof(proof *dto.Proof) (*Presentation, error) {
	m, err := p.doc.WithProof(proof)
	if err != nil {
		return nil, fmt.Errorf("failed to add proof: %w", err)
	}
	return &Presentation{doc: m}, nil
}

// Contents parses the presentation back into its structured form.
func (p *Presentation) Contents() (*PresentationContents, error) {
	contents := &PresentationContents{}
	parseFuncs := []func(jsonmap.JSONMap, *PresentationContents) error{
		parseContext,
		parseID,
		parseTypes,
		parseHolder,
	}
	for _, parseFunc := range parseFuncs {
		if err := parseFunc(p.doc, contents); err != nil {
			return nil, err
		}
	}

	creds, err := p.Credentials()
	if err != nil {
		return nil, err
	}
	contents.VerifiableCredentials = creds
	return contents, nil
}
