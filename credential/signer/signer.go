// Package signer attaches Secp256r1Signature2018 proofs to credentials and
// presentations.
//
// Private keys come from an injected provider.KeyStore so several
// identities can sign through one Signer. Canonical bytes are produced under
// the Signer's canonical.Profile, which must match the profile of every
// verifier of the deployment.
package signer

import (
	"context"
	"crypto/ecdsa"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/anam145/go-credential-sdk/credential/common/canonical"
	"github.com/anam145/go-credential-sdk/credential/common/crypto"
	"github.com/anam145/go-credential-sdk/credential/common/dto"
	"github.com/anam145/go-credential-sdk/credential/common/model"
	"github.com/anam145/go-credential-sdk/credential/common/provider"
	"github.com/anam145/go-credential-sdk/credential/common/sdkerr"
	"github.com/anam145/go-credential-sdk/credential/common/util"
	"github.com/anam145/go-credential-sdk/credential/vc"
	"github.com/anam145/go-credential-sdk/credential/vp"
)

// Signer signs documents with keys loaded from a KeyStore.
type Signer struct {
	keys    provider.KeyStore
	profile canonical.Profile
	now     func() time.Time
	newID   func() (string, error)
}

// SignerOpt configures a Signer.
type SignerOpt func(*Signer)

// WithProfile selects the canonical profile. The default is canonical.ServerProfile.
func WithProfile(profile canonical.Profile) SignerOpt {
	return func(s *Signer) {
		s.profile = profile
	}
}

// WithClock replaces the clock used for proof.created.
func WithClock(now func() time.Time) SignerOpt {
	return func(s *Signer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces the generator of credential ids.
func WithIDGenerator(newID func() (string, error)) SignerOpt {
	return func(s *Signer) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// New creates a Signer drawing private keys from keys.
func New(keys provider.KeyStore, opts ...SignerOpt) *Signer {
	s := &Signer{
		keys:    keys,
		profile: canonical.ServerProfile,
		now:     time.Now,
		newID:   util.RandomID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Profile returns the canonical profile documents are signed under.
func (s *Signer) Profile() canonical.Profile {
	return s.profile
}

// SignOpt configures a single signing call.
type SignOpt func(*signOptions)

type signOptions struct {
	challenge string
	domain    string
	keyDID    string
}

// WithChallenge binds a presentation to the relying party's challenge.
func WithChallenge(challenge string) SignOpt {
	return func(o *signOptions) {
		o.challenge = challenge
	}
}

// WithDomain records the relying party's domain in the proof.
func WithDomain(domain string) SignOpt {
	return func(o *signOptions) {
		o.domain = domain
	}
}

// WithKeyDID selects the key of did instead of the document's issuer or holder.
func WithKeyDID(did string) SignOpt {
	return func(o *signOptions) {
		o.keyDID = did
	}
}

// Sign signs doc for role with the given proof purpose. An empty purpose
// selects assertionMethod for credentials and authentication for
// presentations.
func (s *Signer) Sign(ctx context.Context, doc model.Document, role model.Role, purpose string, opts ...SignOpt) (model.Document, error) {
	options := &signOptions{}
	for _, opt := range opts {
		opt(options)
	}

	switch d := doc.(type) {
	case *vc.Credential:
		signed, err := s.signCredential(ctx, d, role, purpose, options)
		if err != nil {
			return nil, err
		}
		return signed, nil
	case *vp.Presentation:
		signed, err := s.signPresentation(ctx, d, role, purpose, options)
		if err != nil {
			return nil, err
		}
		return signed, nil
	case nil:
		return nil, fmt.Errorf("%w: document is nil", sdkerr.ErrInvalidStructure)
	default:
		return nil, fmt.Errorf("%w: unsupported document type %T", sdkerr.ErrInvalidStructure, doc)
	}
}

// SignCredential issues cred under the issuer key. The credential receives
// a fresh id before it is canonicalized.
func (s *Signer) SignCredential(ctx context.Context, cred *vc.Credential, opts ...SignOpt) (*vc.Credential, error) {
	options := &signOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return s.signCredential(ctx, cred, model.RoleIssuer, dto.PurposeAssertionMethod, options)
}

// SignPresentation signs p under the holder key, bound to challenge.
func (s *Signer) SignPresentation(ctx context.Context, p *vp.Presentation, challenge string, opts ...SignOpt) (*vp.Presentation, error) {
	options := &signOptions{}
	for _, opt := range opts {
		opt(options)
	}
	options.challenge = challenge
	return s.signPresentation(ctx, p, model.RoleHolder, dto.PurposeAuthentication, options)
}

func (s *Signer) signCredential(ctx context.Context, cred *vc.Credential, role model.Role, purpose string, options *signOptions) (*vc.Credential, error) {
	if cred == nil {
		return nil, fmt.Errorf("%w: credential is nil", sdkerr.ErrInvalidStructure)
	}
	if cred.IsSigned() {
		return nil, fmt.Errorf("%w: credential already carries a proof", sdkerr.ErrInvalidStructure)
	}
	if err := cred.Validate(false); err != nil {
		return nil, fmt.Errorf("failed to validate credential: %w", err)
	}
	if purpose == "" {
		purpose = dto.PurposeAssertionMethod
	}

	id, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate credential id: %w", err)
	}
	cred = cred.WithID(id)

	signerDID, priv, err := s.loadKey(ctx, role, pick(options.keyDID, cred.IssuerDID()))
	if err != nil {
		return nil, err
	}
	input, err := cred.GetSigningInput(s.profile)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize credential: %w", err)
	}
	proof, err := s.createProof(input, priv, signerDID, purpose, &signOptions{domain: options.domain})
	if err != nil {
		return nil, err
	}
	return cred.WithProof(proof)
}

func (s *Signer) signPresentation(ctx context.Context, p *vp.Presentation, role model.Role, purpose string, options *signOptions) (*vp.Presentation, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: presentation is nil", sdkerr.ErrInvalidStructure)
	}
	if p.IsSigned() {
		return nil, fmt.Errorf("%w: presentation already carries a proof", sdkerr.ErrInvalidStructure)
	}
	if options.challenge == "" {
		return nil, fmt.Errorf("%w: presentation challenge is empty", sdkerr.ErrInvalidStructure)
	}
	if err := p.Validate(false); err != nil {
		return nil, fmt.Errorf("failed to validate presentation: %w", err)
	}
	if purpose == "" {
		purpose = dto.PurposeAuthentication
	}

	signerDID, priv, err := s.loadKey(ctx, role, pick(options.keyDID, p.Holder()))
	if err != nil {
		return nil, err
	}
	input, err := p.GetSigningInput(s.profile, options.challenge)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize presentation: %w", err)
	}
	proof, err := s.createProof(input, priv, signerDID, purpose, options)
	if err != nil {
		return nil, err
	}
	return p.WithProof(proof)
}

// loadKey fetches and decodes the private key of role. The stored key must
// belong to the DID the document names as its signer.
func (s *Signer) loadKey(ctx context.Context, role model.Role, did string) (string, *ecdsa.PrivateKey, error) {
	if s.keys == nil {
		return "", nil, fmt.Errorf("%w: no key store configured", sdkerr.ErrKeyNotFound)
	}
	km, err := s.keys.LoadPrivateKey(ctx, model.KeyRef{Role: role, DID: did})
	if err != nil {
		return "", nil, fmt.Errorf("failed to load %s key: %w", role, err)
	}
	if km == nil || km.PrivateKey == "" {
		return "", nil, fmt.Errorf("%w: no %s key provisioned", sdkerr.ErrKeyNotFound, role)
	}

	signerDID := pick(km.DID, did)
	if signerDID == "" {
		return "", nil, fmt.Errorf("%w: %s key has no DID", sdkerr.ErrKeyNotFound, role)
	}
	if did != "" && km.DID != "" && km.DID != did {
		return "", nil, fmt.Errorf("%w: %s key belongs to '%s', document is signed by '%s'", sdkerr.ErrKeyNotFound, role, km.DID, did)
	}

	priv, err := crypto.ParsePrivateKey(km.PrivateKey)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode %s key: %w", role, err)
	}
	return signerDID, priv, nil
}

func (s *Signer) createProof(input []byte, priv *ecdsa.PrivateKey, signerDID, purpose string, options *signOptions) (*dto.Proof, error) {
	sig, err := crypto.ECDSASign(input, priv)
	if err != nil {
		return nil, fmt.Errorf("failed to sign document: %w", err)
	}
	return &dto.Proof{
		Type:               dto.ProofTypeSecp256r1,
		Created:            util.FormatTimestamp(s.now()),
		VerificationMethod: model.VerificationMethodID(signerDID),
		ProofPurpose:       purpose,
		ProofValue:         base64.StdEncoding.EncodeToString(sig),
		Challenge:          options.challenge,
		Domain:             options.domain,
	}, nil
}

func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
