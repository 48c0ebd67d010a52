// Package verifier checks signed credentials and presentations.
//
// Verification is one ordered pass: structure, embedded credential status
// (presentations), signer key resolution, canonicalization, signature, and
// challenge freshness (presentations). The first failing stage decides the
// Result. Judgments about the document are Results; ledger or resolver
// failures are returned as errors alongside a Result with ReasonError.
package verifier

import (
	"context"
	"crypto/ecdsa"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anam145/go-credential-sdk/credential/common/canonical"
	"github.com/anam145/go-credential-sdk/credential/common/crypto"
	"github.com/anam145/go-credential-sdk/credential/common/dto"
	"github.com/anam145/go-credential-sdk/credential/common/model"
	"github.com/anam145/go-credential-sdk/credential/common/sdkerr"
	"github.com/anam145/go-credential-sdk/credential/vc"
	"github.com/anam145/go-credential-sdk/credential/vp"
)

// KeyResolver maps a signer DID to its public key.
type KeyResolver interface {
	ResolveKey(ctx context.Context, did, verificationMethodID string) (*ecdsa.PublicKey, error)
}

// StatusChecker reports the ledger status of a stored credential.
type StatusChecker interface {
	Check(ctx context.Context, credentialID string) (*model.CredentialStatus, error)
}

// Verifier verifies documents signed under one canonical profile.
type Verifier struct {
	keys           KeyResolver
	status         StatusChecker
	profile        canonical.Profile
	embeddedProofs bool
}

// VerifierOpt configures a Verifier.
type VerifierOpt func(*Verifier)

// WithProfile selects the canonical profile. The default is canonical.ServerProfile.
func WithProfile(profile canonical.Profile) VerifierOpt {
	return func(v *Verifier) {
		v.profile = profile
	}
}

// WithEmbeddedProofCheck also verifies the issuer signature of every
// credential embedded in a presentation.
func WithEmbeddedProofCheck() VerifierOpt {
	return func(v *Verifier) {
		v.embeddedProofs = true
	}
}

// New creates a Verifier. A nil status checker skips the ledger status of
// embedded credentials.
func New(keys KeyResolver, status StatusChecker, opts ...VerifierOpt) *Verifier {
	v := &Verifier{
		keys:    keys,
		status:  status,
		profile: canonical.ServerProfile,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Profile returns the canonical profile signatures are checked under.
func (v *Verifier) Profile() canonical.Profile {
	return v.profile
}

// Verify checks doc. expectedChallenge is the challenge the relying party
// issued for this session and is ignored for credentials.
func (v *Verifier) Verify(ctx context.Context, doc model.Document, expectedChallenge string) (*Result, error) {
	switch d := doc.(type) {
	case *vc.Credential:
		return v.verifyCredential(ctx, d)
	case *vp.Presentation:
		return v.verifyPresentation(ctx, d, expectedChallenge)
	case nil:
		return (&Result{}).fail(StageStructure, ReasonInvalidStructure, "document is nil"), nil
	default:
		return (&Result{}).fail(StageStructure, ReasonInvalidStructure, fmt.Sprintf("unsupported document type %T", doc)), nil
	}
}

// VerifyJSON parses raw as a credential or a presentation and verifies it.
// A presentation is recognized by its holder or verifiableCredential field
// or by the VerifiablePresentation type.
func (v *Verifier) VerifyJSON(ctx context.Context, raw []byte, expectedChallenge string) (*Result, error) {
	kind, err := detectKind(raw)
	if err != nil {
		return (&Result{}).fail(StageStructure, ReasonInvalidStructure, err.Error()), nil
	}

	switch kind {
	case model.KindPresentation:
		p, err := vp.ParsePresentation(raw)
		if err != nil {
			return (&Result{Kind: kind}).fail(StageStructure, ReasonInvalidStructure, err.Error()), nil
		}
		return v.verifyPresentation(ctx, p, expectedChallenge)
	default:
		c, err := vc.ParseCredential(raw)
		if err != nil {
			return (&Result{Kind: kind}).fail(StageStructure, ReasonInvalidStructure, err.Error()), nil
		}
		return v.verifyCredential(ctx, c)
	}
}

func (v *Verifier) verifyCredential(ctx context.Context, c *vc.Credential) (*Result, error) {
	res := &Result{Kind: model.KindCredential, SignerDID: c.IssuerDID()}

	if err := c.Validate(true); err != nil {
		return res.fail(StageStructure, ReasonInvalidStructure, err.Error()), nil
	}
	proof, err := c.Proof()
	if err != nil {
		return res.fail(StageStructure, ReasonInvalidStructure, err.Error()), nil
	}

	pub, res, err := v.resolveKey(ctx, res, proof)
	if pub == nil {
		return res, err
	}

	input, err := c.GetSigningInput(v.profile)
	if err != nil {
		return res.fail(StageCanonicalization, ReasonInvalidStructure, err.Error()), nil
	}
	res.SigningInput = input

	if detail, ok := checkSignature(pub, proof.ProofValue, input); !ok {
		return res.fail(StageSignature, ReasonSignatureMismatch, detail), nil
	}
	return res.pass(), nil
}

func (v *Verifier) verifyPresentation(ctx context.Context, p *vp.Presentation, expectedChallenge string) (*Result, error) {
	res := &Result{Kind: model.KindPresentation, SignerDID: p.Holder()}

	if err := p.Validate(true); err != nil {
		return res.fail(StageStructure, ReasonInvalidStructure, err.Error()), nil
	}
	proof, err := p.Proof()
	if err != nil {
		return res.fail(StageStructure, ReasonInvalidStructure, err.Error()), nil
	}
	creds, err := p.Credentials()
	if err != nil {
		return res.fail(StageStructure, ReasonInvalidStructure, err.Error()), nil
	}
	if len(creds) == 0 {
		return res.fail(StageStructure, ReasonInvalidStructure, "presentation embeds no credential"), nil
	}

	for i, cred := range creds {
		detail, err := v.checkEmbedded(ctx, cred)
		if err != nil {
			return res.fail(StageCredentialStatus, ReasonError, err.Error()),
				fmt.Errorf("failed to check credential at index %d: %w", i, err)
		}
		if detail != "" {
			return res.fail(StageCredentialStatus, ReasonCredentialInvalid,
				fmt.Sprintf("credential at index %d: %s", i, detail)), nil
		}
	}

	pub, res, err := v.resolveKey(ctx, res, proof)
	if pub == nil {
		return res, err
	}

	// In suffix mode the signed bytes end with the challenge the holder
	// answered; comparing it to the expected one is the freshness stage.
	input, err := p.GetSigningInput(v.profile, proof.Challenge)
	if err != nil {
		return res.fail(StageCanonicalization, ReasonInvalidStructure, err.Error()), nil
	}
	res.SigningInput = input

	if detail, ok := checkSignature(pub, proof.ProofValue, input); !ok {
		return res.fail(StageSignature, ReasonSignatureMismatch, detail), nil
	}
	if subtle.ConstantTimeCompare([]byte(proof.Challenge), []byte(expectedChallenge)) != 1 {
		return res.fail(StageFreshness, ReasonChallengeMismatch, "proof.challenge differs from the expected challenge"), nil
	}
	return res.pass(), nil
}

// checkEmbedded returns a non-empty detail when the embedded credential is
// judged invalid.
func (v *Verifier) checkEmbedded(ctx context.Context, cred *vc.Credential) (string, error) {
	if cred.ID() == "" {
		return "credential has no id", nil
	}
	if v.status != nil {
		status, err := v.status.Check(ctx, cred.ID())
		if err != nil {
			return "", err
		}
		if status == nil || !status.Valid {
			reason := model.StatusReasonNotFound
			if status != nil && status.Reason != "" {
				reason = status.Reason
			}
			return fmt.Sprintf("ledger status of '%s': %s", cred.ID(), reason), nil
		}
	}
	if v.embeddedProofs {
		inner, err := v.verifyCredential(ctx, cred)
		if err != nil {
			return "", err
		}
		if !inner.Valid {
			return fmt.Sprintf("issuer proof of '%s': %s", cred.ID(), inner.Reason), nil
		}
	}
	return "", nil
}

// resolveKey returns a nil key when resolution ended the verification; the
// returned Result and error are then final.
func (v *Verifier) resolveKey(ctx context.Context, res *Result, proof *dto.Proof) (*ecdsa.PublicKey, *Result, error) {
	if v.keys == nil {
		err := fmt.Errorf("%w: no key resolver configured", sdkerr.ErrUnavailable)
		return nil, res.fail(StageKeyResolution, ReasonError, err.Error()), err
	}
	pub, err := v.keys.ResolveKey(ctx, res.SignerDID, proof.VerificationMethod)
	switch {
	case err == nil && pub != nil:
		return pub, res, nil
	case err == nil, errors.Is(err, sdkerr.ErrKeyNotFound):
		detail := "no key for " + res.SignerDID
		if err != nil {
			detail = err.Error()
		}
		return nil, res.fail(StageKeyResolution, ReasonSignerKeyNotFound, detail), nil
	default:
		return nil, res.fail(StageKeyResolution, ReasonError, err.Error()),
			fmt.Errorf("failed to resolve signer key: %w", err)
	}
}

func checkSignature(pub *ecdsa.PublicKey, proofValue string, input []byte) (string, bool) {
	ok, err := crypto.ECDSAVerifySignature(pub, proofValue, input)
	if err != nil {
		return err.Error(), false
	}
	if !ok {
		return "signature does not match the canonical bytes", false
	}
	return "", true
}

func detectKind(raw []byte) (model.DocumentKind, error) {
	var probe struct {
		Type                 interface{}     `json:"type"`
		Holder               json.RawMessage `json:"holder"`
		VerifiableCredential json.RawMessage `json:"verifiableCredential"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return 0, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	if len(probe.Holder) > 0 || len(probe.VerifiableCredential) > 0 {
		return model.KindPresentation, nil
	}

	types := []interface{}{probe.Type}
	if list, ok := probe.Type.([]interface{}); ok {
		types = list
	}
	for _, t := range types {
		if t == "VerifiablePresentation" {
			return model.KindPresentation, nil
		}
	}
	return model.KindCredential, nil
}
