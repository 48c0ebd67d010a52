// Package memory is an in-process ledger of DID documents and credentials.
//
// It evaluates credential status the way the registry does: a credential is
// valid while it is stored, not revoked, not expired, and its issuer DID is
// active and authorized to issue.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/anam145/go-credential-sdk/credential/common/model"
	"github.com/anam145/go-credential-sdk/credential/common/sdkerr"
	"github.com/anam145/go-credential-sdk/credential/common/util"
	"github.com/anam145/go-credential-sdk/credential/vc"
)

type record struct {
	raw        []byte
	issuer     string
	validUntil time.Time
	revoked    bool
}

// Ledger implements provider.Ledger and provider.DIDRegistry.
type Ledger struct {
	mu         sync.RWMutex
	dids       map[string]*model.DIDDocument
	creds      map[string]*record
	authorized map[string]bool
	now        func() time.Time
}

// LedgerOpt configures a Ledger.
type LedgerOpt func(*Ledger)

// WithClock replaces the clock used for expiry and DID timestamps.
func WithClock(now func() time.Time) LedgerOpt {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// New returns an empty ledger.
func New(opts ...LedgerOpt) *Ledger {
	l := &Ledger{
		dids:       make(map[string]*model.DIDDocument),
		creds:      make(map[string]*record),
		authorized: make(map[string]bool),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// PutDIDDocument registers a new DID. Issuer DIDs are authorized to issue
// on registration.
func (l *Ledger) PutDIDDocument(_ context.Context, doc *model.DIDDocument) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("DID document has no id")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.dids[doc.ID]; exists {
		return fmt.Errorf("DID '%s' already exists", doc.ID)
	}
	l.dids[doc.ID] = cloneDIDDocument(doc)
	if _, set := l.authorized[doc.ID]; !set && doc.Type == model.DIDTypeIssuer {
		l.authorized[doc.ID] = true
	}
	return nil
}

// GetDIDDocument returns a copy of the registered document of did.
func (l *Ledger) GetDIDDocument(_ context.Context, did string) (*model.DIDDocument, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	doc, ok := l.dids[did]
	if !ok {
		return nil, fmt.Errorf("%w: DID '%s'", sdkerr.ErrNotFound, did)
	}
	return cloneDIDDocument(doc), nil
}

// RevokeDID marks did as revoked. Credentials issued by a revoked issuer
// stop being valid.
func (l *Ledger) RevokeDID(_ context.Context, did string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	doc, ok := l.dids[did]
	if !ok {
		return fmt.Errorf("%w: DID '%s'", sdkerr.ErrNotFound, did)
	}
	doc.Status = model.DIDStatusRevoked
	doc.Updated = util.FormatTimestamp(l.now())
	return nil
}

// SetIssuerAuthorized grants or withdraws the right of did to issue.
func (l *Ledger) SetIssuerAuthorized(did string, authorized bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.authorized[did] = authorized
}

// PutCredential stores a signed credential under its id. Storing an id
// that already exists keeps the first copy.
func (l *Ledger) PutCredential(_ context.Context, signed []byte) error {
	cred, err := vc.ParseCredential(signed, vc.WithSchemaValidation())
	if err != nil {
		return fmt.Errorf("failed to parse credential: %w", err)
	}
	if !cred.IsSigned() {
		return fmt.Errorf("%w: credential has no proof", sdkerr.ErrInvalidStructure)
	}
	if cred.ID() == "" {
		return fmt.Errorf("%w: credential has no id", sdkerr.ErrInvalidStructure)
	}

	rec := &record{
		raw:    append([]byte(nil), signed...),
		issuer: cred.IssuerDID(),
	}
	if until, ok := cred.ValidUntil(); ok {
		rec.validUntil = until
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.creds[cred.ID()]; !exists {
		l.creds[cred.ID()] = rec
	}
	return nil
}

// GetCredential returns the stored bytes of a credential.
func (l *Ledger) GetCredential(_ context.Context, credentialID string) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.creds[credentialID]
	if !ok {
		return nil, fmt.Errorf("%w: credential '%s'", sdkerr.ErrNotFound, credentialID)
	}
	return append([]byte(nil), rec.raw...), nil
}

// RevokeCredential marks a stored credential as revoked.
func (l *Ledger) RevokeCredential(_ context.Context, credentialID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.creds[credentialID]
	if !ok {
		return fmt.Errorf("%w: credential '%s'", sdkerr.ErrNotFound, credentialID)
	}
	rec.revoked = true
	return nil
}

// GetCredentialStatus evaluates the current validity of a stored credential.
func (l *Ledger) GetCredentialStatus(_ context.Context, credentialID string) (*model.CredentialStatus, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.creds[credentialID]
	if !ok {
		return nil, fmt.Errorf("%w: credential '%s'", sdkerr.ErrNotFound, credentialID)
	}

	status := &model.CredentialStatus{ID: credentialID}
	switch {
	case rec.revoked:
		status.Reason = model.StatusReasonRevoked
	case !rec.validUntil.IsZero() && !l.now().Before(rec.validUntil):
		status.Reason = model.StatusReasonExpired
	case !l.dids[rec.issuer].IsActive() || !l.authorized[rec.issuer]:
		status.Reason = model.StatusReasonUnauthorized
	default:
		status.Valid = true
	}
	return status, nil
}

func cloneDIDDocument(doc *model.DIDDocument) *model.DIDDocument {
	out := *doc
	out.Context = append([]string(nil), doc.Context...)
	out.VerificationMethod = append([]model.VerificationMethodEntry(nil), doc.VerificationMethod...)
	out.Authentication = append([]string(nil), doc.Authentication...)
	out.AssertionMethod = append([]string(nil), doc.AssertionMethod...)
	if doc.AdditionalInfo != nil {
		out.AdditionalInfo = make(map[string]interface{}, len(doc.AdditionalInfo))
		for k, v := range doc.AdditionalInfo {
			out.AdditionalInfo[k] = v
		}
	}
	return &out
}
