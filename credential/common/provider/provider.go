package provider

import (
	"context"

	"github.com/anam145/go-credential-sdk/credential/common/model"
)

// Ledger is the trusted registry of DID documents and credentials. Custom
// implementations are injected into the resolver, signer and verifier.
//
// Implementations return errors wrapping sdkerr.ErrNotFound for missing
// records and sdkerr.ErrUnavailable when the ledger cannot be reached.
type Ledger interface {
	// GetDIDDocument resolves a DID string into a DID Document.
	GetDIDDocument(ctx context.Context, did string) (*model.DIDDocument, error)

	// GetCredentialStatus reports whether a stored credential is currently valid.
	GetCredentialStatus(ctx context.Context, credentialID string) (*model.CredentialStatus, error)

	// PutCredential stores a signed credential. Storing the same id twice
	// is not an error.
	PutCredential(ctx context.Context, signed []byte) error

	// GetCredential returns the stored bytes of a signed credential.
	GetCredential(ctx context.Context, credentialID string) ([]byte, error)
}

// DIDRegistry is implemented by ledgers that accept new DID documents.
type DIDRegistry interface {
	PutDIDDocument(ctx context.Context, doc *model.DIDDocument) error
}

// KeyStore hands private keys to the signer. Implementations return an
// error wrapping sdkerr.ErrKeyNotFound when no key matches ref.
type KeyStore interface {
	LoadPrivateKey(ctx context.Context, ref model.KeyRef) (*model.KeyMaterial, error)
}
