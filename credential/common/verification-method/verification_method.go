package verificationmethod

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/anam145/go-credential-sdk/credential/common/crypto"
	"github.com/anam145/go-credential-sdk/credential/common/model"
	"github.com/anam145/go-credential-sdk/credential/common/provider"
	"github.com/anam145/go-credential-sdk/credential/common/sdkerr"
	"github.com/anam145/go-credential-sdk/credential/common/util"
)

// DefaultTimeout bounds a single DID lookup when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// Resolver resolves DIDs to public keys through a ledger.
type Resolver struct {
	ledger  provider.Ledger
	timeout time.Duration
	cache   Cache
	group   singleflight.Group
}

// ResolverOpt configures a Resolver.
type ResolverOpt func(*Resolver)

// WithTimeout bounds each ledger lookup.
func WithTimeout(d time.Duration) ResolverOpt {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithCache keeps resolved DID documents in c.
func WithCache(c Cache) ResolverOpt {
	return func(r *Resolver) {
		r.cache = c
	}
}

// NewResolver creates a new DID resolver backed by ledger.
func NewResolver(ledger provider.Ledger, opts ...ResolverOpt) *Resolver {
	r := &Resolver{
		ledger:  ledger,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveToDoc fetches a DID document. Concurrent lookups of the same DID
// share one ledger call.
func (r *Resolver) ResolveToDoc(ctx context.Context, did string) (*model.DIDDocument, error) {
	if did == "" {
		return nil, fmt.Errorf("%w: DID is empty", sdkerr.ErrKeyNotFound)
	}
	if r.cache != nil {
		if doc, ok := r.cache.Get(ctx, did); ok {
			return doc, nil
		}
	}

	ch := r.group.DoChan(did, func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.ledger.GetDIDDocument(lookupCtx, did)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: failed to resolve DID '%s': %v", sdkerr.ErrUnavailable, did, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, classifyLookupError(did, res.Err)
		}
		doc, _ := res.Val.(*model.DIDDocument)
		if doc == nil {
			return nil, fmt.Errorf("%w: DID '%s' resolved to an empty document", sdkerr.ErrKeyNotFound, did)
		}
		if r.cache != nil {
			r.cache.Set(ctx, did, doc)
		}
		return doc, nil
	}
}

// ResolveKey returns the public key of the verification method vmID of did.
// When vmID is empty or not listed, the first verification method is used.
// A revoked DID has no current key.
func (r *Resolver) ResolveKey(ctx context.Context, did, vmID string) (*ecdsa.PublicKey, error) {
	doc, err := r.ResolveToDoc(ctx, did)
	if err != nil {
		return nil, err
	}
	if !doc.IsActive() {
		return nil, fmt.Errorf("%w: DID '%s' is revoked", sdkerr.ErrKeyNotFound, did)
	}

	vm, ok := doc.FindVerificationMethod(vmID)
	if !ok {
		return nil, fmt.Errorf("%w: verification method not found in DID '%s' document", sdkerr.ErrKeyNotFound, did)
	}
	return PublicKeyFromEntry(vm)
}

// GetPublicKey resolves the key named by a verification method URL.
func (r *Resolver) GetPublicKey(ctx context.Context, verificationMethodURL string) (*ecdsa.PublicKey, error) {
	did, err := util.DIDFromVerificationMethod(verificationMethodURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sdkerr.ErrKeyNotFound, err)
	}
	return r.ResolveKey(ctx, did, verificationMethodURL)
}

// CheckVerificationMethod verifies if the provided private key matches the public key
// associated with the given verification method in its DID document.
func (r *Resolver) CheckVerificationMethod(ctx context.Context, privateKey *ecdsa.PrivateKey, verificationMethod string) (bool, error) {
	if privateKey == nil || verificationMethod == "" {
		return false, fmt.Errorf("private key or verification method is empty")
	}

	publicKey, err := r.GetPublicKey(ctx, verificationMethod)
	if err != nil {
		return false, fmt.Errorf("failed to get public key for '%s': %w", verificationMethod, err)
	}
	return crypto.VerifyKeyPair(privateKey, publicKey), nil
}

// PublicKeyFromEntry decodes whichever key field the entry carries.
func PublicKeyFromEntry(vm *model.VerificationMethodEntry) (*ecdsa.PublicKey, error) {
	switch {
	case vm == nil || !vm.HasKey():
		return nil, fmt.Errorf("%w: verification method has no public key", sdkerr.ErrKeyNotFound)
	case vm.PublicKeyPem != "":
		return crypto.ParsePublicKey(vm.PublicKeyPem)
	case vm.PublicKeyHex != "":
		return crypto.ParsePublicKeyHex(vm.PublicKeyHex)
	default:
		return crypto.ParsePublicKeyJWK(vm.PublicKeyJwk.Crv, vm.PublicKeyJwk.X, vm.PublicKeyJwk.Y)
	}
}

func classifyLookupError(did string, err error) error {
	switch {
	case errors.Is(err, sdkerr.ErrNotFound):
		return fmt.Errorf("%w: DID '%s' is not registered", sdkerr.ErrKeyNotFound, did)
	case errors.Is(err, sdkerr.ErrUnavailable):
		return fmt.Errorf("failed to resolve DID '%s': %w", did, err)
	default:
		return fmt.Errorf("%w: failed to resolve DID '%s': %v", sdkerr.ErrUnavailable, did, err)
	}
}
