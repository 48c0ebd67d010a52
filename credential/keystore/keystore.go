// Package keystore provides provider.KeyStore implementations holding P-256
// key pairs per role: an in-memory store and a directory of wallet files.
package keystore

import (
	"fmt"
	"strings"

	"github.com/anam145/go-credential-sdk/credential/common/crypto"
	"github.com/anam145/go-credential-sdk/credential/common/model"
)

// Generate creates a fresh key pair owned by did. The key id is the last
// segment of the DID.
func Generate(role model.Role, did string) (*model.KeyMaterial, error) {
	if role == "" {
		return nil, fmt.Errorf("role is empty")
	}
	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s key: %w", role, err)
	}
	return &model.KeyMaterial{
		ID:         keyID(did),
		Role:       role,
		DID:        did,
		PublicKey:  pub,
		PrivateKey: priv,
	}, nil
}

// keyID returns the method-specific id of did, the text after its last colon.
func keyID(did string) string {
	if i := strings.LastIndexByte(did, ':'); i >= 0 {
		return did[i+1:]
	}
	return did
}
