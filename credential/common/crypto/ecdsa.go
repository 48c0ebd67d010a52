package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/anam145/go-credential-sdk/credential/common/sdkerr"
)

// ECDSASign signs msg with ECDSA P-256 over SHA-256 and returns the
// ASN.1 DER encoded signature.
func ECDSASign(msg []byte, priv *ecdsa.PrivateKey) ([]byte, error) {
	if priv == nil {
		return nil, fmt.Errorf("%w: private key is nil", sdkerr.ErrSigning)
	}
	digest := sha256.Sum256(msg)
	sig, err := ecdsa.SignASN1(rand.Reader, priv, digest[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sdkerr.ErrSigning, err)
	}
	return sig, nil
}

// ECDSAVerifySignature checks a base64 signature over msg. The signature may
// be ASN.1 DER or a fixed 64-byte r||s concatenation.
func ECDSAVerifySignature(pub *ecdsa.PublicKey, signature string, msg []byte) (bool, error) {
	if pub == nil {
		return false, fmt.Errorf("public key is nil")
	}
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false, fmt.Errorf("failed to decode signature: %w", err)
	}

	digest := sha256.Sum256(msg)
	if ecdsa.VerifyASN1(pub, digest[:], sig) {
		return true, nil
	}
	if len(sig) == 64 {
		r := new(big.Int).SetBytes(sig[:32])
		s := new(big.Int).SetBytes(sig[32:])
		return ecdsa.Verify(pub, digest[:], r, s), nil
	}
	return false, nil
}
