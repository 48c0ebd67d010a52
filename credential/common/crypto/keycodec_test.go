package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anam145/go-credential-sdk/credential/common/sdkerr"
)

func TestPEMRoundTrip(t *testing.T) {
	privB64, pubB64, err := GenerateKeyPair()
	require.NoError(t, err)

	tests := []struct {
		name  string
		body  string
		class KeyClass
	}{
		{name: "public key", body: pubB64, class: ClassPublicKey},
		{name: "private key", body: privB64, class: ClassPrivateKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pemText, err := Base64ToPEM(tt.body, tt.class)
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(pemText, "-----BEGIN "+string(tt.class)+"-----\n"))
			assert.True(t, strings.HasSuffix(pemText, "-----END "+string(tt.class)+"-----\n"))
			for _, line := range strings.Split(strings.TrimSpace(pemText), "\n") {
				assert.LessOrEqual(t, len(line), 64)
			}
			assert.Equal(t, tt.body, PEMToBase64(pemText))
		})
	}
}

func TestBase64ToPEM_Errors(t *testing.T) {
	_, err := Base64ToPEM("", ClassPublicKey)
	assert.ErrorIs(t, err, sdkerr.ErrMalformedKey)

	_, err = Base64ToPEM("%%%not-base64", ClassPublicKey)
	assert.ErrorIs(t, err, sdkerr.ErrMalformedKey)

	_, err = Base64ToPEM("AAAA", KeyClass("CERTIFICATE"))
	assert.ErrorIs(t, err, sdkerr.ErrMalformedKey)

	privB64, pubB64, err := GenerateKeyPair()
	require.NoError(t, err)
	p384, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)
	p384DER, err := x509.MarshalPKIXPublicKey(&p384.PublicKey)
	require.NoError(t, err)

	tests := []struct {
		name  string
		body  string
		class KeyClass
	}{
		{name: "base64 but not a key", body: "AAAA", class: ClassPublicKey},
		{name: "pkcs8 labelled public", body: privB64, class: ClassPublicKey},
		{name: "spki labelled pkcs8", body: pubB64, class: ClassPrivateKey},
		{name: "spki labelled ec private", body: pubB64, class: ClassECPrivateKey},
		{name: "public key off P-256", body: base64.StdEncoding.EncodeToString(p384DER), class: ClassPublicKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Base64ToPEM(tt.body, tt.class)
			assert.ErrorIs(t, err, sdkerr.ErrMalformedKey)
		})
	}
}

func TestParseKeys(t *testing.T) {
	privB64, pubB64, err := GenerateKeyPair()
	require.NoError(t, err)

	priv, err := ParsePrivateKey(privB64)
	require.NoError(t, err)
	pub, err := ParsePublicKey(pubB64)
	require.NoError(t, err)
	assert.True(t, VerifyKeyPair(priv, pub))

	privPEM, err := Base64ToPEM(privB64, ClassPrivateKey)
	require.NoError(t, err)
	fromPEM, err := ParsePrivateKey(privPEM)
	require.NoError(t, err)
	assert.True(t, VerifyKeyPair(fromPEM, pub))

	pubPEM, err := Base64ToPEM(pubB64, ClassPublicKey)
	require.NoError(t, err)
	pubFromPEM, err := ParsePublicKey(pubPEM)
	require.NoError(t, err)
	assert.True(t, pub.Equal(pubFromPEM))
}

func TestParsePrivateKey_SEC1(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	sec1 := base64.StdEncoding.EncodeToString(der)

	parsed, err := ParsePrivateKey(sec1)
	require.NoError(t, err)
	assert.True(t, VerifyKeyPair(parsed, &key.PublicKey))

	sec1PEM, err := Base64ToPEM(sec1, ClassECPrivateKey)
	require.NoError(t, err)
	parsed, err = ParsePrivateKey(sec1PEM)
	require.NoError(t, err)
	assert.True(t, VerifyKeyPair(parsed, &key.PublicKey))
}

func TestParseKeys_Malformed(t *testing.T) {
	p384, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)
	p384Priv, err := MarshalPrivateKey(p384)
	require.NoError(t, err)
	p384Pub, err := MarshalPublicKey(&p384.PublicKey)
	require.NoError(t, err)
	_, pubB64, err := GenerateKeyPair()
	require.NoError(t, err)

	tests := []struct {
		name  string
		parse func() error
	}{
		{name: "empty private key", parse: func() error { _, err := ParsePrivateKey(""); return err }},
		{name: "garbage private key", parse: func() error { _, err := ParsePrivateKey("bm90IGEga2V5"); return err }},
		{name: "private key on wrong curve", parse: func() error { _, err := ParsePrivateKey(p384Priv); return err }},
		{name: "public key passed as private", parse: func() error { _, err := ParsePrivateKey(pubB64); return err }},
		{name: "garbage public key", parse: func() error { _, err := ParsePublicKey("bm90IGEga2V5"); return err }},
		{name: "public key on wrong curve", parse: func() error { _, err := ParsePublicKey(p384Pub); return err }},
		{name: "broken PEM", parse: func() error { _, err := ParsePublicKey("-----BEGIN PUBLIC KEY-----\n@@@\n"); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.parse(), sdkerr.ErrMalformedKey)
		})
	}
}

func TestParsePublicKeyHex(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	uncompressed := hexutil.Encode(elliptic.Marshal(elliptic.P256(), key.X, key.Y))
	pub, err := ParsePublicKeyHex(uncompressed)
	require.NoError(t, err)
	assert.True(t, pub.Equal(&key.PublicKey))

	compressed := hexutil.Encode(elliptic.MarshalCompressed(elliptic.P256(), key.X, key.Y))
	pub, err = ParsePublicKeyHex(compressed)
	require.NoError(t, err)
	assert.True(t, pub.Equal(&key.PublicKey))

	_, err = ParsePublicKeyHex("0x0102")
	assert.ErrorIs(t, err, sdkerr.ErrMalformedKey)

	_, err = ParsePublicKeyHex("no-prefix")
	assert.ErrorIs(t, err, sdkerr.ErrMalformedKey)
}

func TestParsePublicKeyJWK(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	x := base64.RawURLEncoding.EncodeToString(key.X.FillBytes(make([]byte, 32)))
	y := base64.RawURLEncoding.EncodeToString(key.Y.FillBytes(make([]byte, 32)))

	pub, err := ParsePublicKeyJWK("P-256", x, y)
	require.NoError(t, err)
	assert.True(t, pub.Equal(&key.PublicKey))

	_, err = ParsePublicKeyJWK("secp256k1", x, y)
	assert.ErrorIs(t, err, sdkerr.ErrMalformedKey)

	_, err = ParsePublicKeyJWK("P-256", x, x)
	assert.ErrorIs(t, err, sdkerr.ErrMalformedKey)
}
