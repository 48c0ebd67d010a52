package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestECDSASignAndVerify(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	other, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	msg := []byte(`{"a":1,"b":"x"}`)
	sig, err := ECDSASign(msg, key)
	require.NoError(t, err)
	sigB64 := base64.StdEncoding.EncodeToString(sig)

	tests := []struct {
		name     string
		pub      *ecdsa.PublicKey
		sig      string
		msg      []byte
		expected bool
	}{
		{name: "valid signature", pub: &key.PublicKey, sig: sigB64, msg: msg, expected: true},
		{name: "tampered message", pub: &key.PublicKey, sig: sigB64, msg: []byte(`{"a":2,"b":"x"}`), expected: false},
		{name: "wrong key", pub: &other.PublicKey, sig: sigB64, msg: msg, expected: false},
		{name: "garbage signature", pub: &key.PublicKey, sig: base64.StdEncoding.EncodeToString([]byte("nope")), msg: msg, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := ECDSAVerifySignature(tt.pub, tt.sig, tt.msg)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ok)
		})
	}
}

func TestECDSAVerifySignature_RawRS(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	msg := []byte("challenge-bound bytes")
	digest := sha256.Sum256(msg)
	r, s, err := ecdsa.Sign(rand.Reader, key, digest[:])
	require.NoError(t, err)

	raw := append(r.FillBytes(make([]byte, 32)), s.FillBytes(make([]byte, 32))...)
	ok, err := ECDSAVerifySignature(&key.PublicKey, base64.StdEncoding.EncodeToString(raw), msg)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestECDSAVerifySignature_BadInput(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	_, err = ECDSAVerifySignature(&key.PublicKey, "***", []byte("x"))
	assert.Error(t, err)

	_, err = ECDSAVerifySignature(nil, "", []byte("x"))
	assert.Error(t, err)

	_, err = ECDSASign([]byte("x"), nil)
	assert.Error(t, err)
}
