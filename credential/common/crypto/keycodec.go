package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/anam145/go-credential-sdk/credential/common/sdkerr"
)

// KeyClass is the label carried by the PEM armor of a key.
type KeyClass string

const (
	ClassPublicKey    KeyClass = "PUBLIC KEY"
	ClassPrivateKey   KeyClass = "PRIVATE KEY"
	ClassECPrivateKey KeyClass = "EC PRIVATE KEY"
)

const pemLineLength = 64

var pemArmor = regexp.MustCompile(`-----[^-]+-----|\s+`)

// PEMToBase64 strips the armor lines and all whitespace from a PEM block,
// leaving the flat base64 body.
func PEMToBase64(pemText string) string {
	return pemArmor.ReplaceAllString(pemText, "")
}

// Base64ToPEM wraps a flat base64 body into a PEM block of the given class.
// The body must decode to a P-256 key of that class.
func Base64ToPEM(b64 string, class KeyClass) (string, error) {
	body := PEMToBase64(b64)
	if body == "" {
		return "", fmt.Errorf("%w: empty key body", sdkerr.ErrMalformedKey)
	}
	der, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64 body: %v", sdkerr.ErrMalformedKey, err)
	}
	if err := checkKeyDER(der, class); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("-----BEGIN " + string(class) + "-----\n")
	for len(body) > pemLineLength {
		sb.WriteString(body[:pemLineLength])
		sb.WriteByte('\n')
		body = body[pemLineLength:]
	}
	sb.WriteString(body)
	sb.WriteString("\n-----END " + string(class) + "-----\n")
	return sb.String(), nil
}

// decodeKeyBytes accepts either a PEM block or a flat base64 body and returns
// the DER bytes plus the armor class, if any.
func decodeKeyBytes(key string) ([]byte, KeyClass, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, "", fmt.Errorf("%w: key is empty", sdkerr.ErrMalformedKey)
	}
	if strings.HasPrefix(key, "-----BEGIN") {
		block, _ := pem.Decode([]byte(key))
		if block == nil {
			return nil, "", fmt.Errorf("%w: invalid PEM block", sdkerr.ErrMalformedKey)
		}
		return block.Bytes, KeyClass(block.Type), nil
	}
	der, err := base64.StdEncoding.DecodeString(PEMToBase64(key))
	if err != nil {
		return nil, "", fmt.Errorf("%w: invalid base64 body: %v", sdkerr.ErrMalformedKey, err)
	}
	return der, "", nil
}

// ParsePrivateKey decodes a P-256 private key given as PEM or flat base64.
// PKCS#8 and SEC1 ("EC PRIVATE KEY") encodings are accepted.
func ParsePrivateKey(key string) (*ecdsa.PrivateKey, error) {
	der, class, err := decodeKeyBytes(key)
	if err != nil {
		return nil, err
	}

	var parsed interface{}
	switch class {
	case ClassECPrivateKey:
		parsed, err = x509.ParseECPrivateKey(der)
	case ClassPrivateKey:
		parsed, err = x509.ParsePKCS8PrivateKey(der)
	case "":
		parsed, err = x509.ParsePKCS8PrivateKey(der)
		if err != nil {
			parsed, err = x509.ParseECPrivateKey(der)
		}
	default:
		return nil, fmt.Errorf("%w: unexpected PEM type %q for private key", sdkerr.ErrMalformedKey, class)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse private key: %v", sdkerr.ErrMalformedKey, err)
	}
	return asP256Private(parsed)
}

// checkKeyDER reports whether der holds a P-256 key of the given class.
func checkKeyDER(der []byte, class KeyClass) error {
	var err error
	switch class {
	case ClassPublicKey:
		var parsed interface{}
		if parsed, err = x509.ParsePKIXPublicKey(der); err == nil {
			_, err = asP256(parsed)
		}
	case ClassPrivateKey:
		var parsed interface{}
		if parsed, err = x509.ParsePKCS8PrivateKey(der); err == nil {
			_, err = asP256Private(parsed)
		}
	case ClassECPrivateKey:
		var priv *ecdsa.PrivateKey
		if priv, err = x509.ParseECPrivateKey(der); err == nil {
			_, err = asP256Private(priv)
		}
	default:
		return fmt.Errorf("%w: unsupported key class %q", sdkerr.ErrMalformedKey, class)
	}
	if err != nil && !errors.Is(err, sdkerr.ErrMalformedKey) {
		return fmt.Errorf("%w: body is not a %s: %v", sdkerr.ErrMalformedKey, class, err)
	}
	return err
}

// ParsePublicKey decodes a P-256 SubjectPublicKeyInfo given as PEM or flat base64.
func ParsePublicKey(key string) (*ecdsa.PublicKey, error) {
	der, class, err := decodeKeyBytes(key)
	if err != nil {
		return nil, err
	}
	if class != "" && class != ClassPublicKey {
		return nil, fmt.Errorf("%w: unexpected PEM type %q for public key", sdkerr.ErrMalformedKey, class)
	}

	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse public key: %v", sdkerr.ErrMalformedKey, err)
	}
	return asP256(parsed)
}

// ParsePublicKeyHex decodes a 0x-prefixed SEC1 point, compressed or not.
func ParsePublicKeyHex(key string) (*ecdsa.PublicKey, error) {
	raw, err := hexutil.Decode(key)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid hex public key: %v", sdkerr.ErrMalformedKey, err)
	}

	curve := elliptic.P256()
	var x, y *big.Int
	switch len(raw) {
	case 65:
		x, y = elliptic.Unmarshal(curve, raw)
	case 33:
		x, y = elliptic.UnmarshalCompressed(curve, raw)
	default:
		return nil, fmt.Errorf("%w: public key must be 33 or 65 bytes, got %d", sdkerr.ErrMalformedKey, len(raw))
	}
	if x == nil {
		return nil, fmt.Errorf("%w: point is not on P-256", sdkerr.ErrMalformedKey)
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}

// ParsePublicKeyJWK decodes the x and y coordinates of an EC P-256 JWK.
func ParsePublicKeyJWK(crv, x, y string) (*ecdsa.PublicKey, error) {
	if crv != "P-256" {
		return nil, fmt.Errorf("%w: unsupported JWK curve %q", sdkerr.ErrMalformedKey, crv)
	}
	xb, err := base64.RawURLEncoding.DecodeString(x)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JWK x: %v", sdkerr.ErrMalformedKey, err)
	}
	yb, err := base64.RawURLEncoding.DecodeString(y)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JWK y: %v", sdkerr.ErrMalformedKey, err)
	}

	pub := &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(xb),
		Y:     new(big.Int).SetBytes(yb),
	}
	if !pub.Curve.IsOnCurve(pub.X, pub.Y) {
		return nil, fmt.Errorf("%w: JWK point is not on P-256", sdkerr.ErrMalformedKey)
	}
	return pub, nil
}

// MarshalPublicKey returns the flat base64 SubjectPublicKeyInfo of pub.
func MarshalPublicKey(pub *ecdsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

// MarshalPrivateKey returns the flat base64 PKCS#8 encoding of priv.
func MarshalPrivateKey(priv *ecdsa.PrivateKey) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", fmt.Errorf("failed to marshal private key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

// GenerateKeyPair creates a P-256 key pair and returns it as flat base64
// PKCS#8 (private) and SPKI (public).
func GenerateKeyPair() (privateB64, publicB64 string, err error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate key: %w", err)
	}
	privateB64, err = MarshalPrivateKey(priv)
	if err != nil {
		return "", "", err
	}
	publicB64, err = MarshalPublicKey(&priv.PublicKey)
	if err != nil {
		return "", "", err
	}
	return privateB64, publicB64, nil
}

// VerifyKeyPair verifies if a private key and public key match.
func VerifyKeyPair(privateKey *ecdsa.PrivateKey, publicKey *ecdsa.PublicKey) bool {
	derived := &privateKey.PublicKey
	return derived.X.Cmp(publicKey.X) == 0 &&
		derived.Y.Cmp(publicKey.Y) == 0
}

func asP256Private(key interface{}) (*ecdsa.PrivateKey, error) {
	priv, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: expected ECDSA private key, got %T", sdkerr.ErrMalformedKey, key)
	}
	if priv.Curve != elliptic.P256() {
		return nil, fmt.Errorf("%w: private key is not on P-256", sdkerr.ErrMalformedKey)
	}
	return priv, nil
}

func asP256(key interface{}) (*ecdsa.PublicKey, error) {
	pub, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: expected ECDSA public key, got %T", sdkerr.ErrMalformedKey, key)
	}
	if pub.Curve != elliptic.P256() {
		return nil, fmt.Errorf("%w: public key is not on P-256", sdkerr.ErrMalformedKey)
	}
	return pub, nil
}
