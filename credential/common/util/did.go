package util

import (
	"fmt"
	"strings"
)

// DIDKind is the segment of a DID naming what it identifies.
type DIDKind string

const (
	DIDKindUser    DIDKind = "user"
	DIDKindIssuer  DIDKind = "issuer"
	DIDKindLicense DIDKind = "license"
	DIDKindStudent DIDKind = "student"
)

// FormatDID builds did:{method}:{kind}:{id}.
func FormatDID(method string, kind DIDKind, id string) string {
	return fmt.Sprintf("did:%s:%s:%s", method, kind, id)
}

// DIDFromVerificationMethod extracts the DID from a verification method URL.
func DIDFromVerificationMethod(verificationMethod string) (string, error) {
	if verificationMethod == "" {
		return "", fmt.Errorf("verification method is empty")
	}

	didPart, _, found := strings.Cut(verificationMethod, "#")
	if !found || didPart == "" {
		return "", fmt.Errorf("invalid verification method URL, could not extract DID: %s", verificationMethod)
	}
	if !strings.HasPrefix(didPart, "did:") {
		return "", fmt.Errorf("extracted DID '%s' is invalid, must start with 'did:'", didPart)
	}
	return didPart, nil
}
