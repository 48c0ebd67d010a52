package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anam145/go-credential-sdk/credential/common/model"
	"github.com/anam145/go-credential-sdk/credential/common/sdkerr"
)

const issuerDID = "did:anam145:issuer:gov"

func signedCredentialJSON(id, issuer, validUntil string) []byte {
	until := ""
	if validUntil != "" {
		until = fmt.Sprintf(`,"validUntil":%q`, validUntil)
	}
	return []byte(fmt.Sprintf(`{"@context":["https://www.w3.org/ns/credentials/v2"],"id":%q,`+
		`"type":["VerifiableCredential"],"issuer":{"id":%q},"credentialSubject":{"licenseId":"did:anam145:license:1"}%s,`+
		`"proof":{"type":"Secp256r1Signature2018","created":"2025-01-01T00:00:00.000Z",`+
		`"verificationMethod":"%s#keys-1","proofPurpose":"assertionMethod","proofValue":"c2ln"}}`,
		id, issuer, until, issuer))
}

func newLedger(t *testing.T, now time.Time) *Ledger {
	t.Helper()
	l := New(WithClock(func() time.Time { return now }))
	require.NoError(t, l.PutDIDDocument(context.Background(),
		model.NewDIDDocument(issuerDID, model.DIDTypeIssuer, "pem", "2025-01-01T00:00:00.000Z")))
	return l
}

func TestDIDDocuments(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, time.Now())

	doc, err := l.GetDIDDocument(ctx, issuerDID)
	require.NoError(t, err)
	assert.Equal(t, issuerDID+"#keys-1", doc.VerificationMethod[0].ID)

	doc.VerificationMethod[0].PublicKeyPem = "changed"
	again, err := l.GetDIDDocument(ctx, issuerDID)
	require.NoError(t, err)
	assert.Equal(t, "pem", again.VerificationMethod[0].PublicKeyPem)

	err = l.PutDIDDocument(ctx, model.NewDIDDocument(issuerDID, model.DIDTypeIssuer, "pem", ""))
	assert.ErrorContains(t, err, "already exists")

	_, err = l.GetDIDDocument(ctx, "did:anam145:user:none")
	assert.ErrorIs(t, err, sdkerr.ErrNotFound)
}

func TestPutCredential_Idempotent(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, time.Now())

	first := signedCredentialJSON("vc-1", issuerDID, "")
	require.NoError(t, l.PutCredential(ctx, first))
	require.NoError(t, l.PutCredential(ctx, signedCredentialJSON("vc-1", "did:anam145:issuer:other", "")))

	stored, err := l.GetCredential(ctx, "vc-1")
	require.NoError(t, err)
	assert.Equal(t, first, stored)

	err = l.PutCredential(ctx, []byte(`{"issuer":"did:a"}`))
	assert.ErrorIs(t, err, sdkerr.ErrInvalidStructure)

	_, err = l.GetCredential(ctx, "vc-2")
	assert.ErrorIs(t, err, sdkerr.ErrNotFound)
}

func TestGetCredentialStatus(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		cred       []byte
		setup      func(l *Ledger)
		wantValid  bool
		wantReason string
	}{
		{name: "Valid", cred: signedCredentialJSON("vc", issuerDID, "2027-01-01T00:00:00.000Z"), wantValid: true},
		{
			name:       "Revoked",
			cred:       signedCredentialJSON("vc", issuerDID, ""),
			setup:      func(l *Ledger) { require.NoError(t, l.RevokeCredential(ctx, "vc")) },
			wantReason: model.StatusReasonRevoked,
		},
		{
			name:       "Expired",
			cred:       signedCredentialJSON("vc", issuerDID, "2025-12-31T23:59:59.000Z"),
			wantReason: model.StatusReasonExpired,
		},
		{
			name:       "Unknown issuer",
			cred:       signedCredentialJSON("vc", "did:anam145:issuer:rogue", ""),
			wantReason: model.StatusReasonUnauthorized,
		},
		{
			name:       "Issuer withdrawn",
			cred:       signedCredentialJSON("vc", issuerDID, ""),
			setup:      func(l *Ledger) { l.SetIssuerAuthorized(issuerDID, false) },
			wantReason: model.StatusReasonUnauthorized,
		},
		{
			name:       "Issuer DID revoked",
			cred:       signedCredentialJSON("vc", issuerDID, ""),
			setup:      func(l *Ledger) { require.NoError(t, l.RevokeDID(ctx, issuerDID)) },
			wantReason: model.StatusReasonUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLedger(t, now)
			require.NoError(t, l.PutCredential(ctx, tt.cred))
			if tt.setup != nil {
				tt.setup(l)
			}

			status, err := l.GetCredentialStatus(ctx, "vc")
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, status.Valid)
			assert.Equal(t, tt.wantReason, status.Reason)
		})
	}

	_, err := New().GetCredentialStatus(ctx, "missing")
	assert.ErrorIs(t, err, sdkerr.ErrNotFound)
	assert.ErrorIs(t, New().RevokeCredential(ctx, "missing"), sdkerr.ErrNotFound)
}
