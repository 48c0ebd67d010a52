package httpledger

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anam145/go-credential-sdk/credential/common/model"
	"github.com/anam145/go-credential-sdk/credential/common/sdkerr"
	"github.com/anam145/go-credential-sdk/credential/ledger/memory"
)

const issuerDID = "did:anam145:issuer:gov"

func signedCredential(id string) []byte {
	return []byte(fmt.Sprintf(`{"@context":["https://www.w3.org/ns/credentials/v2"],"id":%q,`+
		`"type":["VerifiableCredential"],"issuer":{"id":%q},"credentialSubject":{"licenseId":"did:anam145:license:1"},`+
		`"proof":{"type":"Secp256r1Signature2018","created":"2025-01-01T00:00:00.000Z",`+
		`"verificationMethod":"%s#keys-1","proofPurpose":"assertionMethod","proofValue":"c2ln"}}`,
		id, issuerDID, issuerDID))
}

func newServer(t *testing.T) (*Client, *memory.Ledger) {
	t.Helper()
	ledger := memory.New()
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	NewHandler(ledger, nil).Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	return c, ledger
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient("not a url")
	assert.ErrorContains(t, err, "base URL invalid")
}

func TestClient_DIDDocuments(t *testing.T) {
	ctx := context.Background()
	c, _ := newServer(t)

	doc := model.NewDIDDocument(issuerDID, model.DIDTypeIssuer, "pem", "2025-01-01T00:00:00.000Z")
	require.NoError(t, c.PutDIDDocument(ctx, doc))

	got, err := c.GetDIDDocument(ctx, issuerDID)
	require.NoError(t, err)
	assert.Equal(t, issuerDID, got.ID)
	require.Len(t, got.VerificationMethod, 1)
	assert.Equal(t, "pem", got.VerificationMethod[0].PublicKeyPem)

	err = c.PutDIDDocument(ctx, doc)
	assert.ErrorContains(t, err, "already exists")

	_, err = c.GetDIDDocument(ctx, "did:anam145:user:none")
	assert.ErrorIs(t, err, sdkerr.ErrNotFound)
}

func TestClient_Credentials(t *testing.T) {
	ctx := context.Background()
	c, ledger := newServer(t)
	require.NoError(t, ledger.PutDIDDocument(ctx,
		model.NewDIDDocument(issuerDID, model.DIDTypeIssuer, "pem", "")))

	raw := signedCredential("urn:uuid:vc-1")
	require.NoError(t, c.PutCredential(ctx, raw))

	stored, err := c.GetCredential(ctx, "urn:uuid:vc-1")
	require.NoError(t, err)
	assert.Equal(t, raw, stored)

	status, err := c.GetCredentialStatus(ctx, "urn:uuid:vc-1")
	require.NoError(t, err)
	assert.True(t, status.Valid)

	require.NoError(t, ledger.RevokeCredential(ctx, "urn:uuid:vc-1"))
	status, err = c.GetCredentialStatus(ctx, "urn:uuid:vc-1")
	require.NoError(t, err)
	assert.False(t, status.Valid)
	assert.Equal(t, model.StatusReasonRevoked, status.Reason)

	_, err = c.GetCredentialStatus(ctx, "urn:uuid:missing")
	assert.ErrorIs(t, err, sdkerr.ErrNotFound)

	err = c.PutCredential(ctx, []byte(`{"issuer":"did:a"}`))
	assert.ErrorIs(t, err, sdkerr.ErrInvalidStructure)
}

func TestClient_Unavailable(t *testing.T) {
	ctx := context.Background()

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		t.Cleanup(srv.Close)
		c, err := NewClient(srv.URL)
		require.NoError(t, err)

		_, err = c.GetDIDDocument(ctx, issuerDID)
		assert.ErrorIs(t, err, sdkerr.ErrUnavailable)
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}))
		t.Cleanup(srv.Close)
		c, err := NewClient(srv.URL, WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))
		require.NoError(t, err)

		_, err = c.GetCredentialStatus(ctx, "urn:uuid:vc-1")
		assert.ErrorIs(t, err, sdkerr.ErrUnavailable)
	})

	t.Run("oversized response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"id":%q,"padding":%q}`, issuerDID, strings.Repeat("a", maxBodyBytes))
		}))
		t.Cleanup(srv.Close)
		c, err := NewClient(srv.URL)
		require.NoError(t, err)

		_, err = c.GetDIDDocument(ctx, issuerDID)
		assert.ErrorIs(t, err, sdkerr.ErrUnavailable)
		assert.ErrorContains(t, err, "exceeds")
	})

	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()
		c, err := NewClient(addr)
		require.NoError(t, err)

		_, err = c.GetCredential(ctx, "urn:uuid:vc-1")
		assert.ErrorIs(t, err, sdkerr.ErrUnavailable)
	})
}

func TestClient_SendsRequestID(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(headerRequestID)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"valid":true}`))
	}))
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL + "/")
	require.NoError(t, err)

	status, err := c.GetCredentialStatus(context.Background(), "urn:uuid:vc-1")
	require.NoError(t, err)
	assert.Equal(t, "urn:uuid:vc-1", status.ID)
	assert.Len(t, got, 36)
}

func TestHandler_EscapedDID(t *testing.T) {
	ledger := memory.New()
	require.NoError(t, ledger.PutDIDDocument(context.Background(),
		model.NewDIDDocument(issuerDID, model.DIDTypeIssuer, "pem", "")))
	r := chi.NewRouter()
	NewHandler(ledger, nil).Register(r)

	req := httptest.NewRequest(http.MethodGet, "/dids/did%3Aanam145%3Aissuer%3Agov", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"did:anam145:issuer:gov"`)
}
