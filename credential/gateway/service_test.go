package gateway

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	credentialstatus "github.com/anam145/go-credential-sdk/credential/common/credential-status"
	"github.com/anam145/go-credential-sdk/credential/common/model"
	"github.com/anam145/go-credential-sdk/credential/common/sdkerr"
	verificationmethod "github.com/anam145/go-credential-sdk/credential/common/verification-method"
	"github.com/anam145/go-credential-sdk/credential/keystore"
	"github.com/anam145/go-credential-sdk/credential/ledger/memory"
	"github.com/anam145/go-credential-sdk/credential/signer"
	"github.com/anam145/go-credential-sdk/credential/verifier"
)

type fixture struct {
	svc     *Service
	ledger  *memory.Ledger
	metrics *Metrics
	logs    *observer.ObservedLogs
	holder  *model.KeyMaterial
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ledger := memory.New()
	keys, err := keystore.NewMemory()
	require.NoError(t, err)
	core, logs := observer.New(zap.DebugLevel)
	metrics := NewMetrics(prometheus.NewRegistry())
	now := time.Now().UTC().Truncate(time.Millisecond)

	svc, err := New(
		Config{Method: "anam145", IssuerName: "Government24"},
		ledger,
		keys,
		signer.New(keys),
		verifier.New(verificationmethod.NewResolver(ledger), credentialstatus.NewChecker(ledger, 0)),
		WithLogger(zap.New(core)),
		WithMetrics(metrics),
		WithClock(func() time.Time { return now }),
	)
	require.NoError(t, err)

	ctx := context.Background()
	issuer, err := svc.RegisterIssuer(ctx)
	require.NoError(t, err)
	assert.Equal(t, issuer.DID, svc.IssuerDID())
	holder, err := svc.RegisterUser(ctx)
	require.NoError(t, err)

	return &fixture{svc: svc, ledger: ledger, metrics: metrics, logs: logs, holder: holder, now: now}
}

func TestNew_Validation(t *testing.T) {
	ledger := memory.New()
	keys, err := keystore.NewMemory()
	require.NoError(t, err)
	sgn := signer.New(keys)
	vrf := verifier.New(verificationmethod.NewResolver(ledger), nil)

	_, err = New(Config{Method: "anam145"}, nil, keys, sgn, vrf)
	assert.Error(t, err)
	_, err = New(Config{}, ledger, keys, sgn, vrf)
	assert.ErrorContains(t, err, "DID method is required")
}

func TestRegister(t *testing.T) {
	f := newFixture(t)

	assert.True(t, strings.HasPrefix(f.holder.DID, "did:anam145:user:"))
	doc, err := f.ledger.GetDIDDocument(context.Background(), f.holder.DID)
	require.NoError(t, err)
	assert.Equal(t, model.DIDTypeUser, doc.Type)
	assert.Contains(t, doc.VerificationMethod[0].PublicKeyPem, "BEGIN PUBLIC KEY")
	assert.Equal(t, 2, f.logs.FilterMessage("DID registered").Len())
}

func TestIssueDriverLicense(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	issued, err := f.svc.IssueDriverLicense(ctx, LicenseRequest{HolderDID: f.holder.DID})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(issued.SubjectDID, "did:anam145:license:"))

	doc, err := f.ledger.GetDIDDocument(ctx, issued.SubjectDID)
	require.NoError(t, err)
	assert.Equal(t, model.DIDTypeLicense, doc.Type)
	assert.Equal(t, f.holder.DID, doc.Holder)
	assert.Equal(t, f.svc.IssuerDID(), doc.Controller)
	assert.Equal(t, "A-123-456-7890", doc.AdditionalInfo["licenseNumber"])

	cred := issued.Credential
	assert.True(t, cred.IsSigned())
	assert.Equal(t, f.svc.IssuerDID(), cred.IssuerDID())
	contents, err := cred.Contents()
	require.NoError(t, err)
	assert.Equal(t, []string{"VerifiableCredential", TypeDriverLicense}, contents.Types)
	assert.Equal(t, "Government24", contents.Issuer.Name)
	assert.Equal(t, issued.SubjectDID, contents.Subject[0].CustomFields["licenseId"])

	stored, err := f.ledger.GetCredential(ctx, cred.ID())
	require.NoError(t, err)
	data, err := cred.JSON()
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(stored))

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Issued.WithLabelValues(TypeDriverLicense)))
	assert.Equal(t, 1, testutil.CollectAndCount(f.metrics.SigningDuration))
}

func TestIssueStudentCard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	issued, err := f.svc.IssueStudentCard(ctx, StudentRequest{HolderDID: f.holder.DID, StudentNumber: "2023572504"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(issued.SubjectDID, "did:anam145:student:"))

	until, ok := issued.Credential.ValidUntil()
	require.True(t, ok)
	assert.True(t, until.Equal(f.now.Add(4*365*24*time.Hour)))

	contents, err := issued.Credential.Contents()
	require.NoError(t, err)
	assert.True(t, contents.ValidFrom.Equal(f.now))
	fields := contents.Subject[0].CustomFields
	assert.Equal(t, issued.SubjectDID, fields["studentId"])
	assert.Equal(t, "2023572504", fields["studentNumber"])
	assert.Equal(t, "Korea University", fields["university"])

	status, err := f.svc.CredentialStatus(ctx, issued.Credential.ID())
	require.NoError(t, err)
	assert.True(t, status.Valid)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Issued.WithLabelValues(TypeStudentCard)))
}

func TestIssue_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.IssueDriverLicense(ctx, LicenseRequest{})
	assert.ErrorIs(t, err, sdkerr.ErrInvalidStructure)

	_, err = f.svc.IssueStudentCard(ctx, StudentRequest{HolderDID: "did:anam145:user:nobody"})
	assert.ErrorIs(t, err, sdkerr.ErrNotFound)

	require.NoError(t, f.ledger.RevokeDID(ctx, f.holder.DID))
	_, err = f.svc.IssueDriverLicense(ctx, LicenseRequest{HolderDID: f.holder.DID})
	assert.ErrorContains(t, err, "is revoked")
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.Issued.WithLabelValues(TypeDriverLicense)))
}

func TestPresentAndVerify(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	issued, err := f.svc.IssueDriverLicense(ctx, LicenseRequest{HolderDID: f.holder.DID})
	require.NoError(t, err)

	p, challenge, err := f.svc.Present(ctx, f.holder.DID, issued.Credential.ID(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, challenge)
	assert.Equal(t, f.holder.DID, p.Holder())
	proof, err := p.Proof()
	require.NoError(t, err)
	assert.Equal(t, challenge, proof.Challenge)

	raw, err := p.JSON()
	require.NoError(t, err)

	res, err := f.svc.VerifyPresentation(ctx, raw, challenge)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, verifier.ReasonValid, res.Reason)

	res, err = f.svc.VerifyPresentation(ctx, raw, "other")
	require.NoError(t, err)
	assert.Equal(t, verifier.ReasonChallengeMismatch, res.Reason)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Verifications.WithLabelValues("presentation", "valid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Verifications.WithLabelValues("presentation", "challenge mismatch")))
	assert.Equal(t, 1, f.logs.FilterMessage("verification rejected").Len())

	supplied, got, err := f.svc.Present(ctx, f.holder.DID, issued.Credential.ID(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", got)
	raw, err = supplied.JSON()
	require.NoError(t, err)
	res, err = f.svc.VerifyPresentation(ctx, raw, "abc123")
	require.NoError(t, err)
	assert.True(t, res.Valid)

	_, _, err = f.svc.Present(ctx, f.holder.DID, "missing", "")
	assert.ErrorIs(t, err, sdkerr.ErrNotFound)
	_, _, err = f.svc.Present(ctx, "", issued.Credential.ID(), "")
	assert.ErrorIs(t, err, sdkerr.ErrInvalidStructure)
}

func TestPresent_EmbedsStoredBytes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	stored := `{"proof":{"type":"Secp256r1Signature2018","verificationMethod":"` + f.svc.IssuerDID() + `#keys-1",` +
		`"proofPurpose":"assertionMethod","proofValue":"MEUCIQ\u003d\u003d"},` +
		`"issuer":"` + f.svc.IssuerDID() + `","id":"urn:uuid:7d1f","credentialSubject":{"url":"https:\/\/x"}}`
	require.NoError(t, f.ledger.PutCredential(ctx, []byte(stored)))

	p, _, err := f.svc.Present(ctx, f.holder.DID, "urn:uuid:7d1f", "abc123")
	require.NoError(t, err)
	raw, err := p.JSON()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"verifiableCredential":`+stored)
}

func TestRegisterIssuer_Concurrent(t *testing.T) {
	ctx := context.Background()
	ledger := memory.New()
	keys, err := keystore.NewMemory()
	require.NoError(t, err)
	svc, err := New(Config{Method: "anam145"}, ledger, keys, signer.New(keys),
		verifier.New(verificationmethod.NewResolver(ledger), nil))
	require.NoError(t, err)
	holder, err := svc.RegisterUser(ctx)
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		issuers = map[string]bool{}
		issued  []*Issued
	)
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			km, err := svc.RegisterIssuer(ctx)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			issuers[km.DID] = true
			mu.Unlock()
		}()
		go func() {
			defer wg.Done()
			out, err := svc.IssueDriverLicense(ctx, LicenseRequest{HolderDID: holder.DID})
			if err != nil {
				assert.ErrorIs(t, err, sdkerr.ErrKeyNotFound)
				return
			}
			mu.Lock()
			issued = append(issued, out)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.True(t, issuers[svc.IssuerDID()])
	for _, out := range issued {
		assert.Equal(t, svc.IssuerDID(), out.Credential.IssuerDID())
	}
}

func TestVerifyPresentation_RevokedCredential(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	issued, err := f.svc.IssueDriverLicense(ctx, LicenseRequest{HolderDID: f.holder.DID})
	require.NoError(t, err)
	p, challenge, err := f.svc.Present(ctx, f.holder.DID, issued.Credential.ID(), "")
	require.NoError(t, err)
	raw, err := p.JSON()
	require.NoError(t, err)

	require.NoError(t, f.ledger.RevokeCredential(ctx, issued.Credential.ID()))

	res, err := f.svc.VerifyPresentation(ctx, raw, challenge)
	require.NoError(t, err)
	assert.Equal(t, verifier.ReasonCredentialInvalid, res.Reason)

	status, err := f.svc.CredentialStatus(ctx, issued.Credential.ID())
	require.NoError(t, err)
	assert.False(t, status.Valid)
	assert.Equal(t, model.StatusReasonRevoked, status.Reason)

	status, err = f.svc.CredentialStatus(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, status.Valid)
	assert.Equal(t, model.StatusReasonNotFound, status.Reason)
}

func TestVerifyBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	issued, err := f.svc.IssueDriverLicense(ctx, LicenseRequest{HolderDID: f.holder.DID})
	require.NoError(t, err)
	p, challenge, err := f.svc.Present(ctx, f.holder.DID, issued.Credential.ID(), "")
	require.NoError(t, err)
	raw, err := p.JSON()
	require.NoError(t, err)
	tampered := []byte(strings.Replace(string(raw), f.holder.DID+`"`, f.holder.DID+`x"`, 1))
	credRaw, err := issued.Credential.JSON()
	require.NoError(t, err)

	results, err := f.svc.VerifyBatch(ctx, []BatchItem{
		{Raw: raw, Challenge: challenge},
		{Raw: raw, Challenge: "nope"},
		{Raw: []byte(`{`)},
		{Raw: credRaw},
		{Raw: tampered, Challenge: challenge},
	})
	require.NoError(t, err)
	require.Len(t, results, 5)

	assert.Equal(t, verifier.ReasonValid, results[0].Result.Reason)
	assert.Equal(t, verifier.ReasonChallengeMismatch, results[1].Result.Reason)
	assert.Equal(t, verifier.ReasonInvalidStructure, results[2].Result.Reason)
	assert.Equal(t, verifier.ReasonValid, results[3].Result.Reason)
	assert.False(t, results[4].Result.Valid)
	for _, r := range results {
		assert.NoError(t, r.Err)
	}
}

func TestVerifyBatch_Cancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.VerifyBatch(ctx, []BatchItem{{Raw: []byte(`{}`)}})
	assert.ErrorIs(t, err, context.Canceled)
}
