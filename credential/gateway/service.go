// Package gateway runs the issuance and presentation flows of a credential
// service on top of a ledger, a key store, a signer and a verifier.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anam145/go-credential-sdk/credential/common/crypto"
	"github.com/anam145/go-credential-sdk/credential/common/model"
	"github.com/anam145/go-credential-sdk/credential/common/provider"
	"github.com/anam145/go-credential-sdk/credential/common/sdkerr"
	"github.com/anam145/go-credential-sdk/credential/common/util"
	"github.com/anam145/go-credential-sdk/credential/keystore"
	"github.com/anam145/go-credential-sdk/credential/signer"
	"github.com/anam145/go-credential-sdk/credential/vc"
	"github.com/anam145/go-credential-sdk/credential/verifier"
	"github.com/anam145/go-credential-sdk/credential/vp"
	"github.com/anam145/go-credential-sdk/internal/logger"
)

// Credential types issued by the gateway.
const (
	TypeDriverLicense = "DriverLicenseVC"
	TypeStudentCard   = "StudentCardVC"
)

const (
	contextCredentialsV2 = "https://www.w3.org/ns/credentials/v2"
	typeCredential       = "VerifiableCredential"
	typePresentation     = "VerifiablePresentation"

	studentCardValidity = 4 * 365 * 24 * time.Hour
	defaultBatchLimit   = 8
)

// Ledger is the registry the gateway reads and writes.
type Ledger interface {
	provider.Ledger
	provider.DIDRegistry
}

// KeyStore keeps the keys the gateway generates.
type KeyStore interface {
	provider.KeyStore
	Put(km *model.KeyMaterial) error
}

// Config names the gateway's DID method and issuing identity.
type Config struct {
	Method     string
	IssuerDID  string
	IssuerName string
}

// Service implements the gateway flows.
type Service struct {
	cfg        Config
	ledger     Ledger
	keys       KeyStore
	signer     *signer.Signer
	verifier   *verifier.Verifier
	metrics    *Metrics
	log        *zap.Logger
	now        func() time.Time
	batchLimit int

	// issuerMu guards cfg.IssuerDID, which RegisterIssuer may set once.
	issuerMu sync.RWMutex
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics sets the collectors outcomes are recorded in.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithClock overrides the time source used for DID documents and validity.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithBatchLimit bounds concurrent verifications in VerifyBatch.
func WithBatchLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchLimit = n
		}
	}
}

// New creates a Service.
func New(cfg Config, ledger Ledger, keys KeyStore, sgn *signer.Signer, vrf *verifier.Verifier, opts ...Option) (*Service, error) {
	if ledger == nil || keys == nil || sgn == nil || vrf == nil {
		return nil, fmt.Errorf("gateway needs a ledger, a key store, a signer and a verifier")
	}
	if cfg.Method == "" {
		return nil, fmt.Errorf("DID method is required")
	}
	s := &Service{
		cfg:        cfg,
		ledger:     ledger,
		keys:       keys,
		signer:     sgn,
		verifier:   vrf,
		metrics:    NewMetrics(nil),
		log:        zap.NewNop(),
		now:        time.Now,
		batchLimit: defaultBatchLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// IssuerDID returns the DID the service issues credentials as.
func (s *Service) IssuerDID() string {
	s.issuerMu.RLock()
	defer s.issuerMu.RUnlock()
	return s.cfg.IssuerDID
}

// RegisterUser creates a holder key pair and registers its USER DID.
func (s *Service) RegisterUser(ctx context.Context) (*model.KeyMaterial, error) {
	return s.register(ctx, model.RoleHolder, util.DIDKindUser, model.DIDTypeUser)
}

// RegisterIssuer creates an issuer key pair and registers its ISSUER DID.
// The first issuer registered becomes the service's issuing identity when
// none was configured.
func (s *Service) RegisterIssuer(ctx context.Context) (*model.KeyMaterial, error) {
	km, err := s.register(ctx, model.RoleIssuer, util.DIDKindIssuer, model.DIDTypeIssuer)
	if err != nil {
		return nil, err
	}
	s.issuerMu.Lock()
	if s.cfg.IssuerDID == "" {
		s.cfg.IssuerDID = km.DID
	}
	s.issuerMu.Unlock()
	return km, nil
}

func (s *Service) register(ctx context.Context, role model.Role, kind util.DIDKind, didType string) (*model.KeyMaterial, error) {
	id, err := util.RandomID()
	if err != nil {
		return nil, err
	}
	did := util.FormatDID(s.cfg.Method, kind, id)

	km, err := keystore.Generate(role, did)
	if err != nil {
		return nil, err
	}
	pem, err := crypto.Base64ToPEM(km.PublicKey, crypto.ClassPublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to armor public key: %w", err)
	}
	doc := model.NewDIDDocument(did, didType, pem, util.FormatTimestamp(s.now()))
	if err := s.ledger.PutDIDDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to register DID: %w", err)
	}
	if err := s.keys.Put(km); err != nil {
		return nil, fmt.Errorf("failed to store key: %w", err)
	}
	s.log.Info("DID registered", logger.DID(did), zap.String("type", didType))
	return km, nil
}

// LicenseRequest describes a driver licence to issue.
type LicenseRequest struct {
	HolderDID     string
	LicenseNumber string
	LicenseType   string
}

// StudentRequest describes a student card to issue.
type StudentRequest struct {
	HolderDID     string
	Name          string
	StudentNumber string
	University    string
	Department    string
}

// Issued is a credential together with the DID of the thing it attests.
type Issued struct {
	SubjectDID string
	Credential *vc.Credential
}

// IssueDriverLicense registers a LICENSE DID held by the holder and issues
// a DriverLicenseVC about it.
func (s *Service) IssueDriverLicense(ctx context.Context, req LicenseRequest) (*Issued, error) {
	if req.LicenseNumber == "" {
		req.LicenseNumber = "A-123-456-7890"
	}
	if req.LicenseType == "" {
		req.LicenseType = "regular"
	}
	subjectDID, err := s.registerSubject(ctx, util.DIDKindLicense, model.DIDTypeLicense, req.HolderDID, map[string]interface{}{
		"licenseNumber": req.LicenseNumber,
		"licenseType":   req.LicenseType,
	})
	if err != nil {
		return nil, err
	}

	cred, err := s.issue(ctx, TypeDriverLicense, vc.CredentialContents{
		Subject: []vc.Subject{{CustomFields: map[string]interface{}{"licenseId": subjectDID}}},
	})
	if err != nil {
		return nil, err
	}
	return &Issued{SubjectDID: subjectDID, Credential: cred}, nil
}

// IssueStudentCard registers a STUDENT DID held by the holder and issues a
// StudentCardVC valid for four years.
func (s *Service) IssueStudentCard(ctx context.Context, req StudentRequest) (*Issued, error) {
	if req.StudentNumber == "" {
		req.StudentNumber = "2023000000"
	}
	if req.University == "" {
		req.University = "Korea University"
	}
	if req.Department == "" {
		req.Department = "Graduate School of Information Security"
	}
	subjectDID, err := s.registerSubject(ctx, util.DIDKindStudent, model.DIDTypeStudent, req.HolderDID, map[string]interface{}{
		"studentNumber": req.StudentNumber,
		"university":    req.University,
		"department":    req.Department,
	})
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{
		"studentId":     subjectDID,
		"studentNumber": req.StudentNumber,
		"university":    req.University,
		"department":    req.Department,
	}
	if req.Name != "" {
		fields["name"] = req.Name
	}
	now := s.now()
	cred, err := s.issue(ctx, TypeStudentCard, vc.CredentialContents{
		ValidFrom:  now,
		ValidUntil: now.Add(studentCardValidity),
		Subject:    []vc.Subject{{CustomFields: fields}},
	})
	if err != nil {
		return nil, err
	}
	return &Issued{SubjectDID: subjectDID, Credential: cred}, nil
}

// registerSubject records the attested thing as a DID controlled by the
// issuer and held by the holder. Its verification method is the issuer's key.
func (s *Service) registerSubject(ctx context.Context, kind util.DIDKind, didType, holderDID string, info map[string]interface{}) (string, error) {
	if holderDID == "" {
		return "", fmt.Errorf("%w: holder DID is required", sdkerr.ErrInvalidStructure)
	}
	issuerDID := s.IssuerDID()
	if issuerDID == "" {
		return "", fmt.Errorf("%w: no issuer configured", sdkerr.ErrKeyNotFound)
	}
	holder, err := s.ledger.GetDIDDocument(ctx, holderDID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve holder DID: %w", err)
	}
	if holder.Status == model.DIDStatusRevoked {
		return "", fmt.Errorf("holder DID '%s' is revoked", holderDID)
	}
	issuer, err := s.ledger.GetDIDDocument(ctx, issuerDID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve issuer DID: %w", err)
	}
	if len(issuer.VerificationMethod) == 0 {
		return "", fmt.Errorf("%w: issuer DID has no verification method", sdkerr.ErrKeyNotFound)
	}

	id, err := util.RandomID()
	if err != nil {
		return "", err
	}
	did := util.FormatDID(s.cfg.Method, kind, id)
	doc := model.NewDIDDocument(did, didType, issuer.VerificationMethod[0].PublicKeyPem, util.FormatTimestamp(s.now()))
	doc.Controller = issuerDID
	doc.Holder = holderDID
	doc.VerificationMethod[0].Controller = issuerDID
	doc.AdditionalInfo = info
	if err := s.ledger.PutDIDDocument(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to register DID: %w", err)
	}
	return did, nil
}

func (s *Service) issue(ctx context.Context, credentialType string, contents vc.CredentialContents) (*vc.Credential, error) {
	contents.Context = []interface{}{contextCredentialsV2}
	contents.Types = []string{typeCredential, credentialType}
	issuerDID := s.IssuerDID()
	contents.Issuer = vc.Issuer{ID: issuerDID, Name: s.cfg.IssuerName}
	contents.IssuanceDate = s.now()

	unsigned, err := vc.NewCredential(contents)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	signed, err := s.signer.SignCredential(ctx, unsigned)
	s.metrics.observeSigning(start)
	if err != nil {
		return nil, fmt.Errorf("failed to sign credential: %w", err)
	}
	data, err := signed.JSON()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize credential: %w", err)
	}
	if err := s.ledger.PutCredential(ctx, data); err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}

	s.metrics.incIssued(credentialType)
	s.log.Info("credential issued",
		logger.CredentialID(signed.ID()),
		logger.DID(issuerDID),
		zap.String("type", credentialType))
	return signed, nil
}

// Present builds a presentation of the stored credential credentialID for
// holderDID and signs it. An empty challenge is replaced by a fresh one,
// which is returned alongside the presentation.
func (s *Service) Present(ctx context.Context, holderDID, credentialID, challenge string) (*vp.Presentation, string, error) {
	if holderDID == "" || credentialID == "" {
		return nil, "", fmt.Errorf("%w: holder DID and credential id are required", sdkerr.ErrInvalidStructure)
	}
	if challenge == "" {
		fresh, err := util.RandomID()
		if err != nil {
			return nil, "", err
		}
		challenge = fresh
	}

	raw, err := s.ledger.GetCredential(ctx, credentialID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load credential: %w", err)
	}
	cred, err := vc.ParseCredential(raw)
	if err != nil {
		return nil, "", err
	}
	unsigned, err := vp.NewPresentation(vp.PresentationContents{
		Context:               []interface{}{contextCredentialsV2},
		Types:                 []string{typePresentation},
		Holder:                holderDID,
		VerifiableCredentials: []*vc.Credential{cred},
	})
	if err != nil {
		return nil, "", err
	}

	start := time.Now()
	signed, err := s.signer.SignPresentation(ctx, unsigned, challenge)
	s.metrics.observeSigning(start)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign presentation: %w", err)
	}
	s.log.Debug("presentation created", logger.DID(holderDID), logger.CredentialID(credentialID))
	return signed, challenge, nil
}

// VerifyPresentation verifies a serialized presentation or credential
// against the challenge issued for the session.
func (s *Service) VerifyPresentation(ctx context.Context, raw []byte, challenge string) (*verifier.Result, error) {
	res, err := s.verifier.VerifyJSON(ctx, raw, challenge)
	s.record(res, err)
	return res, err
}

func (s *Service) record(res *verifier.Result, err error) {
	if res == nil {
		return
	}
	s.metrics.observeVerification(res)
	fields := []zap.Field{
		logger.Kind(res.Kind.String()),
		logger.Reason(string(res.Reason)),
		logger.Stage(res.Stage.String()),
		logger.DID(res.SignerDID),
	}
	switch {
	case err != nil:
		s.log.Warn("verification could not complete", append(fields, logger.Err(err))...)
	case !res.Valid:
		s.log.Info("verification rejected", append(fields, zap.String("detail", res.Detail))...)
	default:
		s.log.Debug("verification passed", fields...)
	}
}

// CredentialStatus asks the ledger for the status of a stored credential.
func (s *Service) CredentialStatus(ctx context.Context, credentialID string) (*model.CredentialStatus, error) {
	status, err := s.ledger.GetCredentialStatus(ctx, credentialID)
	if errors.Is(err, sdkerr.ErrNotFound) {
		return &model.CredentialStatus{ID: credentialID, Reason: model.StatusReasonNotFound}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check credential status: %w", err)
	}
	return status, nil
}

// BatchItem is one document submitted to VerifyBatch.
type BatchItem struct {
	Raw       []byte
	Challenge string
}

// BatchResult is the outcome of one BatchItem. Err is set exactly when
// Result.Reason is "error".
type BatchResult struct {
	Result *verifier.Result
	Err    error
}

// VerifyBatch verifies items concurrently. Results are in item order. A
// failing item does not stop the others; the returned error is only set
// when ctx is done before all items were checked.
func (s *Service) VerifyBatch(ctx context.Context, items []BatchItem) ([]BatchResult, error) {
	results := make([]BatchResult, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchLimit)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.VerifyPresentation(gctx, item.Raw, item.Challenge)
			results[i] = BatchResult{Result: res, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
