// Package httpledger reaches a ledger over its REST API and serves one.
//
// Routes:
//
//	GET  /dids/{did}        DID document
//	POST /dids              register a DID document
//	GET  /vcs/{id}          stored credential
//	GET  /vcs/{id}/verify   credential status
//	POST /vcs               store a signed credential
package httpledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/anam145/go-credential-sdk/credential/common/model"
	"github.com/anam145/go-credential-sdk/credential/common/sdkerr"
	"github.com/anam145/go-credential-sdk/internal/logger"
)

const (
	headerRequestID = "X-Request-ID"
	maxBodyBytes    = 1 << 20
)

// Client implements provider.Ledger and provider.DIDRegistry against a
// ledger REST API.
type Client struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

// ClientOpt configures a Client.
type ClientOpt func(*Client)

// WithHTTPClient replaces the HTTP client. Its transport is used as is.
func WithHTTPClient(c *http.Client) ClientOpt {
	return func(l *Client) {
		if c != nil {
			l.client = c
		}
	}
}

// WithTimeout bounds each request, response body included.
func WithTimeout(d time.Duration) ClientOpt {
	return func(l *Client) {
		if d > 0 {
			l.client.Timeout = d
		}
	}
}

// WithLogger logs every request at debug level and failures at warn level.
func WithLogger(log *zap.Logger) ClientOpt {
	return func(l *Client) {
		if log != nil {
			l.log = log
		}
	}
}

// NewClient creates a client for the ledger at baseURL. Requests carry
// OpenTelemetry spans and an X-Request-ID header.
func NewClient(baseURL string, opts ...ClientOpt) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("base URL invalid: %w", err)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetDIDDocument fetches the document of did.
func (c *Client) GetDIDDocument(ctx context.Context, did string) (*model.DIDDocument, error) {
	body, err := c.do(ctx, http.MethodGet, "/dids/"+url.PathEscape(did), nil)
	if err != nil {
		return nil, err
	}
	var doc model.DIDDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal DID document JSON: %v", sdkerr.ErrUnavailable, err)
	}
	return &doc, nil
}

// PutDIDDocument registers doc.
func (c *Client) PutDIDDocument(ctx context.Context, doc *model.DIDDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal DID document: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, "/dids", data)
	return err
}

// GetCredentialStatus asks the ledger to evaluate a stored credential.
func (c *Client) GetCredentialStatus(ctx context.Context, credentialID string) (*model.CredentialStatus, error) {
	body, err := c.do(ctx, http.MethodGet, "/vcs/"+url.PathEscape(credentialID)+"/verify", nil)
	if err != nil {
		return nil, err
	}
	var status model.CredentialStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal credential status: %v", sdkerr.ErrUnavailable, err)
	}
	if status.ID == "" {
		status.ID = credentialID
	}
	return &status, nil
}

// PutCredential stores a signed credential.
func (c *Client) PutCredential(ctx context.Context, signed []byte) error {
	_, err := c.do(ctx, http.MethodPost, "/vcs", signed)
	return err
}

// GetCredential returns the stored bytes of a credential.
func (c *Client) GetCredential(ctx context.Context, credentialID string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/vcs/"+url.PathEscape(credentialID), nil)
}

// do sends one request. 404 maps to sdkerr.ErrNotFound, 400 to
// sdkerr.ErrInvalidStructure; transport failures and 5xx map to
// sdkerr.ErrUnavailable.
func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build ledger request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set(headerRequestID, requestID)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := c.log.With(logger.RequestID(requestID), logger.Method(method), logger.Path(path))
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		log.Warn("ledger request failed", logger.Err(err), logger.Duration(time.Since(start)))
		return nil, fmt.Errorf("%w: ledger request failed: %v", sdkerr.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read ledger response: %v", sdkerr.ErrUnavailable, err)
	}
	if len(body) > maxBodyBytes {
		log.Warn("ledger response too large", logger.Status(resp.StatusCode))
		return nil, fmt.Errorf("%w: ledger response exceeds %d bytes", sdkerr.ErrUnavailable, maxBodyBytes)
	}
	log.Debug("ledger request", logger.Status(resp.StatusCode), logger.Duration(time.Since(start)))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", sdkerr.ErrNotFound, errorMessage(body, resp.Status))
	case resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", sdkerr.ErrInvalidStructure, errorMessage(body, resp.Status))
	case resp.StatusCode >= 500:
		log.Warn("ledger unavailable", logger.Status(resp.StatusCode))
		return nil, fmt.Errorf("%w: ledger returned %s", sdkerr.ErrUnavailable, resp.Status)
	default:
		return nil, fmt.Errorf("ledger returned %s: %s", resp.Status, errorMessage(body, resp.Status))
	}
}

func errorMessage(body []byte, fallback string) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return fallback
}
