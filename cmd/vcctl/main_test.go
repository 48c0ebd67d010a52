package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/anam145/go-credential-sdk/credential/ledger/memory"
)

type cli struct {
	t   *testing.T
	dir string
	cfg string
}

func newCLI(t *testing.T, ledgerURL string) *cli {
	t.Helper()
	dir := t.TempDir()
	ledger := "kind: memory"
	if ledgerURL != "" {
		ledger = fmt.Sprintf("kind: http\n  url: %s", ledgerURL)
	}
	cfg := filepath.Join(dir, "vcctl.yaml")
	body := fmt.Sprintf("app:\n  log_level: error\nledger:\n  %s\nkeystore:\n  kind: file\n  dir: %s\n", ledger, filepath.Join(dir, "keys"))
	require.NoError(t, os.WriteFile(cfg, []byte(body), 0o600))
	return &cli{t: t, dir: dir, cfg: cfg}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--config", c.cfg, "--env-file", filepath.Join(c.dir, "missing.env")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *cli) write(name string, data []byte) string {
	c.t.Helper()
	path := filepath.Join(c.dir, name)
	require.NoError(c.t, os.WriteFile(path, data, 0o600))
	return path
}

func decode(t *testing.T, out string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &m), out)
	return m
}

func TestIssuePresentVerify(t *testing.T) {
	srv := httptest.NewServer(newLedgerRouter(memory.New(), prometheus.NewRegistry(), zap.NewNop()))
	t.Cleanup(srv.Close)
	c := newCLI(t, srv.URL)

	out, err := c.run("keygen", "--role", "issuer", "--register")
	require.NoError(t, err)
	issuer := decode(t, out)
	issuerDID := issuer["did"].(string)
	assert.True(t, strings.HasPrefix(issuerDID, "did:anam145:issuer:"))
	assert.FileExists(t, issuer["wallet"].(string))

	out, err = c.run("keygen", "--role", "holder", "--register")
	require.NoError(t, err)
	holderDID := decode(t, out)["did"].(string)

	unsigned := c.write("unsigned.json", []byte(fmt.Sprintf(`{"@context":["https://www.w3.org/ns/credentials/v2"],`+
		`"type":["VerifiableCredential","DriverLicenseVC"],"issuer":{"id":%q,"name":"Government24"},`+
		`"issuanceDate":"2025-01-01T00:00:00.000Z","credentialSubject":{"licenseId":"did:anam145:license:1"}}`, issuerDID)))

	out, err = c.run("sign", "--in", unsigned, "--store")
	require.NoError(t, err)
	signed := decode(t, out)
	credID := signed["id"].(string)
	assert.NotEmpty(t, signed["proof"])
	signedPath := c.write("signed.json", []byte(out))

	out, err = c.run("verify", "--in", signedPath)
	require.NoError(t, err, out)
	assert.Equal(t, "valid", decode(t, out)["reason"])

	out, err = c.run("present", "--vc-id", credID, "--holder", holderDID, "--challenge", "abc123")
	require.NoError(t, err)
	presented := decode(t, out)
	assert.Equal(t, "abc123", presented["challenge"])
	vpJSON, err := json.Marshal(presented["vp"])
	require.NoError(t, err)
	vpPath := c.write("vp.json", vpJSON)

	out, err = c.run("verify", "--in", vpPath, "--challenge", "abc123")
	require.NoError(t, err, out)
	res := decode(t, out)
	assert.Equal(t, true, res["valid"])
	assert.Equal(t, "presentation", res["kind"])
	assert.Equal(t, holderDID, res["signer"])

	out, err = c.run("verify", "--in", vpPath, "--challenge", "other")
	assert.ErrorContains(t, err, "challenge mismatch")
	assert.Equal(t, "challenge mismatch", decode(t, out)["reason"])

	out, err = c.run("present", "--in", signedPath, "--holder", holderDID)
	require.NoError(t, err)
	assert.NotEmpty(t, decode(t, out)["challenge"])
}

func TestCanonicalize(t *testing.T) {
	c := newCLI(t, "")
	vpPath := c.write("vp.json", []byte(`{"@context":["https://www.w3.org/ns/credentials/v2"],`+
		`"type":["VerifiablePresentation"],"holder":"did:x:user:7",`+
		`"verifiableCredential":{"id":"https://y/z","proof":{"proofValue":"ab=="}},`+
		`"proof":{"challenge":"abc123"}}`))

	out, err := c.run("canonicalize", "--in", vpPath, "--profile", "mobile-legacy")
	require.NoError(t, err)
	assert.Equal(t, `{"@context":["https:\/\/www.w3.org\/ns\/credentials\/v2"],"holder":"did:x:user:7",`+
		`"type":["VerifiablePresentation"],"verifiableCredential":{"id":"https:\/\/y\/z","proof":{"proofValue":"ab\u003d\u003d"}}}abc123`+"\n", out)

	out, err = c.run("canonicalize", "--in", vpPath, "--challenge", "zzz")
	require.NoError(t, err)
	assert.NotContains(t, out, "zzz")
	assert.Contains(t, out, `"holder":"did:x:user:7"`)

	credPath := c.write("vc.json", []byte(`{"type":["VerifiableCredential"],"issuer":"did:x:issuer:1","@context":["c"],"proof":{"proofValue":"x"}}`))
	out, err = c.run("canonicalize", "--in", credPath)
	require.NoError(t, err)
	assert.Equal(t, `{"@context":["c"],"issuer":"did:x:issuer:1","type":["VerifiableCredential"]}`+"\n", out)

	out, err = c.run("canonicalize", "--in", credPath, "--digest")
	require.NoError(t, err)
	assert.Len(t, strings.TrimSpace(out), 64)
}

func TestDemo(t *testing.T) {
	c := newCLI(t, "")

	out, err := c.run("demo")
	require.NoError(t, err)
	res := decode(t, out)
	assert.Equal(t, true, res["valid"])
	assert.True(t, strings.HasPrefix(res["subject"].(string), "did:anam145:license:"))

	out, err = c.run("demo", "--student")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(decode(t, out)["subject"].(string), "did:anam145:student:"))
}

func TestUnknownProfile(t *testing.T) {
	c := newCLI(t, "")
	_, err := c.run("canonicalize", "--profile", "desktop")
	assert.ErrorContains(t, err, "unknown canonical profile")
}
