package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/anam145/go-credential-sdk/credential/common/crypto"
	"github.com/anam145/go-credential-sdk/credential/common/model"
	"github.com/anam145/go-credential-sdk/credential/common/util"
	"github.com/anam145/go-credential-sdk/credential/keystore"
	"github.com/anam145/go-credential-sdk/credential/signer"
	"github.com/anam145/go-credential-sdk/credential/vc"
	"github.com/anam145/go-credential-sdk/credential/verifier"
	"github.com/anam145/go-credential-sdk/credential/vp"
)

func newKeygenCmd(a *app) *cobra.Command {
	var (
		role     string
		did      string
		register bool
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a P-256 key pair for an issuer or holder",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, kind, err := parseRole(role)
			if err != nil {
				return err
			}
			if did == "" {
				id, err := util.RandomID()
				if err != nil {
					return err
				}
				did = util.FormatDID(a.cfg.DID.Method, kind, id)
			}
			km, err := keystore.Generate(r, did)
			if err != nil {
				return err
			}
			pem, err := crypto.Base64ToPEM(km.PublicKey, crypto.ClassPublicKey)
			if err != nil {
				return err
			}

			keys, err := a.keyStore()
			if err != nil {
				return err
			}
			out := map[string]interface{}{"did": km.DID, "keyId": model.VerificationMethodID(km.DID), "publicKeyPem": pem}
			if f, ok := keys.(*keystore.File); ok {
				path, err := f.Save(km)
				if err != nil {
					return err
				}
				out["wallet"] = path
			} else if err := keys.Put(km); err != nil {
				return err
			}

			if register {
				l, err := a.ledger()
				if err != nil {
					return err
				}
				didType := model.DIDTypeUser
				if r == model.RoleIssuer {
					didType = model.DIDTypeIssuer
				}
				doc := model.NewDIDDocument(km.DID, didType, pem, util.FormatTimestamp(time.Now()))
				if err := l.PutDIDDocument(cmd.Context(), doc); err != nil {
					return fmt.Errorf("failed to register DID: %w", err)
				}
				out["registered"] = true
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&role, "role", "holder", "key role: issuer|holder")
	cmd.Flags().StringVar(&did, "did", "", "DID owning the key (generated when empty)")
	cmd.Flags().BoolVar(&register, "register", false, "register the DID document on the ledger")
	return cmd
}

func newSignCmd(a *app) *cobra.Command {
	var (
		in     string
		keyDID string
		domain string
		store  bool
	)
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign an unsigned credential with the issuer key",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, in)
			if err != nil {
				return err
			}
			cred, err := vc.ParseCredential(raw, vc.WithSchemaValidation())
			if err != nil {
				return err
			}
			keys, err := a.keyStore()
			if err != nil {
				return err
			}
			sgn, err := a.signer(keys)
			if err != nil {
				return err
			}
			signed, err := sgn.SignCredential(cmd.Context(), cred, signer.WithKeyDID(keyDID), signer.WithDomain(domain))
			if err != nil {
				return err
			}
			data, err := signed.JSON()
			if err != nil {
				return err
			}
			if store {
				l, err := a.ledger()
				if err != nil {
					return err
				}
				if err := l.PutCredential(cmd.Context(), data); err != nil {
					return fmt.Errorf("failed to store credential: %w", err)
				}
			}
			return writeLine(cmd.OutOrStdout(), data)
		},
	}
	cmd.Flags().StringVar(&in, "in", "-", "unsigned credential JSON file, - for stdin")
	cmd.Flags().StringVar(&keyDID, "key-did", "", "sign with the key of this DID instead of the issuer's")
	cmd.Flags().StringVar(&domain, "domain", "", "domain recorded in the proof")
	cmd.Flags().BoolVar(&store, "store", false, "store the signed credential on the ledger")
	return cmd
}

func newPresentCmd(a *app) *cobra.Command {
	var (
		in        string
		vcID      string
		holder    string
		challenge string
		domain    string
	)
	cmd := &cobra.Command{
		Use:   "present",
		Short: "Wrap a signed credential in a presentation signed by the holder",
		RunE: func(cmd *cobra.Command, args []string) error {
			if holder == "" {
				return fmt.Errorf("--holder is required")
			}
			var raw []byte
			var err error
			if vcID != "" {
				l, err := a.ledger()
				if err != nil {
					return err
				}
				if raw, err = l.GetCredential(cmd.Context(), vcID); err != nil {
					return fmt.Errorf("failed to load credential: %w", err)
				}
			} else if raw, err = readInput(cmd, in); err != nil {
				return err
			}
			cred, err := vc.ParseCredential(raw)
			if err != nil {
				return err
			}
			if challenge == "" {
				if challenge, err = util.RandomID(); err != nil {
					return err
				}
			}

			unsigned, err := vp.NewPresentation(vp.PresentationContents{
				Context:               []interface{}{"https://www.w3.org/ns/credentials/v2"},
				Types:                 []string{"VerifiablePresentation"},
				Holder:                holder,
				VerifiableCredentials: []*vc.Credential{cred},
			})
			if err != nil {
				return err
			}
			keys, err := a.keyStore()
			if err != nil {
				return err
			}
			sgn, err := a.signer(keys)
			if err != nil {
				return err
			}
			signed, err := sgn.SignPresentation(cmd.Context(), unsigned, challenge, signer.WithDomain(domain))
			if err != nil {
				return err
			}
			data, err := signed.JSON()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
				"challenge": challenge,
				"vp":        json.RawMessage(data),
			})
		},
	}
	cmd.Flags().StringVar(&in, "in", "-", "signed credential JSON file, - for stdin")
	cmd.Flags().StringVar(&vcID, "vc-id", "", "load the credential from the ledger instead")
	cmd.Flags().StringVar(&holder, "holder", "", "holder DID")
	cmd.Flags().StringVar(&challenge, "challenge", "", "relying party challenge (generated when empty)")
	cmd.Flags().StringVar(&domain, "domain", "", "domain recorded in the proof")
	return cmd
}

type verifyOutput struct {
	Valid     bool   `json:"valid"`
	Reason    string `json:"reason"`
	Stage     string `json:"stage"`
	Kind      string `json:"kind"`
	SignerDID string `json:"signer,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Error     string `json:"error,omitempty"`
}

func newVerifyCmd(a *app) *cobra.Command {
	var (
		in             string
		challenge      string
		embeddedProofs bool
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a signed credential or presentation",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, in)
			if err != nil {
				return err
			}
			l, err := a.ledger()
			if err != nil {
				return err
			}
			v, err := a.verifier(l, embeddedProofs)
			if err != nil {
				return err
			}
			res, verr := v.VerifyJSON(cmd.Context(), raw, challenge)
			out := verifyOutput{
				Valid:     res.Valid,
				Reason:    string(res.Reason),
				Stage:     res.Stage.String(),
				Kind:      res.Kind.String(),
				SignerDID: res.SignerDID,
				Detail:    res.Detail,
			}
			if verr != nil {
				out.Error = verr.Error()
			}
			if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if res.Reason != verifier.ReasonValid {
				return fmt.Errorf("verification failed: %s", res.Reason)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "-", "document JSON file, - for stdin")
	cmd.Flags().StringVar(&challenge, "challenge", "", "challenge issued to the holder")
	cmd.Flags().BoolVar(&embeddedProofs, "embedded-proofs", false, "also verify the signatures of embedded credentials")
	return cmd
}

func newCanonicalizeCmd(a *app) *cobra.Command {
	var (
		in        string
		challenge string
		digest    bool
	)
	cmd := &cobra.Command{
		Use:   "canonicalize",
		Short: "Print the bytes a document's signature covers",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, in)
			if err != nil {
				return err
			}
			profile, err := a.cfg.Profile()
			if err != nil {
				return err
			}

			var input []byte
			p, err := vp.ParsePresentation(raw)
			if err != nil {
				return err
			}
			if isPresentation(p) {
				if challenge == "" {
					if proof, err := p.Proof(); err == nil {
						challenge = proof.Challenge
					}
				}
				input, err = p.GetSigningInput(profile, challenge)
			} else {
				var cred *vc.Credential
				if cred, err = vc.ParseCredential(raw); err != nil {
					return err
				}
				input, err = cred.GetSigningInput(profile)
			}
			if err != nil {
				return err
			}

			if digest {
				sum := sha256.Sum256(input)
				return writeLine(cmd.OutOrStdout(), []byte(hex.EncodeToString(sum[:])))
			}
			return writeLine(cmd.OutOrStdout(), input)
		},
	}
	cmd.Flags().StringVar(&in, "in", "-", "document JSON file, - for stdin")
	cmd.Flags().StringVar(&challenge, "challenge", "", "challenge to bind (defaults to proof.challenge)")
	cmd.Flags().BoolVar(&digest, "digest", false, "print the SHA-256 of the signing input in hex")
	return cmd
}

func isPresentation(p *vp.Presentation) bool {
	doc := p.Document()
	if _, ok := doc["verifiableCredential"]; ok {
		return true
	}
	return p.Holder() != ""
}

func parseRole(role string) (model.Role, util.DIDKind, error) {
	switch role {
	case "issuer":
		return model.RoleIssuer, util.DIDKindIssuer, nil
	case "holder", "user":
		return model.RoleHolder, util.DIDKindUser, nil
	default:
		return "", "", fmt.Errorf("unknown role %q", role)
	}
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func writeLine(w io.Writer, b []byte) error {
	_, err := fmt.Fprintf(w, "%s\n", b)
	return err
}
