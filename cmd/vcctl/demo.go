package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/anam145/go-credential-sdk/credential/gateway"
)

func newDemoCmd(a *app) *cobra.Command {
	var student bool
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Register an issuer and a holder, issue a credential, present it and verify it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l, err := a.ledger()
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
			vrf, err := a.verifier(l, false)
			if err != nil {
				return err
			}
			svc, err := gateway.New(
				gateway.Config{Method: a.cfg.DID.Method, IssuerName: a.cfg.DID.IssuerName},
				l, keys, sgn, vrf,
				gateway.WithLogger(a.log.Named("gateway")),
				gateway.WithMetrics(gateway.NewMetrics(prometheus.NewRegistry())),
			)
			if err != nil {
				return err
			}

			if _, err := svc.RegisterIssuer(ctx); err != nil {
				return err
			}
			holder, err := svc.RegisterUser(ctx)
			if err != nil {
				return err
			}

			var issued *gateway.Issued
			if student {
				issued, err = svc.IssueStudentCard(ctx, gateway.StudentRequest{HolderDID: holder.DID})
			} else {
				issued, err = svc.IssueDriverLicense(ctx, gateway.LicenseRequest{HolderDID: holder.DID})
			}
			if err != nil {
				return err
			}

			p, challenge, err := svc.Present(ctx, holder.DID, issued.Credential.ID(), "")
			if err != nil {
				return err
			}
			raw, err := p.JSON()
			if err != nil {
				return err
			}
			res, err := svc.VerifyPresentation(ctx, raw, challenge)
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
				"issuer":     svc.IssuerDID(),
				"holder":     holder.DID,
				"subject":    issued.SubjectDID,
				"credential": issued.Credential.ID(),
				"challenge":  challenge,
				"valid":      res.Valid,
				"reason":     res.Reason,
			})
		},
	}
	cmd.Flags().BoolVar(&student, "student", false, "issue a student card instead of a driver licence")
	return cmd
}
