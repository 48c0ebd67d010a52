// Command vcctl signs, presents, verifies and canonicalizes verifiable
// credentials, and can serve an in-memory ledger over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/anam145/go-credential-sdk/internal/config"
	"github.com/anam145/go-credential-sdk/internal/logger"
)

type app struct {
	cfgPath string
	envFile string
	profile string

	cfg *config.Config
	log *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "vcctl",
		Short:         "Verifiable credential signing and verification tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", os.Getenv("VCCTL_CONFIG"), "YAML config file (env VCCTL_CONFIG)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the config")
	root.PersistentFlags().StringVar(&a.profile, "profile", "", "canonical profile: server|mobile-legacy|server-rdf (overrides config)")

	root.AddCommand(
		newKeygenCmd(a),
		newSignCmd(a),
		newPresentCmd(a),
		newVerifyCmd(a),
		newCanonicalizeCmd(a),
		newDemoCmd(a),
		newLedgerCmd(a),
	)
	return root
}

func (a *app) load() error {
	if err := config.LoadEnvFile(a.envFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if a.profile != "" {
		cfg.Canonical.Profile = a.profile
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg
	a.log = logger.New(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.App.LogLevel,
		ServiceName: "vcctl",
	})
	return nil
}
