package main

import (
	"github.com/redis/go-redis/v9"

	credentialstatus "github.com/anam145/go-credential-sdk/credential/common/credential-status"
	verificationmethod "github.com/anam145/go-credential-sdk/credential/common/verification-method"
	"github.com/anam145/go-credential-sdk/credential/gateway"
	"github.com/anam145/go-credential-sdk/credential/keystore"
	"github.com/anam145/go-credential-sdk/credential/ledger/httpledger"
	"github.com/anam145/go-credential-sdk/credential/ledger/memory"
	"github.com/anam145/go-credential-sdk/credential/signer"
	"github.com/anam145/go-credential-sdk/credential/verifier"
)

func (a *app) keyStore() (gateway.KeyStore, error) {
	if a.cfg.KeyStore.Kind == "memory" {
		return keystore.NewMemory()
	}
	return keystore.NewFile(a.cfg.KeyStore.Dir), nil
}

func (a *app) ledger() (gateway.Ledger, error) {
	if a.cfg.Ledger.Kind == "memory" {
		return memory.New(), nil
	}
	timeout, err := a.cfg.LedgerTimeout()
	if err != nil {
		return nil, err
	}
	return httpledger.NewClient(a.cfg.Ledger.URL,
		httpledger.WithTimeout(timeout),
		httpledger.WithLogger(a.log.Named("ledger")))
}

func (a *app) resolver(l gateway.Ledger) (*verificationmethod.Resolver, error) {
	timeout, err := a.cfg.LedgerTimeout()
	if err != nil {
		return nil, err
	}
	ttl, err := a.cfg.CacheTTL()
	if err != nil {
		return nil, err
	}
	opts := []verificationmethod.ResolverOpt{verificationmethod.WithTimeout(timeout)}
	switch a.cfg.Cache.Kind {
	case "memory":
		opts = append(opts, verificationmethod.WithCache(verificationmethod.NewMemoryCache(ttl)))
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     a.cfg.Cache.Redis.Addr,
			DB:       a.cfg.Cache.Redis.DB,
			Password: a.cfg.Cache.Redis.Password,
		})
		opts = append(opts, verificationmethod.WithCache(verificationmethod.NewRedisCache(client, ttl,
			verificationmethod.WithCacheLogger(a.log.Named("cache")))))
	}
	return verificationmethod.NewResolver(l, opts...), nil
}

func (a *app) signer(keys gateway.KeyStore) (*signer.Signer, error) {
	profile, err := a.cfg.Profile()
	if err != nil {
		return nil, err
	}
	return signer.New(keys, signer.WithProfile(profile)), nil
}

func (a *app) verifier(l gateway.Ledger, embeddedProofs bool) (*verifier.Verifier, error) {
	profile, err := a.cfg.Profile()
	if err != nil {
		return nil, err
	}
	timeout, err := a.cfg.LedgerTimeout()
	if err != nil {
		return nil, err
	}
	res, err := a.resolver(l)
	if err != nil {
		return nil, err
	}
	opts := []verifier.VerifierOpt{verifier.WithProfile(profile)}
	if embeddedProofs {
		opts = append(opts, verifier.WithEmbeddedProofCheck())
	}
	return verifier.New(res, credentialstatus.NewChecker(l, timeout), opts...), nil
}
