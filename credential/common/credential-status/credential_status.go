package credentialstatus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anam145/go-credential-sdk/credential/common/model"
	"github.com/anam145/go-credential-sdk/credential/common/provider"
	"github.com/anam145/go-credential-sdk/credential/common/sdkerr"
)

// DefaultTimeout bounds a single status lookup when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// Checker asks the ledger whether stored credentials are still valid.
type Checker struct {
	ledger  provider.Ledger
	timeout time.Duration
}

// NewChecker creates a status checker with the given lookup timeout. A
// non-positive timeout selects DefaultTimeout.
func NewChecker(ledger provider.Ledger, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Checker{ledger: ledger, timeout: timeout}
}

// Check returns the ledger's judgment for credentialID. A credential the
// ledger does not know is reported as invalid, not as an error; timeouts and
// transport failures are errors wrapping sdkerr.ErrUnavailable.
func (c *Checker) Check(ctx context.Context, credentialID string) (*model.CredentialStatus, error) {
	if credentialID == "" {
		return &model.CredentialStatus{Valid: false, Reason: model.StatusReasonNotFound}, nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	status, err := c.ledger.GetCredentialStatus(lookupCtx, credentialID)
	switch {
	case err == nil && status != nil:
		return status, nil
	case err == nil, errors.Is(err, sdkerr.ErrNotFound):
		return &model.CredentialStatus{ID: credentialID, Valid: false, Reason: model.StatusReasonNotFound}, nil
	case errors.Is(err, sdkerr.ErrUnavailable):
		return nil, fmt.Errorf("failed to check credential '%s': %w", credentialID, err)
	default:
		return nil, fmt.Errorf("%w: failed to check credential '%s': %v", sdkerr.ErrUnavailable, credentialID, err)
	}
}
