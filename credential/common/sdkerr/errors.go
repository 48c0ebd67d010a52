// Package sdkerr defines the error values shared by the credential packages.
//
// Callers compare with errors.Is; every producer wraps one of these values
// with fmt.Errorf("...: %w", ...) so the cause stays readable.
package sdkerr

import "errors"

var (
	// ErrMalformedKey reports key material that cannot be decoded into a P-256 key.
	ErrMalformedKey = errors.New("malformed key")

	// ErrKeyNotFound reports that no key exists for the requested role or DID.
	ErrKeyNotFound = errors.New("key not found")

	// ErrSigning reports a failure of the signature primitive.
	ErrSigning = errors.New("signing failed")

	// ErrInvalidStructure reports a document missing required fields.
	ErrInvalidStructure = errors.New("invalid structure")

	// ErrNotFound reports a ledger record that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable reports a ledger or resolver that could not be reached in time.
	ErrUnavailable = errors.New("unavailable")
)
