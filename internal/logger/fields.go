package logger

import (
	"time"

	"go.uber.org/zap"
)

// RequestID is the id sent in X-Request-ID.
func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

// Method is the HTTP method of a request.
func Method(v string) zap.Field {
	return zap.String("method", v)
}

// Path is the HTTP path of a request.
func Path(v string) zap.Field {
	return zap.String("path", v)
}

// Status is an HTTP status code.
func Status(v int) zap.Field {
	return zap.Int("status", v)
}

// Duration is the time an operation took.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// DID is a decentralized identifier.
func DID(v string) zap.Field {
	return zap.String("did", v)
}

// CredentialID is the id of a verifiable credential.
func CredentialID(v string) zap.Field {
	return zap.String("credential_id", v)
}

// Kind is the kind of a signed document.
func Kind(v string) zap.Field {
	return zap.String("kind", v)
}

// Reason is a verification verdict.
func Reason(v string) zap.Field {
	return zap.String("reason", v)
}

// Stage is the verification stage that produced a verdict.
func Stage(v string) zap.Field {
	return zap.String("stage", v)
}

// Err wraps an error field.
func Err(err error) zap.Field {
	return zap.Error(err)
}
