package verifier

import "github.com/anam145/go-credential-sdk/credential/common/model"

// Reason is the human-readable verdict of a verification.
type Reason string

const (
	ReasonValid             Reason = "valid"
	ReasonInvalidStructure  Reason = "invalid structure"
	ReasonCredentialInvalid Reason = "credential invalid"
	ReasonSignerKeyNotFound Reason = "signer key not found"
	ReasonSignatureMismatch Reason = "signature mismatch"
	ReasonChallengeMismatch Reason = "challenge mismatch"
	// ReasonError means the document could not be checked. It always comes
	// with a non-nil error from Verify.
	ReasonError Reason = "error"
)

// Stage is a step of the verification pipeline, in execution order.
type Stage int

const (
	StageStructure Stage = iota + 1
	StageCredentialStatus
	StageKeyResolution
	StageCanonicalization
	StageSignature
	StageFreshness
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageStructure:
		return "structure"
	case StageCredentialStatus:
		return "credential-status"
	case StageKeyResolution:
		return "key-resolution"
	case StageCanonicalization:
		return "canonicalization"
	case StageSignature:
		return "signature"
	case StageFreshness:
		return "freshness"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// Result is the verdict of one verification. Stage names the step that
// produced the verdict; SigningInput holds the canonical bytes the
// signature was checked against, once they were derived.
type Result struct {
	Valid        bool
	Reason       Reason
	Stage        Stage
	Kind         model.DocumentKind
	SignerDID    string
	SigningInput []byte
	Detail       string
}

func (r *Result) fail(stage Stage, reason Reason, detail string) *Result {
	r.Valid = false
	r.Stage = stage
	r.Reason = reason
	r.Detail = detail
	return r
}

func (r *Result) pass() *Result {
	r.Valid = true
	r.Stage = StageDone
	r.Reason = ReasonValid
	r.Detail = ""
	return r
}
