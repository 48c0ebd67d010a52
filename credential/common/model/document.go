package model

// DocumentKind tags the variants of a signable document.
type DocumentKind int

const (
	KindCredential DocumentKind = iota + 1
	KindPresentation
)

func (k DocumentKind) String() string {
	switch k {
	case KindCredential:
		return "credential"
	case KindPresentation:
		return "presentation"
	default:
		return "unknown"
	}
}

// Document is implemented by credentials and presentations.
type Document interface {
	Kind() DocumentKind
	// JSON returns the serialized document, proof included.
	JSON() ([]byte, error)
}
