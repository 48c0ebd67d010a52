package canonical

import (
	"fmt"
	"strings"
)

// Binding says how a presentation's challenge is bound to its signature.
type Binding int

const (
	// BindingProofField signs the document without the challenge; the
	// challenge travels in proof.challenge and is checked by equality.
	BindingProofField Binding = iota
	// BindingSuffix appends the challenge to the canonical bytes before
	// signing.
	BindingSuffix
)

func (b Binding) String() string {
	switch b {
	case BindingProofField:
		return "proof-field"
	case BindingSuffix:
		return "suffix"
	default:
		return fmt.Sprintf("Binding(%d)", int(b))
	}
}

// ParseBinding accepts the names returned by Binding.String.
func ParseBinding(s string) (Binding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "proof-field", "proof", "embedded":
		return BindingProofField, nil
	case "suffix":
		return BindingSuffix, nil
	default:
		return 0, fmt.Errorf("unknown challenge binding %q", s)
	}
}

// Profile bundles every encoding choice a deployment has to agree on.
type Profile struct {
	Name             string
	Binding          Binding
	Escaping         Escaping
	CredentialView   View
	PresentationView View
}

var (
	// ServerProfile signs presentations in declared field order with the
	// challenge carried only in the proof.
	ServerProfile = Profile{
		Name:             "server",
		Binding:          BindingProofField,
		CredentialView:   SortedKeys,
		PresentationView: FixedOrder(PresentationFields...),
	}

	// MobileLegacyProfile matches holders whose JSON library escapes "/" and
	// "=" and who append the challenge to the signed bytes.
	MobileLegacyProfile = Profile{
		Name:             "mobile-legacy",
		Binding:          BindingSuffix,
		Escaping:         Escaping{Slash: true, Runes: []rune{'='}},
		CredentialView:   SortedKeys,
		PresentationView: FixedOrder(PresentationFields...),
	}

	// ServerRDFProfile is ServerProfile with credentials signed over their
	// URDNA2015 N-Quads. Every credential context must be resolvable by the
	// document loader.
	ServerRDFProfile = Profile{
		Name:             "server-rdf",
		Binding:          BindingProofField,
		CredentialView:   RDF(),
		PresentationView: FixedOrder(PresentationFields...),
	}
)

// LookupProfile returns the built-in profile with the given name.
func LookupProfile(name string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ServerProfile.Name:
		return ServerProfile, nil
	case MobileLegacyProfile.Name:
		return MobileLegacyProfile, nil
	case ServerRDFProfile.Name:
		return ServerRDFProfile, nil
	default:
		return Profile{}, fmt.Errorf("unknown canonical profile %q", name)
	}
}

// CredentialOptions returns the encoding options for a credential. The
// escaping policy never applies to credentials, which are produced by
// issuers.
func (p Profile) CredentialOptions() Options {
	return Options{View: p.CredentialView}
}

// PresentationOptions returns the encoding options for a presentation bound
// to challenge.
func (p Profile) PresentationOptions(challenge string) Options {
	return Options{
		View:      p.PresentationView,
		Escaping:  p.Escaping,
		Binding:   p.Binding,
		Challenge: challenge,
	}
}
