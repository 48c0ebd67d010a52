package canonical

import "slices"

// Algorithm names the serialization a View produces.
type Algorithm string

const (
	// AlgorithmJSON emits compact JSON with sorted nested keys.
	AlgorithmJSON Algorithm = ""
	// AlgorithmURDNA2015 emits canonical N-Quads of the JSON-LD document.
	AlgorithmURDNA2015 Algorithm = "URDNA2015"
)

// View decides which top-level fields of a document take part in the
// canonical bytes and in which order.
type View struct {
	// Fields lists the participating top-level fields in output order.
	// Absent fields are skipped. When empty, every field not in Exclude
	// participates in sorted order.
	Fields []string
	// Exclude lists top-level fields that never participate.
	Exclude []string

	Algorithm Algorithm
}

// SortedKeys is the credential view: every field except the proof, sorted.
var SortedKeys = View{Exclude: []string{"proof"}}

// PresentationFields is the declared field order of a presentation.
var PresentationFields = []string{"@context", "holder", "type", "verifiableCredential"}

// FixedOrder returns a view emitting exactly fields, in the given order.
func FixedOrder(fields ...string) View {
	return View{Fields: fields, Exclude: []string{"proof"}}
}

// RDF returns the JSON-LD canonicalization view over the document minus its proof.
func RDF() View {
	return View{Exclude: []string{"proof"}, Algorithm: AlgorithmURDNA2015}
}

func (v View) keys(doc map[string]interface{}) []string {
	if len(v.Fields) == 0 {
		keys := make([]string, 0, len(doc))
		for _, k := range sortedKeys(doc) {
			if !slices.Contains(v.Exclude, k) {
				keys = append(keys, k)
			}
		}
		return keys
	}

	keys := make([]string, 0, len(v.Fields))
	for _, k := range v.Fields {
		if _, ok := doc[k]; ok && !slices.Contains(v.Exclude, k) {
			keys = append(keys, k)
		}
	}
	return keys
}

func (v View) project(doc map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for _, k := range v.keys(doc) {
		out[k] = doc[k]
	}
	return out
}
