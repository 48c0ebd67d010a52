// Package canonical turns credential and presentation documents into the
// exact byte sequence that is signed and verified.
//
// The output is a pure function of the document, the View (which top-level
// fields take part and in which order), the Escaping policy and the challenge
// Binding. Every party of a deployment must run with the same Profile,
// otherwise signatures produced on one side never verify on the other.
//
// Values of type json.RawMessage are treated as already-signed embedded
// documents: they are written back as they were received, with only
// insignificant whitespace removed.
package canonical
