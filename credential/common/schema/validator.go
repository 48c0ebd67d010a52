// Package schema checks that credentials and presentations carry the fields
// the signer and verifier depend on, using JSON Schema.
package schema

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/anam145/go-credential-sdk/credential/common/sdkerr"
)

// Shape selects the schema a document is checked against.
type Shape int

const (
	UnsignedCredential Shape = iota
	SignedCredential
	UnsignedPresentation
	SignedPresentation
)

var (
	compileOnce sync.Once
	compiled    map[Shape]*gojsonschema.Schema
	compileErr  error
)

func schemas() (map[Shape]*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		sources := map[Shape]string{
			UnsignedCredential:   credentialSchema,
			SignedCredential:     signedCredentialSchema,
			UnsignedPresentation: presentationSchema,
			SignedPresentation:   signedPresentationSchema,
		}
		compiled = make(map[Shape]*gojsonschema.Schema, len(sources))
		for shape, src := range sources {
			s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
			if err != nil {
				compileErr = fmt.Errorf("failed to compile schema %d: %w", shape, err)
				return
			}
			compiled[shape] = s
		}
	})
	return compiled, compileErr
}

// Validate checks doc against the schema of shape. A document that does not
// conform yields an error wrapping sdkerr.ErrInvalidStructure.
func Validate(doc interface{}, shape Shape) error {
	all, err := schemas()
	if err != nil {
		return err
	}
	s, ok := all[shape]
	if !ok {
		return fmt.Errorf("unknown schema shape %d", shape)
	}

	result, err := s.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", sdkerr.ErrInvalidStructure, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", sdkerr.ErrInvalidStructure, strings.Join(msgs, "; "))
	}
	return nil
}
