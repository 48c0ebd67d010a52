package jsonmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/mitchellh/mapstructure"

	"github.com/anam145/go-credential-sdk/credential/common/canonical"
	"github.com/anam145/go-credential-sdk/credential/common/dto"
	"github.com/anam145/go-credential-sdk/credential/common/util"
)

// JSONMap represents a JSON object as a map.
//
// Values of type json.RawMessage hold embedded documents whose bytes must
// survive unchanged, such as a signed credential inside a presentation.
type JSONMap map[string]interface{}

// Parse decodes a JSON object. Numbers keep their literal form; the fields
// named in rawFields are kept as json.RawMessage.
func Parse(data []byte, rawFields ...string) (JSONMap, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("JSON string is empty")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON object: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("failed to unmarshal JSON object: document is null")
	}

	m := make(JSONMap, len(fields))
	for key, raw := range fields {
		if slices.Contains(rawFields, key) {
			var compact bytes.Buffer
			if err := json.Compact(&compact, raw); err != nil {
				return nil, fmt.Errorf("failed to compact field %q: %w", key, err)
			}
			m[key] = json.RawMessage(compact.Bytes())
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("failed to decode field %q: %w", key, err)
		}
		m[key] = value
	}
	return m, nil
}

// ToJSON serializes the JSONMap with sorted keys, embedded documents verbatim.
func (m JSONMap) ToJSON() ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("JSONMap is nil")
	}
	data, err := canonical.Marshal(map[string]interface{}(m))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSONMap: %w", err)
	}
	return data, nil
}

// Canonicalize returns the bytes to sign or verify under opts.
func (m JSONMap) Canonicalize(opts canonical.Options) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("JSONMap is nil")
	}
	data, err := canonical.Encode(map[string]interface{}(m), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize JSONMap: %w", err)
	}
	return data, nil
}

// Copy returns a shallow copy of the map.
func (m JSONMap) Copy() JSONMap {
	out := make(JSONMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// WithProof returns a copy of m carrying proof.
func (m JSONMap) WithProof(proof *dto.Proof) (JSONMap, error) {
	if m == nil {
		return nil, fmt.Errorf("JSONMap is nil")
	}
	if proof == nil {
		return nil, fmt.Errorf("proof is nil")
	}
	out := m.Copy()
	out["proof"] = util.SerializeProofs([]dto.Proof{*proof})
	return out, nil
}

// Without returns a copy of m without the named fields.
func (m JSONMap) Without(fields ...string) JSONMap {
	out := make(JSONMap, len(m))
	for k, v := range m {
		if !slices.Contains(fields, k) {
			out[k] = v
		}
	}
	return out
}

// String returns the string value of a field, or "" if absent or not a string.
func (m JSONMap) String(field string) string {
	s, _ := m[field].(string)
	return s
}

// Proof decodes the proof field. A proof array yields its first entry.
func (m JSONMap) Proof() (*dto.Proof, error) {
	raw, ok := m["proof"]
	if !ok || raw == nil {
		return nil, fmt.Errorf("JSONMap has no proof")
	}
	if proofs, ok := raw.([]interface{}); ok {
		if len(proofs) == 0 {
			return nil, fmt.Errorf("JSONMap has no proof")
		}
		raw = proofs[0]
	}
	proof, err := ParseRawToProof(raw)
	if err != nil {
		return nil, err
	}
	return &proof, nil
}

// ParseRawToProof converts a JSON object to a Proof struct.
func ParseRawToProof(proof interface{}) (dto.Proof, error) {
	var result dto.Proof
	switch proof.(type) {
	case map[string]interface{}, JSONMap:
	default:
		return result, fmt.Errorf("invalid proof format: expected map[string]interface{}, got %T", proof)
	}
	if err := mapstructure.Decode(proof, &result); err != nil {
		return result, fmt.Errorf("failed to decode proof: %w", err)
	}
	return result, nil
}
