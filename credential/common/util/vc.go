package util

import (
	"fmt"

	"github.com/anam145/go-credential-sdk/credential/common/dto"
)

// JSONMap represents a JSON object as a map.
type JSONMap = map[string]interface{}

// JSON field constants for credential serialization.
const (
	jsonFldType = "type"
)

// SerializeTypes converts a slice of type strings to a JSON-LD compatible format.
func SerializeTypes(types []string) interface{} {
	if len(types) == 0 {
		return nil
	}
	return MapSlice(types, func(t string) interface{} { return t })
}

// MapSlice transforms a slice of type T to a slice of type U using a mapping function.
func MapSlice[T any, U any](slice []T, mapFn func(T) U) []U {
	result := make([]U, 0, len(slice))
	for _, v := range slice {
		result = append(result, mapFn(v))
	}
	return result
}

// SerializeContexts validates and converts a slice of JSON-LD context entries.
func SerializeContexts(contexts []interface{}) ([]interface{}, error) {
	validated := make([]interface{}, 0, len(contexts))
	for i, ctx := range contexts {
		if ctx == nil {
			return nil, fmt.Errorf("failed to validate context: context entry at index %d is nil", i)
		}
		switch v := ctx.(type) {
		case string:
			if v == "" {
				return nil, fmt.Errorf("failed to validate context: context string at index %d is empty", i)
			}
			validated = append(validated, v)
		case JSONMap:
			if _, hasContext := v["@context"]; hasContext {
				return nil, fmt.Errorf("failed to validate context: context object at index %d must not contain nested @context", i)
			}
			for key := range v {
				if key == "" {
					return nil, fmt.Errorf("failed to validate context: context object at index %d has empty key", i)
				}
			}
			validated = append(validated, v)
		default:
			return nil, fmt.Errorf("failed to validate context: invalid context entry at index %d: must be string or map, got %T", i, v)
		}
	}
	return validated, nil
}

// SerializeProofs converts a slice of Proof structs to a JSON-LD compatible format.
func SerializeProofs(proofs []dto.Proof) interface{} {
	if len(proofs) == 0 {
		return nil
	}
	result := make([]JSONMap, len(proofs))
	for i, proof := range proofs {
		proofMap := make(JSONMap)
		if proof.Type != "" {
			proofMap[jsonFldType] = proof.Type
		}
		if proof.Created != "" {
			proofMap["created"] = proof.Created
		}
		if proof.VerificationMethod != "" {
			proofMap["verificationMethod"] = proof.VerificationMethod
		}
		if proof.ProofPurpose != "" {
			proofMap["proofPurpose"] = proof.ProofPurpose
		}
		if proof.ProofValue != "" {
			proofMap["proofValue"] = proof.ProofValue
		}
		if proof.Challenge != "" {
			proofMap["challenge"] = proof.Challenge
		}
		if proof.Domain != "" {
			proofMap["domain"] = proof.Domain
		}
		result[i] = proofMap
	}
	if len(result) == 1 {
		return result[0]
	}
	return MapSlice(result, func(m JSONMap) interface{} { return m })
}

// ShallowCopyObj copies the top level of a JSON object.
func ShallowCopyObj(obj JSONMap) JSONMap {
	out := make(JSONMap, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	return out
}

// SplitJSONObj separates the named fields of obj from the rest.
func SplitJSONObj(obj JSONMap, fields ...string) (picked, rest JSONMap) {
	picked = make(JSONMap)
	rest = make(JSONMap)
	for k, v := range obj {
		isPicked := false
		for _, f := range fields {
			if k == f {
				isPicked = true
				break
			}
		}
		if isPicked {
			picked[k] = v
		} else {
			rest[k] = v
		}
	}
	return picked, rest
}
