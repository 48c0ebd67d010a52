package canonical

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/piprate/json-gold/ld"
)

var (
	loaderMu sync.RWMutex
	// defaultDocumentLoader is a shared caching loader so remote contexts are
	// fetched once per process.
	defaultDocumentLoader ld.DocumentLoader = ld.NewCachingDocumentLoader(ld.NewDefaultDocumentLoader(nil))
)

// SetDocumentLoader replaces the loader used to dereference JSON-LD contexts.
func SetDocumentLoader(loader ld.DocumentLoader) {
	loaderMu.Lock()
	defer loaderMu.Unlock()
	defaultDocumentLoader = loader
}

func documentLoader() ld.DocumentLoader {
	loaderMu.RLock()
	defer loaderMu.RUnlock()
	return defaultDocumentLoader
}

// normalizeRDF canonicalizes a document with URDNA2015 and returns the N-Quads.
func normalizeRDF(doc map[string]interface{}) ([]byte, error) {
	standardized, err := standardizeToJSONLD(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to standardize to JSON-LD: %w", err)
	}

	processor := ld.NewJsonLdProcessor()
	options := ld.NewJsonLdOptions("")
	options.Format = "application/n-quads"
	options.Algorithm = ld.AlgorithmURDNA2015
	options.DocumentLoader = documentLoader()

	normalized, err := processor.Normalize(standardized, options)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize document: %w", err)
	}
	nquads, ok := normalized.(string)
	if !ok {
		return nil, fmt.Errorf("failed to normalize document: unexpected result %T", normalized)
	}
	return []byte(nquads), nil
}

// standardizeToJSONLD takes the document through plain JSON so embedded raw
// documents become objects, then types scalar literals.
func standardizeToJSONLD(input map[string]interface{}) (map[string]interface{}, error) {
	data, err := Marshal(input)
	if err != nil {
		return nil, err
	}
	var plain map[string]interface{}
	if err := json.Unmarshal(data, &plain); err != nil {
		return nil, err
	}

	result := make(map[string]interface{}, len(plain))
	for key, value := range plain {
		if key == "@context" {
			result[key] = value
			continue
		}
		result[key] = convertToJSONLDCompatible(value)
	}
	return result, nil
}

// convertToJSONLDCompatible forces numbers and booleans into typed string
// literals so every processor emits the same lexical form.
func convertToJSONLDCompatible(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for key, val := range v {
			result[key] = convertToJSONLDCompatible(val)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, val := range v {
			result[i] = convertToJSONLDCompatible(val)
		}
		return result
	case float64:
		return map[string]interface{}{
			"@value": fmt.Sprintf("%v", v),
			"@type":  "http://www.w3.org/2001/XMLSchema#string",
		}
	case bool:
		return map[string]interface{}{
			"@value": fmt.Sprintf("%v", v),
			"@type":  "http://www.w3.org/2001/XMLSchema#boolean",
		}
	default:
		return v
	}
}
