package vp

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/anam145/go-credential-sdk/credential/common/canonical"
	"github.com/anam145/go-credential-sdk/credential/common/jsonmap"
	"github.com/anam145/go-credential-sdk/credential/common/util"
	"github.com/anam145/go-credential-sdk/credential/vc"
)

const fieldCredentials = "verifiableCredential"

// serializePresentationContents serializes PresentationContents into a JSON object.
func serializePresentationContents(vpc *PresentationContents) (jsonmap.JSONMap, error) {
	if vpc == nil {
		return nil, fmt.Errorf("presentation contents is nil")
	}

	vpJSON := make(jsonmap.JSONMap)
	if len(vpc.Context) > 0 {
		validatedContext, err := util.SerializeContexts(vpc.Context)
		if err != nil {
			return nil, fmt.Errorf("invalid @context: %w", err)
		}
		vpJSON["@context"] = validatedContext
	}
	if vpc.ID != "" {
		vpJSON["id"] = vpc.ID
	}
	if len(vpc.Types) > 0 {
		vpJSON["type"] = util.SerializeTypes(vpc.Types)
	}
	if vpc.Holder != "" {
		vpJSON["holder"] = vpc.Holder
	}
	if len(vpc.VerifiableCredentials) > 0 {
		frozen, err := freezeCredentials(vpc.VerifiableCredentials)
		if err != nil {
			return nil, err
		}
		vpJSON[fieldCredentials] = frozen
	}
	return vpJSON, nil
}

// freezeCredentials serializes the credentials once, keeping parsed
// credentials byte for byte. A single credential is embedded as an object,
// several as an array.
func freezeCredentials(creds []*vc.Credential) (json.RawMessage, error) {
	encoded := make([][]byte, 0, len(creds))
	for i, cred := range creds {
		if cred == nil {
			return nil, fmt.Errorf("credential at index %d is nil", i)
		}
		data, err := cred.Bytes()
		if err != nil {
			return nil, fmt.Errorf("failed to serialize credential at index %d: %w", i, err)
		}
		encoded = append(encoded, data)
	}
	if len(encoded) == 1 {
		return json.RawMessage(encoded[0]), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	buf.Write(bytes.Join(encoded, []byte{','}))
	buf.WriteByte(']')
	return json.RawMessage(buf.Bytes()), nil
}

// embeddedCredentials splits the verifiableCredential value into one JSON
// object per credential.
func embeddedCredentials(value interface{}) ([][]byte, error) {
	if value == nil {
		return nil, nil
	}

	raw, ok := value.(json.RawMessage)
	if !ok {
		data, err := canonical.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode verifiableCredential: %w", err)
		}
		raw = data
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}
	switch trimmed[0] {
	case '{':
		return [][]byte{trimmed}, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("failed to split verifiableCredential: %w", err)
		}
		out := make([][]byte, 0, len(items))
		for i, item := range items {
			item = bytes.TrimSpace(item)
			if len(item) == 0 || item[0] != '{' {
				return nil, fmt.Errorf("credential at index %d is not an object", i)
			}
			out = append(out, item)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported verifiableCredential format")
	}
}

// parseContext extracts the @context field from a Presentation.
func parseContext(p jsonmap.JSONMap, contents *PresentationContents) error {
	if context, ok := p["@context"].([]interface{}); ok {
		for _, ctx := range context {
			switch v := ctx.(type) {
			case string, map[string]interface{}:
				contents.Context = append(contents.Context, v)
			default:
				return fmt.Errorf("unsupported context type: %T", v)
			}
		}
	}
	return nil
}

// parseID extracts the ID field from a Presentation.
func parseID(p jsonmap.JSONMap, contents *PresentationContents) error {
	contents.ID = p.String("id")
	return nil
}

// parseTypes extracts the type field from a Presentation.
func parseTypes(p jsonmap.JSONMap, contents *PresentationContents) error {
	switch v := p["type"].(type) {
	case nil:
	case string:
		contents.Types = append(contents.Types, v)
	case []interface{}:
		for _, t := range v {
			if typeStr, ok := t.(string); ok {
				contents.Types = append(contents.Types, typeStr)
			}
		}
	default:
		return fmt.Errorf("unsupported type field: %T", v)
	}
	return nil
}

// parseHolder extracts the holder field from a Presentation.
func parseHolder(p jsonmap.JSONMap, contents *PresentationContents) error {
	switch v := p["holder"].(type) {
	case nil:
	case string:
		contents.Holder = v
	default:
		return fmt.Errorf("unsupported holder format: %T", v)
	}
	return nil
}
