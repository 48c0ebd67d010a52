package vc

import (
	"fmt"
	"time"

	"github.com/anam145/go-credential-sdk/credential/common/jsonmap"
	"github.com/anam145/go-credential-sdk/credential/common/util"
)

// serializeCredentialContents serializes CredentialContents into a JSON object.
func serializeCredentialContents(vcc *CredentialContents) (jsonmap.JSONMap, error) {
	if vcc == nil {
		return nil, fmt.Errorf("credential contents is nil")
	}

	vcJSON := make(jsonmap.JSONMap)
	if len(vcc.Context) > 0 {
		validatedContext, err := util.SerializeContexts(vcc.Context)
		if err != nil {
			return nil, fmt.Errorf("invalid @context: %w", err)
		}
		vcJSON["@context"] = validatedContext
	}
	if vcc.ID != "" {
		vcJSON["id"] = vcc.ID
	}
	if len(vcc.Types) > 0 {
		vcJSON["type"] = util.SerializeTypes(vcc.Types)
	}
	if len(vcc.Subject) > 0 {
		vcJSON["credentialSubject"] = serializeSubjects(vcc.Subject)
	}
	if vcc.Issuer.ID != "" {
		vcJSON["issuer"] = serializeIssuer(vcc.Issuer)
	}
	if !vcc.IssuanceDate.IsZero() {
		vcJSON["issuanceDate"] = util.FormatTimestamp(vcc.IssuanceDate)
	}
	if !vcc.ValidFrom.IsZero() {
		vcJSON["validFrom"] = util.FormatTimestamp(vcc.ValidFrom)
	}
	if !vcc.ValidUntil.IsZero() {
		vcJSON["validUntil"] = util.FormatTimestamp(vcc.ValidUntil)
	}
	return vcJSON, nil
}

func serializeIssuer(issuer Issuer) interface{} {
	if issuer.Name == "" {
		return issuer.ID
	}
	return map[string]interface{}{
		"id":   issuer.ID,
		"name": issuer.Name,
	}
}

// serializeSubjects converts a slice of Subject structs to a JSON-LD compatible format.
func serializeSubjects(subjects []Subject) interface{} {
	if len(subjects) == 1 {
		return serializeSubject(subjects[0])
	}
	return util.MapSlice(subjects, func(s Subject) interface{} { return serializeSubject(s) })
}

// serializeSubject converts a single Subject struct to a JSON object.
func serializeSubject(subject Subject) map[string]interface{} {
	jsonObj := util.ShallowCopyObj(subject.CustomFields)
	if subject.ID != "" {
		jsonObj["id"] = subject.ID
	}
	return jsonObj
}

// parseContext extracts the @context field from a Credential.
func parseContext(c jsonmap.JSONMap, contents *CredentialContents) error {
	if context, ok := c["@context"].([]interface{}); ok {
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

// parseID extracts the ID field from a Credential.
func parseID(c jsonmap.JSONMap, contents *CredentialContents) error {
	contents.ID = c.String("id")
	return nil
}

// parseTypes extracts the type field from a Credential.
func parseTypes(c jsonmap.JSONMap, contents *CredentialContents) error {
	switch v := c["type"].(type) {
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

// parseIssuer extracts the issuer field from a Credential.
func parseIssuer(c jsonmap.JSONMap, contents *CredentialContents) error {
	switch issuer := c["issuer"].(type) {
	case nil:
	case string:
		contents.Issuer = Issuer{ID: issuer}
	case map[string]interface{}:
		id, _ := issuer["id"].(string)
		name, _ := issuer["name"].(string)
		contents.Issuer = Issuer{ID: id, Name: name}
	default:
		return fmt.Errorf("unsupported issuer format: %T", issuer)
	}
	return nil
}

// parseDates extracts issuanceDate, validFrom and validUntil fields from a Credential.
func parseDates(c jsonmap.JSONMap, contents *CredentialContents) error {
	fields := []struct {
		name   string
		target *time.Time
	}{
		{"issuanceDate", &contents.IssuanceDate},
		{"validFrom", &contents.ValidFrom},
		{"validUntil", &contents.ValidUntil},
	}
	for _, f := range fields {
		s, ok := c[f.name].(string)
		if !ok {
			continue
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", f.name, err)
		}
		*f.target = t
	}
	return nil
}

// parseSubject extracts the credentialSubject field from a Credential.
func parseSubject(c jsonmap.JSONMap, contents *CredentialContents) error {
	subjectRaw := c["credentialSubject"]
	if subjectRaw == nil {
		return nil
	}

	switch subject := subjectRaw.(type) {
	case string:
		contents.Subject = []Subject{{ID: subject}}
	case map[string]interface{}:
		parsed, err := SubjectFromJSON(subject)
		if err != nil {
			return fmt.Errorf("failed to parse subject: %w", err)
		}
		contents.Subject = []Subject{parsed}
	case []interface{}:
		subjects := make([]Subject, 0, len(subject))
		for _, raw := range subject {
			sub, ok := raw.(map[string]interface{})
			if !ok {
				return fmt.Errorf("unsupported subject format: %T", raw)
			}
			parsed, err := SubjectFromJSON(sub)
			if err != nil {
				return fmt.Errorf("failed to parse subjects array: %w", err)
			}
			subjects = append(subjects, parsed)
		}
		contents.Subject = subjects
	default:
		return fmt.Errorf("unsupported subject format: %T", subject)
	}
	return nil
}

// SubjectFromJSON creates a credential subject from a JSON object.
func SubjectFromJSON(subjectObj map[string]interface{}) (Subject, error) {
	flds, rest := util.SplitJSONObj(subjectObj, "id")
	id, err := parseStringField(flds, "id")
	if err != nil {
		return Subject{}, fmt.Errorf("failed to parse subject id: %w", err)
	}
	return Subject{ID: id, CustomFields: rest}, nil
}

// parseStringField extracts a string field from a JSON object.
func parseStringField(obj map[string]interface{}, fieldName string) (string, error) {
	if value, ok := obj[fieldName]; ok {
		if str, ok := value.(string); ok {
			return str, nil
		}
		return "", fmt.Errorf("field %q must be a string, got %T", fieldName, value)
	}
	return "", nil
}
