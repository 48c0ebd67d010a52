package schema

// credentialSchema lists what every credential must carry before it is
// signed. signedCredentialSchema adds the fields the signer attaches.
const credentialSchema = `{
  "type": "object",
  "required": ["issuer", "credentialSubject"],
  "properties": {
    "@context": {"type": "array", "minItems": 1},
    "type": {"type": "array", "minItems": 1, "items": {"type": "string"}},
    "issuer": {
      "oneOf": [
        {"type": "string", "minLength": 1},
        {
          "type": "object",
          "required": ["id"],
          "properties": {"id": {"type": "string", "minLength": 1}}
        }
      ]
    },
    "credentialSubject": {"type": ["object", "array"]},
    "validFrom": {"type": "string"},
    "validUntil": {"type": "string"}
  }
}`

const signedCredentialSchema = `{
  "allOf": [
    {"$ref": "#/definitions/credential"},
    {
      "type": "object",
      "required": ["proof"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "proof": {"$ref": "#/definitions/proof"}
      }
    }
  ],
  "definitions": {
    "credential": ` + credentialSchema + `,
    "proof": ` + proofSchema + `
  }
}`

const presentationSchema = `{
  "type": "object",
  "required": ["holder", "verifiableCredential"],
  "properties": {
    "@context": {"type": "array", "minItems": 1},
    "type": {"type": "array", "minItems": 1, "items": {"type": "string"}},
    "holder": {"type": "string", "minLength": 1},
    "verifiableCredential": {
      "oneOf": [
        {"type": "object"},
        {"type": "array", "minItems": 1, "items": {"type": "object"}}
      ]
    }
  }
}`

const signedPresentationSchema = `{
  "allOf": [
    {"$ref": "#/definitions/presentation"},
    {
      "type": "object",
      "required": ["proof"],
      "properties": {
        "proof": {
          "allOf": [
            {"$ref": "#/definitions/proof"},
            {
              "required": ["challenge"],
              "properties": {"challenge": {"type": "string", "minLength": 1}}
            }
          ]
        }
      }
    }
  ],
  "definitions": {
    "presentation": ` + presentationSchema + `,
    "proof": ` + proofSchema + `
  }
}`

const proofSchema = `{
  "type": "object",
  "required": ["type", "verificationMethod", "proofPurpose", "proofValue"],
  "properties": {
    "type": {"type": "string", "minLength": 1},
    "created": {"type": "string"},
    "verificationMethod": {"type": "string", "minLength": 1},
    "proofPurpose": {"type": "string", "minLength": 1},
    "proofValue": {"type": "string", "minLength": 1},
    "challenge": {"type": "string"}
  }
}`
