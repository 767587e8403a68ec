package llm

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/common"
)

// claimsEnvelopeSchema checks the shape of the structured-extraction reply
// before the per-claim coercion pass. Value is left untyped here; the
// allowed-key table decides the concrete type per key.
const claimsEnvelopeSchema = `{
  "type": "object",
  "required": ["claims"],
  "properties": {
    "claims": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["key"],
        "properties": {
          "key": {"type": "string", "minLength": 1},
          "unit": {"type": ["string", "null"]},
          "confidence": {"type": ["number", "integer"]}
        }
      }
    }
  }
}`

var claimsSchema = jsonschema.MustCompileString("claims.json", claimsEnvelopeSchema)

// ValidateClaimsEnvelope checks a raw JSON object against the claims schema.
// Discovery replies are deliberately not schema-checked: malformed entries
// there are skipped one by one instead of failing the batch.
func ValidateClaimsEnvelope(obj string) error {
	return validateAgainst(claimsSchema, obj)
}

func validateAgainst(schema *jsonschema.Schema, obj string) error {
	var v any
	if err := json.Unmarshal([]byte(obj), &v); err != nil {
		return common.WrapError(err, "invalid JSON")
	}
	if err := schema.Validate(v); err != nil {
		msg := err.Error()
		if i := strings.IndexByte(msg, '\n'); i >= 0 {
			msg = msg[:i]
		}
		return common.WrapError(err, msg)
	}
	return nil
}
