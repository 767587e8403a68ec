package llm

import (
	"encoding/json"
	"strings"

	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/common"
)

// ExtractJSONObject pulls the first balanced {...} out of a model reply.
// Models wrap JSON in prose or code fences often enough that strict parsing
// of the whole reply is a losing game.
func ExtractJSONObject(raw string) (string, error) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", common.NewAppError("LLM_NO_JSON", "no JSON object in model output", common.ErrInvalidInput)
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], nil
			}
		}
	}
	return "", common.NewAppError("LLM_NO_JSON", "unbalanced JSON object in model output", common.ErrInvalidInput)
}

// DecodeObject extracts and unmarshals the first JSON object into v.
func DecodeObject(raw string, v any) error {
	obj, err := ExtractJSONObject(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return common.WrapError(err, "decode model JSON")
	}
	return nil
}
