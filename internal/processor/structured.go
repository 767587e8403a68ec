package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/common"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/entity"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/llm"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/repository"
)

const structuredSourceRef = "structured:llm"

// extractedClaim is one coerced, validated claim on its way into the store.
type extractedClaim struct {
	Key        string
	Value      any
	Unit       *string
	Confidence float64
	Evidence   string
}

type rawClaim struct {
	Key        string  `json:"key"`
	Value      any     `json:"value"`
	Unit       *string `json:"unit"`
	Confidence any     `json:"confidence"`
	Evidence   string  `json:"evidence"`
}

type claimsEnvelope struct {
	Claims []rawClaim `json:"claims"`
}

// extractStructured runs schema-bound claim extraction over the artifact's
// text. Model-output failures are repaired and, when exhausted, swallowed at
// the data level: the claim set is cleared and the job still succeeds, so a
// chatty model cannot poison the retry counter. Backend transport errors are
// surfaced and retried at the job level.
func (p *Processor) extractStructured(ctx context.Context, a *entity.Artifact) error {
	text, segCount, err := p.concatSegments(ctx, a.ID)
	if err != nil {
		return err
	}
	if text == "" {
		p.log.Info("structured.no_text", "artifact_id", a.ID)
		return p.claims.ReplaceStructured(ctx, a.ID, a.BuildingID, nil)
	}
	if len(text) > p.cfg.Extract.MaxChars {
		text = text[:p.cfg.Extract.MaxChars]
	}

	p.log.Info("structured.start", "artifact_id", a.ID, "segments", segCount, "chars", len(text))

	prompt := buildStructuredPrompt(text)
	var claims []extractedClaim
	var lastErr error

	for attempt := 1; attempt <= p.cfg.Extract.MaxAttempts; attempt++ {
		out, err := p.backend.Complete(ctx, prompt)
		if err != nil {
			return err
		}

		claims, err = parseClaims(out)
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = err
		p.log.Warn("structured.attempt_failed", "artifact_id", a.ID, "attempt", attempt, "error", err)
		prompt = buildRepairPrompt(text, err.Error())
	}

	if lastErr != nil && len(claims) == 0 {
		p.log.Warn("structured.exhausted", "artifact_id", a.ID, "error", lastErr)
		return p.claims.ReplaceStructured(ctx, a.ID, a.BuildingID, nil)
	}

	inputs := make([]repository.ClaimInput, 0, len(claims))
	for _, c := range claims {
		valueJSON, err := json.Marshal(c.Value)
		if err != nil {
			return common.WrapError(err, "encode claim value")
		}
		inputs = append(inputs, repository.ClaimInput{
			FieldKey:   c.Key,
			ValueJSON:  string(valueJSON),
			Unit:       c.Unit,
			Confidence: c.Confidence,
			SourceRef:  structuredSourceRef,
		})
	}

	p.log.Info("structured.ok", "artifact_id", a.ID, "claims", len(inputs))
	return p.claims.ReplaceStructured(ctx, a.ID, a.BuildingID, inputs)
}

// concatSegments joins the artifact's segments in order.
func (p *Processor) concatSegments(ctx context.Context, artifactID uuid.UUID) (string, int, error) {
	segs, err := p.segments.ListByArtifact(ctx, artifactID)
	if err != nil {
		return "", 0, err
	}
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		parts = append(parts, s.Text)
	}
	return strings.TrimSpace(strings.Join(parts, "\n")), len(segs), nil
}

// parseClaims turns a raw model reply into validated, deduplicated claims.
func parseClaims(out string) ([]extractedClaim, error) {
	obj, err := llm.ExtractJSONObject(out)
	if err != nil {
		return nil, err
	}
	if err := llm.ValidateClaimsEnvelope(obj); err != nil {
		return nil, err
	}

	var env claimsEnvelope
	if err := json.Unmarshal([]byte(obj), &env); err != nil {
		return nil, common.WrapError(err, "decode claims envelope")
	}

	cleaned := make([]extractedClaim, 0, len(env.Claims))
	for _, raw := range env.Claims {
		if c, ok := normalizeClaim(raw); ok {
			cleaned = append(cleaned, c)
		}
	}
	return dedupeClaims(cleaned), nil
}

// normalizeClaim validates a raw claim against the allowed-key schema and
// coerces its value to the key's declared type. Claims with unknown keys or
// uncoercible values are dropped, not errors.
func normalizeClaim(raw rawClaim) (extractedClaim, bool) {
	key := strings.TrimSpace(raw.Key)
	spec, ok := AllowedKeys[key]
	if !ok {
		return extractedClaim{}, false
	}

	c := extractedClaim{
		Key:        key,
		Value:      raw.Value,
		Unit:       raw.Unit,
		Confidence: coerceConfidence(raw.Confidence),
		Evidence:   strings.TrimSpace(raw.Evidence),
	}

	switch spec.Type {
	case TypeBool:
		switch v := c.Value.(type) {
		case bool:
		case string:
			switch strings.ToLower(v) {
			case "true":
				c.Value = true
			case "false":
				c.Value = false
			default:
				return extractedClaim{}, false
			}
		default:
			return extractedClaim{}, false
		}

	case TypeNumber:
		switch v := c.Value.(type) {
		case float64:
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return extractedClaim{}, false
			}
			c.Value = f
		case json.Number:
			f, err := v.Float64()
			if err != nil {
				return extractedClaim{}, false
			}
			c.Value = f
		default:
			return extractedClaim{}, false
		}

	case TypeString:
		c.Value = strings.TrimSpace(stringify(c.Value))
	}

	// canonical unit from the schema wins
	if spec.Unit != "" {
		u := spec.Unit
		c.Unit = &u
	}

	if c.Confidence < 0 {
		c.Confidence = 0
	} else if c.Confidence > 1 {
		c.Confidence = 1
	}
	return c, true
}

// dedupeClaims keeps the highest-confidence claim per key. Output order is
// stable by key so replacement runs are deterministic.
func dedupeClaims(claims []extractedClaim) []extractedClaim {
	best := make(map[string]extractedClaim, len(claims))
	for _, c := range claims {
		if prev, ok := best[c.Key]; !ok || c.Confidence > prev.Confidence {
			best[c.Key] = c
		}
	}
	out := make([]extractedClaim, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func coerceConfidence(v any) float64 {
	switch c := v.(type) {
	case float64:
		return c
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(c), 64); err == nil {
			return f
		}
	case json.Number:
		if f, err := c.Float64(); err == nil {
			return f
		}
	}
	return 0.5
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// buildStructuredPrompt lists the allowed keys with their types and units
// and demands a bare JSON reply.
func buildStructuredPrompt(text string) string {
	keys := make([]string, 0, len(AllowedKeys))
	for k := range AllowedKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("You extract structured facts from a document.\n\n")
	b.WriteString("ONLY output claims whose key is one of the allowed keys below.\n")
	b.WriteString("Do NOT invent new keys. Do NOT guess.\n\n")
	b.WriteString("Allowed keys:\n")
	for _, k := range keys {
		spec := AllowedKeys[k]
		if spec.Unit != "" {
			fmt.Fprintf(&b, "- %s (%s, unit: %s)\n", k, spec.Type, spec.Unit)
		} else {
			fmt.Fprintf(&b, "- %s (%s)\n", k, spec.Type)
		}
	}
	b.WriteString("\nReturn ONLY valid JSON of this form:\n")
	b.WriteString(`{
  "claims": [
    {"key":"...", "value": ..., "confidence": 0.0, "evidence":"short exact quote"}
  ]
}` + "\n\n")
	fmt.Fprintf(&b, "Document:\n\"\"\"%s\"\"\"\n\nJSON:\n", text)
	return b.String()
}

func buildRepairPrompt(text, badOutput string) string {
	var b strings.Builder
	b.WriteString("The previous output was invalid. Fix it.\n\n")
	fmt.Fprintf(&b, "Error/context:\n%s\n\n", badOutput)
	b.WriteString("Return ONLY valid JSON with the required schema, no extra text.\n\n")
	fmt.Fprintf(&b, "Document:\n\"\"\"%s\"\"\"\n\nJSON:\n", text)
	return b.String()
}
