package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/common"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/entity"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/llm"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/repository"
)

const discoverySourceRef = "discovery:llm"

type rawFact struct {
	Label      string  `json:"label"`
	Value      any     `json:"value"`
	Type       string  `json:"type"`
	Category   string  `json:"category"`
	Confidence any     `json:"confidence"`
	Evidence   *string `json:"evidence"`
}

type factsEnvelope struct {
	Facts json.RawMessage `json:"facts"`
}

// extractDiscovery runs schema-free fact extraction. Facts land in the
// disc: key namespace; claims from the structured schema are untouched.
// Malformed entries are skipped individually rather than failing the batch.
func (p *Processor) extractDiscovery(ctx context.Context, a *entity.Artifact) error {
	text, segCount, err := p.concatSegments(ctx, a.ID)
	if err != nil {
		return err
	}
	if text == "" {
		p.log.Info("discovery.no_text", "artifact_id", a.ID)
		return p.claims.ReplaceDiscovery(ctx, a.ID, a.BuildingID, nil)
	}
	if len(text) > p.cfg.Extract.MaxChars {
		text = text[:p.cfg.Extract.MaxChars]
	}

	p.log.Info("discovery.start", "artifact_id", a.ID, "segments", segCount, "chars", len(text))

	out, err := p.backend.Complete(ctx, buildDiscoveryPrompt(text, p.cfg.Extract.MaxFacts))
	if err != nil {
		return err
	}

	obj, err := llm.ExtractJSONObject(out)
	if err != nil {
		return err
	}
	var env factsEnvelope
	if err := json.Unmarshal([]byte(obj), &env); err != nil {
		return common.WrapError(err, "decode facts envelope")
	}

	// A non-list "facts" value empties the namespace instead of failing.
	var rawFacts []json.RawMessage
	if len(env.Facts) > 0 {
		if err := json.Unmarshal(env.Facts, &rawFacts); err != nil {
			p.log.Warn("discovery.facts_not_list", "artifact_id", a.ID)
			rawFacts = nil
		}
	}

	inputs := make([]repository.ClaimInput, 0, len(rawFacts))
	for _, rawMsg := range rawFacts {
		if len(inputs) >= p.cfg.Extract.MaxFacts {
			break
		}
		var fact rawFact
		if err := json.Unmarshal(rawMsg, &fact); err != nil {
			continue
		}
		label := strings.TrimSpace(fact.Label)
		if label == "" {
			continue
		}

		if fact.Type == "" {
			fact.Type = "string"
		}
		if fact.Category == "" {
			fact.Category = "other"
		}
		payload, err := json.Marshal(map[string]any{
			"label":    label,
			"value":    fact.Value,
			"type":     fact.Type,
			"category": fact.Category,
			"evidence": fact.Evidence,
		})
		if err != nil {
			continue
		}

		conf := coerceConfidence(fact.Confidence)
		if conf < 0 {
			conf = 0
		} else if conf > 1 {
			conf = 1
		}

		inputs = append(inputs, repository.ClaimInput{
			FieldKey:   repository.DiscoveryKeyPrefix + Slug(label),
			ValueJSON:  string(payload),
			Confidence: conf,
			SourceRef:  discoverySourceRef,
		})
	}

	p.log.Info("discovery.ok", "artifact_id", a.ID, "facts", len(inputs))
	return p.claims.ReplaceDiscovery(ctx, a.ID, a.BuildingID, inputs)
}

// Slug lower-cases a fact label, collapses non-alphanumeric runs to single
// underscores and caps the result at 80 characters.
func Slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastUnderscore = false
		} else if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "_")
	if len(out) > 80 {
		out = out[:80]
	}
	if out == "" {
		return "fact"
	}
	return out
}

func buildDiscoveryPrompt(text string, maxFacts int) string {
	var b strings.Builder
	b.WriteString("You extract useful facts from documents.\n\n")
	b.WriteString("Return ONLY valid JSON. No extra text.\n\n")
	b.WriteString(`Schema:
{
  "facts": [
    {
      "label": "short human-readable name",
      "value": "string|number|bool|object",
      "type": "string|number|bool|date|money|quantity|id|other",
      "category": "power|interconnection|zoning|real_estate|equipment|contacts|other",
      "confidence": 0.0,
      "evidence": "short exact quote from input"
    }
  ]
}` + "\n\n")
	b.WriteString("Rules:\n")
	fmt.Fprintf(&b, "- Extract up to %d facts that would matter for evaluating a site for power / interconnection / BESS readiness.\n", maxFacts)
	b.WriteString("- Prefer concrete numbers, IDs, voltages, capacities, distances, dates, names, utilities, substations.\n")
	b.WriteString("- Do NOT invent facts. If unsure, omit.\n\n")
	fmt.Fprintf(&b, "Input:\n\"\"\"%s\"\"\"\n\nJSON:\n", text)
	return b.String()
}
