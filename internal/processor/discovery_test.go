package processor

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AengusMcGuinness/Powertown-MVP-rework/constants"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/repository"
)

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"PJM Interconnection Queue #112": "pjm_interconnection_queue_112",
		"Substation  Distance (mi)":      "substation_distance_mi",
		"---":                            "fact",
		"":                               "fact",
		"already_fine":                   "already_fine",
		"Voltage: 12.47kV":               "voltage_12_47kv",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slug(in), "Slug(%q)", in)
	}

	long := strings.Repeat("abcde ", 30)
	assert.LessOrEqual(t, len(Slug(long)), 80)
}

func TestExtractDiscoveryWritesNamespacedClaims(t *testing.T) {
	env := newTestEnv(t)
	a := env.createTextArtifact(t, "doc")
	ctx := context.Background()

	require.NoError(t, env.segments.ReplaceAll(ctx, a.ID, []repository.SegmentInput{
		{Text: "PJM queue position 112, substation Riverside 2.3 mi away.", SourceRef: "text:note"},
	}))
	// A schema claim that discovery must not disturb.
	require.NoError(t, env.claims.ReplaceStructured(ctx, a.ID, nil, []repository.ClaimInput{
		{FieldKey: "substation_distance", ValueJSON: "2.3", Confidence: 0.9},
	}))

	env.backend.replies = []string{`{"facts":[
		{"label":"PJM Interconnection Queue #112","value":"112","type":"id","category":"interconnection","confidence":0.9,"evidence":"queue position 112"},
		"not an object",
		{"label":"","value":"dropped"},
		{"label":"Substation Distance","value":2.3,"type":"quantity","confidence":7}
	]}`}

	err := env.proc.Run(ctx, env.job(a, constants.JobTypeExtractDiscover))
	require.NoError(t, err)

	claims, err := env.claims.ListByArtifact(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, claims, 3)

	byKey := map[string]float64{}
	for _, c := range claims {
		byKey[c.FieldKey] = c.Confidence
	}
	assert.Contains(t, byKey, "disc:pjm_interconnection_queue_112")
	assert.Contains(t, byKey, "disc:substation_distance")
	assert.Contains(t, byKey, "substation_distance", "schema claims untouched")
	assert.Equal(t, 1.0, byKey["disc:substation_distance"], "confidence clamped")
}

func TestExtractDiscoveryNoTextClearsNamespace(t *testing.T) {
	env := newTestEnv(t)
	a := env.createTextArtifact(t, "doc")
	ctx := context.Background()

	require.NoError(t, env.claims.ReplaceDiscovery(ctx, a.ID, nil, []repository.ClaimInput{
		{FieldKey: "disc:stale_fact", ValueJSON: `{"label":"stale"}`, Confidence: 0.5},
	}))
	require.NoError(t, env.claims.ReplaceStructured(ctx, a.ID, nil, []repository.ClaimInput{
		{FieldKey: "city", ValueJSON: `"Austin"`, Confidence: 0.9},
	}))

	err := env.proc.Run(ctx, env.job(a, constants.JobTypeExtractDiscover))
	require.NoError(t, err)
	assert.Equal(t, 0, env.backend.calls)

	claims, err := env.claims.ListByArtifact(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, "city", claims[0].FieldKey)
}

func TestExtractDiscoveryCapsFactCount(t *testing.T) {
	env := newTestEnv(t)
	a := env.createTextArtifact(t, "doc")
	ctx := context.Background()

	require.NoError(t, env.segments.ReplaceAll(ctx, a.ID, []repository.SegmentInput{
		{Text: "many facts", SourceRef: "text:note"},
	}))

	var b strings.Builder
	b.WriteString(`{"facts":[`)
	for i := 0; i < 50; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`{"label":"fact number ` + string(rune('a'+i%26)) + strings.Repeat("x", i) + `","value":1}`)
	}
	b.WriteString(`]}`)
	env.backend.replies = []string{b.String()}

	err := env.proc.Run(ctx, env.job(a, constants.JobTypeExtractDiscover))
	require.NoError(t, err)

	claims, err := env.claims.ListByArtifact(ctx, a.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(claims), 40)
}
