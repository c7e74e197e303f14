package schedhash

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHashStableAcrossEquivalentInputs(t *testing.T) {
	at := time.Date(2026, time.January, 2, 9, 0, 0, 0, time.UTC)

	a := Hash(&at, "weekly", true, nil, "stretch", map[string]any{
		"kind": "weekly", "interval": 2, "weekdays": []any{1, 4},
	})
	b := Hash(&at, "weekly", true, nil, "stretch", map[string]any{
		"weekdays": []any{1, 4}, "interval": 2, "kind": "weekly",
	})
	assert.Equal(t, a, b)

	// The same instant in a different zone hashes the same: only the
	// epoch milliseconds go into the payload.
	shifted := at.In(time.FixedZone("X", -5*3600))
	c := Hash(&shifted, "weekly", true, nil, "stretch", map[string]any{
		"kind": "weekly", "interval": 2, "weekdays": []any{1, 4},
	})
	assert.Equal(t, a, c)

	assert.Len(t, a, 64)
}

func TestHashSensitivity(t *testing.T) {
	at := time.Date(2026, time.January, 2, 9, 0, 0, 0, time.UTC)
	later := at.Add(time.Minute)
	cfg := map[string]any{"kind": "daily", "interval": 1}

	base := Hash(&at, "daily", true, nil, "stretch", cfg)

	assert.NotEqual(t, base, Hash(&later, "daily", true, nil, "stretch", cfg))
	assert.NotEqual(t, base, Hash(nil, "daily", true, nil, "stretch", cfg))
	assert.NotEqual(t, base, Hash(&at, "weekly", true, nil, "stretch", cfg))
	assert.NotEqual(t, base, Hash(&at, "daily", false, nil, "stretch", cfg))
	assert.NotEqual(t, base, Hash(&at, "daily", true, &later, "stretch", cfg))
	assert.NotEqual(t, base, Hash(&at, "daily", true, nil, "hydrate", cfg))
	assert.NotEqual(t, base, Hash(&at, "daily", true, nil, "stretch",
		map[string]any{"kind": "daily", "interval": 2}))
}

func TestHashNilConfig(t *testing.T) {
	a := Hash(nil, "none", false, nil, "", nil)
	b := Hash(nil, "none", false, nil, "", nil)
	assert.Equal(t, a, b)
}
