package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestDecodeList_RoundTrip(t *testing.T) {
	in := []any{"Paris", map[string]any{"label": "B", "value": float64(2)}, []any{"x", true}}
	raw, err := EncodeList(in)
	require.NoError(t, err)

	assert.Equal(t, in, DecodeList(raw))
}

func TestDecodeList_MalformedDegradesToEmpty(t *testing.T) {
	for _, raw := range []string{"", "null", "{not json", `{"a":1}`, `"just a string"`} {
		got := DecodeList(datatypes.JSON(raw))
		assert.NotNil(t, got, "input %q", raw)
		assert.Empty(t, got, "input %q", raw)
	}
}

func TestEffectiveSet_DefaultsToOne(t *testing.T) {
	two := 2
	zero := 0
	assert.Equal(t, 1, QuizQuestion{}.EffectiveSet())
	assert.Equal(t, 1, QuizQuestion{SetNumber: &zero}.EffectiveSet())
	assert.Equal(t, 2, QuizQuestion{SetNumber: &two}.EffectiveSet())
}
