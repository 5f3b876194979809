package parse

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseScaledNumber(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want float64
		ok   bool
	}{
		{"millions", "2.3m", 2300000, true},
		{"upper case billions", "1.5B", 1500000000, true},
		{"thousands with commas", "1,500k", 1500000, true},
		{"plain", "750", 750, true},
		{"comma grouped", "1,234,567", 1234567, true},
		{"padded", "  12k ", 12000, true},
		{"negative", "-3k", -3000, true},
		{"trailing noise", "12abc", 12, true},
		{"placeholder", "--", 0, false},
		{"empty", "", 0, false},
		{"whitespace", "   ", 0, false},
		{"suffix only", "m", 0, false},
		{"text", "unknown", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseScaledNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseFairFight(t *testing.T) {
	v, ok := ParseFairFight("2.45")
	assert.True(t, ok)
	assert.Equal(t, 2.45, v)

	_, ok = ParseFairFight("2.45x")
	assert.False(t, ok, "fair fight must be fully numeric")

	_, ok = ParseFairFight("--")
	assert.False(t, ok)

	_, ok = ParseFairFight("NaN")
	assert.False(t, ok)
}

func TestCoerce(t *testing.T) {
	v, ok := CoerceScaledNumber(json.Number("2.5"))
	assert.True(t, ok)
	assert.Equal(t, 2.5, v)

	v, ok = CoerceScaledNumber(float64(1200))
	assert.True(t, ok)
	assert.Equal(t, 1200.0, v)

	v, ok = CoerceScaledNumber(42)
	assert.True(t, ok)
	assert.Equal(t, 42.0, v)

	_, ok = CoerceScaledNumber(math.NaN())
	assert.False(t, ok)

	_, ok = CoerceScaledNumber(nil)
	assert.False(t, ok)

	_, ok = CoerceScaledNumber(true)
	assert.False(t, ok)

	v, ok = CoerceFairFight("3.1")
	assert.True(t, ok)
	assert.Equal(t, 3.1, v)
}

func TestCoerceIsIdempotent(t *testing.T) {
	for _, in := range []string{"2.3m", "1,500k", "750", "1.5b"} {
		first, ok := ParseScaledNumber(in)
		assert.True(t, ok, in)
		second, ok := CoerceScaledNumber(first)
		assert.True(t, ok, in)
		assert.Equal(t, first, second, in)
	}
}

func TestFormatScaledNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{2300000, "2.3m"},
		{1500, "1.5k"},
		{1500000000, "1.5b"},
		{1234567, "1.234567m"},
		{999, "999"},
		{0, "0"},
		{math.NaN(), Placeholder},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatScaledNumber(tt.in))
	}
}

func TestFormatRoundTrip(t *testing.T) {
	for _, v := range []float64{2300000, 1500, 999, 1234567, 45000000000, 12.5} {
		s := FormatScaledNumber(v)
		back, ok := ParseScaledNumber(s)
		assert.True(t, ok, s)
		assert.Equal(t, v, back, s)
	}
}

func TestIsMeaningful(t *testing.T) {
	assert.True(t, IsMeaningful("1.2m"))
	assert.False(t, IsMeaningful(" -- "))
	assert.False(t, IsMeaningful(""))

	assert.False(t, IsMeaningfulNumber(nil))
	nan := math.NaN()
	assert.False(t, IsMeaningfulNumber(&nan))
	zero := 0.0
	assert.True(t, IsMeaningfulNumber(&zero))
}
