package payload

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceMoney(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"integer", 1518, "1518.00"},
		{"int64", int64(-3), "-3.00"},
		{"float", 1518.0, "1518.00"},
		{"float cents", 1650.55, "1650.55"},
		{"float32", float32(2.5), "2.50"},
		{"plain string", "1518", "1518.00"},
		{"dot decimal", "1650.5", "1650.50"},
		{"comma decimal", "2,50", "2.50"},
		{"comma decimal single digit", "2,5", "2.50"},
		{"dot grouping comma decimal", "1.518,00", "1518.00"},
		{"comma grouping dot decimal", "1,518.00", "1518.00"},
		{"dot grouping only", "1.518.000", "1518000.00"},
		{"comma grouping only", "1,518,000", "1518000.00"},
		{"exact extra zeros", "7,1000", "7.10"},
		{"signed", " -12,34 ", "-12.34"},
		{"plus sign", "+0.1", "0.10"},
		{"json number", json.Number("99.9"), "99.90"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := coerceMoney(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerceMoneyRejects(t *testing.T) {
	tests := []struct {
		name string
		in   any
	}{
		{"sub-cent float", 1.005},
		{"sub-cent string", "1.0051"},
		{"ambiguous comma", "1,518"},
		{"ambiguous dot", "1.518"},
		{"repeated decimal", "1.518,00,5"},
		{"bad grouping", "15.18,00"},
		{"leading group too long", "1518.000,00"},
		{"trailing separator", "12,"},
		{"missing whole part", ",50"},
		{"letters", "12a"},
		{"empty", ""},
		{"overflow", "99999999999999999999"},
		{"int overflow", int64(1) << 62},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := coerceMoney(tt.in)
			assert.Error(t, err)
		})
	}
}
