package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want Number
	}{
		{"nil", nil, Unknown()},
		{"bool", true, Unknown()},
		{"int", 42, Known(42)},
		{"int64", int64(7), Known(7)},
		{"float", 1.25, Known(1.25)},
		{"zero is known", 0, Known(0)},
		{"nan", math.NaN(), Unknown()},
		{"inf", math.Inf(1), Unknown()},
		{"currency string", "$1,234.50", Known(1234.5)},
		{"percent string", "25%", Known(25)},
		{"padded string", "  12 ", Known(12)},
		{"n/a", "N/A", Unknown()},
		{"empty", "", Unknown()},
		{"garbage", "call us", Unknown()},
		{"json number", json.Number("3.5"), Known(3.5)},
		{"slice", []int{1}, Unknown()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseNumber(tt.in))
		})
	}
}

func TestParseLeadTimeDays(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want Number
	}{
		{"weeks", "12 Weeks", Known(84)},
		{"days", "45 Days", Known(45)},
		{"stock", "Stock", Known(0)},
		{"numeric", 30, Known(30)},
		{"fractional weeks", "1.5 weeks", Known(11)},
		{"unknown", "unknown", Unknown()},
		{"no digits", "contact factory", Unknown()},
		{"nil", nil, Unknown()},
		{"negative", -3, Unknown()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLeadTimeDays(tt.in))
		})
	}
}

func TestNumberJSON(t *testing.T) {
	t.Parallel()

	out, err := json.Marshal(struct {
		A Number `json:"a"`
		B Number `json:"b"`
	}{A: Known(5), B: Unknown()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":5,"b":null}`, string(out))

	var in struct {
		A Number `json:"a"`
		B Number `json:"b"`
		C Number `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"1,000","b":null,"c":"n/a"}`), &in))
	assert.Equal(t, Known(1000), in.A)
	assert.False(t, in.B.Known)
	assert.False(t, in.C.Known)
}

func TestNumberYAML(t *testing.T) {
	t.Parallel()

	var in struct {
		Stock Number `yaml:"stock"`
		Lead  Number `yaml:"lead"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("stock: 250\nlead: ~\n"), &in))
	assert.Equal(t, Known(250), in.Stock)
	assert.False(t, in.Lead.Known)
}

func TestNumberHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 3, Known(2.6).Int())
	assert.Equal(t, 0, Unknown().Int())
	assert.InDelta(t, 9.0, Unknown().Or(9), 1e-12)
	assert.Equal(t, "unknown", Unknown().String())
	assert.Equal(t, "1.5", Known(1.5).String())
}
