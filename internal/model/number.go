package model

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Number is a numeric value that may be unknown. Suppliers routinely omit or
// garble numeric fields, and downstream scoring must be able to tell "no data"
// apart from a real zero.
type Number struct {
	Value float64
	Known bool
}

// Known returns a known Number.
func Known(v float64) Number {
	return Number{Value: v, Known: true}
}

// Unknown returns the unknown Number.
func Unknown() Number {
	return Number{}
}

// Int returns the value rounded to the nearest integer. Callers must check
// Known first; Int on an unknown Number returns 0.
func (n Number) Int() int {
	if !n.Known {
		return 0
	}
	return int(math.Round(n.Value))
}

// Or returns the value if known, otherwise def.
func (n Number) Or(def float64) float64 {
	if !n.Known {
		return def
	}
	return n.Value
}

// String renders the value, or "unknown".
func (n Number) String() string {
	if !n.Known {
		return "unknown"
	}
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

// MarshalJSON encodes unknown as null.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Known {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// UnmarshalJSON accepts null, numbers, and numeric strings.
func (n *Number) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		*n = Unknown()
		return nil //nolint:nilerr // malformed numbers degrade to unknown
	}
	*n = ParseNumber(raw)
	return nil
}

// MarshalYAML encodes unknown as null.
func (n Number) MarshalYAML() (any, error) {
	if !n.Known {
		return nil, nil
	}
	return n.Value, nil
}

// UnmarshalYAML accepts the same shapes as UnmarshalJSON.
func (n *Number) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		*n = Unknown()
		return nil //nolint:nilerr // malformed numbers degrade to unknown
	}
	*n = ParseNumber(raw)
	return nil
}

var unknownTokens = map[string]bool{
	"":        true,
	"n/a":     true,
	"na":      true,
	"none":    true,
	"null":    true,
	"nan":     true,
	"inf":     true,
	"-inf":    true,
	"unknown": true,
}

// ParseNumber coerces loosely typed input into a Number. Nil, booleans,
// non-finite floats, and unparseable strings become Unknown. Strings may carry
// currency symbols, thousands separators, and percent signs.
func ParseNumber(v any) Number {
	switch x := v.(type) {
	case nil, bool:
		return Unknown()
	case float64:
		return finite(x)
	case float32:
		return finite(float64(x))
	case int:
		return Known(float64(x))
	case int32:
		return Known(float64(x))
	case int64:
		return Known(float64(x))
	case uint:
		return Known(float64(x))
	case uint64:
		return Known(float64(x))
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Unknown()
		}
		return finite(f)
	case string:
		return parseNumberString(x)
	case Number:
		return x
	default:
		return Unknown()
	}
}

func finite(f float64) Number {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Unknown()
	}
	return Known(f)
}

func parseNumberString(s string) Number {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("$", "", ",", "", "%", "", "€", "", "£", "").Replace(s)
	s = strings.TrimSpace(s)
	if unknownTokens[s] {
		return Unknown()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Unknown()
	}
	return finite(f)
}

var leadTimeNumber = regexp.MustCompile(`(\d+(\.\d+)?)`)

// ParseLeadTimeDays interprets a supplier lead-time field. "Stock" means zero
// days, "N Weeks" is converted to days, and bare numbers are taken as days.
func ParseLeadTimeDays(v any) Number {
	switch x := v.(type) {
	case string:
		s := strings.ToLower(strings.TrimSpace(x))
		if unknownTokens[s] {
			return Unknown()
		}
		if s == "stock" || s == "in stock" {
			return Known(0)
		}
		m := leadTimeNumber.FindString(s)
		if m == "" {
			return Unknown()
		}
		f, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return Unknown()
		}
		if strings.Contains(s, "week") {
			f *= 7
		}
		return Known(math.Round(f))
	default:
		n := ParseNumber(v)
		if !n.Known || n.Value < 0 {
			return Unknown()
		}
		return Known(math.Round(n.Value))
	}
}
