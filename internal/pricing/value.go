package pricing

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Value holds a client supplied numeric field that may arrive either as a JSON
// string or a JSON number. Decoding never fails; unusable input is kept as an
// invalid value so a single bad field cannot abort decoding of the whole cart.
type Value struct {
	raw     string
	present bool
	invalid bool
}

// NewValue builds a Value from its textual form. Handy for tests and callers
// that already hold strings.
func NewValue(raw string) Value {
	return Value{raw: raw, present: true}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	*v = Value{}
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		return nil
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			v.present, v.invalid = true, true
			return nil
		}
		v.raw, v.present = s, true
	case trimmed[0] == '-' || (trimmed[0] >= '0' && trimmed[0] <= '9'):
		v.raw, v.present = string(trimmed), true
	default:
		v.raw, v.present, v.invalid = string(trimmed), true, true
	}
	return nil
}

// MarshalJSON emits the raw text as a JSON string.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.present {
		return []byte("null"), nil
	}
	return json.Marshal(v.raw)
}

// String returns the raw text as received.
func (v Value) String() string { return v.raw }

// Present reports whether the field was supplied at all.
func (v Value) Present() bool { return v.present }

func (v Value) text() (string, bool) {
	if !v.present || v.invalid {
		return "", false
	}
	s := strings.TrimSpace(v.raw)
	return s, s != ""
}
