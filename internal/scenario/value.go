package scenario

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ParseValue parses a signal value. It returns dontCare=true for values made
// only of x/X/z/Z characters. Underscores are allowed as digit separators.
func ParseValue(s string) (v uint64, dontCare bool, err error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return 0, false, fmt.Errorf("empty value")
	}
	if isDontCare(t) {
		return 0, true, nil
	}
	t = strings.ReplaceAll(t, "_", "")

	base := 10
	if len(t) > 2 && t[0] == '0' {
		switch t[1] {
		case 'x', 'X':
			base, t = 16, t[2:]
		case 'b', 'B':
			base, t = 2, t[2:]
		case 'o', 'O':
			base, t = 8, t[2:]
		}
	}
	v, err = strconv.ParseUint(t, base, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid value %q", s)
	}
	return v, false, nil
}

func isDontCare(s string) bool {
	for _, r := range s {
		switch r {
		case 'x', 'X', 'z', 'Z':
		default:
			return false
		}
	}
	return true
}

// convertValue turns a decoded YAML or JSON scalar into a value.
func convertValue(raw any) (uint64, bool, error) {
	switch x := raw.(type) {
	case string:
		return ParseValue(x)
	case json.Number:
		return ParseValue(x.String())
	case int:
		if x < 0 {
			return 0, false, fmt.Errorf("negative value %d", x)
		}
		return uint64(x), false, nil
	case int64:
		if x < 0 {
			return 0, false, fmt.Errorf("negative value %d", x)
		}
		return uint64(x), false, nil
	case uint64:
		return x, false, nil
	case bool:
		if x {
			return 1, false, nil
		}
		return 0, false, nil
	case nil:
		return 0, false, fmt.Errorf("missing value")
	}
	return 0, false, fmt.Errorf("unsupported value %v (%T)", raw, raw)
}

// convertVector converts a name-to-raw-value map, dropping don't-cares.
func convertVector(raw map[string]any) (map[string]uint64, error) {
	out := make(map[string]uint64, len(raw))
	for name, r := range raw {
		v, dc, err := convertValue(r)
		if err != nil {
			return nil, fmt.Errorf("signal %s: %w", name, err)
		}
		if dc {
			continue
		}
		out[name] = v
	}
	return out, nil
}
