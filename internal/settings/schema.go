package settings

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bft-labs/golive/internal/domain"
)

// coerce converts a raw field value (as decoded from TOML, JSON or a form)
// into the canonical Go type of spec.Kind and checks its constraints.
func coerce(spec domain.FieldSpec, raw any) (any, error) {
	switch spec.Kind {
	case domain.KindString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("must be a string")
		}
		return s, nil

	case domain.KindBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("must be a boolean")
			}
			return b, nil
		}
		return nil, fmt.Errorf("must be a boolean")

	case domain.KindInt:
		n, err := toInt(raw)
		if err != nil {
			return nil, err
		}
		switch {
		case spec.Max > 0 && (n < spec.Min || n > spec.Max):
			return nil, fmt.Errorf("must be between %d and %d", spec.Min, spec.Max)
		case spec.Max <= 0 && spec.Min != 0 && n < spec.Min:
			return nil, fmt.Errorf("must be at least %d", spec.Min)
		}
		return n, nil

	case domain.KindEnum:
		var s string
		switch v := raw.(type) {
		case string:
			s = v
		default:
			n, err := toInt(raw)
			if err != nil {
				return nil, fmt.Errorf("must be one of %s", strings.Join(spec.Options, ", "))
			}
			s = strconv.Itoa(n)
		}
		for _, opt := range spec.Options {
			if opt == s {
				return s, nil
			}
		}
		return nil, fmt.Errorf("must be one of %s", strings.Join(spec.Options, ", "))
	}
	return nil, fmt.Errorf("unsupported field kind %s", spec.Kind)
}

func toInt(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int8:
		return int(v), nil
	case int16:
		return int(v), nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint:
		return int(v), nil
	case uint8:
		return int(v), nil
	case uint16:
		return int(v), nil
	case uint32:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("must be a whole number")
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("must be a whole number")
		}
		return n, nil
	}
	return 0, fmt.Errorf("must be a whole number")
}

// isEmpty reports whether a normalized value counts as missing for a
// required field.
func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case int:
		return x == 0
	}
	return false
}
