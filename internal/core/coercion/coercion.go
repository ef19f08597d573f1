// Package coercion converts decoded JSON arguments into the values a declared
// Python parameter type implies, using Python's own conversion rules and error texts.
package coercion

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"gitlab.com/fcv-grader.net/internal/core/pyjson"
	"gitlab.com/fcv-grader.net/internal/domain"
	"gitlab.com/fcv-grader.net/internal/static/errs"
)

var (
	intLiteral   = regexp.MustCompile(`^[+-]?[0-9](?:_?[0-9])*$`)
	floatLiteral = regexp.MustCompile(`(?i)^[+-]?(?:(?:[0-9](?:_?[0-9])*(?:\.(?:[0-9](?:_?[0-9])*)?)?|\.[0-9](?:_?[0-9])*)(?:e[+-]?[0-9](?:_?[0-9])*)?|inf|infinity|nan)$`)
)

// Args coerces args positionally against params and stops at the first failure.
// Callers must have checked that both slices have the same length.
func Args(args []any, params []domain.Parameter) ([]any, error) {
	out := make([]any, len(args))
	for i, p := range params {
		v, err := Coerce(args[i], p.Type)
		if err != nil {
			return nil, &errs.CoercionError{Parameter: p.Name, Err: err}
		}
		out[i] = v
	}
	return out, nil
}

// Coerce converts value according to tag. Unknown tags pass the value through.
func Coerce(value any, tag domain.TypeTag) (any, error) {
	switch {
	case tag == domain.TypeInt:
		return toInt(value)
	case tag == domain.TypeFloat:
		return toFloat(value)
	case tag == domain.TypeStr:
		return pyjson.Str(value), nil
	case tag == domain.TypeBool:
		return toBool(value), nil
	case tag.IsList():
		if _, ok := value.([]any); !ok {
			return nil, fmt.Errorf("Expected list, got %s", pyjson.TypeName(value))
		}
		return value, nil
	case tag.IsDict():
		if _, ok := value.(*pyjson.Object); !ok {
			return nil, fmt.Errorf("Expected dict, got %s", pyjson.TypeName(value))
		}
		return value, nil
	}
	return value, nil
}

func toInt(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		if v {
			return json.Number("1"), nil
		}
		return json.Number("0"), nil
	case json.Number:
		if pyjson.IsIntegerText(string(v)) {
			bi, ok := new(big.Int).SetString(string(v), 10)
			if !ok {
				return nil, fmt.Errorf("invalid literal for int() with base 10: %s", pyjson.Repr(string(v)))
			}
			return json.Number(bi.String()), nil
		}
		return truncate(pyjson.ParseFloat(string(v)))
	case float64:
		return truncate(v)
	case string:
		s := strings.TrimSpace(v)
		if !intLiteral.MatchString(s) {
			return nil, fmt.Errorf("invalid literal for int() with base 10: %s", pyjson.Repr(v))
		}
		bi, _ := new(big.Int).SetString(strings.ReplaceAll(s, "_", ""), 10)
		return json.Number(bi.String()), nil
	}
	return nil, fmt.Errorf("int() argument must be a string, a bytes-like object or a real number, not '%s'", pyjson.TypeName(value))
}

func truncate(f float64) (any, error) {
	switch {
	case math.IsNaN(f):
		return nil, errors.New("cannot convert float NaN to integer")
	case math.IsInf(f, 0):
		return nil, errors.New("cannot convert float infinity to integer")
	}
	bi, _ := big.NewFloat(math.Trunc(f)).Int(nil)
	return json.Number(bi.String()), nil
}

func toFloat(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		if v {
			return float64(1), nil
		}
		return float64(0), nil
	case json.Number:
		f := pyjson.ParseFloat(string(v))
		if pyjson.IsIntegerText(string(v)) && math.IsInf(f, 0) {
			return nil, errors.New("int too large to convert to float")
		}
		return f, nil
	case float64:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if !floatLiteral.MatchString(s) {
			return nil, fmt.Errorf("could not convert string to float: %s", pyjson.Repr(v))
		}
		// overflow yields ±Inf, which is what float() does for "1e400"
		f, err := strconv.ParseFloat(strings.ReplaceAll(s, "_", ""), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return nil, fmt.Errorf("could not convert string to float: %s", pyjson.Repr(v))
		}
		return f, nil
	}
	return nil, fmt.Errorf("float() argument must be a string or a real number, not '%s'", pyjson.TypeName(value))
}

func toBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(v) {
		case "true", "1", "yes":
			return true
		}
		return false
	}
	return Truthy(value)
}

// Truthy reports Python truthiness of a decoded value
func Truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case json.Number:
		if pyjson.IsIntegerText(string(v)) {
			bi, ok := new(big.Int).SetString(string(v), 10)
			return ok && bi.Sign() != 0
		}
		return pyjson.ParseFloat(string(v)) != 0
	case float64:
		return v != 0
	case []any:
		return len(v) > 0
	case *pyjson.Object:
		return v.Len() > 0
	}
	return true
}
