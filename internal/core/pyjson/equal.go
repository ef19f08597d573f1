package pyjson

import (
	"encoding/json"
	"math"
	"math/big"
)

// Equal compares two values with Python == semantics:
// int, float and bool compare numerically, lists element-wise, dicts by key set.
func Equal(a, b any) bool {
	if ra, ok := asNumber(a); ok {
		rb, ok := asNumber(b)
		return ok && ra.equal(rb)
	}

	switch x := a.(type) {
	case nil:
		return b == nil
	case string:
		y, ok := b.(string)
		return ok && x == y
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case *Object:
		y, ok := b.(*Object)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for _, k := range x.keys {
			yv, ok := y.values[k]
			if !ok || !Equal(x.values[k], yv) {
				return false
			}
		}
		return true
	}
	return false
}

// number is either an exact rational or a non-finite float
type number struct {
	rat     *big.Rat
	special float64
}

func (n number) equal(o number) bool {
	if n.rat == nil || o.rat == nil {
		// NaN never equals anything, infinities only themselves
		return n.rat == nil && o.rat == nil && n.special == o.special
	}
	return n.rat.Cmp(o.rat) == 0
}

func asNumber(v any) (number, bool) {
	switch t := v.(type) {
	case bool:
		if t {
			return number{rat: big.NewRat(1, 1)}, true
		}
		return number{rat: new(big.Rat)}, true
	case json.Number:
		s := string(t)
		if IsIntegerText(s) {
			if r, ok := new(big.Rat).SetString(s); ok {
				return number{rat: r}, true
			}
			return number{}, false
		}
		return floatNumber(ParseFloat(s)), true
	case float64:
		return floatNumber(t), true
	}
	return number{}, false
}

func floatNumber(f float64) number {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return number{special: f}
	}
	return number{rat: new(big.Rat).SetFloat64(f)}
}
