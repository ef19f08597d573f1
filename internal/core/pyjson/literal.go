package pyjson

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Literal renders v as Python source that evaluates to an equal value.
// Strings are emitted with ASCII-only escapes so the text can be embedded in any generated module.
func Literal(v any) string {
	var sb strings.Builder
	writeLiteral(&sb, v)
	return sb.String()
}

func writeLiteral(sb *strings.Builder, v any) {
	switch t := v.(type) {
	case nil:
		sb.WriteString("None")
	case bool:
		if t {
			sb.WriteString("True")
		} else {
			sb.WriteString("False")
		}
	case string:
		writePyString(sb, t)
	case json.Number:
		if IsIntegerText(string(t)) {
			sb.WriteString(numberRepr(t))
			return
		}
		writeFloatLiteral(sb, ParseFloat(string(t)))
	case float64:
		writeFloatLiteral(sb, t)
	case []any:
		sb.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeLiteral(sb, e)
		}
		sb.WriteByte(']')
	case *Object:
		sb.WriteByte('{')
		for i, k := range t.keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			writePyString(sb, k)
			sb.WriteString(": ")
			writeLiteral(sb, t.values[k])
		}
		sb.WriteByte('}')
	default:
		writePyString(sb, fmt.Sprintf("%v", v))
	}
}

func writeFloatLiteral(sb *strings.Builder, f float64) {
	switch {
	case math.IsNaN(f):
		sb.WriteString("float('nan')")
	case math.IsInf(f, 1):
		sb.WriteString("float('inf')")
	case math.IsInf(f, -1):
		sb.WriteString("(-float('inf'))")
	default:
		sb.WriteString(FloatRepr(f))
	}
}

func writePyString(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			switch {
			case r >= 0x20 && r <= 0x7e:
				sb.WriteRune(r)
			case r <= 0xff:
				fmt.Fprintf(sb, `\x%02x`, r)
			case r <= 0xffff:
				fmt.Fprintf(sb, `\u%04x`, r)
			default:
				fmt.Fprintf(sb, `\U%08x`, r)
			}
		}
	}
	sb.WriteByte('"')
}
