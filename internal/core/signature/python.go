package signature

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"gitlab.com/fcv-grader.net/internal/domain"
)

var pythonKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true, "assert": true,
	"async": true, "await": true, "break": true, "class": true, "continue": true, "def": true,
	"del": true, "elif": true, "else": true, "except": true, "finally": true, "for": true,
	"from": true, "global": true, "if": true, "import": true, "in": true, "is": true,
	"lambda": true, "nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
}

var closers = map[byte]byte{')': '(', ']': '[', '}': '{'}

// PythonParser parses one-line headers such as "def add(a: int, b: int) -> int:".
// Positional parameters are kept in order; *args, keyword-only parameters and **kwargs
// cannot receive positional test arguments and are left out.
type PythonParser struct{}

func (PythonParser) Parse(signature string) (*domain.FunctionSignature, error) {
	src := strings.TrimSpace(signature)
	if src == "" {
		return nil, invalid(signature, "signature is empty")
	}
	src = strings.TrimSpace(strings.TrimSuffix(src, ":"))

	if !startsWithKeyword(src, "def") {
		return nil, invalid(signature, "Not a valid function definition")
	}
	rest := strings.TrimLeftFunc(src[3:], unicode.IsSpace)

	name, rest := readIdentifier(rest)
	if name == "" || pythonKeywords[name] {
		return nil, invalid(signature, "invalid function name")
	}
	rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
	if !strings.HasPrefix(rest, "(") {
		return nil, invalid(signature, "expected '(' after function name")
	}

	end, err := closingParen(rest)
	if err != nil {
		return nil, invalid(signature, "%s", err)
	}

	params, err := parsePythonParams(rest[1:end])
	if err != nil {
		return nil, invalid(signature, "%s", err)
	}

	ret := domain.TypeAny
	if tail := strings.TrimSpace(rest[end+1:]); tail != "" {
		if !strings.HasPrefix(tail, "->") {
			return nil, invalid(signature, "invalid syntax near %q", tail)
		}
		ann := strings.TrimSpace(tail[2:])
		if ann == "" {
			return nil, invalid(signature, "missing return annotation")
		}
		if _, err := topLevel(ann, func(int) bool { return false }); err != nil {
			return nil, invalid(signature, "%s", err)
		}
		ret = domain.TypeTag(normalizeAnnotation(ann))
	}

	return &domain.FunctionSignature{
		Name:       name,
		Parameters: params,
		ReturnType: ret,
		Source:     signature,
	}, nil
}

func parsePythonParams(text string) ([]domain.Parameter, error) {
	commas, err := topLevel(text, func(i int) bool { return text[i] == ',' })
	if err != nil {
		return nil, err
	}

	parts := make([]string, 0, len(commas)+1)
	prev := 0
	for _, c := range commas {
		parts = append(parts, strings.TrimSpace(text[prev:c]))
		prev = c + 1
	}
	parts = append(parts, strings.TrimSpace(text[prev:]))

	// one trailing comma is allowed, but not on an empty list
	if len(parts) > 1 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	if len(parts) == 1 && parts[0] == "" {
		return []domain.Parameter{}, nil
	}

	params := make([]domain.Parameter, 0, len(parts))
	seen := make(map[string]bool)
	keywordOnly, sawDefault, sawVarKw := false, false, false

	for _, part := range parts {
		if part == "" {
			return nil, errors.New("invalid syntax")
		}
		if sawVarKw {
			return nil, errors.New("arguments cannot follow var-keyword argument")
		}

		switch {
		case part == "/":
			if keywordOnly || len(params) == 0 {
				return nil, errors.New("at least one argument must precede /")
			}
			continue
		case strings.HasPrefix(part, "**"):
			name, _, _, err := splitParam(strings.TrimSpace(part[2:]))
			if err != nil {
				return nil, err
			}
			if err := claim(seen, name); err != nil {
				return nil, err
			}
			sawVarKw = true
			continue
		case strings.HasPrefix(part, "*"):
			if keywordOnly {
				return nil, errors.New("* argument may appear only once")
			}
			keywordOnly = true
			if star := strings.TrimSpace(part[1:]); star != "" {
				name, _, _, err := splitParam(star)
				if err != nil {
					return nil, err
				}
				if err := claim(seen, name); err != nil {
					return nil, err
				}
			}
			continue
		}

		name, ann, def, err := splitParam(part)
		if err != nil {
			return nil, err
		}
		if err := claim(seen, name); err != nil {
			return nil, err
		}

		if keywordOnly {
			continue
		}
		if def != "" {
			sawDefault = true
		} else if sawDefault {
			return nil, errors.New("parameter without a default follows parameter with a default")
		}

		tag := domain.TypeAny
		if ann != "" {
			tag = domain.TypeTag(normalizeAnnotation(ann))
		}
		params = append(params, domain.Parameter{Name: name, Type: tag})
	}

	return params, nil
}

// splitParam breaks "name: annotation = default" into its pieces
func splitParam(p string) (name, ann, def string, err error) {
	eqs, err := topLevel(p, func(i int) bool { return isAssign(p, i) })
	if err != nil {
		return "", "", "", err
	}
	head := p
	if len(eqs) > 0 {
		head = p[:eqs[0]]
		def = strings.TrimSpace(p[eqs[0]+1:])
		if def == "" {
			return "", "", "", errors.New("invalid syntax")
		}
	}

	colons, err := topLevel(head, func(i int) bool { return head[i] == ':' })
	if err != nil {
		return "", "", "", err
	}
	name = strings.TrimSpace(head)
	if len(colons) > 0 {
		name = strings.TrimSpace(head[:colons[0]])
		ann = strings.TrimSpace(head[colons[0]+1:])
		if ann == "" {
			return "", "", "", errors.New("invalid syntax")
		}
	}

	if id, rest := readIdentifier(name); id == "" || rest != "" || pythonKeywords[id] {
		return "", "", "", fmt.Errorf("invalid parameter name %q", name)
	}
	return name, ann, def, nil
}

func claim(seen map[string]bool, name string) error {
	if seen[name] {
		return fmt.Errorf("duplicate argument '%s' in function definition", name)
	}
	seen[name] = true
	return nil
}

func isAssign(s string, i int) bool {
	if s[i] != '=' {
		return false
	}
	if i+1 < len(s) && s[i+1] == '=' {
		return false
	}
	if i > 0 && strings.IndexByte("=<>!", s[i-1]) >= 0 {
		return false
	}
	return true
}

func startsWithKeyword(s, kw string) bool {
	if !strings.HasPrefix(s, kw) || len(s) == len(kw) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[len(kw):])
	return unicode.IsSpace(r)
}

func readIdentifier(s string) (string, string) {
	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			i += size
			continue
		}
		break
	}
	return s[:i], s[i:]
}

// topLevel returns the byte offsets where match holds outside brackets and string literals
func topLevel(s string, match func(i int) bool) ([]int, error) {
	var hits []int
	var stack []byte
	var quote byte

	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}

		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			stack = append(stack, c)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != closers[c] {
				return nil, fmt.Errorf("unmatched '%c'", c)
			}
			stack = stack[:len(stack)-1]
		default:
			if len(stack) == 0 && match(i) {
				hits = append(hits, i)
			}
		}
	}

	if quote != 0 {
		return nil, errors.New("unterminated string literal")
	}
	if len(stack) > 0 {
		return nil, fmt.Errorf("'%c' was never closed", stack[len(stack)-1])
	}
	return hits, nil
}

// closingParen returns the index of the ')' matching the '(' at s[0]
func closingParen(s string) (int, error) {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				if c != ')' {
					return 0, fmt.Errorf("unmatched '%c'", c)
				}
				return i, nil
			}
		}
	}
	return 0, errors.New("'(' was never closed")
}

// normalizeAnnotation collapses whitespace the way ast.unparse prints annotations
func normalizeAnnotation(s string) string {
	var sb strings.Builder
	var quote, last byte
	space := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			sb.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				i++
				sb.WriteByte(s[i])
			} else if c == quote {
				quote = 0
			}
			last = c
			continue
		}

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			space = true
			continue
		case c == ',':
			sb.WriteString(", ")
			last, space = ' ', false
			continue
		case c == '|':
			if last != ' ' {
				sb.WriteByte(' ')
			}
			sb.WriteString("| ")
			last, space = ' ', false
			continue
		}

		if space && isWordByte(last) && isWordByte(c) {
			sb.WriteByte(' ')
		}
		space = false
		if c == '\'' || c == '"' {
			quote = c
		}
		sb.WriteByte(c)
		last = c
	}
	return strings.TrimSpace(sb.String())
}

func isWordByte(c byte) bool {
	return c == '_' || c == '.' || c >= 0x80 ||
		(c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
