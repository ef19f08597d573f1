package signature

import (
	"regexp"
	"strings"

	"gitlab.com/fcv-grader.net/internal/domain"
)

// patterns are tried in order; the first one found anywhere in the text wins
var jsPatterns = []*regexp.Regexp{
	regexp.MustCompile(`function\s+([A-Za-z_$][\w$]*)\s*\(([^)]*)\)`),
	regexp.MustCompile(`const\s+([A-Za-z_$][\w$]*)\s*=\s*\(([^)]*)\)\s*=>`),
	regexp.MustCompile(`([A-Za-z_$][\w$]*)\s*=\s*function\s*\(([^)]*)\)`),
}

// JavaScriptParser recognises function declarations, const arrow functions and function expressions.
// JavaScript signatures carry no types, so every tag is Any.
type JavaScriptParser struct{}

func (JavaScriptParser) Parse(signature string) (*domain.FunctionSignature, error) {
	for _, re := range jsPatterns {
		m := re.FindStringSubmatch(signature)
		if m == nil {
			continue
		}

		params := make([]domain.Parameter, 0)
		for _, raw := range strings.Split(m[2], ",") {
			name := strings.TrimSpace(raw)
			if i := strings.Index(name, "="); i >= 0 {
				name = strings.TrimSpace(name[:i])
			}
			if name == "" {
				continue
			}
			params = append(params, domain.Parameter{Name: name, Type: domain.TypeAny})
		}

		return &domain.FunctionSignature{
			Name:       m[1],
			Parameters: params,
			ReturnType: domain.TypeAny,
			Source:     signature,
		}, nil
	}
	return nil, invalid(signature, "could not find a JavaScript function declaration")
}
