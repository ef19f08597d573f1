// Package signature turns human-written function headers into domain.FunctionSignature values.
package signature

import (
	"fmt"

	"gitlab.com/fcv-grader.net/internal/domain"
	"gitlab.com/fcv-grader.net/internal/static/errs"
)

// Parser parses a signature string for one source language
type Parser interface {
	Parse(signature string) (*domain.FunctionSignature, error)
}

var parsers = map[domain.Language]Parser{
	domain.LanguagePython:     PythonParser{},
	domain.LanguageJavaScript: JavaScriptParser{},
}

// Parse parses signature with the parser registered for lang
func Parse(signature string, lang domain.Language) (*domain.FunctionSignature, error) {
	p, ok := parsers[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrUnsupportedLanguage, lang)
	}
	return p.Parse(signature)
}

func invalid(signature, format string, args ...interface{}) error {
	return &errs.SignatureError{Signature: signature, Reason: fmt.Sprintf(format, args...)}
}
