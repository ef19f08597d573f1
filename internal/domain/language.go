package domain

import (
	"fmt"
	"strings"
)

// Language identifies the source language of a submission
type Language string

const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
)

// DisplayName is the human-facing runtime name used in operator messages
func (l Language) DisplayName() string {
	switch l {
	case LanguagePython:
		return "Python"
	case LanguageJavaScript:
		return "JavaScript"
	default:
		return string(l)
	}
}

// ParseLanguage accepts the canonical names plus the usual short aliases
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "python", "python3", "py":
		return LanguagePython, nil
	case "javascript", "js", "node", "nodejs":
		return LanguageJavaScript, nil
	default:
		return "", fmt.Errorf("unsupported language: %s", s)
	}
}
