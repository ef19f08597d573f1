package domain

// RuntimeProfile describes how to launch the interpreter for one language
type RuntimeProfile struct {
	Language    Language `yaml:"language"`
	DisplayName string   `yaml:"display_name"`
	Binary      string   `yaml:"binary"`
	Args        []string `yaml:"args"`
	Image       string   `yaml:"image"`
	Env         []string `yaml:"env"`
}

// Command returns the argv that runs entry with this profile
func (p *RuntimeProfile) Command(entry string) []string {
	argv := make([]string, 0, len(p.Args)+2)
	argv = append(argv, p.Binary)
	argv = append(argv, p.Args...)
	return append(argv, entry)
}

// DefaultRuntimeProfiles are used when no runtimes file is configured
func DefaultRuntimeProfiles() map[Language]*RuntimeProfile {
	return map[Language]*RuntimeProfile{
		LanguagePython: {
			Language:    LanguagePython,
			DisplayName: LanguagePython.DisplayName(),
			Binary:      "python3",
			Args:        []string{"-B"},
			Image:       "python:3.12-alpine",
			Env:         []string{"PYTHONIOENCODING=utf-8", "PYTHONDONTWRITEBYTECODE=1"},
		},
		LanguageJavaScript: {
			Language:    LanguageJavaScript,
			DisplayName: "Node.js",
			Binary:      "node",
			Image:       "node:20-alpine",
		},
	}
}
