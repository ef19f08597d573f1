package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"gitlab.com/fcv-grader.net/internal/domain"
)

type runtimesFile struct {
	Runtimes []*domain.RuntimeProfile `yaml:"runtimes"`
}

// LoadRuntimeProfiles returns the built-in profiles overlaid with the ones declared in path.
// An empty path keeps the defaults.
func LoadRuntimeProfiles(path string) (map[domain.Language]*domain.RuntimeProfile, error) {
	profiles := domain.DefaultRuntimeProfiles()
	if path == "" {
		return profiles, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read runtimes file: %w", err)
	}
	return parseRuntimeProfiles(data, profiles)
}

func parseRuntimeProfiles(data []byte, profiles map[domain.Language]*domain.RuntimeProfile) (map[domain.Language]*domain.RuntimeProfile, error) {
	var file runtimesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse runtimes file: %w", err)
	}

	for _, p := range file.Runtimes {
		lang, err := domain.ParseLanguage(string(p.Language))
		if err != nil {
			return nil, err
		}
		base, ok := profiles[lang]
		if !ok {
			base = &domain.RuntimeProfile{}
		}
		merged := *base
		merged.Language = lang
		if p.DisplayName != "" {
			merged.DisplayName = p.DisplayName
		}
		if p.Binary != "" {
			merged.Binary = p.Binary
		}
		if p.Args != nil {
			merged.Args = p.Args
		}
		if p.Image != "" {
			merged.Image = p.Image
		}
		if p.Env != nil {
			merged.Env = p.Env
		}
		profiles[lang] = &merged
	}
	return profiles, nil
}
