package config

import (
	"fmt"
	"os"
	"time"

	"gitlab.com/fcv-grader.net/internal/domain"
)

const (
	SandboxLocal  = "local"
	SandboxDocker = "docker"
)

type SandboxConfig struct {
	Kind           string
	TempDir        string
	MaxOutputBytes int
	KillGrace      time.Duration
	MemoryLimitMB  int64
	NanoCPUs       int64
	PidsLimit      int64
	Runtimes       map[domain.Language]*domain.RuntimeProfile
}

func NewSandboxConfig() (*SandboxConfig, error) {
	kind := getEnv("SANDBOX", SandboxLocal)
	if kind != SandboxLocal && kind != SandboxDocker {
		return nil, fmt.Errorf("unknown sandbox %q, expected %s or %s", kind, SandboxLocal, SandboxDocker)
	}

	runtimes, err := LoadRuntimeProfiles(os.Getenv("RUNTIMES_FILE"))
	if err != nil {
		return nil, err
	}

	return &SandboxConfig{
		Kind:           kind,
		TempDir:        getEnv("TEMP_DIR", os.TempDir()),
		MaxOutputBytes: getIntEnv("MAX_OUTPUT_BYTES", 1<<20),
		KillGrace:      time.Duration(getIntEnv("KILL_GRACE_MS", 500)) * time.Millisecond,
		MemoryLimitMB:  int64(getIntEnv("SANDBOX_MEMORY_MB", 256)),
		NanoCPUs:       int64(getIntEnv("SANDBOX_CPU_MILLI", 1000)) * 1000_000,
		PidsLimit:      int64(getIntEnv("SANDBOX_PIDS_LIMIT", 64)),
		Runtimes:       runtimes,
	}, nil
}
