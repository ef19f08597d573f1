package config

import (
	"time"
)

type EngineConfig struct {
	DefaultTimeout time.Duration
	MaxTimeout     time.Duration
	// MaxParallel bounds how many test cases of one batch run at the same time
	MaxParallel    int
	MaxSourceBytes int
	MaxTestCases   int
}

func NewEngineConfig() *EngineConfig {
	defaultTimeoutSec := getIntEnv("DEFAULT_TIMEOUT_SEC", 5)
	if defaultTimeoutSec <= 0 {
		defaultTimeoutSec = 5
	}
	maxTimeoutSec := getIntEnv("MAX_TIMEOUT_SEC", 30)
	if maxTimeoutSec < defaultTimeoutSec {
		maxTimeoutSec = defaultTimeoutSec
	}
	maxParallel := getIntEnv("MAX_PARALLEL", 1)
	if maxParallel <= 0 {
		maxParallel = 1
	}
	return &EngineConfig{
		DefaultTimeout: time.Duration(defaultTimeoutSec) * time.Second,
		MaxTimeout:     time.Duration(maxTimeoutSec) * time.Second,
		MaxParallel:    maxParallel,
		MaxSourceBytes: getIntEnv("MAX_SOURCE_BYTES", 256*1024),
		MaxTestCases:   getIntEnv("MAX_TEST_CASES", 200),
	}
}

// ClampTimeout applies the default to a non-positive request and caps it at MaxTimeout
func (c *EngineConfig) ClampTimeout(requested time.Duration) time.Duration {
	if requested <= 0 {
		return c.DefaultTimeout
	}
	if requested > c.MaxTimeout {
		return c.MaxTimeout
	}
	return requested
}
