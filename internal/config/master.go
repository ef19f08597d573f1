package config

import (
	"os"
	"strconv"
)

type AppConfig struct {
	DebugMode       bool
	LogLevel        string
	EngineConfig    *EngineConfig
	SandboxConfig   *SandboxConfig
	GradingSvcCfg   *GradingSvcCfg
	HttpConfig      *HttpConfig
	RateLimitConfig *RateLimitConfig
	RedisConfig     *RedisConfig
	PostgresConfig  *PostgresConfig
	JwtConfig       *JwtConfig
}

func NewSystemConfig() (*AppConfig, error) {
	sandboxCfg, err := NewSandboxConfig()
	if err != nil {
		return nil, err
	}
	return &AppConfig{
		DebugMode:       os.Getenv("DEBUG_MODE") == "true",
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		EngineConfig:    NewEngineConfig(),
		SandboxConfig:   sandboxCfg,
		GradingSvcCfg:   NewGradingSvcCfg(),
		HttpConfig:      NewHttpConfig(),
		RateLimitConfig: NewRateLimitConfig(),
		RedisConfig:     NewRedisConfig(),
		PostgresConfig:  NewPostgresConfig(),
		JwtConfig:       NewJwtConfig(),
	}, nil
}

// getEnv gets an environment variable with a fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an environment variable as an integer with a fallback
func getIntEnv(key string, fallback int) int {
	varInt, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return varInt
}
