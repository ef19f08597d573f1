package config

import "time"

type HttpConfig struct {
	Port        int
	ServiceName string
	// WriteTimeout must cover a whole synchronous grading call
	WriteTimeout time.Duration
}

func NewHttpConfig() *HttpConfig {
	return &HttpConfig{
		Port:         getIntEnv("HTTP_PORT", 8082),
		ServiceName:  getEnv("SERVICE_NAME", "grader"),
		WriteTimeout: time.Duration(getIntEnv("HTTP_WRITE_TIMEOUT_SEC", 300)) * time.Second,
	}
}

type RateLimitConfig struct {
	PerSecond float64
	Burst     int
}

func NewRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		PerSecond: float64(getIntEnv("RATE_LIMIT_PER_SEC", 5)),
		Burst:     getIntEnv("RATE_LIMIT_BURST", 10),
	}
}
