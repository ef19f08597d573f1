package config

import "os"

type JwtConfig struct {
	Secret string
	Issuer string
}

func NewJwtConfig() *JwtConfig {
	return &JwtConfig{
		Secret: os.Getenv("JWT_SECRET"),
		Issuer: os.Getenv("JWT_ISSUER"),
	}
}

// Enabled reports whether bearer tokens are required on the API
func (c *JwtConfig) Enabled() bool {
	return c.Secret != ""
}
