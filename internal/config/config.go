// Package config reads runtime settings from PSYSCORE_* environment
// variables.
package config

import (
	"time"

	"github.com/soaringjerry/psyscore/internal/utils"
)

const (
	prefix                 = "PSYSCORE_"
	defaultResultsPassword = "risultato"
)

type Config struct {
	Addr      string
	Commit    string
	BuildTime string
	GinMode   string

	JWTSecret           string
	ResultsPassword     string
	ResultsPasswordHash string
	GateTokenTTL        time.Duration

	RedisAddr string
	MongoURI  string
	MongoDB   string

	SessionTTL    time.Duration
	SweepInterval time.Duration
	UploadTimeout time.Duration
	CORSOrigins   []string

	StaticDir      string
	DevFrontendURL string
}

func env(key, fallback string) string { return utils.SafeEnv(prefix+key, fallback) }

func Load() *Config {
	return &Config{
		Addr:      env("ADDR", ":8080"),
		Commit:    env("COMMIT", "dev"),
		BuildTime: env("BUILD_TIME", ""),
		GinMode:   env("GIN_MODE", "release"),

		JWTSecret:           env("JWT_SECRET", "psyscore-dev-secret"),
		ResultsPassword:     env("RESULTS_PASSWORD", defaultResultsPassword),
		ResultsPasswordHash: env("RESULTS_PASSWORD_HASH", ""),
		GateTokenTTL:        utils.EnvDuration(prefix+"GATE_TOKEN_TTL", time.Hour),

		RedisAddr: env("REDIS_ADDR", ""),
		MongoURI:  env("MONGO_URI", ""),
		MongoDB:   env("MONGO_DB", "psyscore"),

		SessionTTL:    utils.EnvDuration(prefix+"SESSION_TTL", 2*time.Hour),
		SweepInterval: utils.EnvDuration(prefix+"SWEEP_INTERVAL", 5*time.Minute),
		UploadTimeout: utils.EnvDuration(prefix+"UPLOAD_TIMEOUT", 30*time.Second),
		CORSOrigins:   utils.EnvList(prefix+"CORS_ORIGINS", []string{"*"}),

		StaticDir:      env("STATIC_DIR", ""),
		DevFrontendURL: env("DEV_FRONTEND_URL", ""),
	}
}

// UsesDevSecret reports whether the JWT secret is the built-in default.
func (c *Config) UsesDevSecret() bool { return c.JWTSecret == "psyscore-dev-secret" }

// UsesDefaultResultsPassword reports whether the results gate still opens
// with the built-in password.
func (c *Config) UsesDefaultResultsPassword() bool {
	return c.ResultsPasswordHash == "" && c.ResultsPassword == defaultResultsPassword
}
