// Package config loads process configuration from the environment, with a
// .env file honored in development.
package config

import (
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type Config struct {
	Port      int
	FrameRate int
	Verbose   bool

	// DBAuthorization is the shared secret for the persistence side-channel.
	// Generated per process when not configured, which effectively disables
	// external relays unless they read the logged value.
	DBAuthorization string
	DatabaseURL     string
	ServerURL       string
}

// Load reads the environment. Returns the config and whether the secret was
// generated rather than configured.
func Load() (Config, bool) {
	_ = godotenv.Load()

	cfg := Config{
		Port:            envInt("PORT", 3003),
		FrameRate:       envInt("FRAME_RATE", 30),
		Verbose:         envBool("VERBOSE"),
		DBAuthorization: os.Getenv("DB_AUTHORIZATION"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		ServerURL:       envDefault("SERVER_URL", "ws://localhost:3003/ws"),
	}

	generated := false
	if cfg.DBAuthorization == "" {
		cfg.DBAuthorization = uuid.NewString()
		generated = true
	}
	return cfg, generated
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}
