package config

import (
	"fmt"
	"os"
	"strconv"
)

// DefaultPort is the relay's listen port absent a PORT override.
const DefaultPort = 3600

// Config is the process-wide environment configuration.
type Config struct {
	LogLevel string // debug, info, warn, error, silent
	Port     int
	TLS      bool
}

// FromEnv reads Config from the environment, applying CipherMesh's
// defaults for anything unset.
func FromEnv() (Config, error) {
	cfg := Config{
		LogLevel: "info",
		Port:     DefaultPort,
		TLS:      true,
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		switch v {
		case "debug", "info", "warn", "error", "silent":
			cfg.LogLevel = v
		default:
			return cfg, fmt.Errorf("config: invalid LOG_LEVEL %q", v)
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return cfg, fmt.Errorf("config: invalid PORT %q", v)
		}
		cfg.Port = port
	}

	if v := os.Getenv("TLS"); v != "" {
		tls, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("config: invalid TLS %q", v)
		}
		cfg.TLS = tls
	}

	return cfg, nil
}
