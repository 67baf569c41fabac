// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"mcp-kcal-log/internal/estimator"
)

const (
	appDirName = "kcal-log"
	dbFileName = "kcal-log.db"

	DefaultHost             = "0.0.0.0"
	DefaultPort             = 8011
	DefaultRolloverInterval = time.Hour
	DefaultErrorTTL         = 3 * time.Second
)

// Config holds process settings. Profile data (targets, token, model) lives
// in the database, not here.
type Config struct {
	DBPath   string
	Host     string
	Port     int
	Endpoint string
	// Timezone is an IANA name for the zone whose calendar date keys the
	// working set. Empty means the process-local zone.
	Timezone         string
	RolloverInterval time.Duration
	ErrorTTL         time.Duration
}

// DefaultDBPath returns <user config dir>/kcal-log/kcal-log.db.
func DefaultDBPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, appDirName, dbFileName), nil
}

// Load reads envFile (when it exists) into the environment and builds a
// Config from KCAL_* variables. Variables already set win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("load %s: %w", envFile, err)
			}
			log.Printf("config: no env file at %s, using environment only", envFile)
		}
	}

	cfg := Config{
		DBPath:           os.Getenv("KCAL_DB_PATH"),
		Host:             envOr("KCAL_HOST", DefaultHost),
		Port:             DefaultPort,
		Endpoint:         envOr("GITHUB_MODELS_ENDPOINT", estimator.DefaultEndpoint),
		Timezone:         strings.TrimSpace(os.Getenv("KCAL_TIMEZONE")),
		RolloverInterval: DefaultRolloverInterval,
		ErrorTTL:         DefaultErrorTTL,
	}

	if cfg.DBPath == "" {
		path, err := DefaultDBPath()
		if err != nil {
			return Config{}, err
		}
		cfg.DBPath = path
	}

	if v := os.Getenv("KCAL_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("invalid KCAL_PORT %q", v)
		}
		cfg.Port = port
	}

	var err error
	if cfg.RolloverInterval, err = envDuration("KCAL_ROLLOVER_INTERVAL", DefaultRolloverInterval); err != nil {
		return Config{}, err
	}
	if cfg.ErrorTTL, err = envDuration("KCAL_ERROR_TTL", DefaultErrorTTL); err != nil {
		return Config{}, err
	}

	if _, err := cfg.Location(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Location resolves Timezone; empty means time.Local.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid KCAL_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: want a positive duration like 30m", key, v)
	}
	return d, nil
}
