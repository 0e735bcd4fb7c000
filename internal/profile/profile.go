package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where studydeck stores its own data
	DSN string
	// Driver is the database driver (sqlite, postgres or mysql)
	Driver string
	// Version is the current version of server
	Version string
	// Timezone is the IANA zone used for learners without one of their own
	Timezone string
	// Secret signs access tokens
	Secret string
	// RewardPolicy selects which reviews earn experience and coins
	RewardPolicy string

	// Cache Configuration
	CacheTTL      time.Duration // STUDYDECK_CACHE_TTL (default: 5m)
	RedisAddr     string        // STUDYDECK_CACHE_REDIS_ADDR (default: "", L2 disabled)
	RedisPassword string        // STUDYDECK_CACHE_REDIS_PASSWORD
	RedisDB       int           // STUDYDECK_CACHE_REDIS_DB (default: 0)

	// Rate limiting, per authenticated learner
	RateLimit float64 // STUDYDECK_RATE_LIMIT requests per second (default: 10)
	RateBurst int     // STUDYDECK_RATE_BURST (default: 20)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsRedisEnabled reports whether the L2 cache is configured.
func (p *Profile) IsRedisEnabled() bool {
	return p.RedisAddr != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads the cache and rate limit settings from environment variables.
// Malformed numbers fall back to the defaults.
func (p *Profile) FromEnv() {
	p.CacheTTL = 5 * time.Minute
	if d, err := time.ParseDuration(os.Getenv("STUDYDECK_CACHE_TTL")); err == nil && d > 0 {
		p.CacheTTL = d
	}
	p.RedisAddr = os.Getenv("STUDYDECK_CACHE_REDIS_ADDR")
	p.RedisPassword = os.Getenv("STUDYDECK_CACHE_REDIS_PASSWORD")
	p.RedisDB = 0
	if v, err := strconv.Atoi(getEnvOrDefault("STUDYDECK_CACHE_REDIS_DB", "0")); err == nil && v >= 0 {
		p.RedisDB = v
	}

	p.RateLimit = 10
	if v, err := strconv.ParseFloat(os.Getenv("STUDYDECK_RATE_LIMIT"), 64); err == nil && v > 0 {
		p.RateLimit = v
	}
	p.RateBurst = 20
	if v, err := strconv.Atoi(os.Getenv("STUDYDECK_RATE_BURST")); err == nil && v > 0 {
		p.RateBurst = v
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	switch p.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		return errors.Errorf("unsupported driver %q", p.Driver)
	}
	if p.Driver != "sqlite" && p.DSN == "" {
		return errors.Errorf("dsn is required for driver %s", p.Driver)
	}

	if p.Timezone != "" {
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return errors.Wrapf(err, "invalid timezone %q", p.Timezone)
		}
	}

	if p.Mode == "prod" && p.Secret == "" {
		return errors.New("secret is required in prod mode")
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "studydeck")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/studydeck"
		}
	}

	if p.Driver != "sqlite" {
		return nil
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.DSN == "" {
		dbFile := fmt.Sprintf("studydeck_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
