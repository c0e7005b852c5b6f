// Package config loads runtime configuration from the environment, with
// optional .env file support.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/zonewatch/backend/internal/cluster"
	"github.com/zonewatch/backend/internal/monitoring"
	"github.com/zonewatch/backend/internal/pipeline"
	"github.com/zonewatch/backend/internal/sim"
)

// Config is the assembled runtime configuration.
type Config struct {
	Listen    string
	DBPath    string
	ZonesPath string
	Seed      int64

	TickInterval time.Duration
	Clustering   cluster.Params
	Occupancy    sim.Config
}

// Load reads configuration from a .env file (if present) and the
// process environment, falling back to defaults. It never fails: bad
// values are logged and replaced by defaults; genuinely fatal settings
// (zone catalog contents) are validated where they are consumed.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		monitoring.Logf("config: no .env file, using process environment")
	}

	return Config{
		Listen:       envString("ZONEWATCH_LISTEN", ":8080"),
		DBPath:       envString("ZONEWATCH_DB", "zonewatch.db"),
		ZonesPath:    envString("ZONEWATCH_ZONES", ""),
		Seed:         envInt64("ZONEWATCH_SEED", 0),
		TickInterval: envDuration("ZONEWATCH_TICK_INTERVAL", pipeline.DefaultInterval),
		Clustering: cluster.Params{
			Eps:    envFloat("ZONEWATCH_EPSILON", cluster.DefaultEps),
			MinPts: int(envInt64("ZONEWATCH_MIN_POINTS", cluster.DefaultMinPts)),
		},
		Occupancy: sim.Config{
			BaseOccupancy: envFloat("ZONEWATCH_BASE_OCCUPANCY", sim.DefaultConfig().BaseOccupancy),
			Variance:      envFloat("ZONEWATCH_VARIANCE", sim.DefaultConfig().Variance),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		monitoring.Logf("config: %s=%q is not an integer, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		monitoring.Logf("config: %s=%q is not a number, using %v", key, v, fallback)
		return fallback
	}
	return f
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		monitoring.Logf("config: %s=%q is not a positive duration, using %v", key, v, fallback)
		return fallback
	}
	return d
}

// String renders the effective configuration for startup logs, one
// setting per line.
func (c Config) String() string {
	return fmt.Sprintf(
		"listen=%s db=%s zones=%s interval=%v eps=%v minPts=%d base=%v variance=%v",
		c.Listen, c.DBPath, orDefault(c.ZonesPath), c.TickInterval,
		c.Clustering.Eps, c.Clustering.MinPts,
		c.Occupancy.BaseOccupancy, c.Occupancy.Variance,
	)
}

func orDefault(path string) string {
	if path == "" {
		return "(builtin)"
	}
	return path
}
