// Package sim generates synthetic occupancy signals for each zone.
// The generator is not a crowd model; it produces statistically plausible
// numbers the rest of the pipeline treats as opaque input.
package sim

import (
	"math"
	"math/rand"

	"github.com/zonewatch/backend/internal/zones"
)

// DomainSize bounds the square coordinate domain signals are drawn from:
// both axes are uniform over [0, DomainSize).
const DomainSize = 100.0

// Config controls the occupancy distribution.
type Config struct {
	// BaseOccupancy is the deterministic fraction of capacity every zone
	// starts a tick at.
	BaseOccupancy float64

	// Variance is the fraction of capacity added on top, scaled by a
	// uniform draw in [0,1).
	Variance float64
}

// DefaultConfig returns the occupancy parameters used in production.
func DefaultConfig() Config {
	return Config{
		BaseOccupancy: 0.4,
		Variance:      0.5,
	}
}

// Signal is one zone's reading for a single tick. Signals are consumed by
// the clusterer immediately and never persisted.
type Signal struct {
	ZoneID     string
	Population int
	X, Y       float64
}

// Simulator produces one Signal per zone per tick. It keeps no state
// across ticks; every tick is an independent draw from the same
// distribution.
type Simulator struct {
	registry *zones.Registry
	cfg      Config
	rng      *rand.Rand
}

// New creates a Simulator over the given registry. The rand source is
// injected so tests can seed it for reproducible output. Simulator is not
// safe for concurrent use; callers serialise Tick.
func New(registry *zones.Registry, cfg Config, rng *rand.Rand) *Simulator {
	return &Simulator{
		registry: registry,
		cfg:      cfg,
		rng:      rng,
	}
}

// Tick generates one signal per zone, in catalog order. Coordinates are
// redrawn every tick; zones have no stable position.
func (s *Simulator) Tick() []Signal {
	catalog := s.registry.All()
	signals := make([]Signal, len(catalog))

	for i, z := range catalog {
		capacity := float64(z.Capacity)
		population := math.Floor(capacity*s.cfg.BaseOccupancy + s.rng.Float64()*capacity*s.cfg.Variance)

		signals[i] = Signal{
			ZoneID:     z.ID,
			Population: int(population),
			X:          s.rng.Float64() * DomainSize,
			Y:          s.rng.Float64() * DomainSize,
		}
	}

	return signals
}
