// Package classify derives crowding status and density from a zone's
// population and capacity, and assembles the persisted reading.
package classify

import (
	"math"
	"time"

	"github.com/zonewatch/backend/internal/sim"
	"github.com/zonewatch/backend/internal/zones"
)

// Status is the discrete crowding level of a zone.
type Status string

const (
	StatusNormal      Status = "normal"
	StatusModerate    Status = "moderate"
	StatusOvercrowded Status = "overcrowded"
)

// Classification thresholds, in percent of capacity. Boundaries are
// strict: a zone at exactly 85% is moderate, at exactly 60% normal.
const (
	OvercrowdedPercent = 85.0
	ModeratePercent    = 60.0

	// DensityMultiplier maps the occupancy ratio onto the density score:
	// density = floor((population/capacity) * DensityMultiplier).
	DensityMultiplier = 120.0
)

// Reading is one classified zone observation. Readings are append-only:
// once built and stored they are never mutated.
type Reading struct {
	ZoneID     string    `json:"zoneId"`
	ZoneName   string    `json:"zoneName"`
	Population int       `json:"population"`
	Density    int       `json:"density"`
	Cluster    int       `json:"cluster"` // 1-based cluster id, 0 for noise
	Capacity   int       `json:"capacity"`
	Status     Status    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}

// StatusFor classifies a population against a capacity. Capacity is
// validated at registry load time and is always positive here.
func StatusFor(population, capacity int) Status {
	percent := float64(population) / float64(capacity) * 100

	switch {
	case percent > OvercrowdedPercent:
		return StatusOvercrowded
	case percent > ModeratePercent:
		return StatusModerate
	default:
		return StatusNormal
	}
}

// DensityFor computes the density score floor((population/capacity)*120).
func DensityFor(population, capacity int) int {
	ratio := float64(population) / float64(capacity)
	return int(math.Floor(ratio * DensityMultiplier))
}

// Build assembles a Reading from a signal, its zone, and the cluster
// label assigned for this tick.
func Build(signal sim.Signal, zone zones.Zone, clusterLabel int, ts time.Time) Reading {
	return Reading{
		ZoneID:     zone.ID,
		ZoneName:   zone.Name,
		Population: signal.Population,
		Density:    DensityFor(signal.Population, zone.Capacity),
		Cluster:    clusterLabel,
		Capacity:   zone.Capacity,
		Status:     StatusFor(signal.Population, zone.Capacity),
		Timestamp:  ts,
	}
}
