// Package summary aggregates the latest per-zone readings into
// system-wide totals.
package summary

import (
	"context"
	"fmt"

	"github.com/zonewatch/backend/internal/classify"
	"github.com/zonewatch/backend/internal/store"
)

// Summary holds the derived totals. It is computed on demand and never
// persisted.
type Summary struct {
	TotalPopulation  int `json:"totalPopulation"`
	ActiveZones      int `json:"activeZones"`
	OvercrowdedZones int `json:"overcrowdedZones"`
	TotalZones       int `json:"totalZones"`
}

// Service computes summaries from the store's latest readings.
type Service struct {
	store *store.Store
}

// NewService creates a summary service over the given store.
func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// Summarize reads the latest reading per zone and totals them. Zones
// that have never reported do not contribute.
func (s *Service) Summarize(ctx context.Context) (Summary, error) {
	latest, err := s.store.LatestPerZone(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load latest readings: %w", err)
	}
	return Aggregate(latest), nil
}

// Aggregate computes totals over a set of latest-per-zone readings.
func Aggregate(latest []classify.Reading) Summary {
	out := Summary{TotalZones: len(latest)}
	for _, r := range latest {
		out.TotalPopulation += r.Population
		if r.Population > 0 {
			out.ActiveZones++
		}
		if r.Status == classify.StatusOvercrowded {
			out.OvercrowdedZones++
		}
	}
	return out
}
