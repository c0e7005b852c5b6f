package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/zonewatch/backend/internal/classify"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "readings.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func reading(zoneID string, population int, ts time.Time) classify.Reading {
	return classify.Reading{
		ZoneID:     zoneID,
		ZoneName:   "Zone " + zoneID,
		Population: population,
		Density:    classify.DensityFor(population, 1000),
		Cluster:    0,
		Capacity:   1000,
		Status:     classify.StatusFor(population, 1000),
		Timestamp:  ts,
	}
}

func TestAppend_Empty(t *testing.T) {
	s := openTestStore(t)
	if err := s.Append(context.Background(), nil); err != nil {
		t.Errorf("Append(nil) failed: %v", err)
	}
}

func TestLatestPerZone_Empty(t *testing.T) {
	s := openTestStore(t)
	latest, err := s.LatestPerZone(context.Background())
	if err != nil {
		t.Fatalf("LatestPerZone failed: %v", err)
	}
	if len(latest) != 0 {
		t.Errorf("expected no readings, got %d", len(latest))
	}
}

func TestAppend_LatestPerZoneRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	// Two ticks for two zones: latest must win per zone.
	tick1 := []classify.Reading{
		reading("a", 100, base),
		reading("b", 200, base),
	}
	tick2 := []classify.Reading{
		reading("a", 150, base.Add(5*time.Second)),
		reading("b", 250, base.Add(5*time.Second)),
	}
	if err := s.Append(ctx, tick1); err != nil {
		t.Fatalf("Append tick1 failed: %v", err)
	}
	if err := s.Append(ctx, tick2); err != nil {
		t.Fatalf("Append tick2 failed: %v", err)
	}

	latest, err := s.LatestPerZone(ctx)
	if err != nil {
		t.Fatalf("LatestPerZone failed: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(latest))
	}

	// Ordered by zone id.
	if latest[0].ZoneID != "a" || latest[1].ZoneID != "b" {
		t.Errorf("unexpected zone order: %s, %s", latest[0].ZoneID, latest[1].ZoneID)
	}
	if latest[0].Population != 150 {
		t.Errorf("zone a: expected latest population 150, got %d", latest[0].Population)
	}
	if latest[1].Population != 250 {
		t.Errorf("zone b: expected latest population 250, got %d", latest[1].Population)
	}
}

func TestAppend_PreservesFields(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 3, 15, 12, 0, 0, 123456789, time.UTC)

	in := classify.Reading{
		ZoneID:     "central-plaza",
		ZoneName:   "Central Plaza",
		Population: 4625,
		Density:    94,
		Cluster:    2,
		Capacity:   5880,
		Status:     classify.StatusModerate,
		Timestamp:  ts,
	}
	if err := s.Append(ctx, []classify.Reading{in}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	latest, err := s.LatestPerZone(ctx)
	if err != nil {
		t.Fatalf("LatestPerZone failed: %v", err)
	}
	if len(latest) != 1 {
		t.Fatalf("expected 1 row, got %d", len(latest))
	}
	got := latest[0]
	if !got.Timestamp.Equal(in.Timestamp) {
		t.Errorf("expected timestamp %v, got %v", in.Timestamp, got.Timestamp)
	}
	got.Timestamp = in.Timestamp
	if got != in {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, in)
	}
}

func TestHistory_WindowAndOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		tick := []classify.Reading{reading("a", 100+i, base.Add(time.Duration(i)*time.Minute))}
		if err := s.Append(ctx, tick); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	// Window covering the last three readings (>= base+2m).
	got, err := s.History(ctx, "a", base.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 readings, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i].Timestamp.After(got[i-1].Timestamp) {
			t.Errorf("history not ascending at %d: %v then %v", i, got[i-1].Timestamp, got[i].Timestamp)
		}
	}
	if got[0].Population != 102 || got[2].Population != 104 {
		t.Errorf("wrong window contents: first=%d last=%d", got[0].Population, got[2].Population)
	}
}

func TestHistory_WindowBoundaryInclusive(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	if err := s.Append(ctx, []classify.Reading{reading("a", 100, ts)}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	got, err := s.History(ctx, "a", ts)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("reading at exactly now-d must be included, got %d rows", len(got))
	}
}

func TestHistory_UnknownZoneIsEmptyNotError(t *testing.T) {
	s := openTestStore(t)

	got, err := s.History(context.Background(), "nowhere", time.Unix(0, 0))
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(got) != 0 {
		t.Errorf("expected no readings, got %d", len(got))
	}
}

func TestHistory_FiltersByZone(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	err := s.Append(ctx, []classify.Reading{
		reading("a", 100, base),
		reading("b", 200, base),
	})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	got, err := s.History(ctx, "a", base.Add(-time.Minute))
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(got) != 1 || got[0].ZoneID != "a" {
		t.Errorf("expected only zone a readings, got %+v", got)
	}
}

func TestAppend_AfterClose(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "readings.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	s.Close()

	err = s.Append(context.Background(), []classify.Reading{reading("a", 1, time.Now())})
	if err == nil {
		t.Fatal("expected error appending to a closed store")
	}
}
