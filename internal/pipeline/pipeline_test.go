package pipeline

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/zonewatch/backend/internal/cluster"
	"github.com/zonewatch/backend/internal/hub"
	"github.com/zonewatch/backend/internal/monitoring"
	"github.com/zonewatch/backend/internal/sim"
	"github.com/zonewatch/backend/internal/store"
	"github.com/zonewatch/backend/internal/timeutil"
	"github.com/zonewatch/backend/internal/zones"
)

func init() {
	monitoring.SetLogger(nil)
}

type fixture struct {
	registry *zones.Registry
	store    *store.Store
	hub      *hub.Hub
	clock    *timeutil.MockClock
	runner   *Runner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	registry, err := zones.NewRegistry([]zones.Zone{
		{ID: "a", Name: "A", Capacity: 1000},
		{ID: "b", Name: "B", Capacity: 2000},
		{ID: "c", Name: "C", Capacity: 1500},
	})
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	st, err := store.Open(filepath.Join(t.TempDir(), "readings.db"))
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	h := hub.New()
	t.Cleanup(h.Close)

	clock := timeutil.NewMockClock(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
	simulator := sim.New(registry, sim.DefaultConfig(), rand.New(rand.NewSource(1)))

	runner := New(registry, simulator, st, h, clock, Config{
		Interval:   5 * time.Second,
		Clustering: cluster.DefaultParams(),
	})

	return &fixture{registry: registry, store: st, hub: h, clock: clock, runner: runner}
}

func TestTick_PersistsAndPublishes(t *testing.T) {
	f := newFixture(t)
	_, ch := f.hub.Subscribe()

	snapshot := f.runner.Tick(context.Background())
	if len(snapshot) != f.registry.Len() {
		t.Fatalf("expected %d readings, got %d", f.registry.Len(), len(snapshot))
	}

	select {
	case got := <-ch:
		if len(got) != f.registry.Len() {
			t.Errorf("broadcast snapshot has %d readings, want %d", len(got), f.registry.Len())
		}
	case <-time.After(time.Second):
		t.Fatal("no broadcast received")
	}

	latest, err := f.store.LatestPerZone(context.Background())
	if err != nil {
		t.Fatalf("LatestPerZone failed: %v", err)
	}
	if len(latest) != f.registry.Len() {
		t.Errorf("expected %d persisted rows, got %d", f.registry.Len(), len(latest))
	}
}

func TestTick_TimestampsComeFromClock(t *testing.T) {
	f := newFixture(t)
	want := f.clock.Now()

	for _, r := range f.runner.Tick(context.Background()) {
		if !r.Timestamp.Equal(want) {
			t.Errorf("zone %s: expected timestamp %v, got %v", r.ZoneID, want, r.Timestamp)
		}
	}
}

func TestRefresh_DoesNotPersistOrBroadcast(t *testing.T) {
	f := newFixture(t)
	_, ch := f.hub.Subscribe()

	snapshot := f.runner.Refresh(context.Background())
	if len(snapshot) != f.registry.Len() {
		t.Fatalf("expected %d readings, got %d", f.registry.Len(), len(snapshot))
	}

	latest, err := f.store.LatestPerZone(context.Background())
	if err != nil {
		t.Fatalf("LatestPerZone failed: %v", err)
	}
	if len(latest) != 0 {
		t.Errorf("refresh must not persist; found %d rows", len(latest))
	}

	select {
	case <-ch:
		t.Error("refresh must not broadcast")
	default:
	}
}

func TestStartStop_TicksOnInterval(t *testing.T) {
	f := newFixture(t)
	_, ch := f.hub.Subscribe()

	f.runner.Start()
	defer f.runner.Stop()

	f.clock.Advance(5 * time.Second)
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("no tick after advancing one interval")
	}

	f.runner.Stop()

	// After Stop no further ticks may run.
	f.clock.Advance(time.Minute)
	select {
	case <-ch:
		t.Error("tick executed after Stop")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStartStop_Idempotent(t *testing.T) {
	f := newFixture(t)

	f.runner.Start()
	f.runner.Start()
	f.runner.Stop()
	f.runner.Stop()

	// Restart works after a full stop.
	_, ch := f.hub.Subscribe()
	f.runner.Start()
	f.clock.Advance(5 * time.Second)
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("no tick after restart")
	}
	f.runner.Stop()
}

func TestTick_AppendFailureStillBroadcasts(t *testing.T) {
	f := newFixture(t)
	f.store.Close()

	_, ch := f.hub.Subscribe()
	f.runner.Tick(context.Background())

	select {
	case got := <-ch:
		if len(got) != f.registry.Len() {
			t.Errorf("broadcast snapshot has %d readings, want %d", len(got), f.registry.Len())
		}
	case <-time.After(time.Second):
		t.Fatal("append failure must not suppress the broadcast")
	}
}

func TestTick_ClusterLabelsValid(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 20; i++ {
		for _, r := range f.runner.Tick(context.Background()) {
			if r.Cluster < 0 {
				t.Fatalf("zone %s: negative cluster label %d", r.ZoneID, r.Cluster)
			}
		}
	}
}
