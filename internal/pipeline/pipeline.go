// Package pipeline drives the periodic tick loop: simulate, cluster,
// classify, persist, broadcast.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/zonewatch/backend/internal/classify"
	"github.com/zonewatch/backend/internal/cluster"
	"github.com/zonewatch/backend/internal/hub"
	"github.com/zonewatch/backend/internal/monitoring"
	"github.com/zonewatch/backend/internal/sim"
	"github.com/zonewatch/backend/internal/store"
	"github.com/zonewatch/backend/internal/timeutil"
	"github.com/zonewatch/backend/internal/zones"
)

// DefaultInterval is the production tick period.
const DefaultInterval = 5 * time.Second

// Config holds the runner's tunable parameters.
type Config struct {
	Interval   time.Duration
	Clustering cluster.Params
}

// DefaultConfig returns the production tick configuration.
func DefaultConfig() Config {
	return Config{
		Interval:   DefaultInterval,
		Clustering: cluster.DefaultParams(),
	}
}

// Runner executes the pipeline once per tick. Stages within a tick run
// sequentially; the store is the only resource shared with request
// handlers.
type Runner struct {
	registry  *zones.Registry
	simulator *sim.Simulator
	store     *store.Store
	hub       *hub.Hub
	clock     timeutil.Clock
	cfg       Config

	// simMu serialises simulator access between the tick loop and
	// on-demand refreshes; the rand source is not concurrency-safe.
	simMu sync.Mutex

	startMu sync.Mutex
	stopCh  chan struct{}
	wg      sync.WaitGroup

	lastDropped uint64
}

// New creates a Runner. The clock is injected so tests can fire ticks
// deterministically.
func New(registry *zones.Registry, simulator *sim.Simulator, st *store.Store, h *hub.Hub, clock timeutil.Clock, cfg Config) *Runner {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Runner{
		registry:  registry,
		simulator: simulator,
		store:     st,
		hub:       h,
		clock:     clock,
		cfg:       cfg,
	}
}

// Start launches the tick loop. Calling Start on a running Runner is a
// no-op.
func (r *Runner) Start() {
	r.startMu.Lock()
	defer r.startMu.Unlock()
	if r.stopCh != nil {
		return
	}

	r.stopCh = make(chan struct{})
	// Create the ticker here rather than in the goroutine so the loop is
	// observable on the clock as soon as Start returns.
	ticker := r.clock.NewTicker(r.cfg.Interval)
	r.wg.Add(1)
	go r.run(r.stopCh, ticker)
}

// Stop halts the tick loop and waits for any in-flight tick to finish,
// so no append races with store teardown. Idempotent.
func (r *Runner) Stop() {
	r.startMu.Lock()
	defer r.startMu.Unlock()
	if r.stopCh == nil {
		return
	}

	close(r.stopCh)
	r.wg.Wait()
	r.stopCh = nil
}

func (r *Runner) run(stopCh chan struct{}, ticker timeutil.Ticker) {
	defer r.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C():
			r.Tick(context.Background())
		}
	}
}

// Tick runs one full pipeline pass: simulate, cluster, classify, append,
// publish. A persistence failure is logged and the broadcast still goes
// out with the in-memory snapshot.
func (r *Runner) Tick(ctx context.Context) hub.Snapshot {
	snapshot := r.computeSnapshot()

	if err := r.store.Append(ctx, snapshot); err != nil {
		monitoring.Logf("pipeline: append failed, broadcasting unpersisted tick: %v", err)
	}

	r.hub.Publish(snapshot)
	if dropped := r.hub.Dropped(); dropped > r.lastDropped {
		monitoring.Logf("pipeline: %d deliveries dropped this tick (%d subscribers)", dropped-r.lastDropped, r.hub.Subscribers())
		r.lastDropped = dropped
	}
	return snapshot
}

// Refresh produces one fresh snapshot for a single requester. The result
// is neither persisted nor broadcast.
func (r *Runner) Refresh(ctx context.Context) hub.Snapshot {
	return r.computeSnapshot()
}

func (r *Runner) computeSnapshot() hub.Snapshot {
	r.simMu.Lock()
	signals := r.simulator.Tick()
	r.simMu.Unlock()

	points := make([]cluster.Point, len(signals))
	for i, sig := range signals {
		points[i] = cluster.Point{X: sig.X, Y: sig.Y}
	}
	labels := cluster.Assign(points, r.cfg.Clustering)

	now := r.clock.Now()
	snapshot := make(hub.Snapshot, len(signals))
	for i, sig := range signals {
		zone, _ := r.registry.Get(sig.ZoneID)
		snapshot[i] = classify.Build(sig, zone, labels[i], now)
	}
	return snapshot
}
