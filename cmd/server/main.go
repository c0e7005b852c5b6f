// Command server runs the zonewatch backend: the periodic crowding
// pipeline plus the REST and WebSocket query surface.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"

	"github.com/zonewatch/backend/internal/api"
	"github.com/zonewatch/backend/internal/config"
	"github.com/zonewatch/backend/internal/hub"
	"github.com/zonewatch/backend/internal/pipeline"
	"github.com/zonewatch/backend/internal/sim"
	"github.com/zonewatch/backend/internal/store"
	"github.com/zonewatch/backend/internal/summary"
	"github.com/zonewatch/backend/internal/timeutil"
	"github.com/zonewatch/backend/internal/zones"
)

const shutdownTimeout = 10 * time.Second

var (
	listen    = flag.String("listen", "", "Listen address (overrides ZONEWATCH_LISTEN)")
	dbPath    = flag.String("db", "", "Readings database path (overrides ZONEWATCH_DB)")
	zonesPath = flag.String("zones", "", "Zone catalog JSON path (overrides ZONEWATCH_ZONES)")
)

func main() {
	flag.Parse()

	cfg := config.Load()
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *zonesPath != "" {
		cfg.ZonesPath = *zonesPath
	}
	log.Printf("config: %s", cfg)

	registry, err := zones.Load(cfg.ZonesPath)
	if err != nil {
		log.Fatalf("zone catalog: %v", err)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("readings store: %v", err)
	}
	defer st.Close()

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	clock := timeutil.RealClock{}
	h := hub.New()
	simulator := sim.New(registry, cfg.Occupancy, rand.New(rand.NewSource(seed)))
	runner := pipeline.New(registry, simulator, st, h, clock, pipeline.Config{
		Interval:   cfg.TickInterval,
		Clustering: cfg.Clustering,
	})

	server := api.NewServer(st, h, runner, summary.NewService(st), clock)
	handler := handlers.RecoveryHandler()(handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(server.Router()))

	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: handler,
	}

	runner.Start()
	log.Printf("monitoring %d zones every %v on %s", registry.Len(), cfg.TickInterval, cfg.Listen)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("received %v, shutting down", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server: %v", err)
		}
	}

	// Stop the tick loop first so no append races with store teardown,
	// then drain subscribers and the HTTP server.
	runner.Stop()
	h.Close()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
}
