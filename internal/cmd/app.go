package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/atikulmunna/fleetwatch/internal/aggregator"
	"github.com/atikulmunna/fleetwatch/internal/config"
	"github.com/atikulmunna/fleetwatch/internal/hub"
	"github.com/atikulmunna/fleetwatch/internal/scheduler"
	"github.com/atikulmunna/fleetwatch/internal/seed"
	"github.com/atikulmunna/fleetwatch/internal/textsource"
)

// app wires the stream pipeline shared by every front end:
// seed corpus -> text source -> scheduler -> hub -> subscribers.
type app struct {
	cfg     config.Config
	corpus  *seed.Corpus
	watcher *seed.Watcher
	source  *textsource.Adapter
	hub     *hub.Hub
	sched   *scheduler.Scheduler
	agg     *aggregator.Aggregator
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Printf("fleetwatch: shutting down gracefully")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{cfg: cfg, corpus: seed.New(), hub: hub.New()}

	if len(cfg.Seeds) > 0 {
		w, err := seed.NewWatcher(cfg.Seeds, a.corpus)
		if err != nil {
			return nil, fmt.Errorf("failed to create seed watcher: %w", err)
		}
		if len(w.Paths()) == 0 {
			log.Printf("fleetwatch: no seed files matched %v, using the built-in corpus", cfg.Seeds)
		}
		a.watcher = w
	}

	a.source = textsource.New(cfg.TextSource(), a.corpus, &http.Client{})
	if !a.source.Configured() {
		log.Printf("fleetwatch: no API key configured, streaming from the seed corpus")
	}

	a.sched = scheduler.New(cfg.Scheduler(), a.source, a.corpus, scheduler.Options{
		Publisher: a.hub,
		Context:   ctx,
	})
	a.agg = aggregator.New(a.hub.Subscribe(), a.hub.Dropped)

	return a, nil
}

// start launches the background workers and, unless configured paused,
// the scheduler.
func (a *app) start(ctx context.Context) {
	if a.watcher != nil {
		go a.watcher.Start(ctx)
	}
	go a.agg.Start(ctx)

	if a.cfg.Stream.Paused {
		log.Printf("fleetwatch: starting paused")
		return
	}
	a.sched.Start()
}

// stop halts ticking, waits for an outstanding live fetch and closes
// every hub subscription.
func (a *app) stop() {
	a.sched.Stop()
	a.sched.Wait()
	a.hub.Close()

	st := a.sched.Stats()
	log.Printf("fleetwatch: stopped after %d ticks (%d live, %d seed, %d dropped fetches)",
		st.Ticks, st.LiveFetches, st.SeedFetches, st.DroppedFetch)
}
