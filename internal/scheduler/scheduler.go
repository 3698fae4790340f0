// Package scheduler turns an unreliable text source into a steady,
// irregular stream of telemetry entries.
//
// All state lives behind one mutex and is only touched from a tick, a
// fetch completion or a control call, so the scheduler behaves like a
// single logical thread. A live fetch runs on its own goroutine and
// re-enters through the mutex when it finishes; the in-flight flag keeps
// a second fetch from starting meanwhile.
package scheduler

import (
	"context"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/atikulmunna/fleetwatch/internal/clock"
	"github.com/atikulmunna/fleetwatch/internal/displaylog"
	"github.com/atikulmunna/fleetwatch/internal/model"
	"github.com/atikulmunna/fleetwatch/internal/parser"
	"github.com/google/uuid"
)

// TimeLayout is the display format stamped on entries.
const TimeLayout = "15:04:05"

// Source is the live text source.
type Source interface {
	FetchBatch(ctx context.Context, recent []string, count int) model.Batch
}

// Seeds supplies one filler line per seed turn.
type Seeds interface {
	Random() string
}

// Publisher receives a Frame after every state change. Publish must not block.
type Publisher interface {
	Publish(frame model.Frame)
}

// Config holds the pacing heuristics.
type Config struct {
	Capacity     int           // display log size
	LowWater     int           // prefetch when pending drops below this
	BatchSize    int           // lines requested per live fetch
	ContextLines int           // recent entries sent to the live source
	MinDelay     time.Duration // tick delay is uniform in [MinDelay, MaxDelay)
	MaxDelay     time.Duration
	SeedFirst    bool // first fetch cycle uses the seed corpus
}

// DefaultConfig returns the stock pacing.
func DefaultConfig() Config {
	return Config{
		Capacity:     displaylog.DefaultCapacity,
		LowWater:     2,
		BatchSize:    1,
		ContextLines: 5,
		MinDelay:     time.Second,
		MaxDelay:     4 * time.Second,
	}
}

// Options carries the optional collaborators.
type Options struct {
	Clock     clock.Clock     // defaults to clock.Real()
	Rand      *rand.Rand      // tick delays; defaults to a time-seeded PCG
	Parser    parser.Parser   // defaults to parser.NewTagParser()
	Publisher Publisher       // may be nil
	NewID     func() string   // defaults to uuid.NewString
	Context   context.Context // parent of live fetches; defaults to Background
}

// Stats counts scheduler activity.
type Stats struct {
	Ticks        uint64 `json:"ticks"`
	LiveFetches  uint64 `json:"live_fetches"`
	SeedFetches  uint64 `json:"seed_fetches"`
	DroppedFetch uint64 `json:"dropped_fetches"` // guarded by an in-flight fetch
}

// Scheduler owns the pending buffer, the display log and the fetch state.
type Scheduler struct {
	mu sync.Mutex

	cfg     Config
	source  Source
	seeds   Seeds
	clock   clock.Clock
	rng     *rand.Rand
	parser  parser.Parser
	pub     Publisher
	newID   func() string
	ctx     context.Context
	display *displaylog.Log

	pending  []string
	liveTurn bool // next fetch cycle targets the live source
	fetching bool // a fetch cycle is outstanding
	degraded bool // last live attempt did not use the live source
	running  bool
	timer    clock.Timer
	gen      uint64 // bumped by Stop so stale timers become no-ops
	seq      uint64
	stats    Stats

	wg sync.WaitGroup
}

// New creates an idle Scheduler.
func New(cfg Config, source Source, seeds Seeds, opts Options) *Scheduler {
	def := DefaultConfig()
	if cfg.Capacity <= 0 {
		cfg.Capacity = def.Capacity
	}
	if cfg.LowWater < 0 {
		cfg.LowWater = 0
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.ContextLines < 0 {
		cfg.ContextLines = 0
	}
	if cfg.MinDelay <= 0 {
		cfg.MinDelay = def.MinDelay
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}

	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Rand == nil {
		seed := uint64(time.Now().UnixNano())
		opts.Rand = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	if opts.Parser == nil {
		opts.Parser = parser.NewTagParser()
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}

	return &Scheduler{
		cfg:      cfg,
		source:   source,
		seeds:    seeds,
		clock:    opts.Clock,
		rng:      opts.Rand,
		parser:   opts.Parser,
		pub:      opts.Publisher,
		newID:    opts.NewID,
		ctx:      opts.Context,
		display:  displaylog.New(cfg.Capacity),
		liveTurn: !cfg.SeedFirst,
	}
}

// Start moves the scheduler to RUNNING and ticks immediately.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.tickLocked()
}

// Stop moves the scheduler to IDLE and cancels the scheduled tick.
// A live fetch already outstanding still completes and enqueues its lines.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.publishLocked()
}

// Toggle flips between RUNNING and IDLE and reports the new state.
func (s *Scheduler) Toggle() bool {
	if s.Running() {
		s.Stop()
		return false
	}
	s.Start()
	return true
}

// Running reports whether ticks are being scheduled.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Scheduled reports whether a tick timer is pending.
func (s *Scheduler) Scheduled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Frame returns the current rendering state.
func (s *Scheduler) Frame() model.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameLocked()
}

// Stats returns activity counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Wait blocks until an outstanding live fetch, if any, has completed.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// tick runs one scheduled step unless Stop happened since it was armed.
func (s *Scheduler) tick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || gen != s.gen {
		return
	}
	s.tickLocked()
}

func (s *Scheduler) tickLocked() {
	s.timer = nil
	s.stats.Ticks++

	if len(s.pending) > 0 {
		raw := s.pending[0]
		s.pending = s.pending[1:]

		entry := s.parser.Parse(raw)
		entry.ID = s.newID()
		entry.Timestamp = s.clock.Now().Format(TimeLayout)
		s.display.Append(entry)
	} else {
		s.fetchLocked()
	}

	if len(s.pending) < s.cfg.LowWater {
		s.fetchLocked()
	}

	s.scheduleLocked()
	s.publishLocked()
}

// scheduleLocked arms the next tick after a random delay.
func (s *Scheduler) scheduleLocked() {
	delay := s.cfg.MinDelay
	if span := s.cfg.MaxDelay - s.cfg.MinDelay; span > 0 {
		delay += time.Duration(s.rng.Int64N(int64(span)))
	}
	gen := s.gen
	s.timer = s.clock.AfterFunc(delay, func() { s.tick(gen) })
}

// fetchLocked runs one fetch cycle. A cycle requested while another is
// outstanding is dropped, not queued.
func (s *Scheduler) fetchLocked() {
	if s.fetching {
		s.stats.DroppedFetch++
		return
	}

	if !s.liveTurn {
		s.stats.SeedFetches++
		if line := s.seeds.Random(); line != "" {
			s.pending = append(s.pending, line)
		}
		s.liveTurn = true
		return
	}

	s.stats.LiveFetches++
	s.fetching = true
	recent := s.recentLocked()
	s.wg.Add(1)
	go s.fetchLive(recent)
}

func (s *Scheduler) fetchLive(recent []string) {
	defer s.wg.Done()

	batch := s.source.FetchBatch(s.ctx, recent, s.cfg.BatchSize)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, batch.Lines...)
	if batch.Degraded != s.degraded {
		log.Printf("scheduler: live source degraded=%v", batch.Degraded)
	}
	s.degraded = batch.Degraded
	s.liveTurn = false
	s.fetching = false
	s.publishLocked()
}

// recentLocked formats the newest display entries as "[SYSTEM] message".
func (s *Scheduler) recentLocked() []string {
	tail := s.display.Tail(s.cfg.ContextLines)
	recent := make([]string, len(tail))
	for i, e := range tail {
		recent[i] = e.Line()
	}
	return recent
}

func (s *Scheduler) frameLocked() model.Frame {
	return model.Frame{
		Seq:      s.seq,
		Entries:  s.display.Snapshot(),
		Pending:  len(s.pending),
		Running:  s.running,
		Degraded: s.degraded,
		Fetching: s.fetching,
	}
}

func (s *Scheduler) publishLocked() {
	s.seq++
	if s.pub == nil {
		return
	}
	s.pub.Publish(s.frameLocked())
}
