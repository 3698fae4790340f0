package aggregator

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/atikulmunna/fleetwatch/internal/model"
)

const (
	epsWindow      = 5 * time.Second
	gaugeInterval  = 2 * time.Second
	gaugeMaxJitter = 1.5
)

// Gauge names for the cosmetic fleet readout.
const (
	GaugeReactor = "reactor_output"
	GaugeHull    = "hull_integrity"
	GaugeSignal  = "signal_strength"
	GaugeDrift   = "nav_drift"
)

// Stats holds a point-in-time snapshot of aggregated metrics.
type Stats struct {
	Uptime        string                `json:"uptime"`
	TotalEntries  int64                 `json:"total_entries"`
	EPS           float64               `json:"eps"`
	LevelCounts   map[model.Level]int64 `json:"level_counts"`
	SystemCounts  map[string]int64      `json:"system_counts"`
	DroppedFrames int64                 `json:"dropped_frames"`
	Pending       int                   `json:"pending"`
	Running       bool                  `json:"running"`
	Fetching      bool                  `json:"fetching"`
	AIStatus      string                `json:"ai_status"`
	Fleet         map[string]float64    `json:"fleet"`
}

// Aggregator subscribes to the Hub and computes time-windowed metrics.
// It also drives the cosmetic fleet gauges on its own timer.
type Aggregator struct {
	mu           sync.RWMutex
	startTime    time.Time
	totalEntries int64
	levelCounts  map[model.Level]int64
	systemCounts map[string]int64
	window       []time.Time // arrival times for EPS calculation
	lastID       string
	last         model.Frame
	fleet        map[string]float64
	rng          *rand.Rand
	dropped      func() int64
	frames       <-chan model.Frame
}

// New creates an Aggregator that reads from the given Hub subscriber channel.
// droppedFn provides the live drop count from the Hub.
func New(frames <-chan model.Frame, droppedFn func() int64) *Aggregator {
	seed := uint64(time.Now().UnixNano())
	return &Aggregator{
		startTime:    time.Now(),
		levelCounts:  make(map[model.Level]int64),
		systemCounts: make(map[string]int64),
		fleet: map[string]float64{
			GaugeReactor: 98.0,
			GaugeHull:    100.0,
			GaugeSignal:  87.0,
			GaugeDrift:   0.02,
		},
		rng:     rand.New(rand.NewPCG(seed, seed>>1|1)),
		dropped: droppedFn,
		frames:  frames,
	}
}

// Snapshot returns the current metrics.
func (a *Aggregator) Snapshot() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	levels := make(map[model.Level]int64, len(a.levelCounts))
	for k, v := range a.levelCounts {
		levels[k] = v
	}
	systems := make(map[string]int64, len(a.systemCounts))
	for k, v := range a.systemCounts {
		systems[k] = v
	}
	fleet := make(map[string]float64, len(a.fleet))
	for k, v := range a.fleet {
		fleet[k] = v
	}

	// Calculate EPS from the sliding window.
	cutoff := time.Now().Add(-epsWindow)
	var recent int
	for _, t := range a.window {
		if t.After(cutoff) {
			recent++
		}
	}

	return Stats{
		Uptime:        time.Since(a.startTime).Truncate(time.Second).String(),
		TotalEntries:  a.totalEntries,
		EPS:           float64(recent) / epsWindow.Seconds(),
		LevelCounts:   levels,
		SystemCounts:  systems,
		DroppedFrames: a.dropped(),
		Pending:       a.last.Pending,
		Running:       a.last.Running,
		Fetching:      a.last.Fetching,
		AIStatus:      a.last.AIStatus(),
		Fleet:         fleet,
	}
}

// Start begins consuming frames and updating metrics. Blocks until the
// context is cancelled or the frame channel is closed.
func (a *Aggregator) Start(ctx context.Context) {
	ticker := time.NewTicker(gaugeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-a.frames:
			if !ok {
				return
			}
			a.record(frame)
		case <-ticker.C:
			a.prune()
			a.jitter()
		}
	}
}

// record counts entries that are new since the previous frame.
func (a *Aggregator) record(frame model.Frame) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	for _, e := range frame.After(a.lastID) {
		a.totalEntries++
		a.levelCounts[e.Level]++
		a.systemCounts[e.System]++
		a.window = append(a.window, now)
	}
	if id := frame.LastID(); id != "" {
		a.lastID = id
	}
	a.last = frame
}

// prune removes timestamps older than the EPS window.
func (a *Aggregator) prune() {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := time.Now().Add(-epsWindow)
	i := 0
	for _, t := range a.window {
		if t.After(cutoff) {
			a.window[i] = t
			i++
		}
	}
	a.window = a.window[:i]
}

// jitter nudges the fleet gauges. CRIT entries pull hull integrity down.
func (a *Aggregator) jitter() {
	a.mu.Lock()
	defer a.mu.Unlock()

	step := func() float64 { return (a.rng.Float64()*2 - 1) * gaugeMaxJitter }

	a.fleet[GaugeReactor] = clamp(a.fleet[GaugeReactor]+step(), 60, 100)
	a.fleet[GaugeSignal] = clamp(a.fleet[GaugeSignal]+step()*2, 10, 100)
	a.fleet[GaugeDrift] = clamp(a.fleet[GaugeDrift]+step()/100, 0, 1)

	hull := a.fleet[GaugeHull] + math.Abs(step())/2
	if a.levelCounts[model.LevelCrit] > 0 && a.rng.IntN(4) == 0 {
		hull -= math.Abs(step()) * 2
	}
	a.fleet[GaugeHull] = clamp(hull, 40, 100)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
