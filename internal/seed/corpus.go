package seed

import (
	"math/rand/v2"
	"sort"
	"sync"
	"time"
)

// Builtin is the static telemetry archive. Order is stable.
var Builtin = []string{
	"[NAV] Waypoint acquired. Plotting intercept vector.",
	"[NAV] Course correction of 0.03 degrees applied.",
	"[NAV] Gravitational shear detected near Kepler relay.",
	"[ENG] Reactor output stable at 98.2%.",
	"[ENG] Coolant loop B pressure warning, venting excess.",
	"[ENG] Thruster 4 ignition failure, rerouting to backup.",
	"[SYS] Routine diagnostics complete. All modules nominal.",
	"[SYS] Memory defragmentation cycle started.",
	"[SYS] Critical failure detected in subroutine 0x4F.",
	"[COMMS] Handshake with Relay Station Tau complete.",
	"[COMMS] Signal degradation detected on band C.",
	"[COMMS] Encrypted burst received from fleet command.",
	"[SENSOR] Long-range sweep complete. No contacts.",
	"[SENSOR] Unidentified object detected at bearing 214.",
	"[SENSOR] Calibration drift within tolerance.",
	"[LIFE_SUPPORT] O2 scrubbers cycling normally.",
	"[LIFE_SUPPORT] Cabin pressure warning in section 7.",
	"[HULL] Micrometeoroid impact absorbed by shield grid.",
	"[HULL] Stress fracture error on strut 12, sealing.",
	"[CARGO] Manifest reconciled. 412 containers secured.",
	"[CARGO] Refrigeration unit 3 temperature rising.",
	"[DOCK] Shuttle Aurora cleared for departure.",
	"[DOCK] Docking clamp 2 failed to engage.",
	"[MED] Crew vitals within normal parameters.",
	"[POWER] Battery bank charge at 76%.",
	"[POWER] Power surge detected on auxiliary bus.",
	"[AI_CORE] Predictive model retrained on latest sweep data.",
	"[AI_CORE] Heuristic confidence dropped below threshold, warning issued.",
	"[FLEET] Escort vessel Meridian holding formation.",
	"[FLEET] Vessel Halcyon reports critical hull breach.",
}

// Corpus is a set of seed lines: the built-in archive plus lines loaded
// from files. Safe for concurrent use.
type Corpus struct {
	mu      sync.Mutex
	rng     *rand.Rand
	builtin []string
	files   map[string][]string
	lines   []string // builtin followed by file lines in path order
}

// New creates a Corpus over the built-in archive.
func New() *Corpus {
	seed := uint64(time.Now().UnixNano())
	return NewWithRand(rand.New(rand.NewPCG(seed, seed>>1|1)))
}

// NewWithRand creates a Corpus using the given source of randomness.
func NewWithRand(rng *rand.Rand) *Corpus {
	return NewFromLines(Builtin, rng)
}

// NewFromLines creates a Corpus whose built-in lines are replaced by lines.
func NewFromLines(lines []string, rng *rand.Rand) *Corpus {
	c := &Corpus{
		rng:     rng,
		builtin: append([]string(nil), lines...),
		files:   make(map[string][]string),
	}
	c.rebuild()
	return c
}

// Len returns the number of lines in the corpus.
func (c *Corpus) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

// Lines returns an ordered copy of the corpus.
func (c *Corpus) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

// Random returns one uniformly random line, or "" for an empty corpus.
func (c *Corpus) Random() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.lines) == 0 {
		return ""
	}
	return c.lines[c.rng.IntN(len(c.lines))]
}

// Sample returns n distinct lines in a fresh random order.
// The whole corpus is returned, shuffled, when n >= Len.
func (c *Corpus) Sample(n int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n > len(c.lines) {
		n = len(c.lines)
	}
	if n <= 0 {
		return nil
	}
	out := make([]string, 0, n)
	for _, i := range c.rng.Perm(len(c.lines))[:n] {
		out = append(out, c.lines[i])
	}
	return out
}

// Pick returns n lines drawn independently, so repeats are possible.
func (c *Corpus) Pick(n int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n <= 0 || len(c.lines) == 0 {
		return nil
	}
	out := make([]string, n)
	for i := range out {
		out[i] = c.lines[c.rng.IntN(len(c.lines))]
	}
	return out
}

// SetFile replaces the lines contributed by path.
func (c *Corpus) SetFile(path string, lines []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[path] = append([]string(nil), lines...)
	c.rebuild()
}

// RemoveFile drops the lines contributed by path.
func (c *Corpus) RemoveFile(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.files[path]; !ok {
		return
	}
	delete(c.files, path)
	c.rebuild()
}

// rebuild flattens builtin and file lines. Caller holds mu.
func (c *Corpus) rebuild() {
	paths := make([]string, 0, len(c.files))
	for p := range c.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	lines := append([]string(nil), c.builtin...)
	for _, p := range paths {
		lines = append(lines, c.files[p]...)
	}
	c.lines = lines
}
