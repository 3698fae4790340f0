package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/atikulmunna/fleetwatch/internal/clock"
	"github.com/atikulmunna/fleetwatch/internal/model"
	"github.com/atikulmunna/fleetwatch/internal/seed"
	"github.com/atikulmunna/fleetwatch/internal/textsource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeSource records calls. With a gate, each call blocks until the test
// sends on it.
type fakeSource struct {
	mu     sync.Mutex
	calls  int
	recent [][]string
	gate   chan struct{}
	batch  func(call int) model.Batch
	events *recorder
}

func (f *fakeSource) FetchBatch(_ context.Context, recent []string, _ int) model.Batch {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.recent = append(f.recent, recent)
	f.mu.Unlock()

	if f.events != nil {
		f.events.add("live")
	}
	if f.gate != nil {
		<-f.gate
	}
	if f.batch != nil {
		return f.batch(call)
	}
	return model.Batch{Lines: []string{fmt.Sprintf("[LIVE] line %d", call)}}
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSeeds struct {
	n      int
	events *recorder
}

func (f *fakeSeeds) Random() string {
	f.n++
	if f.events != nil {
		f.events.add("seed")
	}
	return fmt.Sprintf("[SEED] filler %d", f.n)
}

type recorder struct {
	mu     sync.Mutex
	items  []string
	frames []model.Frame
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, s)
}

func (r *recorder) Publish(f model.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
}

func (r *recorder) Items() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.items...)
}

func (r *recorder) Frames() []model.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Frame(nil), r.frames...)
}

func fixedConfig() Config {
	cfg := DefaultConfig()
	cfg.MinDelay = time.Second
	cfg.MaxDelay = time.Second
	return cfg
}

func newTestScheduler(cfg Config, src Source, seeds Seeds, pub Publisher) (*Scheduler, *clock.Fake) {
	clk := clock.NewFake(epoch)
	n := 0
	s := New(cfg, src, seeds, Options{
		Clock:     clk,
		Rand:      rand.New(rand.NewPCG(7, 11)),
		Publisher: pub,
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	})
	return s, clk
}

func messages(entries []model.LogEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Line()
	}
	return out
}

func TestStartFetchesOnceWhenBothTriggersFire(t *testing.T) {
	src := &fakeSource{gate: make(chan struct{})}
	s, _ := newTestScheduler(fixedConfig(), src, &fakeSeeds{}, nil)

	// Empty buffer triggers a fetch and the low-water check asks again in
	// the same tick; the second request must be dropped.
	s.Start()

	require.Eventually(t, func() bool { return src.Calls() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, s.Frame().Fetching)
	assert.Equal(t, uint64(1), s.Stats().DroppedFetch)
	assert.Empty(t, s.Frame().Entries, "no entry is appended on a fetching tick")
	assert.True(t, s.Scheduled())

	src.gate <- struct{}{}
	s.Wait()

	f := s.Frame()
	assert.False(t, f.Fetching)
	assert.Equal(t, 1, f.Pending)
	assert.Equal(t, 1, src.Calls())
}

func TestSeedFirstThenLivePrefetch(t *testing.T) {
	cfg := fixedConfig()
	cfg.SeedFirst = true
	src := &fakeSource{}
	seeds := &fakeSeeds{}
	s, _ := newTestScheduler(cfg, src, seeds, nil)

	s.Start()
	s.Wait()

	// Seed cycle fills one line synchronously, the prefetch goes live.
	assert.Equal(t, 1, seeds.n)
	assert.Equal(t, 1, src.Calls())
	assert.Equal(t, 2, s.Frame().Pending)
	assert.Equal(t, uint64(0), s.Stats().DroppedFetch)
}

func TestTicksConsumeInArrivalOrder(t *testing.T) {
	src := &fakeSource{batch: func(call int) model.Batch {
		if call == 1 {
			return model.Batch{Lines: []string{"[A] one", "[B] two", "[C] three"}}
		}
		return model.Batch{Lines: []string{"[D] four"}}
	}}
	s, clk := newTestScheduler(fixedConfig(), src, &fakeSeeds{}, nil)

	s.Start()
	s.Wait()
	require.Equal(t, 3, s.Frame().Pending)

	clk.Advance(time.Second) // consumes A, pending 2: no fetch
	s.Wait()
	assert.Equal(t, 2, s.Frame().Pending)

	clk.Advance(time.Second) // consumes B, pending 1: seed prefetch
	s.Wait()
	assert.Equal(t, 2, s.Frame().Pending)

	clk.Advance(time.Second) // consumes C, pending 1: live prefetch
	s.Wait()

	f := s.Frame()
	assert.Equal(t, []string{"[A] one", "[B] two", "[C] three"}, messages(f.Entries))
	assert.Equal(t, 2, f.Pending)
	assert.Equal(t, "id-1", f.Entries[0].ID)
	assert.Equal(t, "12:00:01", f.Entries[0].Timestamp)
	assert.Equal(t, "12:00:03", f.Entries[2].Timestamp)
	assert.Equal(t, 2, src.Calls())
}

func TestSourceAlternatesRegardlessOfOutcome(t *testing.T) {
	events := &recorder{}
	src := &fakeSource{events: events, batch: func(call int) model.Batch {
		if call%2 == 0 {
			return model.Batch{Lines: []string{textsource.InterferenceLine}, Degraded: true}
		}
		return model.Batch{} // live call that produced nothing
	}}
	cfg := fixedConfig()
	cfg.LowWater = 0
	s, clk := newTestScheduler(cfg, src, &fakeSeeds{events: events}, nil)

	s.Start()
	s.Wait()
	for i := 0; i < 20; i++ {
		clk.Advance(time.Second)
		s.Wait()
	}

	kinds := events.Items()
	require.Greater(t, len(kinds), 4)
	assert.Equal(t, "live", kinds[0])
	for i := 1; i < len(kinds); i++ {
		assert.NotEqual(t, kinds[i-1], kinds[i], "fetch %d repeated source %s", i, kinds[i])
	}
}

func TestSeedTurnLeavesDegradedUnchanged(t *testing.T) {
	src := &fakeSource{batch: func(int) model.Batch {
		return model.Batch{Lines: []string{textsource.InterferenceLine}, Degraded: true}
	}}
	s, clk := newTestScheduler(fixedConfig(), src, &fakeSeeds{}, nil)

	s.Start()
	s.Wait()
	require.True(t, s.Frame().Degraded)

	// Tick consumes the only line; the prefetch is a seed turn.
	clk.Advance(time.Second)
	s.Wait()

	assert.Equal(t, uint64(1), s.Stats().SeedFetches)
	assert.True(t, s.Frame().Degraded)
	assert.Equal(t, "offline-fallback", s.Frame().AIStatus())
}

func TestRateLimitedLiveCycleKeepsTicking(t *testing.T) {
	corpus := seed.NewFromLines([]string{"[SEED] archive"}, rand.New(rand.NewPCG(1, 1)))
	adapter := textsource.NewWithGenerator(textsource.Config{}, corpus, generatorFunc(func() (string, error) {
		return "", &textsource.ProviderError{StatusCode: 429, Status: "RESOURCE_EXHAUSTED", Message: "slow down"}
	}))
	cfg := fixedConfig()
	cfg.BatchSize = 3
	s, clk := newTestScheduler(cfg, adapter, corpus, nil)

	s.Start()
	s.Wait()

	f := s.Frame()
	assert.True(t, f.Degraded)
	assert.Equal(t, 3, f.Pending)

	clk.Advance(time.Second)
	s.Wait()

	f = s.Frame()
	require.Len(t, f.Entries, 1)
	assert.Equal(t, "SEED", f.Entries[0].System)
	assert.Equal(t, uint64(2), s.Stats().Ticks)
	assert.True(t, s.Scheduled())
}

type generatorFunc func() (string, error)

func (g generatorFunc) Generate(context.Context, string, string) (string, error) { return g() }

func TestStopCancelsScheduledTick(t *testing.T) {
	s, clk := newTestScheduler(fixedConfig(), &fakeSource{}, &fakeSeeds{}, nil)

	s.Start()
	s.Wait()
	require.True(t, s.Scheduled())

	s.Stop()
	assert.False(t, s.Running())
	assert.False(t, s.Scheduled())
	assert.Equal(t, 0, clk.Pending())

	clk.Advance(time.Hour)
	s.Wait()
	assert.Equal(t, uint64(1), s.Stats().Ticks)

	s.Start()
	assert.Equal(t, uint64(2), s.Stats().Ticks)
	assert.True(t, s.Scheduled())
}

func TestStaleTimerIgnoredAfterRestart(t *testing.T) {
	s, _ := newTestScheduler(fixedConfig(), &fakeSource{}, &fakeSeeds{}, nil)

	s.Start()
	s.Wait()
	stale := s.gen

	s.Stop()
	s.Start()
	s.Wait()
	ticks := s.Stats().Ticks

	// A real timer may already be waiting on the mutex when Stop runs.
	s.tick(stale)
	assert.Equal(t, ticks, s.Stats().Ticks)
}

func TestStopDuringLiveFetchStillEnqueues(t *testing.T) {
	src := &fakeSource{gate: make(chan struct{})}
	s, clk := newTestScheduler(fixedConfig(), src, &fakeSeeds{}, nil)

	s.Start()
	s.Stop()
	src.gate <- struct{}{}
	s.Wait()

	f := s.Frame()
	assert.False(t, f.Running)
	assert.Equal(t, 1, f.Pending)
	assert.False(t, s.Scheduled())

	clk.Advance(time.Hour)
	assert.Equal(t, uint64(1), s.Stats().Ticks)
}

func TestToggle(t *testing.T) {
	s, _ := newTestScheduler(fixedConfig(), &fakeSource{}, &fakeSeeds{}, nil)

	assert.True(t, s.Toggle())
	assert.True(t, s.Running())
	assert.False(t, s.Toggle())
	assert.False(t, s.Running())
	s.Wait()
}

func TestDisplayNeverExceedsCapacity(t *testing.T) {
	pub := &recorder{}
	cfg := fixedConfig()
	cfg.Capacity = 4
	src := &fakeSource{batch: func(call int) model.Batch {
		return model.Batch{Lines: []string{fmt.Sprintf("[LIVE] a%d", call), fmt.Sprintf("[LIVE] b%d", call)}}
	}}
	s, clk := newTestScheduler(cfg, src, &fakeSeeds{}, pub)

	s.Start()
	s.Wait()
	for i := 0; i < 30; i++ {
		clk.Advance(time.Second)
		s.Wait()
	}

	frames := pub.Frames()
	require.NotEmpty(t, frames)
	for _, f := range frames {
		assert.LessOrEqual(t, len(f.Entries), 4)
	}
	last := frames[len(frames)-1]
	assert.Len(t, last.Entries, 4)

	// Newest entry is last and ids keep increasing.
	all := s.Frame().Entries
	for i := 1; i < len(all); i++ {
		var a, b int
		fmt.Sscanf(all[i-1].ID, "id-%d", &a)
		fmt.Sscanf(all[i].ID, "id-%d", &b)
		assert.Less(t, a, b)
	}
}

func TestRecentContextSentToLiveSource(t *testing.T) {
	cfg := fixedConfig()
	cfg.ContextLines = 2
	src := &fakeSource{}
	s, clk := newTestScheduler(cfg, src, &fakeSeeds{}, nil)

	s.Start()
	s.Wait()
	for i := 0; i < 8; i++ {
		clk.Advance(time.Second)
		s.Wait()
	}

	src.mu.Lock()
	defer src.mu.Unlock()
	require.Greater(t, len(src.recent), 1)
	assert.Empty(t, src.recent[0], "first fetch has no history")
	for _, recent := range src.recent[1:] {
		assert.LessOrEqual(t, len(recent), 2)
		for _, line := range recent {
			assert.True(t, strings.HasPrefix(line, "["), "context line %q not formatted", line)
		}
	}
}

func TestDelayWithinRange(t *testing.T) {
	cfg := DefaultConfig()
	s, clk := newTestScheduler(cfg, &fakeSource{}, &fakeSeeds{}, nil)

	s.Start()
	s.Wait()

	// Nothing may fire before MinDelay.
	clk.Advance(cfg.MinDelay - time.Millisecond)
	assert.Equal(t, uint64(1), s.Stats().Ticks)

	// Something must fire before MaxDelay.
	clk.Advance(cfg.MaxDelay - cfg.MinDelay + time.Millisecond)
	s.Wait()
	assert.GreaterOrEqual(t, s.Stats().Ticks, uint64(2))
}

func TestSourceErrorsNeverEscape(t *testing.T) {
	adapter := textsource.NewWithGenerator(textsource.Config{}, seed.New(), generatorFunc(func() (string, error) {
		return "", errors.New("boom")
	}))
	s, clk := newTestScheduler(fixedConfig(), adapter, seed.New(), nil)

	s.Start()
	for i := 0; i < 5; i++ {
		s.Wait()
		clk.Advance(time.Second)
	}
	s.Wait()

	assert.True(t, s.Running())
	assert.NotEmpty(t, s.Frame().Entries)
}
