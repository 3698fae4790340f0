// Package textsource fetches telemetry lines from a generative text
// service and falls back to the seed corpus when it cannot.
package textsource

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/atikulmunna/fleetwatch/internal/model"
	"golang.org/x/time/rate"
)

// Synthetic lines returned when the live source cannot be used.
var (
	OfflineLines = []string{
		"[SYS] AI uplink offline: no API key configured.",
		"[SYS] Streaming from local telemetry archive.",
	}
	DecodeFailureLine = "[SYS] Warning: corrupted telemetry packet discarded."
	InterferenceLine  = "[COMMS] Signal interference detected, uplink unstable."
)

// ErrBudgetExhausted is reported when the local call budget refuses a call.
var ErrBudgetExhausted = errors.New("textsource: local call budget exhausted")

// Seeds supplies example and fallback lines.
type Seeds interface {
	Sample(n int) []string
	Pick(n int) []string
}

// Generator performs one generative call.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Config holds the adapter settings.
type Config struct {
	APIKey        string
	Model         string
	Endpoint      string
	Timeout       time.Duration // per call, 0 means the caller's context only
	RatePerMinute float64       // local call budget, 0 means unlimited
}

// Adapter implements FetchBatch over a Generator and a seed corpus.
type Adapter struct {
	cfg       Config
	seeds     Seeds
	generator Generator // nil when no credential is configured
	limiter   *rate.Limiter
}

// New creates an Adapter that talks to Gemini over httpClient.
func New(cfg Config, seeds Seeds, httpClient *http.Client) *Adapter {
	var gen Generator
	if cfg.APIKey != "" {
		gen = NewGemini(httpClient, cfg.Endpoint, cfg.Model, cfg.APIKey)
	}
	return NewWithGenerator(cfg, seeds, gen)
}

// NewWithGenerator creates an Adapter around an arbitrary Generator.
// A nil generator behaves like a missing credential.
func NewWithGenerator(cfg Config, seeds Seeds, gen Generator) *Adapter {
	a := &Adapter{cfg: cfg, seeds: seeds, generator: gen}
	if cfg.RatePerMinute > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerMinute/60), 1)
	}
	return a
}

// Configured reports whether a live source is available.
func (a *Adapter) Configured() bool {
	return a.generator != nil
}

// FetchBatch asks the live source for count new lines. It never returns
// an error: every failure becomes synthetic or seed lines with Degraded set.
func (a *Adapter) FetchBatch(ctx context.Context, recent []string, count int) model.Batch {
	if count <= 0 {
		count = 1
	}
	if a.generator == nil {
		return model.Batch{Lines: append([]string(nil), OfflineLines...), Degraded: true}
	}

	text, err := a.generate(ctx, recent, count)
	if err != nil {
		if isRateLimited(err) {
			log.Printf("textsource: rate limited, substituting %d seed lines: %v", count, err)
			return model.Batch{Lines: a.seeds.Pick(count), Degraded: true}
		}
		log.Printf("textsource: request failed: %v", err)
		return model.Batch{Lines: []string{InterferenceLine}, Degraded: true}
	}

	lines, err := decodeLines(text)
	if err != nil {
		log.Printf("textsource: malformed response: %v", err)
		return model.Batch{Lines: []string{DecodeFailureLine}, Degraded: true}
	}
	return model.Batch{Lines: lines}
}

func (a *Adapter) generate(ctx context.Context, recent []string, count int) (string, error) {
	if a.limiter != nil && !a.limiter.Allow() {
		return "", ErrBudgetExhausted
	}
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}
	prompt := buildPrompt(a.seeds.Sample(exampleCount), recent, count)
	return a.generator.Generate(ctx, systemInstruction, prompt)
}

// Sanitize trims anything before the first '[' and after the last ']'.
// Text without a bracket pair is returned unchanged.
func Sanitize(text string) string {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < start {
		return text
	}
	return text[start : end+1]
}

func decodeLines(text string) ([]string, error) {
	var lines []string
	if err := json.Unmarshal([]byte(Sanitize(text)), &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

var (
	rateLimitSignals = []string{"resource_exhausted", "quota", "rate limit", "too many requests"}
	statusTooMany    = regexp.MustCompile(`\b429\b`)
)

// isRateLimited looks for rate-limit or resource-exhaustion signals.
func isRateLimited(err error) bool {
	if errors.Is(err, ErrBudgetExhausted) {
		return true
	}
	var perr *ProviderError
	if errors.As(err, &perr) && perr.IsRateLimited() {
		return true
	}
	msg := strings.ToLower(err.Error())
	if statusTooMany.MatchString(msg) {
		return true
	}
	for _, s := range rateLimitSignals {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
