// Package pool manages the worker pools: per-pool concurrency admission,
// background health polling, latency smoothing, and request forwarding.
package pool

import (
	"math"
	"sync"
	"time"
)

// Config is the static description of one worker pool. Immutable after
// startup.
type Config struct {
	Name           string
	BaseURL        string
	MaxConcurrency int
	HealthPath     string // defaults to /healthz
	ProcessPath    string // defaults to /process
}

func (c Config) withDefaults() Config {
	if c.HealthPath == "" {
		c.HealthPath = "/healthz"
	}
	if c.ProcessPath == "" {
		c.ProcessPath = "/process"
	}
	return c
}

// ewmaAlpha is the smoothing factor for latency: higher reacts faster.
const ewmaAlpha = 0.2

// entry is one pool's runtime state. The semaphore channel enforces the
// concurrency bound; the mutex serializes the bookkeeping fields, which are
// written by admission/release, latency recording, and the health poller.
type entry struct {
	cfg Config
	sem chan struct{}

	mu                sync.Mutex
	healthy           bool
	lastError         string
	lastHealthCheckAt time.Time
	inflight          int
	ewmaLatencyMs     float64
	hasLatencySample  bool
}

// recordLatency folds one measured request duration into the pool's EWMA.
// The first sample seeds the average directly; the explicit has-sample flag
// keeps a legitimate 0ms first sample from being treated as "unseeded".
func (e *entry) recordLatency(elapsed time.Duration) {
	ms := float64(elapsed) / float64(time.Millisecond)
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.hasLatencySample {
		e.ewmaLatencyMs = ms
		e.hasLatencySample = true
		return
	}
	e.ewmaLatencyMs = ewmaAlpha*ms + (1-ewmaAlpha)*e.ewmaLatencyMs
}

// StateView is the operator-facing snapshot of one pool.
type StateView struct {
	BaseURL           string    `json:"base_url"`
	MaxConcurrency    int       `json:"max_concurrency"`
	Healthy           bool      `json:"healthy"`
	LastError         string    `json:"last_error,omitempty"`
	Inflight          int       `json:"inflight"`
	EwmaLatencyMs     float64   `json:"ewma_latency_ms"`
	LastHealthCheckAt time.Time `json:"last_health_check_at"`
}

func (e *entry) view() StateView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return StateView{
		BaseURL:           e.cfg.BaseURL,
		MaxConcurrency:    e.cfg.MaxConcurrency,
		Healthy:           e.healthy,
		LastError:         e.lastError,
		Inflight:          e.inflight,
		EwmaLatencyMs:     math.Round(e.ewmaLatencyMs*100) / 100,
		LastHealthCheckAt: e.lastHealthCheckAt,
	}
}
