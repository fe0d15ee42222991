package pool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ira-chat/ira/internal/requestctx"
)

// Manager owns the pool set: admission, forwarding, health polling, and the
// shared worker HTTP client.
type Manager struct {
	order   []string
	entries map[string]*entry
	client  *http.Client

	stopCh      chan struct{}
	wg          sync.WaitGroup
	pollStarted atomic.Bool
	closeOnce   sync.Once
}

// NewManager validates the pool configs and builds a Manager using the given
// shared HTTP client.
func NewManager(configs []Config, client *http.Client) (*Manager, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("pool: no pool configs")
	}
	m := &Manager{
		entries: make(map[string]*entry, len(configs)),
		client:  client,
		stopCh:  make(chan struct{}),
	}
	for _, cfg := range configs {
		cfg = cfg.withDefaults()
		if cfg.Name == "" {
			return nil, fmt.Errorf("pool: config with empty name")
		}
		if _, dup := m.entries[cfg.Name]; dup {
			return nil, fmt.Errorf("pool: duplicate pool %q", cfg.Name)
		}
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("pool %s: empty base url", cfg.Name)
		}
		if cfg.MaxConcurrency <= 0 {
			return nil, fmt.Errorf("pool %s: max concurrency must be positive, got %d", cfg.Name, cfg.MaxConcurrency)
		}
		m.entries[cfg.Name] = &entry{
			cfg: cfg,
			sem: make(chan struct{}, cfg.MaxConcurrency),
		}
		m.order = append(m.order, cfg.Name)
	}
	return m, nil
}

// Response is a worker's raw HTTP reply to a forwarded process call.
type Response struct {
	StatusCode int
	Body       []byte
}

// CallProcess acquires one admission permit for the pool, forwards payload as
// a POST to the pool's process path, and returns the response. The permit is
// released exactly once on every exit path, and the elapsed time from
// admission to return feeds the pool's latency EWMA.
//
// maxQueueWait <= 0 means fail immediately with OverloadedError when no
// permit is free; otherwise the acquisition waits up to maxQueueWait.
func (m *Manager) CallProcess(ctx context.Context, pool string, payload any, maxQueueWait time.Duration) (*Response, error) {
	e, ok := m.entries[pool]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPool, pool)
	}

	if err := m.acquire(ctx, e, maxQueueWait); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.inflight++
	e.mu.Unlock()
	start := time.Now()

	defer func() {
		e.recordLatency(time.Since(start))
		e.mu.Lock()
		e.inflight--
		e.mu.Unlock()
		<-e.sem
	}()

	return m.post(ctx, e, payload)
}

// acquire takes one semaphore slot, bounded by maxQueueWait. Context
// cancellation aborts the wait without leaking a permit.
func (m *Manager) acquire(ctx context.Context, e *entry, maxQueueWait time.Duration) error {
	if maxQueueWait <= 0 {
		select {
		case e.sem <- struct{}{}:
			return nil
		default:
			return &OverloadedError{Pool: e.cfg.Name}
		}
	}

	timer := time.NewTimer(maxQueueWait)
	defer timer.Stop()
	select {
	case e.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return &OverloadedError{Pool: e.cfg.Name}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) post(ctx context.Context, e *entry, payload any) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("pool %s: encode payload: %w", e.cfg.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BaseURL+e.cfg.ProcessPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("pool %s: build request: %w", e.cfg.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cid := requestctx.CorrelationID(ctx); cid != "" {
		req.Header.Set(requestctx.HeaderCorrelationID, cid)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// Healthy reports the last known health probe outcome for the pool.
// Unknown pools read as unhealthy.
func (m *Manager) Healthy(pool string) bool {
	e, ok := m.entries[pool]
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.healthy
}

// Snapshot returns a consistent per-pool state view for operators.
func (m *Manager) Snapshot() map[string]StateView {
	out := make(map[string]StateView, len(m.entries))
	for name, e := range m.entries {
		out[name] = e.view()
	}
	return out
}

// Pools returns the configured pool names in registration order.
func (m *Manager) Pools() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Close stops the health poller and releases idle HTTP connections. Callers
// are expected to let in-flight requests complete first; Close is not a
// forceful abort.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.stopCh)
		m.wg.Wait()
		m.client.CloseIdleConnections()
	})
}
