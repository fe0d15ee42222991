package pool

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/ira-chat/ira/internal/scanloop"
)

// healthProbeTimeout bounds each individual health probe.
const healthProbeTimeout = 5 * time.Second

// StartHealthPolling launches the background health poller. Idempotent:
// only the first call spawns the loop. Each round probes every pool in
// parallel, then sleeps for interval.
func (m *Manager) StartHealthPolling(interval time.Duration) {
	if !m.pollStarted.CompareAndSwap(false, true) {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.pollAll() // probe immediately so routing has health data at startup
		scanloop.Run(m.stopCh, interval, 0, m.pollAll)
	}()
}

// pollAll probes every pool once, in parallel, and records the outcomes.
// A failed probe marks the pool unhealthy; it never crashes the loop.
func (m *Manager) pollAll() {
	var wg sync.WaitGroup
	for _, name := range m.order {
		e := m.entries[name]
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.probeOne(e)
		}()
	}
	wg.Wait()
}

func (m *Manager) probeOne(e *entry) {
	ctx, cancel := context.WithTimeout(context.Background(), healthProbeTimeout)
	defer cancel()

	checkedAt := time.Now()
	healthy, tag := m.probe(ctx, e)

	e.mu.Lock()
	wasHealthy := e.healthy
	e.healthy = healthy
	e.lastError = tag
	e.lastHealthCheckAt = checkedAt
	e.mu.Unlock()

	if healthy != wasHealthy {
		if healthy {
			log.Printf("[pool] %s healthy", e.cfg.Name)
		} else {
			log.Printf("[pool] %s unhealthy: %s", e.cfg.Name, tag)
		}
	}
}

// probe issues one GET to the pool's health path. Returns the health outcome
// and a short error tag ("" on success).
func (m *Manager) probe(ctx context.Context, e *entry) (bool, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.BaseURL+e.cfg.HealthPath, nil)
	if err != nil {
		return false, ErrKind(err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return false, ErrKind(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Sprintf("status=%d", resp.StatusCode)
	}
	return true, ""
}
