// Package metrics keeps lightweight route-decision counters for the
// operator surface. Counters are striped (xsync.Counter) so the hot path
// never serializes on a single cache line.
package metrics

import (
	"sort"
	"time"

	"github.com/ira-chat/ira/internal/model"
	"github.com/ira-chat/ira/internal/routing"
	"github.com/puzpuzpuz/xsync/v4"
)

// Collector accumulates named counters.
type Collector struct {
	startedAt time.Time
	counters  *xsync.Map[string, *xsync.Counter]
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		startedAt: time.Now(),
		counters:  xsync.NewMap[string, *xsync.Counter](),
	}
}

// Inc increments the named counter.
func (c *Collector) Inc(name string) {
	counter, _ := c.counters.LoadOrCompute(name, func() (*xsync.Counter, bool) {
		return xsync.NewCounter(), false
	})
	counter.Inc()
}

// RecordDecision counts one routing decision by tier, action, and reason
// class.
func (c *Collector) RecordDecision(tier model.Tier, d routing.Decision) {
	c.Inc("chat_total")
	c.Inc("tier_" + string(tier))
	if d.Action == routing.ActionForward {
		c.Inc("forward_" + d.Pool)
	} else {
		c.Inc("shed_" + string(tier))
	}
	c.Inc("reason_" + reasonClass(d.Reason))
}

// RecordWorkerOutcome counts worker-reported flags on forwarded requests.
func (c *Collector) RecordWorkerOutcome(reply *model.ProcessReply) {
	if reply == nil {
		return
	}
	if reply.Blocked {
		c.Inc("blocked_total")
	}
	if reply.RateLimited {
		c.Inc("rate_limited_total")
		if reply.Silent {
			c.Inc("rate_limited_silent")
		}
	}
}

// reasonClass reduces a decision reason to its leading tag, e.g.
// "overloaded:standard" -> "overloaded".
func reasonClass(reason string) string {
	for i := 0; i < len(reason); i++ {
		if reason[i] == ':' {
			return reason[:i]
		}
	}
	return reason
}

// Snapshot is the JSON shape served at GET /metrics.
type Snapshot struct {
	UptimeSeconds int64            `json:"uptime_seconds"`
	Counters      map[string]int64 `json:"counters"`
	Names         []string         `json:"-"`
}

// Snapshot returns a point-in-time copy of all counters.
func (c *Collector) Snapshot() Snapshot {
	out := Snapshot{
		UptimeSeconds: int64(time.Since(c.startedAt).Seconds()),
		Counters:      make(map[string]int64),
	}
	c.counters.Range(func(name string, counter *xsync.Counter) bool {
		out.Counters[name] = counter.Value()
		out.Names = append(out.Names, name)
		return true
	})
	sort.Strings(out.Names)
	return out
}

// Value returns one counter's current value (0 when never incremented).
func (c *Collector) Value(name string) int64 {
	counter, ok := c.counters.Load(name)
	if !ok {
		return 0
	}
	return counter.Value()
}
