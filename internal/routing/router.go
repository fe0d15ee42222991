// Package routing implements the tier-aware routing policy: ordered
// candidate selection per tier, health gating, failover across candidates,
// and graceful shed decisions.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ira-chat/ira/internal/model"
	"github.com/ira-chat/ira/internal/pool"
)

// PoolCaller is the slice of the pool manager the router consumes.
type PoolCaller interface {
	CallProcess(ctx context.Context, pool string, payload any, maxQueueWait time.Duration) (*pool.Response, error)
	Healthy(pool string) bool
}

// Action is the routing outcome kind.
type Action string

const (
	ActionForward Action = "forward"
	ActionShed    Action = "shed"
)

// Decision records where (and whether) a request was forwarded.
// UserMessage is non-empty exactly when Action is shed.
type Decision struct {
	Pool        string `json:"pool,omitempty"`
	Action      Action `json:"action"`
	Reason      string `json:"reason"`
	UserMessage string `json:"user_message,omitempty"`
}

// DecisionFunc observes every routing decision. Called synchronously;
// handlers must stay lightweight.
type DecisionFunc func(tier model.Tier, d Decision)

// TierRouter walks a tier's candidate table, forwarding to the first pool
// that admits and answers, and sheds gracefully when none can serve.
type TierRouter struct {
	pools      PoolCaller
	table      Table
	onDecision DecisionFunc
}

// Config configures a TierRouter.
type Config struct {
	Pools PoolCaller
	// Table overrides the routing policy; nil means DefaultTable.
	Table Table
	// OnDecision is called once per RouteAndCall with the final decision.
	OnDecision DecisionFunc
}

// NewTierRouter creates a TierRouter.
func NewTierRouter(cfg Config) *TierRouter {
	table := cfg.Table
	if table == nil {
		table = DefaultTable()
	}
	return &TierRouter{
		pools:      cfg.Pools,
		table:      table,
		onDecision: cfg.OnDecision,
	}
}

// ShedMessage returns the user-facing apology for the tier. The texts are a
// contract with the clients; do not reword casually.
func ShedMessage(tier model.Tier) string {
	switch tier {
	case model.TierEnterprise:
		return "I'm here—give me a moment while I catch up."
	case model.TierPremium:
		return "I'm a bit busy right now—try again in a few seconds?"
	default:
		return "I'm getting a lot of messages right now—could you try again shortly?"
	}
}

// RouteAndCall tries the tier's candidates in order and returns the decision
// plus the worker's reply body on success. Routing failures never surface as
// errors; they become a shed decision with a nil reply.
//
// The health gate is skipped for enterprise: a dead pool still fails fast on
// the transport, and trying is cheaper than prematurely shedding.
func (r *TierRouter) RouteAndCall(ctx context.Context, tier model.Tier, payload model.ProcessRequest) (Decision, *model.ProcessReply) {
	lastReason := "no_candidate"

	for _, cand := range r.table[tier] {
		if tier != model.TierEnterprise && !r.pools.Healthy(cand.Pool) {
			lastReason = "unhealthy:" + cand.Pool
			continue
		}

		resp, err := r.pools.CallProcess(ctx, cand.Pool, payload, cand.MaxQueueWait)
		if err != nil {
			if pool.IsOverloaded(err) {
				lastReason = "overloaded:" + cand.Pool
			} else {
				lastReason = fmt.Sprintf("error:%s:%s", cand.Pool, pool.ErrKind(err))
			}
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastReason = fmt.Sprintf("bad_status:%s:%d", cand.Pool, resp.StatusCode)
			continue
		}

		var reply model.ProcessReply
		if err := json.Unmarshal(resp.Body, &reply); err != nil {
			lastReason = "error:" + cand.Pool + ":bad_json"
			continue
		}

		return r.decide(tier, Decision{
			Pool:   cand.Pool,
			Action: ActionForward,
			Reason: "ok",
		}), &reply
	}

	return r.decide(tier, Decision{
		Action:      ActionShed,
		Reason:      lastReason,
		UserMessage: ShedMessage(tier),
	}), nil
}

func (r *TierRouter) decide(tier model.Tier, d Decision) Decision {
	if r.onDecision != nil {
		r.onDecision(tier, d)
	}
	return d
}

// Candidates exposes the tier's candidate list for diagnostics.
func (r *TierRouter) Candidates(tier model.Tier) []Candidate {
	list := r.table[tier]
	out := make([]Candidate, len(list))
	copy(out, list)
	return out
}
