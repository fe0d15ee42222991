// Package worker implements a pool worker: safety screen, daily rate limit,
// simulated model latency, and session persistence for each processed
// message.
package worker

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/ira-chat/ira/internal/model"
	"github.com/ira-chat/ira/internal/ratelimit"
	"github.com/ira-chat/ira/internal/requestctx"
	"github.com/ira-chat/ira/internal/safety"
	"github.com/ira-chat/ira/internal/store"
)

// Simulated model latency per pool. The jitter keeps load tests honest.
var latencyByPool = map[string]struct{ min, max time.Duration }{
	model.PoolPriority: {20 * time.Millisecond, 60 * time.Millisecond},
	model.PoolStandard: {50 * time.Millisecond, 150 * time.Millisecond},
	model.PoolOverflow: {100 * time.Millisecond, 350 * time.Millisecond},
}

const recentContextMessages = 10

// Processor handles one /process request end to end.
type Processor struct {
	pool    string
	limiter *ratelimit.Limiter
	docs    *store.Store
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

// ProcessorConfig configures a Processor. Docs may be nil (persistence
// disabled); Now and Sleep are injectable for tests.
type ProcessorConfig struct {
	Pool    string
	Limiter *ratelimit.Limiter
	Docs    *store.Store
	Now     func() time.Time
	Sleep   func(ctx context.Context, d time.Duration) error
}

// NewProcessor creates a Processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = ctxSleep
	}
	return &Processor{
		pool:    cfg.Pool,
		limiter: cfg.Limiter,
		docs:    cfg.Docs,
		now:     now,
		sleep:   sleep,
	}
}

// Process screens, rate-limits, and answers one message. The returned reply
// always carries OK=true; transport-level failures are the server's problem.
func (p *Processor) Process(ctx context.Context, req model.ProcessRequest) (model.ProcessReply, error) {
	user := p.lookupUser(req)

	// Safety first: blocked messages consume no quota.
	if screen := safety.Detect(req.Message); !screen.Allowed {
		log.Printf("[worker] cid=%s blocked user=%s category=%s",
			requestctx.CorrelationID(ctx), req.UserID, screen.Category)
		refusal := safety.RefusalMessage(user.Tone, screen.Category)
		return model.ProcessReply{OK: true, Reply: &refusal, Blocked: true}, nil
	}

	res, err := p.limiter.CheckAndIncrement(ctx, req.UserID, req.Tier)
	if err != nil {
		// KV outage: enterprise fails open, limited tiers fail closed with
		// the notice so the user is not left hanging.
		log.Printf("[worker] cid=%s rate limit check failed user=%s: %v",
			requestctx.CorrelationID(ctx), req.UserID, err)
		if req.Tier != model.TierEnterprise {
			notice := ratelimit.HumanResetMessage(secondsUntilMidnight(p.now()))
			return model.ProcessReply{OK: true, Reply: &notice, RateLimited: true}, nil
		}
		res = ratelimit.Result{Allowed: true}
	}

	if !res.Allowed {
		if res.FirstNotice {
			notice := ratelimit.HumanResetMessage(res.ResetInSeconds)
			return model.ProcessReply{OK: true, Reply: &notice, RateLimited: true}, nil
		}
		return model.ProcessReply{OK: true, Reply: nil, RateLimited: true, Silent: true}, nil
	}

	if err := p.simulateWork(ctx); err != nil {
		return model.ProcessReply{}, err
	}

	reply := p.composeReply(user, req.Message)
	p.persist(req, user, reply)
	return model.ProcessReply{OK: true, Reply: &reply}, nil
}

// lookupUser loads the stored user, falling back to the request's tier and a
// warm tone for unknown users.
func (p *Processor) lookupUser(req model.ProcessRequest) model.User {
	fallback := model.User{ID: req.UserID, Tier: req.Tier, Tone: "warm"}
	if p.docs == nil {
		return fallback
	}
	u, ok, err := p.docs.GetUser(req.UserID)
	if err != nil {
		log.Printf("[worker] user lookup %s failed: %v", req.UserID, err)
		return fallback
	}
	if !ok {
		return fallback
	}
	return u
}

func (p *Processor) simulateWork(ctx context.Context) error {
	lat, ok := latencyByPool[p.pool]
	if !ok {
		lat = latencyByPool[model.PoolOverflow]
	}
	d := lat.min + rand.N(lat.max-lat.min)
	return p.sleep(ctx, d)
}

func (p *Processor) composeReply(user model.User, message string) string {
	n := len(message)
	if n > 40 {
		n = 40
	}
	switch user.Tone {
	case "playful":
		return fmt.Sprintf("Ooh, %q—tell me more!", message[:n])
	case "direct":
		return fmt.Sprintf("Noted: %q. Here's my take.", message[:n])
	default:
		return fmt.Sprintf("I hear you—about %q, let's talk it through.", message[:n])
	}
}

// persist appends the exchange to the user's session for the current UTC
// day, starting one if needed. Store failures are logged and swallowed; the
// reply has already been produced.
func (p *Processor) persist(req model.ProcessRequest, user model.User, reply string) {
	if p.docs == nil {
		return
	}

	now := p.now().UTC()
	day := now.Format("2006-01-02")
	nowNs := now.UnixNano()

	sess, ok, err := p.docs.ActiveSessionForDay(req.UserID, day)
	if err != nil {
		log.Printf("[worker] session lookup user=%s failed: %v", req.UserID, err)
		return
	}
	if !ok {
		sess = model.Session{
			ID:             uuid.NewString(),
			UserID:         req.UserID,
			Day:            day,
			Tier:           user.Tier,
			Status:         model.SessionActive,
			StartedAt:      nowNs,
			LastActivityAt: nowNs,
		}
		if err := p.docs.StartSession(sess); err != nil {
			log.Printf("[worker] start session user=%s failed: %v", req.UserID, err)
			return
		}
	}

	msgs := []model.Message{
		{ID: uuid.NewString(), SessionID: sess.ID, UserID: req.UserID, Tier: user.Tier,
			Role: "user", Content: req.Message, CreatedAt: nowNs},
		{ID: uuid.NewString(), SessionID: sess.ID, UserID: req.UserID, Tier: user.Tier,
			Role: "assistant", Content: reply, CreatedAt: nowNs + 1},
	}
	for _, m := range msgs {
		if err := p.docs.InsertMessage(m); err != nil {
			log.Printf("[worker] insert message session=%s failed: %v", sess.ID, err)
			return
		}
	}
	if err := p.docs.TouchSession(sess.ID, nowNs); err != nil {
		log.Printf("[worker] touch session %s failed: %v", sess.ID, err)
	}
}

func ctxSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func secondsUntilMidnight(now time.Time) int {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	s := int(midnight.Sub(now).Seconds())
	if s < 1 {
		s = 1
	}
	return s
}
