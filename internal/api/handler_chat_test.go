package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ira-chat/ira/internal/analytics"
	"github.com/ira-chat/ira/internal/metrics"
	"github.com/ira-chat/ira/internal/model"
	"github.com/ira-chat/ira/internal/pool"
	"github.com/ira-chat/ira/internal/requestctx"
	"github.com/ira-chat/ira/internal/routing"
)

type fakeRouter struct {
	decision routing.Decision
	reply    *model.ProcessReply
	gotTier  model.Tier
}

func (f *fakeRouter) RouteAndCall(_ context.Context, tier model.Tier, _ model.ProcessRequest) (routing.Decision, *model.ProcessReply) {
	f.gotTier = tier
	return f.decision, f.reply
}

type stubSnapshotter struct{}

func (stubSnapshotter) Snapshot() map[string]pool.StateView {
	return map[string]pool.StateView{}
}

func postChat(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestChatValidation(t *testing.T) {
	handler := HandleChat(&fakeRouter{}, nil, nil)

	cases := map[string]string{
		"not json":     `{`,
		"missing user": `{"message":"hi","tier":"free"}`,
		"long user":    `{"user_id":"` + strings.Repeat("x", 65) + `","message":"hi","tier":"free"}`,
		"no message":   `{"user_id":"u1","tier":"free"}`,
		"long message": `{"user_id":"u1","message":"` + strings.Repeat("x", 8001) + `","tier":"free"}`,
		"bad tier":     `{"user_id":"u1","message":"hi","tier":"gold"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := postChat(t, handler, body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422", rec.Code)
			}
			var er ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if er.Error.Code != "VALIDATION_FAILED" {
				t.Fatalf("code = %s", er.Error.Code)
			}
		})
	}
}

func TestChatForwardMergesWorkerReply(t *testing.T) {
	text := "hello back"
	router := &fakeRouter{
		decision: routing.Decision{Pool: model.PoolStandard, Action: routing.ActionForward, Reason: "ok"},
		reply:    &model.ProcessReply{OK: true, Reply: &text, RateLimited: false},
	}
	rec := postChat(t, HandleChat(router, nil, nil), `{"user_id":"u1","message":"hi","tier":"premium"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp model.ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Degraded || resp.Pool != model.PoolStandard || resp.Reply == nil || *resp.Reply != text {
		t.Fatalf("resp = %+v", resp)
	}
	if router.gotTier != model.TierPremium {
		t.Fatalf("router saw tier %s", router.gotTier)
	}
}

func TestChatSilentReplyStaysNull(t *testing.T) {
	router := &fakeRouter{
		decision: routing.Decision{Pool: model.PoolOverflow, Action: routing.ActionForward, Reason: "ok"},
		reply:    &model.ProcessReply{OK: true, Reply: nil, RateLimited: true, Silent: true},
	}
	rec := postChat(t, HandleChat(router, nil, nil), `{"user_id":"u1","message":"hi","tier":"free"}`)

	var raw map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	if v, present := raw["reply"]; !present || v != nil {
		t.Fatalf("reply = %v, want explicit null", v)
	}
	if raw["silent"] != true || raw["rate_limited"] != true {
		t.Fatalf("flags not propagated: %v", raw)
	}
}

func TestChatShedIsDegraded200(t *testing.T) {
	router := &fakeRouter{
		decision: routing.Decision{
			Action:      routing.ActionShed,
			Reason:      "overloaded:overflow",
			UserMessage: routing.ShedMessage(model.TierFree),
		},
	}
	collector := metrics.NewCollector()
	var emitted []analytics.Event
	handler := HandleChat(router, collector, func(e analytics.Event) { emitted = append(emitted, e) })

	rec := postChat(t, handler, `{"user_id":"u1","message":"hi","tier":"free"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 on shed", rec.Code)
	}
	var resp model.ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Degraded || resp.Reply == nil || *resp.Reply != routing.ShedMessage(model.TierFree) {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Pool != "" {
		t.Fatalf("shed response names a pool: %q", resp.Pool)
	}

	if len(emitted) != 1 {
		t.Fatalf("emitted %d events, want 1", len(emitted))
	}
	e := emitted[0]
	if e.Action != "shed" || e.Reason != "overloaded:overflow" || e.UserID != "u1" {
		t.Fatalf("event = %+v", e)
	}
}

func TestCorrelationMiddleware(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestctx.CorrelationID(r.Context())
	})
	handler := CorrelationMiddleware("router", inner)

	// Fresh id minted when none supplied.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" {
		t.Fatal("no correlation id injected")
	}
	if got := rec.Header().Get(requestctx.HeaderCorrelationID); got != seen {
		t.Fatalf("response header = %q, ctx = %q", got, seen)
	}

	// Valid inbound id is honored.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestctx.HeaderCorrelationID, "abc-123")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc-123" {
		t.Fatalf("inbound id replaced: %q", seen)
	}

	// Oversized inbound id is replaced.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestctx.HeaderCorrelationID, strings.Repeat("x", requestctx.MaxCorrelationIDLen+1))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if len(seen) > requestctx.MaxCorrelationIDLen {
		t.Fatalf("oversized id kept: %q", seen)
	}
}

func TestServerRoutes(t *testing.T) {
	srv := NewServer(ServerConfig{
		Router:    &fakeRouter{decision: routing.Decision{Action: routing.ActionShed, Reason: "no_candidate", UserMessage: "busy"}},
		Pools:     stubSnapshotter{},
		Collector: metrics.NewCollector(),
		Ready:     func() bool { return false },
	})
	h := srv.Handler()

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	if rec := get("/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("/healthz = %d", rec.Code)
	}
	if rec := get("/readyz"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("/readyz = %d, want 503 while not ready", rec.Code)
	}
	if rec := get("/pools"); rec.Code != http.StatusOK {
		t.Fatalf("/pools = %d", rec.Code)
	}
	if rec := get("/metrics"); rec.Code != http.StatusOK {
		t.Fatalf("/metrics = %d", rec.Code)
	}
	if rec := postChat(t, h, `{"user_id":"u1","message":"hi","tier":"free"}`); rec.Code != http.StatusOK {
		t.Fatalf("/chat = %d", rec.Code)
	}
}
