package worker

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ira-chat/ira/internal/kv"
	"github.com/ira-chat/ira/internal/model"
	"github.com/ira-chat/ira/internal/ratelimit"
	"github.com/ira-chat/ira/internal/requestctx"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(ServerConfig{
		Processor: NewProcessor(ProcessorConfig{
			Pool:    model.PoolStandard,
			Limiter: ratelimit.NewLimiter(ratelimit.Config{Store: kv.NewMemoryStore()}),
			Sleep:   noSleep,
		}),
	})
}

func TestProcessEndpoint(t *testing.T) {
	h := newTestServer(t).Handler()

	req := httptest.NewRequest(http.MethodPost, "/process",
		strings.NewReader(`{"user_id":"u1","message":"hello","tier":"free"}`))
	req.Header.Set(requestctx.HeaderCorrelationID, "cid-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get(requestctx.HeaderCorrelationID); got != "cid-1" {
		t.Fatalf("correlation id = %q, want echoed cid-1", got)
	}
	var reply model.ProcessReply
	if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
		t.Fatal(err)
	}
	if !reply.OK || reply.Reply == nil {
		t.Fatalf("reply = %+v", reply)
	}
}

func TestProcessEndpointValidation(t *testing.T) {
	h := newTestServer(t).Handler()

	for name, body := range map[string]string{
		"not json": `{`,
		"no user":  `{"message":"hi","tier":"free"}`,
		"bad tier": `{"user_id":"u1","message":"hi","tier":"gold"}`,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/process", strings.NewReader(body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422", rec.Code)
			}
		})
	}
}

func TestHealthzEndpoint(t *testing.T) {
	h := newTestServer(t).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
