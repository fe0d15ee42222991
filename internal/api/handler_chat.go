package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ira-chat/ira/internal/analytics"
	"github.com/ira-chat/ira/internal/metrics"
	"github.com/ira-chat/ira/internal/model"
	"github.com/ira-chat/ira/internal/requestctx"
	"github.com/ira-chat/ira/internal/routing"
)

// Request body bounds for POST /chat.
const (
	maxUserIDLen  = 64
	maxMessageLen = 8000
)

// Router is the slice of the tier router the chat handler consumes.
type Router interface {
	RouteAndCall(ctx context.Context, tier model.Tier, payload model.ProcessRequest) (routing.Decision, *model.ProcessReply)
}

// HandleChat serves POST /chat: validate, route, and merge the worker reply
// into the front-door response. Routing failures become a degraded 200, never
// a 5xx. collector and emit may be nil.
func HandleChat(router Router, collector *metrics.Collector, emit func(analytics.Event)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req model.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteValidationError(w, []FieldError{{Field: "body", Reason: "invalid JSON: " + err.Error()}})
			return
		}
		if fields := validateChatRequest(&req); len(fields) > 0 {
			WriteValidationError(w, fields)
			return
		}

		rc, _ := requestctx.From(r.Context())
		rc.UserID = req.UserID
		rc.Tier = string(req.Tier)
		rc.Operation = "chat"
		ctx := requestctx.With(r.Context(), rc)

		started := time.Now()
		decision, reply := router.RouteAndCall(ctx, req.Tier, model.ProcessRequest{
			UserID:  req.UserID,
			Message: req.Message,
			Tier:    req.Tier,
		})

		if collector != nil {
			collector.RecordWorkerOutcome(reply)
		}
		if emit != nil {
			emit(buildEvent(rc, req.Tier, decision, reply, time.Since(started)))
		}

		resp := model.ChatResponse{Tier: req.Tier}
		if decision.Action == routing.ActionForward {
			resp.Pool = decision.Pool
			resp.Reply = reply.Reply
			resp.RateLimited = reply.RateLimited
			resp.Silent = reply.Silent
			resp.Blocked = reply.Blocked
		} else {
			msg := decision.UserMessage
			resp.Reply = &msg
			resp.Degraded = true
		}
		WriteJSON(w, http.StatusOK, resp)
	})
}

func validateChatRequest(req *model.ChatRequest) []FieldError {
	var fields []FieldError
	if req.UserID == "" || len(req.UserID) > maxUserIDLen {
		fields = append(fields, FieldError{
			Field:  "user_id",
			Reason: fmt.Sprintf("must be 1-%d characters", maxUserIDLen),
		})
	}
	if req.Message == "" || len(req.Message) > maxMessageLen {
		fields = append(fields, FieldError{
			Field:  "message",
			Reason: fmt.Sprintf("must be 1-%d characters", maxMessageLen),
		})
	}
	if !req.Tier.IsValid() {
		fields = append(fields, FieldError{
			Field:  "tier",
			Reason: fmt.Sprintf("must be one of %s, %s, %s", model.TierFree, model.TierPremium, model.TierEnterprise),
		})
	}
	return fields
}

func buildEvent(rc requestctx.Context, tier model.Tier, d routing.Decision, reply *model.ProcessReply, elapsed time.Duration) analytics.Event {
	e := analytics.Event{
		ID:            uuid.NewString(),
		TsNs:          time.Now().UnixNano(),
		CorrelationID: rc.CorrelationID,
		UserID:        rc.UserID,
		Tier:          tier,
		Pool:          d.Pool,
		Action:        string(d.Action),
		Reason:        d.Reason,
		DurationNs:    elapsed.Nanoseconds(),
	}
	if reply != nil {
		e.RateLimited = reply.RateLimited
		e.Silent = reply.Silent
		e.Blocked = reply.Blocked
	}
	return e
}
