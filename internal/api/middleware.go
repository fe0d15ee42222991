package api

import (
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/net/http/httpguts"

	"github.com/ira-chat/ira/internal/requestctx"
)

// CorrelationMiddleware attaches a correlation id to every request. An
// inbound X-Correlation-Id is honored when it is a valid header value of
// bounded length; anything else is replaced with a fresh UUID. The id is
// echoed on the response and stored in the request context.
func CorrelationMiddleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestctx.HeaderCorrelationID)
		if id == "" || len(id) > requestctx.MaxCorrelationIDLen || !httpguts.ValidHeaderFieldValue(id) {
			id = uuid.NewString()
		}

		w.Header().Set(requestctx.HeaderCorrelationID, id)
		ctx := requestctx.With(r.Context(), requestctx.Context{
			CorrelationID: id,
			Service:       service,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestBodyLimitMiddleware enforces a max request body size for downstream handlers.
func RequestBodyLimitMiddleware(maxBytes int64, next http.Handler) http.Handler {
	if maxBytes <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r != nil && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}
		next.ServeHTTP(w, r)
	})
}
