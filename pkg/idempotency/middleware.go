package idempotency

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

const Header = "Idempotency-Key"

// Middleware answers 409 when a request repeats an Idempotency-Key already
// seen for the same route. Requests without the header pass through. A key
// whose request ended with a 4xx or 5xx status is released for a retry.
func Middleware(log *slog.Logger, store Store, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(Header)
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}
			key := Key(scope, id)
			seen, err := store.Seen(r.Context(), key)
			if err != nil {
				log.Error("idempotency check failed", "key", key, "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if seen {
				log.Info("duplicate request rejected", "key", key)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(`{"error":"duplicate request"}`))
				return
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				p := recover()
				if p != nil || ww.Status() >= http.StatusBadRequest {
					if err := store.Release(context.WithoutCancel(r.Context()), key); err != nil {
						log.Error("idempotency release failed", "key", key, "err", err)
					}
				}
				if p != nil {
					panic(p)
				}
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
