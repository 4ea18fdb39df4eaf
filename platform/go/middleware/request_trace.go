package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	platformauth "github.com/zenGate-Global/rentboard/platform/go/auth"
	platformlogging "github.com/zenGate-Global/rentboard/platform/go/logging"
	"github.com/zenGate-Global/rentboard/platform/go/requesttrace"
)

// RequestTrace stores a requesttrace.Trace on the context and tags the request logger with it.
// Mount it after auth.JWT; requests without a principal are traced as anonymous.
func RequestTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())

		trace := requesttrace.Anonymous(requestID)
		if p, ok := platformauth.PrincipalFrom(r.Context()); ok {
			if t, err := requesttrace.ForPrincipal(p, requestID); err == nil {
				trace = t
			}
		}

		ctx := requesttrace.Into(r.Context(), trace)
		if logger := platformlogging.FromRequest(r, nil); logger != nil {
			ctx = platformlogging.WithLogger(ctx, logger.With(trace.Fields()...))
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
