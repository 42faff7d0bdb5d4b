package middleware

import "net/http"

// Chain wraps h so the middlewares run in the order given:
//
//	handler := Chain(mux,
//	    TraceID,                     // runs first
//	    RequestLogging,
//	    AuthMiddleware(authService),
//	    Guard(DefaultPolicies),      // runs last, just before mux
//	)
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
