package api

import (
	"net/http"

	"github.com/tanisharajgor/Mongo-Exploratory/utils"
)

// traceMiddleware attaches the caller's trace id, or a fresh one, to the
// request context and echoes it in the response.
func traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(utils.TraceIDHeader)
		if traceID == "" {
			traceID = utils.GenerateTraceID()
		}
		w.Header().Set(utils.TraceIDHeader, traceID)
		next.ServeHTTP(w, r.WithContext(utils.WithTraceID(r.Context(), traceID)))
	})
}

// corsMiddleware handles CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, "+utils.TraceIDHeader)
		w.Header().Set("Access-Control-Expose-Headers", utils.TraceIDHeader)
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
