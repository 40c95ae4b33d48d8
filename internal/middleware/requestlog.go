package middleware

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/Zachacious/go-apidoc/internal/log"
)

var requestCount atomic.Int64

// RequestLog returns a middleware that attaches a request ID to the request
// context and logs every request with its status and latency. The ID is
// taken from the X-Request-ID header when present.
func RequestLog() Middleware {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = fmt.Sprintf("%d", requestCount.Add(1))
			}
			ctx := log.NewContextWithRequestID(r.Context(), id)
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			h.ServeHTTP(rec, r.WithContext(ctx))
			log.Infof(ctx, "%s %s: %d (%s)", r.Method, r.URL, rec.status, time.Since(start).Round(time.Millisecond))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
