package metrics

import (
	"fmt"
	"net/http"
	"time"
)

// EndpointKey formats the per-endpoint counter key, e.g. "[GET] /api/order/menu".
func EndpointKey(method, path string) string {
	return fmt.Sprintf("[%s] %s", method, path)
}

// Middleware counts every request by method and raw path and records the
// service latency once the wrapped handler returns. Every distinct path
// becomes a permanent counter, so callers should mount it behind routing that
// rejects unknown paths if cardinality matters.
func (a *Aggregator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			a.IncRequest(EndpointKey(r.Method, r.URL.Path))
			defer func() { a.ServiceLatency(start, time.Now()) }()
			next.ServeHTTP(w, r)
		})
	}
}
