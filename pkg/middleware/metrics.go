package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/opsledger/finance-ledger-api/pkg/metrics"
)

// MetricsMiddleware contabiliza cada requisição atendida pela API
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			mrw := &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(mrw, r)

			metrics.HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(mrw.statusCode)).Inc()
			metrics.HTTPDuration.Observe(time.Since(start).Seconds())
		})
	}
}

type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (mrw *metricsResponseWriter) WriteHeader(code int) {
	mrw.statusCode = code
	mrw.ResponseWriter.WriteHeader(code)
}
