package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	reqCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deskline",
			Name:      "api_requests_total",
			Help:      "Total backend API requests",
		},
		[]string{"operation", "status"},
	)
	reqLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "deskline",
			Name:      "api_request_duration_seconds",
			Help:      "Backend API request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	metricsRegistered bool
)

// RegisterCollectors registers the request metric vectors on reg, or on the
// default global registry when reg is nil. Idempotent.
func RegisterCollectors(reg *prometheus.Registry) {
	if metricsRegistered {
		return
	}
	if reg != nil {
		reg.MustRegister(reqCounter, reqLatency)
	} else {
		prometheus.MustRegister(reqCounter, reqLatency)
	}
	metricsRegistered = true
}

// InitMetrics launches a /metrics HTTP endpoint if addr not empty.
func InitMetrics(service, addr string, logger *zap.Logger) *http.Server {
	if addr == "" {
		return nil
	}
	RegisterCollectors(nil)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if logger != nil {
				logger.Error("metrics server error", zap.Error(err))
			}
		}
	}()
	if logger != nil {
		logger.Info("metrics server listening", zap.String("addr", addr), zap.String("service", service))
	}
	return srv
}

// ObserveRequest records one backend call on the request metrics.
func ObserveRequest(operation string, err error, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	reqCounter.WithLabelValues(operation, status).Inc()
	reqLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}
