package rpc

import (
	"context"
	"path"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// OutcomeOK labels successful requests.
const OutcomeOK = "ok"

// Metrics records per-method request counts and latencies.
type Metrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wings_rpc_requests_total",
			Help: "Records requests by method and outcome. The outcome is an error kind or ok.",
		}, []string{"method", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wings_rpc_request_duration_seconds",
			Help:    "Records request latency by method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
	reg.MustRegister(m.Requests, m.Duration)
	return m
}

// UnaryServerInterceptor observes every unary call.
func (m *Metrics) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		method := path.Base(info.FullMethod)
		m.Duration.WithLabelValues(method).Observe(time.Since(start).Seconds())
		m.Requests.WithLabelValues(method, outcome(err)).Inc()
		return resp, err
	}
}

func outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	return string(KindOfCode(status.Code(err)))
}
