package server

import (
	"context"
	"strconv"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics 持有服务自己的 registry，避免测试间重复注册。
type Metrics struct {
	Registry *prometheus.Registry
	requests *prometheus.CounterVec
	seconds  *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geoplaces",
			Subsystem: "server",
			Name:      "requests_total",
			Help:      "Total number of handled requests.",
		}, []string{"operation", "code"}),
		seconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "geoplaces",
			Subsystem: "server",
			Name:      "request_duration_seconds",
			Help:      "Request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	m.Registry.MustRegister(
		m.requests,
		m.seconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Server 记录每个 operation 的请求数与耗时。
func (m *Metrics) Server() middleware.Middleware {
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			operation := "unknown"
			if tr, ok := transport.FromServerContext(ctx); ok {
				operation = tr.Operation()
			}
			start := time.Now()
			reply, err := next(ctx, req)
			code := 200
			if err != nil {
				code = int(errors.FromError(err).Code)
			}
			m.requests.WithLabelValues(operation, strconv.Itoa(code)).Inc()
			m.seconds.WithLabelValues(operation).Observe(time.Since(start).Seconds())
			return reply, err
		}
	}
}
