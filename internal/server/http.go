package server

import (
	v1 "geo-places/api/places/v1"
	"geo-places/internal/conf"
	"geo-places/internal/service"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ProviderSet is server providers.
var ProviderSet = wire.NewSet(NewHTTPServer, NewMetrics)

// 编码相关逻辑已拆分到 encoders.go

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Server, places *service.PlacesService, metrics *Metrics, logger log.Logger) *http.Server {
	mws := []middleware.Middleware{
		recovery.Recovery(),
		RequestIDMiddleware(),
		logging.Server(logger),
		metrics.Server(),
	}
	if c.RateLimit != nil && c.RateLimit.Rps > 0 {
		mws = append(mws, limiterMiddleware(newTokenBucket(c.RateLimit.Rps)))
	}
	var opts = []http.ServerOption{
		http.Middleware(mws...),
		http.ResponseEncoder(responseEncoder),
		http.RequestDecoder(http.DefaultRequestDecoder),
	}
	if c.Http != nil {
		if c.Http.Network != "" {
			opts = append(opts, http.Network(c.Http.Network))
		}
		if c.Http.Addr != "" {
			opts = append(opts, http.Address(c.Http.Addr))
		}
		if c.Http.Timeout != nil {
			opts = append(opts, http.Timeout(c.Http.Timeout.AsDuration()))
		}
	}
	srv := http.NewServer(opts...)
	srv.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	v1.RegisterPlacesHTTPServer(srv, places)
	return srv
}
