package server

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// RequestIDMiddleware 透传或生成请求 ID，并写回响应头。
func RequestIDMiddleware() middleware.Middleware {
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			tr, ok := transport.FromServerContext(ctx)
			if !ok {
				return next(ctx, req)
			}
			id := tr.RequestHeader().Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			tr.ReplyHeader().Set(RequestIDHeader, id)
			return next(context.WithValue(ctx, requestIDKey{}, id), req)
		}
	}
}

// RequestID 返回日志 Valuer，用法：log.With(logger, "request_id", server.RequestID())
func RequestID() log.Valuer {
	return func(ctx context.Context) interface{} {
		if id, ok := ctx.Value(requestIDKey{}).(string); ok {
			return id
		}
		return ""
	}
}
