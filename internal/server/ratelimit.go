package server

import (
	"context"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
)

const RateLimited = "RATE_LIMIT"

// 基础令牌桶，容量为两秒的配额
type tokenBucket struct {
	rate       float64 // tokens per second
	capacity   float64
	tokens     float64
	lastRefill time.Time
	mu         sync.Mutex
	now        func() time.Time
}

func newTokenBucket(rps float64) *tokenBucket {
	if rps <= 0 {
		rps = 1
	}
	b := &tokenBucket{
		rate:     rps,
		capacity: rps * 2,
		tokens:   rps * 2,
		now:      time.Now,
	}
	b.lastRefill = b.now()
	return b
}

// allow 取一个令牌；失败时返回需要等待的时长。
func (b *tokenBucket) allow() (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	delta := now.Sub(b.lastRefill).Seconds()
	b.tokens = math.Min(b.capacity, b.tokens+delta*b.rate)
	b.lastRefill = now
	if b.tokens >= 1 {
		b.tokens -= 1
		return true, 0
	}
	wait := time.Duration((1 - b.tokens) / b.rate * float64(time.Second))
	return false, wait
}

// limiterMiddleware 将限流应用到 HTTP 请求
func limiterMiddleware(b *tokenBucket) middleware.Middleware {
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (reply interface{}, err error) {
			ok, wait := b.allow()
			if !ok {
				if tr, has := transport.FromServerContext(ctx); has {
					secs := int(math.Ceil(wait.Seconds()))
					tr.ReplyHeader().Set("Retry-After", strconv.Itoa(max(secs, 1)))
				}
				return nil, errors.New(429, RateLimited, "rate limit exceeded")
			}
			return next(ctx, req)
		}
	}
}
