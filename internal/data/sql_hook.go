package data

import (
	"context"
	"time"

	"github.com/fatih/color"
	"github.com/go-kratos/kratos/v2/log"
)

const defaultSlowThreshold = 500 * time.Millisecond

type beginKey struct{}

// Hooks 记录慢查询与执行失败的 SQL。
type Hooks struct {
	slow time.Duration
	log  *log.Helper
}

func NewHooks(slow time.Duration, logger log.Logger) *Hooks {
	if slow <= 0 {
		slow = defaultSlowThreshold
	}
	return &Hooks{slow: slow, log: log.NewHelper(log.With(logger, "module", "data/sql"))}
}

func (h *Hooks) Before(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	return context.WithValue(ctx, beginKey{}, time.Now()), nil
}

func (h *Hooks) After(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	begin, ok := ctx.Value(beginKey{}).(time.Time)
	if !ok {
		return ctx, nil
	}
	d := time.Since(begin)
	if d > h.slow {
		color.Red("%v slow  sql: %s %q .took: %s\n", time.Now().Format(time.RFC3339), query, args, d)
	}
	return ctx, nil
}

// OnError 只记录，不改写错误。
func (h *Hooks) OnError(ctx context.Context, err error, query string, args ...interface{}) error {
	h.log.WithContext(ctx).Errorf("sql failed: %s %q: %v", query, args, err)
	return err
}
