package ratelimit

import (
	"context"
	"time"

	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// Memory is a per-process fixed window limiter used when Redis is not
// configured.
type Memory struct {
	lim *limiter.Limiter
}

// NewMemory builds an in-memory limiter allowing max events per window.
func NewMemory(window time.Duration, max int) Memory {
	rate := limiter.Rate{Period: window, Limit: int64(max)}
	return Memory{lim: limiter.New(memory.NewStore(), rate)}
}

// Allow consumes one event for key.
func (m Memory) Allow(ctx context.Context, key string) (Result, error) {
	lctx, err := m.lim.Get(ctx, key)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Allowed:   !lctx.Reached,
		Limit:     int(lctx.Limit),
		Remaining: int(lctx.Remaining),
		ResetAt:   time.Unix(lctx.Reset, 0),
	}, nil
}
