package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"faction-intel/internal/constants"
	"faction-intel/internal/scheduler"

	"golang.org/x/sync/singleflight"
)

var (
	ErrInvalidFaction = errors.New("faction id must be positive")
	ErrKeyRejected    = errors.New("api key rejected")
)

// shared runs fn once per key no matter how many callers arrive while it is
// in flight. The call is detached from the caller's cancellation so one
// caller giving up does not fail the others; a caller whose ctx ends stops
// waiting and gets ctx.Err(). Every waiter receives the same value, so
// callers copy it before handing it out. A panic in fn becomes an error.
func shared[T any](ctx context.Context, g *singleflight.Group, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	ch := g.DoChan(key, func() (val any, err error) {
		defer func() {
			if r := recover(); r != nil {
				val, err = nil, fmt.Errorf("%s: refresh panicked: %v", key, r)
			}
		}()

		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.RequestTimeout)
		defer cancel()
		return fn(callCtx)
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func ensureRegistered(ctx context.Context, sched *scheduler.Scheduler, resourceID string, interval time.Duration) error {
	if _, ok := sched.State(resourceID); ok {
		return nil
	}
	return sched.Register(ctx, resourceID, interval, constants.MinRefreshInterval)
}
