package cachepool

import (
	"context"
	"time"
)

// Observer receives events for pool operations.
// It is called after each operation completes.
type Observer interface {
	OnPoolOp(ctx context.Context, op string, key string, hit bool, err error, dur time.Duration, driver Driver)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, op string, key string, hit bool, err error, dur time.Duration, driver Driver)

// OnPoolOp implements Observer.
func (f ObserverFunc) OnPoolOp(ctx context.Context, op string, key string, hit bool, err error, dur time.Duration, driver Driver) {
	if f == nil {
		return
	}
	f(ctx, op, key, hit, err, dur, driver)
}
