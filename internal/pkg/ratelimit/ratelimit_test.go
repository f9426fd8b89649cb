package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setup(t *testing.T, rate, burst float64) *Limiter {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	logger := slog.New(slog.NewTextHandler(discard{}, nil))
	return NewRedisLimiter(rdb, logger, "test:ratelimit", rate, burst)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestAcquireWithinBurst(t *testing.T) {
	l := setup(t, 10, 3)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 3; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
}

func TestAcquireBlocksWhenExhausted(t *testing.T) {
	l := setup(t, 0.1, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	// Bucket empty, refill takes 10s; the second acquire must give up when
	// its context expires.
	shortCtx, shortCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer shortCancel()
	err := l.Acquire(shortCtx)
	if !errors.Is(err, ErrWaitAborted) {
		t.Fatalf("got %v, want ErrWaitAborted", err)
	}
}

func TestNilAndDisabledLimiter(t *testing.T) {
	var nilLimiter *Limiter
	if err := nilLimiter.Acquire(context.Background()); err != nil {
		t.Fatalf("nil limiter: %v", err)
	}

	disabled := setup(t, 0, 0)
	if err := disabled.Acquire(context.Background()); err != nil {
		t.Fatalf("disabled limiter: %v", err)
	}
}
