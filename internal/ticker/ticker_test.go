package ticker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type countingTickable struct {
	ticks atomic.Int64
}

func (c *countingTickable) OfferTick() { c.ticks.Add(1) }

func TestTickerDrivesRegisteredSessions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tk := New(ctx, 100, zap.NewNop())
	c := &countingTickable{}
	tk.Add(c)
	if tk.Count() != 1 {
		t.Fatalf("want one driven session, got %d", tk.Count())
	}

	time.Sleep(200 * time.Millisecond)
	if got := c.ticks.Load(); got < 5 {
		t.Fatalf("at 100fps, 200ms should deliver well over 5 ticks, got %d", got)
	}

	tk.Remove(c)
	if tk.Count() != 0 {
		t.Fatalf("removed session still driven, count=%d", tk.Count())
	}
	settled := c.ticks.Load()
	time.Sleep(100 * time.Millisecond)
	if c.ticks.Load() != settled {
		t.Fatal("ticks kept arriving after removal")
	}
}

func TestTickerStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tk := New(ctx, 100, zap.NewNop())
	c := &countingTickable{}
	tk.Add(c)

	cancel()
	time.Sleep(50 * time.Millisecond)
	settled := c.ticks.Load()
	time.Sleep(100 * time.Millisecond)
	if c.ticks.Load() != settled {
		t.Fatal("ticker survived context cancellation")
	}
}
