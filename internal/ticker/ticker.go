// Package ticker drives realtime sessions at a fixed nominal frame rate. One
// goroutine serves every session; deadlines are computed against the loop's
// start time rather than the previous fire, so a slow frame shortens the next
// sleep instead of letting drift accumulate.
package ticker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Tickable receives frame advances. Implementations must not block: the offer
// is dropped, not queued, when the receiver is busy.
type Tickable interface {
	OfferTick()
}

type msg interface{ isTickerMsg() }

type add struct{ t Tickable }

func (add) isTickerMsg() {}

type remove struct{ t Tickable }

func (remove) isTickerMsg() {}

type count struct{ reply chan int }

func (count) isTickerMsg() {}

type Ticker struct {
	inbox    chan msg
	interval time.Duration
	log      *zap.Logger

	active map[Tickable]struct{}
}

// New starts the loop at the given frame rate. Cancel the context to stop it.
func New(ctx context.Context, frameRate int, log *zap.Logger) *Ticker {
	t := &Ticker{
		inbox:    make(chan msg, 16),
		interval: time.Second / time.Duration(frameRate),
		log:      log,
		active:   make(map[Tickable]struct{}),
	}
	go t.loop(ctx)
	return t
}

func (t *Ticker) Add(s Tickable)    { t.inbox <- add{t: s} }
func (t *Ticker) Remove(s Tickable) { t.inbox <- remove{t: s} }

// Count reports the number of driven sessions; the round trip doubles as a
// barrier in tests.
func (t *Ticker) Count() int {
	reply := make(chan int, 1)
	t.inbox <- count{reply: reply}
	return <-reply
}

func (t *Ticker) loop(ctx context.Context) {
	start := time.Now()
	n := 0
	timer := time.NewTimer(t.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case m := <-t.inbox:
			switch m := m.(type) {
			case add:
				t.active[m.t] = struct{}{}
			case remove:
				delete(t.active, m.t)
			case count:
				m.reply <- len(t.active)
			}

		case <-timer.C:
			n++
			for s := range t.active {
				s.OfferTick()
			}
			// Sleep only the remainder to the nominal deadline; never a
			// negative interval.
			deadline := start.Add(time.Duration(n+1) * t.interval)
			wait := time.Until(deadline)
			if wait < 0 {
				wait = 0
			}
			timer.Reset(wait)
		}
	}
}
