package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"chronoguess/core"
)

func TestEventBusSync(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	count := 0
	bus.Subscribe(core.EventRoundRecorded, func(ctx context.Context, e core.Event) { count++ })
	bus.Publish(context.Background(), core.NewRoundRecorded("u", "s", core.RoundResult{}))
	if count != 1 {
		t.Fatalf("want 1 got %d", count)
	}
}

func TestEventBusAsync(t *testing.T) {
	bus := NewEventBus(DispatchAsync)
	defer bus.Close()
	ch := make(chan struct{})
	bus.Subscribe(core.EventGameCompleted, func(ctx context.Context, e core.Event) { close(ch) })
	bus.Publish(context.Background(), core.NewGameCompleted("u", "s", 80, 4000, 9000))
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
}

func TestEventBusSubscribeAllAndUnsubscribe(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	var n int32
	unsub := bus.SubscribeAll(func(ctx context.Context, e core.Event) { atomic.AddInt32(&n, 1) })
	bus.Publish(context.Background(), core.NewHintUsed("u", "s", 1, core.HintWhere))
	bus.Publish(context.Background(), core.NewSessionStarted("u", "s", 5))
	unsub()
	bus.Publish(context.Background(), core.NewSessionStarted("u", "s", 5))
	if got := atomic.LoadInt32(&n); got != 2 {
		t.Fatalf("want 2 got %d", got)
	}
}
