package guessr

import (
	"context"
	"slices"
	"sync"
	"testing"

	"chronoguess/adapters/local"
	mem "chronoguess/adapters/memory"
	"chronoguess/catalog"
	"chronoguess/core"
	"chronoguess/engine"
	"chronoguess/realtime"
)

func TestNewDefaultsAndOptions(t *testing.T) {
	hub := realtime.NewHub()
	_, ch := hub.Subscribe(16, realtime.ForUser("alice"))
	remote := mem.New()
	svc := New(
		WithRealtime(hub),
		WithRemote(remote),
		WithDispatchMode(engine.DispatchSync),
	)
	defer svc.Close()

	snap, err := svc.StartGame(context.Background(), core.Identity{UserID: "alice"}, engine.StartOptions{})
	if err != nil {
		t.Fatalf("start game: %v", err)
	}
	if snap.Rounds != engine.DefaultRounds || snap.CurrentImage == nil {
		t.Fatalf("expected %d rounds from placeholders, got %+v", engine.DefaultRounds, snap)
	}

	// realtime bridge should receive the session_started event
	var sawStart bool
	for len(ch) > 0 {
		if ev := <-ch; ev.Type == core.EventSessionStarted {
			sawStart = true
		}
	}
	if !sawStart {
		t.Fatal("hub did not receive session_started")
	}
}

func TestHooksAndLocalOnly(t *testing.T) {
	var (
		mu    sync.Mutex
		types []core.EventType
	)
	kv := local.NewMemoryKV()
	svc := New(
		WithoutRemote(),
		WithLocal(local.New(kv)),
		WithImageSource(catalog.NewMemory()),
		WithDispatchMode(engine.DispatchSync),
		WithHooks(HookFunc(func(e core.Event) {
			mu.Lock()
			types = append(types, e.Type)
			mu.Unlock()
		})),
	)
	defer svc.Close()

	ctx := context.Background()
	snap, err := svc.StartGame(ctx, core.Identity{UserID: "bob"}, engine.StartOptions{})
	if err != nil {
		t.Fatalf("start game: %v", err)
	}
	year := snap.CurrentImage.Year
	if _, err := svc.SubmitGuess(ctx, snap.ID, 1, core.Guess{Year: &year}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := kv.Get(ctx, core.FallbackGuessKey(snap.ID, 0)); err != nil {
		t.Fatalf("fallback guess not written to local store: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !slices.Contains(types, core.EventRoundRecorded) {
		t.Fatalf("hook did not see round_recorded: %v", types)
	}
}
