package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"chronoguess/core"
)

func TestHubSubscribeBroadcastUnsubscribe(t *testing.T) {
	h := NewHub()
	id, ch := h.Subscribe(1, nil)

	ev := core.NewHintUsed("bob", "s1", 2, core.HintWhen)
	h.Broadcast(context.Background(), ev)

	received := <-ch
	if received.UserID != "bob" || received.Type != core.EventHintUsed {
		t.Fatalf("unexpected event: %+v", received)
	}

	h.Unsubscribe(id)
	_, ok := <-ch
	if ok {
		t.Fatal("expected channel closed after unsubscribe")
	}
	if h.Subscribers() != 0 {
		t.Fatalf("expected no subscribers, got %d", h.Subscribers())
	}
}

func TestHubFilters(t *testing.T) {
	h := NewHub()
	_, alice := h.Subscribe(4, ForUser("alice"))
	_, s2 := h.Subscribe(4, ForSession("s2"))

	h.OnEvent(core.NewHintUsed("bob", "s1", 1, core.HintWhen))
	h.OnEvent(core.NewHintUsed("alice", "s2", 1, core.HintWhen))

	if len(alice) != 1 {
		t.Fatalf("alice should see 1 event, got %d", len(alice))
	}
	if got := <-s2; got.SessionID != "s2" {
		t.Fatalf("unexpected session: %s", got.SessionID)
	}
}

func TestHubDropsWhenFull(t *testing.T) {
	h := NewHub()
	_, ch := h.Subscribe(1, nil)
	for i := 0; i < 3; i++ {
		h.Broadcast(context.Background(), core.NewSessionState("u", "s", "idle", nil))
	}
	if len(ch) != 1 {
		t.Fatalf("expected buffered event only, got %d", len(ch))
	}
}

func TestMarshalJSON(t *testing.T) {
	ev := core.NewBadgeAwarded("alice", "s1", core.Badge{ID: "first_steps", Name: "First Steps"})
	b := MarshalJSON(ev)
	var out core.Event
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Badge == nil || out.Badge.ID != "first_steps" {
		t.Fatalf("unexpected badge: %+v", out.Badge)
	}
}
