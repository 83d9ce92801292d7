package memory

import (
	"context"
	"errors"
	"testing"

	"chronoguess/core"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.GetMetrics(ctx, "u"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	m := core.NewUserMetrics()
	m.Set(core.ReqGamesPlayed, 2)
	if err := s.SaveMetrics(ctx, "u", m); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetMetrics(ctx, "u")
	if err != nil || got.Get(core.ReqGamesPlayed) != 2 {
		t.Fatalf("got %v %v", got, err)
	}

	added, err := s.AwardBadge(ctx, "u", "first_steps")
	if err != nil || !added {
		t.Fatalf("first award: %v %v", added, err)
	}
	added, _ = s.AwardBadge(ctx, "u", "first_steps")
	if added {
		t.Fatal("second award should not be new")
	}
	earned, _ := s.EarnedBadges(ctx, "u")
	if !earned.Has("first_steps") || len(earned) != 1 {
		t.Fatalf("earned = %v", earned)
	}
}

func TestMemoryRoundResults(t *testing.T) {
	ctx := context.Background()
	s := New()
	r := core.RoundResult{RoundIndex: 1, ImageID: "img", Score: 500}
	if err := s.SaveRoundResult(ctx, "s1", "u", r); err != nil {
		t.Fatal(err)
	}
	r.Score = 700
	_ = s.SaveRoundResult(ctx, "s1", "u", r)
	got, err := s.LoadRoundResult(ctx, "s1", 1)
	if err != nil || got.Score != 700 {
		t.Fatalf("got %+v %v", got, err)
	}
	if _, err := s.LoadRoundResult(ctx, "s1", 0); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	_ = s.MarkSessionComplete(ctx, core.SessionSummary{SessionID: "s1", Accuracy: 40})
	if sum, ok := s.Completed("s1"); !ok || sum.Accuracy != 40 {
		t.Fatalf("summary %+v %v", sum, ok)
	}
}
