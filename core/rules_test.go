package core

import "testing"

func TestBadgeProgressAndQualifies(t *testing.T) {
	b := Badge{ID: "regular", RequirementCode: ReqGamesPlayed, RequirementValue: 10}
	m := NewUserMetrics()
	m.Set(ReqGamesPlayed, 3)
	if b.Qualifies(m) || b.Progress(m) != 30 {
		t.Fatalf("progress = %d", b.Progress(m))
	}
	m.Set(ReqGamesPlayed, 25)
	if !b.Qualifies(m) || b.Progress(m) != 100 {
		t.Fatalf("progress = %d", b.Progress(m))
	}
	zero := Badge{RequirementCode: ReqGamesPlayed}
	if zero.Progress(NewUserMetrics()) != 100 {
		t.Fatal("non-positive threshold should be complete")
	}
}

func TestDefaultBadgesAreWellFormed(t *testing.T) {
	seen := map[BadgeID]bool{}
	for _, b := range DefaultBadges() {
		if err := ValidateBadgeID(b.ID); err != nil {
			t.Fatalf("%s: %v", b.ID, err)
		}
		if !b.RequirementCode.Valid() {
			t.Fatalf("%s: unknown requirement %s", b.ID, b.RequirementCode)
		}
		if seen[b.ID] {
			t.Fatalf("duplicate badge %s", b.ID)
		}
		seen[b.ID] = true
	}
}

func TestEarnedSet(t *testing.T) {
	s := NewEarnedSet("b", "a")
	if !s.Add("c") || s.Add("a") {
		t.Fatal("add semantics")
	}
	ids := s.IDs()
	if len(ids) != 3 || ids[0] != "a" || ids[2] != "c" {
		t.Fatalf("ids = %v", ids)
	}
}
