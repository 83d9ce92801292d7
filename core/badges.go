package core

import (
	"errors"
	"slices"
	"strings"
)

// BadgeID identifies a badge in the catalog.
type BadgeID string

// Category groups badges in the UI.
type Category string

const (
	CategoryExperience Category = "experience"
	CategoryPrecision  Category = "precision"
	CategoryChronology Category = "chronology"
	CategoryGeography  Category = "geography"
	CategoryStreaks    Category = "streaks"
	CategoryMastery    Category = "mastery"
)

// Difficulty is a badge's tier.
type Difficulty string

const (
	DifficultyBronze   Difficulty = "bronze"
	DifficultySilver   Difficulty = "silver"
	DifficultyGold     Difficulty = "gold"
	DifficultyPlatinum Difficulty = "platinum"
)

// Badge is read-only catalog data.
type Badge struct {
	ID               BadgeID         `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	IconName         string          `json:"icon_name"`
	Category         Category        `json:"category"`
	Difficulty       Difficulty      `json:"difficulty"`
	RequirementCode  RequirementCode `json:"requirement_code"`
	RequirementValue float64         `json:"requirement_value"`
}

// BadgeEvaluation is derived on demand and never persisted.
type BadgeEvaluation struct {
	Badge    Badge   `json:"badge"`
	Earned   bool    `json:"earned"`
	Progress int     `json:"progress"`
	Value    float64 `json:"value"`
}

// EarnedSet is the persisted set of earned badge IDs on a user's profile.
type EarnedSet map[BadgeID]struct{}

// NewEarnedSet builds a set from ids.
func NewEarnedSet(ids ...BadgeID) EarnedSet {
	s := make(EarnedSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s EarnedSet) Has(id BadgeID) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id and reports whether it was absent.
func (s EarnedSet) Add(id BadgeID) bool {
	if s.Has(id) {
		return false
	}
	s[id] = struct{}{}
	return true
}

// IDs returns the members in sorted order.
func (s EarnedSet) IDs() []BadgeID {
	out := make([]BadgeID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Clone copies the set.
func (s EarnedSet) Clone() EarnedSet {
	cp := make(EarnedSet, len(s))
	for id := range s {
		cp[id] = struct{}{}
	}
	return cp
}

// ValidateBadgeID ensures non-empty badge id with simple charset check.
func ValidateBadgeID(b BadgeID) error {
	s := strings.TrimSpace(string(b))
	if s == "" {
		return errors.New("empty badge id")
	}
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' {
			continue
		}
		return errors.New("invalid badge id")
	}
	return nil
}

// DefaultBadges returns the built-in badge catalog.
func DefaultBadges() []Badge {
	return []Badge{
		{ID: "first_steps", Name: "First Steps", Description: "Finish your first game", IconName: "footprints", Category: CategoryExperience, Difficulty: DifficultyBronze, RequirementCode: ReqGamesPlayed, RequirementValue: 1},
		{ID: "regular", Name: "Regular", Description: "Finish 10 games", IconName: "calendar", Category: CategoryExperience, Difficulty: DifficultySilver, RequirementCode: ReqGamesPlayed, RequirementValue: 10},
		{ID: "veteran", Name: "Veteran", Description: "Finish 50 games", IconName: "medal", Category: CategoryExperience, Difficulty: DifficultyGold, RequirementCode: ReqGamesPlayed, RequirementValue: 50},
		{ID: "xp_hoarder", Name: "XP Hoarder", Description: "Collect 1,000 XP", IconName: "coins", Category: CategoryExperience, Difficulty: DifficultySilver, RequirementCode: ReqXPTotal, RequirementValue: 1000},
		{ID: "xp_tycoon", Name: "XP Tycoon", Description: "Collect 10,000 XP", IconName: "gem", Category: CategoryExperience, Difficulty: DifficultyPlatinum, RequirementCode: ReqXPTotal, RequirementValue: 10000},
		{ID: "perfect_round", Name: "Spot On", Description: "Play a perfect round", IconName: "target", Category: CategoryPrecision, Difficulty: DifficultySilver, RequirementCode: ReqPerfectRounds, RequirementValue: 1},
		{ID: "perfectionist", Name: "Perfectionist", Description: "Play 10 perfect rounds", IconName: "sparkles", Category: CategoryPrecision, Difficulty: DifficultyGold, RequirementCode: ReqPerfectRounds, RequirementValue: 10},
		{ID: "flawless", Name: "Flawless", Description: "Finish a game with 100% accuracy", IconName: "crown", Category: CategoryMastery, Difficulty: DifficultyPlatinum, RequirementCode: ReqPerfectGames, RequirementValue: 1},
		{ID: "time_keeper", Name: "Time Keeper", Description: "Reach 80% time accuracy", IconName: "hourglass", Category: CategoryChronology, Difficulty: DifficultySilver, RequirementCode: ReqTimeAccuracy, RequirementValue: 80},
		{ID: "year_bullseye", Name: "Right On Time", Description: "Guess the exact year", IconName: "clock", Category: CategoryChronology, Difficulty: DifficultyBronze, RequirementCode: ReqYearBullseye, RequirementValue: 1},
		{ID: "chronologist", Name: "Chronologist", Description: "Guess the exact year 25 times", IconName: "scroll", Category: CategoryChronology, Difficulty: DifficultyGold, RequirementCode: ReqYearBullseye, RequirementValue: 25},
		{ID: "navigator", Name: "Navigator", Description: "Reach 80% location accuracy", IconName: "compass", Category: CategoryGeography, Difficulty: DifficultySilver, RequirementCode: ReqLocationAccuracy, RequirementValue: 80},
		{ID: "pinpoint", Name: "Pinpoint", Description: "Guess within 10 km", IconName: "map-pin", Category: CategoryGeography, Difficulty: DifficultyBronze, RequirementCode: ReqLocationBullseye, RequirementValue: 1},
		{ID: "cartographer", Name: "Cartographer", Description: "Guess within 10 km 25 times", IconName: "map", Category: CategoryGeography, Difficulty: DifficultyGold, RequirementCode: ReqLocationBullseye, RequirementValue: 25},
		{ID: "historian", Name: "Historian", Description: "Reach 90% overall accuracy", IconName: "book", Category: CategoryMastery, Difficulty: DifficultyGold, RequirementCode: ReqOverallAccuracy, RequirementValue: 90},
		{ID: "hot_streak", Name: "Hot Streak", Description: "Three perfect games in a row", IconName: "flame", Category: CategoryStreaks, Difficulty: DifficultyPlatinum, RequirementCode: ReqWinStreak, RequirementValue: 3},
		{ID: "daily_devotee", Name: "Daily Devotee", Description: "Play seven days in a row", IconName: "sun", Category: CategoryStreaks, Difficulty: DifficultyGold, RequirementCode: ReqDailyStreak, RequirementValue: 7},
	}
}
