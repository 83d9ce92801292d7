package engine

import (
	"fmt"
	"time"
)

// DefaultRounds is the fixed session length.
const DefaultRounds = 5

// GameMode selects a preset for hints and the round timer.
type GameMode string

const (
	ModeClassic GameMode = "classic"
	ModeTimed   GameMode = "timed"
	ModeExpert  GameMode = "expert"
)

// Settings are fixed for the lifetime of a session.
type Settings struct {
	Mode         GameMode      `json:"mode"`
	Rounds       int           `json:"rounds"`
	HintsAllowed int           `json:"hints_allowed"`
	RoundTimer   time.Duration `json:"round_timer"`
}

// SettingsForMode returns the preset for m.
func SettingsForMode(m GameMode) (Settings, error) {
	switch m {
	case ModeClassic, "":
		return Settings{Mode: ModeClassic, Rounds: DefaultRounds, HintsAllowed: 3}, nil
	case ModeTimed:
		return Settings{Mode: ModeTimed, Rounds: DefaultRounds, HintsAllowed: 2, RoundTimer: 60 * time.Second}, nil
	case ModeExpert:
		return Settings{Mode: ModeExpert, Rounds: DefaultRounds, HintsAllowed: 1, RoundTimer: 30 * time.Second}, nil
	}
	return Settings{}, fmt.Errorf("unknown game mode %q", m)
}

// DefaultSettings is the classic preset.
func DefaultSettings() Settings {
	s, _ := SettingsForMode(ModeClassic)
	return s
}

// Validate checks the settings are playable.
func (s Settings) Validate() error {
	if s.Rounds <= 0 {
		return fmt.Errorf("rounds must be positive, got %d", s.Rounds)
	}
	if s.HintsAllowed < 0 {
		return fmt.Errorf("hints_allowed must not be negative, got %d", s.HintsAllowed)
	}
	if s.RoundTimer < 0 {
		return fmt.Errorf("round_timer must not be negative, got %s", s.RoundTimer)
	}
	return nil
}
