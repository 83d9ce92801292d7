package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"chronoguess/core"
)

// StartGameRequest is the body of POST /games.
type StartGameRequest struct {
	UserID        string `json:"user_id"`
	Guest         bool   `json:"guest"`
	Mode          string `json:"mode,omitempty"`
	HintsAllowed  *int   `json:"hints_allowed,omitempty"`
	RoundTimerSec *int   `json:"round_timer_sec,omitempty"`
}

// Image is the current round's photo as the server exposes it.
type Image struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Game mirrors the public view of a session.
type Game struct {
	SessionID      string             `json:"session_id"`
	UserID         string             `json:"user_id"`
	State          string             `json:"state"`
	Mode           string             `json:"mode"`
	Rounds         int                `json:"rounds"`
	HintsAllowed   int                `json:"hints_allowed"`
	RoundTimerSec  int                `json:"round_timer_sec"`
	CurrentRound   int                `json:"current_round"`
	CurrentImage   *Image             `json:"current_image,omitempty"`
	HintsRemaining int                `json:"hints_remaining"`
	Results        []core.RoundResult `json:"results"`
	Error          string             `json:"error,omitempty"`
}

// Guess is a round submission. Lat and Lng travel together.
type Guess struct {
	Lat  *float64 `json:"lat,omitempty"`
	Lng  *float64 `json:"lng,omitempty"`
	Year *int     `json:"year,omitempty"`
}

// At returns a location-only guess.
func At(lat, lng float64) Guess { return Guess{Lat: &lat, Lng: &lng} }

// WithYear returns g with the year set.
func (g Guess) WithYear(year int) Guess {
	g.Year = &year
	return g
}

// GuessOutcome is the response to a round submission.
type GuessOutcome struct {
	Accepted bool             `json:"accepted"`
	Result   core.RoundResult `json:"result"`
	Badges   []core.Badge     `json:"badges,omitempty"`
}

// Hint is a revealed hint.
type Hint struct {
	RoundNumber int           `json:"round_number"`
	Hint        core.HintType `json:"hint"`
	Text        string        `json:"text"`
}

// RoundLookup is a round result plus where it was found.
type RoundLookup struct {
	Source string           `json:"source"`
	Result core.RoundResult `json:"result"`
}

// Advance reports the round now in play.
type Advance struct {
	RoundNumber int  `json:"round_number"`
	Last        bool `json:"last"`
}

// GlobalStats is the player's lifetime view.
type GlobalStats struct {
	Accuracy    float64 `json:"accuracy"`
	XP          float64 `json:"xp"`
	GamesPlayed int     `json:"games_played"`
}

// Summary is the response to completing a game.
type Summary struct {
	SessionID string             `json:"session_id"`
	UserID    string             `json:"user_id"`
	Accuracy  int                `json:"accuracy"`
	XP        float64            `json:"xp"`
	Results   []core.RoundResult `json:"results"`
	Metrics   core.UserMetrics   `json:"metrics"`
	Global    GlobalStats        `json:"global"`
	Badges    []core.Badge       `json:"badges,omitempty"`
}

// PlayerMetrics is the response of GET /users/{id}/metrics.
type PlayerMetrics struct {
	UserID  string           `json:"user_id"`
	Metrics core.UserMetrics `json:"metrics"`
	Global  GlobalStats      `json:"global"`
}

// LeaderboardEntry is one ranked player.
type LeaderboardEntry struct {
	Rank         int     `json:"rank"`
	UserID       string  `json:"user_id"`
	XP           float64 `json:"xp"`
	GamesPlayed  int     `json:"games_played"`
	LastAccuracy int     `json:"last_accuracy"`
}

// Leaderboard is the response of GET /leaderboard.
type Leaderboard struct {
	Entries []LeaderboardEntry `json:"entries"`
	Total   int                `json:"total"`
}

// HealthStatus describes the /healthz response.
type HealthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chronoguess: %d %s: %s", e.Status, e.Code, e.Message)
}

func decodeJSON(resp *http.Response, target any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Code == "" {
			apiErr.Code = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if target == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

// ErrEmptyUserID is returned when user id is empty.
var ErrEmptyUserID = errors.New("user id is required")

// ErrEmptySessionID is returned when session id is empty.
var ErrEmptySessionID = errors.New("session id is required")
