package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

// UserID uniquely identifies a player, registered or guest.
type UserID string

// SessionID identifies a single game session. It is not durable across restarts.
type SessionID string

// Identity is supplied by the identity collaborator.
type Identity struct {
	UserID  UserID `json:"user_id"`
	IsGuest bool   `json:"is_guest"`
}

// GuessCoordinates is a point on the map, either guessed or true.
type GuessCoordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point lies within map bounds.
func (c GuessCoordinates) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// ImageMeta is a historical photo as returned by the image catalog.
type ImageMeta struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Year         int     `json:"year"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	LocationName string  `json:"location_name"`
	URL          string  `json:"url"`
	Ready        bool    `json:"ready"`
}

// Coordinates returns the image's true location.
func (m ImageMeta) Coordinates() GuessCoordinates {
	return GuessCoordinates{Lat: m.Latitude, Lng: m.Longitude}
}

// RoundSpec is one round of a session and carries the truth for scoring.
type RoundSpec struct {
	Index int       `json:"round_index"`
	Image ImageMeta `json:"image"`
}

// Guess is the raw player submission for a round. Both parts are optional.
type Guess struct {
	Coordinates *GuessCoordinates `json:"coordinates,omitempty"`
	Year        *int              `json:"year,omitempty"`
}

// RoundResult is created once per round on submission and only ever replaced
// by a later submission for the same index.
type RoundResult struct {
	RoundIndex        int               `json:"round_index"`
	ImageID           string            `json:"image_id"`
	GuessCoordinates  *GuessCoordinates `json:"guess_coordinates"`
	ActualCoordinates GuessCoordinates  `json:"actual_coordinates"`
	DistanceKm        *float64          `json:"distance_km"`
	GuessYear         *int              `json:"guess_year"`
	ActualYear        int               `json:"actual_year"`
	LocationXP        float64           `json:"location_xp"`
	TimeXP            float64           `json:"time_xp"`
	HintsUsed         int               `json:"hints_used"`
	Score             float64           `json:"score"`
	AccuracyPercent   float64           `json:"accuracy_percent"`
	TimedOut          bool              `json:"timed_out,omitempty"`
	RecordedAt        time.Time         `json:"recorded_at"`
}

// RoundNumber is the 1-based number used in external identifiers.
func (r RoundResult) RoundNumber() int { return r.RoundIndex + 1 }

// Clone returns a copy that shares no pointers with r.
func (r RoundResult) Clone() RoundResult {
	cp := r
	if r.GuessCoordinates != nil {
		c := *r.GuessCoordinates
		cp.GuessCoordinates = &c
	}
	if r.DistanceKm != nil {
		d := *r.DistanceKm
		cp.DistanceKm = &d
	}
	if r.GuessYear != nil {
		y := *r.GuessYear
		cp.GuessYear = &y
	}
	return cp
}

// SessionSummary is persisted when a session completes.
type SessionSummary struct {
	SessionID   SessionID `json:"session_id"`
	UserID      UserID    `json:"user_id"`
	Rounds      int       `json:"rounds"`
	Recorded    int       `json:"recorded"`
	Accuracy    int       `json:"accuracy"`
	XP          float64   `json:"xp"`
	CompletedAt time.Time `json:"completed_at"`
}

// FallbackGuess is the device-local record of a submission, used to
// reconstruct a result when the remote lookup fails.
type FallbackGuess struct {
	GuessYear *int     `json:"guessYear"`
	GuessLat  *float64 `json:"guessLat"`
	GuessLng  *float64 `json:"guessLng"`
	ImageID   string   `json:"imageId"`
	Timestamp int64    `json:"timestamp"`
}

// Guess rebuilds the raw guess from the stored fields.
func (f FallbackGuess) Guess() Guess {
	g := Guess{Year: f.GuessYear}
	if f.GuessLat != nil && f.GuessLng != nil {
		g.Coordinates = &GuessCoordinates{Lat: *f.GuessLat, Lng: *f.GuessLng}
	}
	return g
}

// NewFallbackGuess captures a guess for local storage.
func NewFallbackGuess(imageID string, g Guess, at time.Time) FallbackGuess {
	f := FallbackGuess{GuessYear: g.Year, ImageID: imageID, Timestamp: at.UnixMilli()}
	if g.Coordinates != nil {
		lat, lng := g.Coordinates.Lat, g.Coordinates.Lng
		f.GuessLat, f.GuessLng = &lat, &lng
	}
	return f
}

// NormalizeUserID trims and lowercases user identifiers.
func NormalizeUserID(id UserID) (UserID, error) {
	s := strings.TrimSpace(string(id))
	if s == "" {
		return "", errors.New("empty user id")
	}
	return UserID(strings.ToLower(s)), nil
}
