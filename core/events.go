package core

import "time"

// EventType enumerates domain events.
type EventType string

const (
	EventSessionStarted EventType = "session_started"
	EventSessionState   EventType = "session_state_changed"
	EventRoundRecorded  EventType = "round_recorded"
	EventHintUsed       EventType = "hint_used"
	EventGameCompleted  EventType = "game_completed"
	EventBadgeAwarded   EventType = "badge_awarded"
)

// AllEventTypes lists every event the engine publishes.
var AllEventTypes = []EventType{
	EventSessionStarted,
	EventSessionState,
	EventRoundRecorded,
	EventHintUsed,
	EventGameCompleted,
	EventBadgeAwarded,
}

// Event represents an immutable domain event.
type Event struct {
	Type        EventType      `json:"type"`
	Time        time.Time      `json:"time"`
	UserID      UserID         `json:"user_id"`
	SessionID   SessionID      `json:"session_id,omitempty"`
	RoundNumber int            `json:"round_number,omitempty"`
	State       string         `json:"state,omitempty"`
	Hint        HintType       `json:"hint,omitempty"`
	Score       float64        `json:"score,omitempty"`
	Accuracy    float64        `json:"accuracy,omitempty"`
	XPTotal     float64        `json:"xp_total,omitempty"`
	Badge       *Badge         `json:"badge,omitempty"`
	Error       string         `json:"error,omitempty"`
	Replaced    bool           `json:"replaced,omitempty"`
	GamesPlayed int            `json:"games_played,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func NewSessionStarted(user UserID, session SessionID, rounds int) Event {
	return Event{Type: EventSessionStarted, Time: time.Now().UTC(), UserID: user, SessionID: session, Metadata: map[string]any{"rounds": rounds}}
}

func NewSessionState(user UserID, session SessionID, state string, err error) Event {
	ev := Event{Type: EventSessionState, Time: time.Now().UTC(), UserID: user, SessionID: session, State: state}
	if err != nil {
		ev.Error = err.Error()
	}
	return ev
}

func NewRoundRecorded(user UserID, session SessionID, r RoundResult) Event {
	return Event{Type: EventRoundRecorded, Time: time.Now().UTC(), UserID: user, SessionID: session, RoundNumber: r.RoundNumber(), Score: r.Score, Accuracy: r.AccuracyPercent}
}

// NewRoundResubmitted is a round_recorded event for a round whose earlier
// result was overwritten. Counters skip it.
func NewRoundResubmitted(user UserID, session SessionID, r RoundResult) Event {
	ev := NewRoundRecorded(user, session, r)
	ev.Replaced = true
	return ev
}

func NewHintUsed(user UserID, session SessionID, roundNumber int, hint HintType) Event {
	return Event{Type: EventHintUsed, Time: time.Now().UTC(), UserID: user, SessionID: session, RoundNumber: roundNumber, Hint: hint}
}

func NewGameCompleted(user UserID, session SessionID, accuracy int, xp, xpTotal float64) Event {
	return Event{Type: EventGameCompleted, Time: time.Now().UTC(), UserID: user, SessionID: session, Accuracy: float64(accuracy), Score: xp, XPTotal: xpTotal}
}

func NewBadgeAwarded(user UserID, session SessionID, badge Badge) Event {
	b := badge
	return Event{Type: EventBadgeAwarded, Time: time.Now().UTC(), UserID: user, SessionID: session, Badge: &b}
}
