package leaderboard

import "chronoguess/core"

// Entry is a player's standing. Players are ordered by lifetime XP; at equal
// XP the one who needed fewer games ranks higher.
type Entry struct {
	Rank         int         `json:"rank,omitempty"`
	User         core.UserID `json:"user_id"`
	XP           float64     `json:"xp"`
	GamesPlayed  int         `json:"games_played"`
	LastAccuracy int         `json:"last_accuracy"`
}

// ahead reports whether a ranks above b.
func ahead(a, b Entry) bool {
	if a.XP != b.XP {
		return a.XP > b.XP
	}
	if a.GamesPlayed != b.GamesPlayed {
		return a.GamesPlayed < b.GamesPlayed
	}
	return a.User < b.User
}

// Board abstracts leaderboard operations.
type Board interface {
	Update(e Entry)
	Remove(user core.UserID)
	TopN(n int) []Entry
	Get(user core.UserID) (Entry, bool)
	Len() int
}

// Tracker keeps a Board in sync with completed games.
type Tracker struct {
	board Board
}

func NewTracker(board Board) *Tracker { return &Tracker{board: board} }

func (t *Tracker) Board() Board { return t.board }

// OnEvent records the player's new lifetime standing on game completion.
func (t *Tracker) OnEvent(e core.Event) {
	if e.Type != core.EventGameCompleted || e.UserID == "" {
		return
	}
	t.board.Update(Entry{
		User:         e.UserID,
		XP:           e.XPTotal,
		GamesPlayed:  e.GamesPlayed,
		LastAccuracy: int(e.Accuracy),
	})
}
