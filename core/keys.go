package core

import "fmt"

// Local key-value layout shared by guest storage and the fallback snapshot.
// Round numbers in keys are 1-based.

func MetricsKey(user UserID) string {
	return fmt.Sprintf("user_metrics_%s", user)
}

func BadgesKey(user UserID) string {
	return fmt.Sprintf("user_badges_%s", user)
}

func FallbackGuessKey(session SessionID, roundIndex int) string {
	return fmt.Sprintf("fallback_game_%s_round_%d_guess", session, roundIndex+1)
}

func RoundResultKey(session SessionID, roundIndex int) string {
	return fmt.Sprintf("game_%s_round_%d_result", session, roundIndex+1)
}

func SessionCompleteKey(session SessionID) string {
	return fmt.Sprintf("game_%s_completed", session)
}
