package engine

import (
	"context"

	"chronoguess/core"
)

// Storage is the persistence collaborator. Remote stores and the device-local
// store both satisfy it; writes are fire-and-forget from the engine's view.
type Storage interface {
	SaveRoundResult(ctx context.Context, session core.SessionID, user core.UserID, result core.RoundResult) error
	LoadRoundResult(ctx context.Context, session core.SessionID, roundIndex int) (core.RoundResult, error)
	MarkSessionComplete(ctx context.Context, summary core.SessionSummary) error
	GetMetrics(ctx context.Context, user core.UserID) (core.UserMetrics, error)
	SaveMetrics(ctx context.Context, user core.UserID, metrics core.UserMetrics) error
	EarnedBadges(ctx context.Context, user core.UserID) (core.EarnedSet, error)
	// AwardBadge adds badge to the user's earned set and reports whether it
	// was newly added.
	AwardBadge(ctx context.Context, user core.UserID, badge core.BadgeID) (bool, error)
}

// LocalStore is device-local storage: guest persistence plus the fallback
// snapshot of raw guesses.
type LocalStore interface {
	Storage
	SaveFallbackGuess(ctx context.Context, session core.SessionID, roundIndex int, guess core.FallbackGuess) error
	LoadFallbackGuess(ctx context.Context, session core.SessionID, roundIndex int) (core.FallbackGuess, error)
}

// ImageCatalog is the image-catalog collaborator. It returns the candidate
// pool for a session; implementations never return an empty pool when a
// placeholder set is configured.
type ImageCatalog interface {
	FetchCandidateImages(ctx context.Context, count int) ([]core.ImageMeta, error)
}

// Hook receives every published event.
type Hook interface {
	OnEvent(e core.Event)
}
