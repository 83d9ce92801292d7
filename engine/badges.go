package engine

import (
	"context"
	"log/slog"

	"github.com/samber/lo"

	"chronoguess/core"
)

// Evaluate reports progress for every badge in catalog.
func Evaluate(catalog []core.Badge, earned core.EarnedSet, m core.UserMetrics) []core.BadgeEvaluation {
	return lo.Map(catalog, func(b core.Badge, _ int) core.BadgeEvaluation {
		return core.BadgeEvaluation{
			Badge:    b,
			Earned:   earned.Has(b.ID),
			Progress: b.Progress(m),
			Value:    m.Get(b.RequirementCode),
		}
	})
}

// CheckAndAward marks every not-yet-earned qualifying badge as earned in
// earned and returns those badges in catalog order. A second call with the
// same set and metrics returns nothing. A nil set counts as empty; the
// awards are then returned but recorded nowhere.
func CheckAndAward(catalog []core.Badge, earned core.EarnedSet, m core.UserMetrics) []core.Badge {
	if earned == nil {
		earned = core.NewEarnedSet()
	}
	var newly []core.Badge
	for _, b := range catalog {
		if earned.Has(b.ID) || !b.Qualifies(m) {
			continue
		}
		earned.Add(b.ID)
		newly = append(newly, b)
	}
	return newly
}

// AwardRoundBadges runs CheckAndAward against the synthetic metrics of a
// single round.
func AwardRoundBadges(catalog []core.Badge, earned core.EarnedSet, r core.RoundResult) []core.Badge {
	return CheckAndAward(catalog, earned, RoundMetrics(r))
}

// BadgeEvaluator binds a catalog to a store. The store's earned set is
// authoritative: a badge is reported as newly earned only when the store
// accepted it as new.
type BadgeEvaluator struct {
	catalog []core.Badge
	logger  *slog.Logger
}

func NewBadgeEvaluator(catalog []core.Badge, logger *slog.Logger) *BadgeEvaluator {
	if catalog == nil {
		catalog = core.DefaultBadges()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BadgeEvaluator{catalog: catalog, logger: logger}
}

// Catalog returns the evaluator's badges.
func (e *BadgeEvaluator) Catalog() []core.Badge { return e.catalog }

// Lookup finds a badge by id.
func (e *BadgeEvaluator) Lookup(id core.BadgeID) (core.Badge, bool) {
	return lo.Find(e.catalog, func(b core.Badge) bool { return b.ID == id })
}

// Award computes candidates from m and persists each one. Store failures are
// logged and the badge is skipped; they never fail the caller.
func (e *BadgeEvaluator) Award(ctx context.Context, store Storage, user core.UserID, m core.UserMetrics) []core.Badge {
	earned, err := store.EarnedBadges(ctx, user)
	if err != nil {
		e.logger.Warn("load earned badges failed", "user_id", string(user), "error", err)
		earned = core.NewEarnedSet()
	}
	return e.persist(ctx, store, user, CheckAndAward(e.catalog, earned, m))
}

// AwardRound is Award for the synthetic snapshot of a single round.
func (e *BadgeEvaluator) AwardRound(ctx context.Context, store Storage, user core.UserID, r core.RoundResult) []core.Badge {
	return e.Award(ctx, store, user, RoundMetrics(r))
}

func (e *BadgeEvaluator) persist(ctx context.Context, store Storage, user core.UserID, candidates []core.Badge) []core.Badge {
	var awarded []core.Badge
	for _, b := range candidates {
		added, err := store.AwardBadge(ctx, user, b.ID)
		if err != nil {
			e.logger.Warn("award badge failed", "user_id", string(user), "badge", string(b.ID), "error", err)
			continue
		}
		if added {
			awarded = append(awarded, b)
		}
	}
	return awarded
}

// Evaluate reports progress for user against the stored earned set.
func (e *BadgeEvaluator) Evaluate(ctx context.Context, store Storage, user core.UserID, m core.UserMetrics) ([]core.BadgeEvaluation, error) {
	earned, err := store.EarnedBadges(ctx, user)
	if err != nil {
		return nil, err
	}
	return Evaluate(e.catalog, earned, m), nil
}
