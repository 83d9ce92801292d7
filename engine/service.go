package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"chronoguess/core"
)

// Lookup sources reported by RoundResult and Lifetime.
const (
	SourceSession     = "session"
	SourceRemote      = "remote"
	SourceLocal       = "local"
	SourcePlaceholder = "placeholder"
	SourceZero        = "zero"
)

// Session retention defaults.
const (
	DefaultCompletedRetention = 15 * time.Minute
	DefaultIdleTimeout        = 2 * time.Hour
)

// ErrSessionExpired is the failure recorded on sessions aborted for
// inactivity.
var ErrSessionExpired = errors.New("session expired")

// StartOptions override the service's default settings for one game.
type StartOptions struct {
	Mode         GameMode
	HintsAllowed *int
	RoundTimer   *time.Duration
}

// SubmitOutcome is what a player sees after submitting a round.
type SubmitOutcome struct {
	Accepted bool             `json:"accepted"`
	Result   core.RoundResult `json:"result"`
	Badges   []core.Badge     `json:"badges,omitempty"`
}

// AdvanceOutcome reports the round now in play.
type AdvanceOutcome struct {
	RoundNumber int  `json:"round_number"`
	Last        bool `json:"last"`
}

// GameSummary is the result of completing a game.
type GameSummary struct {
	SessionID core.SessionID     `json:"session_id"`
	UserID    core.UserID        `json:"user_id"`
	Accuracy  int                `json:"accuracy"`
	XP        float64            `json:"xp"`
	Results   []core.RoundResult `json:"results"`
	Metrics   core.UserMetrics   `json:"metrics"`
	Global    GlobalStats        `json:"global"`
	Badges    []core.Badge       `json:"badges,omitempty"`
}

// ServiceOption configures a GameService.
type ServiceOption func(*GameService)

func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(g *GameService) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithStrict makes out-of-range round numbers fail loudly instead of being
// logged and ignored.
func WithStrict(strict bool) ServiceOption {
	return func(g *GameService) { g.strict = strict }
}

func WithDefaultSettings(s Settings) ServiceOption {
	return func(g *GameService) { g.settings = s }
}

func WithBadgeCatalog(catalog []core.Badge) ServiceOption {
	return func(g *GameService) { g.catalog = catalog }
}

func WithSessionIDs(next func() core.SessionID) ServiceOption {
	return func(g *GameService) {
		if next != nil {
			g.newID = next
		}
	}
}

func WithServiceClock(now func() time.Time) ServiceOption {
	return func(g *GameService) {
		if now != nil {
			g.now = now
		}
	}
}

// WithSessionRetention sets how long completed sessions stay readable and how
// long an unfinished session may sit idle before SweepSessions drops it. Zero
// disables the respective eviction.
func WithSessionRetention(completed, idle time.Duration) ServiceOption {
	return func(g *GameService) {
		g.completedTTL = completed
		g.idleTTL = idle
	}
}

// WithManagerOptions appends options applied to every SessionManager.
func WithManagerOptions(opts ...ManagerOption) ServiceOption {
	return func(g *GameService) { g.managerOpts = append(g.managerOpts, opts...) }
}

// GameService runs sessions for many players and owns the persistence side of
// each game: round results, lifetime metrics and badges.
type GameService struct {
	remote      Storage
	local       LocalStore
	images      ImageCatalog
	bus         *EventBus
	badges      *BadgeEvaluator
	catalog     []core.Badge
	settings    Settings
	strict      bool
	logger      *slog.Logger
	now         func() time.Time
	newID       func() core.SessionID
	managerOpts []ManagerOption

	completedTTL time.Duration
	idleTTL      time.Duration

	mu       sync.RWMutex
	sessions map[core.SessionID]*SessionManager
}

// NewGameService builds a service. remote may be nil, in which case every
// identity is served from local.
func NewGameService(remote Storage, local LocalStore, images ImageCatalog, bus *EventBus, opts ...ServiceOption) *GameService {
	if local == nil || images == nil || bus == nil {
		panic("NewGameService requires non-nil local store, image catalog, and bus")
	}
	g := &GameService{
		remote:   remote,
		local:    local,
		images:   images,
		bus:      bus,
		settings: DefaultSettings(),
		logger:   slog.Default(),
		now:      time.Now,
		newID:    func() core.SessionID { return core.SessionID(uuid.NewString()) },
		sessions: make(map[core.SessionID]*SessionManager),

		completedTTL: DefaultCompletedRetention,
		idleTTL:      DefaultIdleTimeout,
	}
	for _, o := range opts {
		o(g)
	}
	g.badges = NewBadgeEvaluator(g.catalog, g.logger)
	return g
}

// Subscribe convenience method.
func (g *GameService) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	return g.bus.Subscribe(typ, handler)
}

// SubscribeAll registers handler for every event.
func (g *GameService) SubscribeAll(handler func(context.Context, core.Event)) func() {
	return g.bus.SubscribeAll(handler)
}

func (g *GameService) Catalog() []core.Badge { return g.badges.Catalog() }

// storeFor picks the collaborator for identity: guests and deployments
// without a remote store use local storage.
func (g *GameService) storeFor(id core.Identity) Storage {
	if id.IsGuest || g.remote == nil {
		return g.local
	}
	return g.remote
}

func (g *GameService) settingsFor(opts StartOptions) (Settings, error) {
	s := g.settings
	if opts.Mode != "" && opts.Mode != s.Mode {
		preset, err := SettingsForMode(opts.Mode)
		if err != nil {
			return Settings{}, err
		}
		preset.Rounds = s.Rounds
		s = preset
	}
	if opts.HintsAllowed != nil {
		s.HintsAllowed = *opts.HintsAllowed
	}
	if opts.RoundTimer != nil {
		s.RoundTimer = *opts.RoundTimer
	}
	return s, s.Validate()
}

// StartGame creates and starts a new session for identity.
func (g *GameService) StartGame(ctx context.Context, identity core.Identity, opts StartOptions) (Snapshot, error) {
	user, err := core.NormalizeUserID(identity.UserID)
	if err != nil {
		return Snapshot{}, err
	}
	identity.UserID = user
	settings, err := g.settingsFor(opts)
	if err != nil {
		return Snapshot{}, err
	}
	id := g.newID()
	mopts := append([]ManagerOption{
		WithLogger(g.logger),
		WithClock(g.now),
		WithStateHook(func(_, to State, err error) {
			g.bus.Publish(context.Background(), core.NewSessionState(user, id, string(to), err))
		}),
	}, g.managerOpts...)
	var m *SessionManager
	mopts = append(mopts, WithTimeoutHandler(func(res core.RoundResult) {
		g.afterRecord(context.Background(), m, res, false)
	}))
	m = NewSessionManager(id, identity, g.images, settings, mopts...)
	if err := m.StartGame(ctx); err != nil {
		return Snapshot{}, err
	}
	g.mu.Lock()
	g.sessions[id] = m
	g.mu.Unlock()
	g.bus.Publish(ctx, core.NewSessionStarted(user, id, settings.Rounds))
	return m.Snapshot(), nil
}

func (g *GameService) manager(id core.SessionID) (*SessionManager, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	m, ok := g.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrSessionNotFound, id)
	}
	return m, nil
}

// Session returns a snapshot of a running or completed session.
func (g *GameService) Session(id core.SessionID) (Snapshot, error) {
	m, err := g.manager(id)
	if err != nil {
		return Snapshot{}, err
	}
	return m.Snapshot(), nil
}

// softIndexError swallows out-of-range round errors unless strict.
func (g *GameService) softIndexError(op string, id core.SessionID, err error) error {
	if g.strict || !errors.Is(err, core.ErrInvalidRoundIndex) {
		return err
	}
	g.logger.Error("invalid round index ignored", "op", op, "session_id", string(id), "error", err)
	return nil
}

// SubmitGuess records guess for the 1-based roundNumber.
func (g *GameService) SubmitGuess(ctx context.Context, id core.SessionID, roundNumber int, guess core.Guess) (SubmitOutcome, error) {
	m, err := g.manager(id)
	if err != nil {
		return SubmitOutcome{}, err
	}
	res, replaced, err := m.RecordRound(guess, roundNumber-1)
	if err != nil {
		return SubmitOutcome{}, g.softIndexError("submit guess", id, err)
	}
	return SubmitOutcome{Accepted: true, Result: res, Badges: g.afterRecord(ctx, m, res, replaced)}, nil
}

// afterRecord persists an accepted result and runs the round badge check.
// Failures are logged and never reach the player.
func (g *GameService) afterRecord(ctx context.Context, m *SessionManager, res core.RoundResult, replaced bool) []core.Badge {
	identity := m.Identity()
	sid := m.ID()
	log := g.logger.With("session_id", string(sid), "user_id", string(identity.UserID), "round_number", res.RoundNumber())

	snap := core.NewFallbackGuess(res.ImageID, core.Guess{Coordinates: res.GuessCoordinates, Year: res.GuessYear}, g.now())
	if err := g.local.SaveFallbackGuess(ctx, sid, res.RoundIndex, snap); err != nil {
		log.Warn("save fallback guess failed", "error", err)
	}
	store := g.storeFor(identity)
	if err := store.SaveRoundResult(ctx, sid, identity.UserID, res); err != nil {
		log.Warn("save round result failed", "error", err)
	}
	if replaced {
		g.bus.Publish(ctx, core.NewRoundResubmitted(identity.UserID, sid, res))
	} else {
		g.bus.Publish(ctx, core.NewRoundRecorded(identity.UserID, sid, res))
	}

	awarded := g.badges.AwardRound(ctx, store, identity.UserID, res)
	for _, b := range awarded {
		g.bus.Publish(ctx, core.NewBadgeAwarded(identity.UserID, sid, b))
	}
	return awarded
}

// UseHint reveals hint for the 1-based roundNumber and returns its text.
func (g *GameService) UseHint(ctx context.Context, id core.SessionID, roundNumber int, hint core.HintType) (string, error) {
	m, err := g.manager(id)
	if err != nil {
		return "", err
	}
	text, err := m.UseHint(roundNumber-1, hint)
	if err != nil {
		return "", g.softIndexError("use hint", id, err)
	}
	g.bus.Publish(ctx, core.NewHintUsed(m.Identity().UserID, id, roundNumber, hint))
	return text, nil
}

// Advance moves the session to its next round.
func (g *GameService) Advance(_ context.Context, id core.SessionID) (AdvanceOutcome, error) {
	m, err := g.manager(id)
	if err != nil {
		return AdvanceOutcome{}, err
	}
	idx, last, err := m.AdvanceRound()
	if err != nil {
		return AdvanceOutcome{}, err
	}
	return AdvanceOutcome{RoundNumber: idx + 1, Last: last}, nil
}

// CompleteGame finalizes a session, folds it into the player's lifetime
// metrics and awards badges. Persistence failures are logged and swallowed.
func (g *GameService) CompleteGame(ctx context.Context, id core.SessionID) (GameSummary, error) {
	m, err := g.manager(id)
	if err != nil {
		return GameSummary{}, err
	}
	results, err := m.Complete()
	if err != nil {
		return GameSummary{}, err
	}
	identity := m.Identity()
	user := identity.UserID
	log := g.logger.With("session_id", string(id), "user_id", string(user))
	completedAt := g.now().UTC()
	accuracy := SessionAccuracy(results)
	xp := SessionXP(results)

	store := g.storeFor(identity)
	summary := core.SessionSummary{
		SessionID:   id,
		UserID:      user,
		Rounds:      len(results),
		Recorded:    len(results),
		Accuracy:    accuracy,
		XP:          xp,
		CompletedAt: completedAt,
	}
	if snap := m.Snapshot(); snap.Rounds > 0 {
		summary.Rounds = snap.Rounds
	}
	if err := store.MarkSessionComplete(ctx, summary); err != nil {
		log.Warn("mark session complete failed", "error", err)
	}

	existing, source, readErr := g.lifetime(ctx, identity)
	log.Debug("lifetime metrics loaded", "source", source)
	updated := UpdateLifetimeMetrics(existing, results, SessionOutcome{CompletedAt: completedAt})
	target := store
	if readErr != nil {
		// updated was built without the stored history and must not replace it
		log.Warn("stored metrics unreadable, keeping update local", "source", source, "error", readErr)
		target = g.local
	}
	if err := target.SaveMetrics(ctx, user, updated); err != nil {
		log.Warn("save metrics failed", "error", err)
		if target != g.local {
			if err := g.local.SaveMetrics(ctx, user, updated); err != nil {
				log.Warn("save local metrics snapshot failed", "error", err)
			}
		}
	}

	awarded := g.badges.Award(ctx, store, user, updated)
	done := core.NewGameCompleted(user, id, accuracy, xp, updated.Get(core.ReqXPTotal))
	done.GamesPlayed = int(updated.Get(core.ReqGamesPlayed))
	g.bus.Publish(ctx, done)
	for _, b := range awarded {
		g.bus.Publish(ctx, core.NewBadgeAwarded(user, id, b))
	}
	log.Info("game completed", "accuracy", accuracy, "xp", xp, "badges", len(awarded))
	return GameSummary{
		SessionID: id,
		UserID:    user,
		Accuracy:  accuracy,
		XP:        xp,
		Results:   results,
		Metrics:   updated,
		Global:    GlobalStatsFrom(updated),
		Badges:    awarded,
	}, nil
}

// ResetGame discards a session without persisting anything.
func (g *GameService) ResetGame(_ context.Context, id core.SessionID) error {
	g.mu.Lock()
	m, ok := g.sessions[id]
	delete(g.sessions, id)
	g.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrSessionNotFound, id)
	}
	m.ResetGame()
	return nil
}

// RoundResult looks up the result of the 1-based roundNumber, falling back
// from the live session to the remote store, then to the local guess
// snapshot, then to a zero-score placeholder. The returned string names the
// source that answered.
func (g *GameService) RoundResult(ctx context.Context, id core.SessionID, roundNumber int) (core.RoundResult, string, error) {
	idx := roundNumber - 1
	m, err := g.manager(id)
	if err != nil {
		if g.remote == nil {
			return core.RoundResult{}, "", err
		}
		res, rerr := g.remote.LoadRoundResult(ctx, id, idx)
		if rerr != nil {
			return core.RoundResult{}, "", errors.Join(err, rerr)
		}
		return res, SourceRemote, nil
	}
	spec, err := m.Round(idx)
	if err != nil {
		return core.RoundResult{}, "", err
	}
	if !m.RoundPlayed(idx) {
		return core.RoundResult{}, "", fmt.Errorf("round %d of %s has not been played: %w", roundNumber, id, core.ErrNotFound)
	}
	store := g.storeFor(m.Identity())
	return FirstSuccess(ctx,
		Strategy[core.RoundResult]{Name: SourceSession, Run: func(context.Context) (core.RoundResult, error) {
			if r, ok := m.Result(idx); ok {
				return r, nil
			}
			return core.RoundResult{}, core.ErrNotFound
		}},
		Strategy[core.RoundResult]{Name: SourceRemote, Run: func(ctx context.Context) (core.RoundResult, error) {
			return store.LoadRoundResult(ctx, id, idx)
		}},
		Strategy[core.RoundResult]{Name: SourceLocal, Run: func(ctx context.Context) (core.RoundResult, error) {
			fg, err := g.local.LoadFallbackGuess(ctx, id, idx)
			if err != nil {
				return core.RoundResult{}, err
			}
			if fg.ImageID != spec.Image.ID {
				return core.RoundResult{}, fmt.Errorf("snapshot image %q does not match round image %q", fg.ImageID, spec.Image.ID)
			}
			res := core.ScoreRound(spec, fg.Guess(), 0)
			res.RecordedAt = time.UnixMilli(fg.Timestamp).UTC()
			return res, nil
		}},
		Strategy[core.RoundResult]{Name: SourcePlaceholder, Run: func(context.Context) (core.RoundResult, error) {
			return core.ScoreRound(spec, core.Guess{}, 0), nil
		}},
	)
}

// Lifetime reads identity's persisted metrics: the identity's store first,
// then the local snapshot, then a zero snapshot.
func (g *GameService) Lifetime(ctx context.Context, identity core.Identity) (core.UserMetrics, string) {
	m, source, _ := g.lifetime(ctx, identity)
	return m, source
}

// lifetime is Lifetime plus the remote read failure, if the identity's store
// failed for any reason other than having no record.
func (g *GameService) lifetime(ctx context.Context, identity core.Identity) (core.UserMetrics, string, error) {
	store := g.storeFor(identity)
	var readErr error
	strategies := []Strategy[core.UserMetrics]{}
	if store != g.local {
		strategies = append(strategies, Strategy[core.UserMetrics]{Name: SourceRemote, Run: func(ctx context.Context) (core.UserMetrics, error) {
			m, err := store.GetMetrics(ctx, identity.UserID)
			if err != nil && !errors.Is(err, core.ErrNotFound) {
				readErr = err
			}
			return m, err
		}})
	}
	strategies = append(strategies,
		Strategy[core.UserMetrics]{Name: SourceLocal, Run: func(ctx context.Context) (core.UserMetrics, error) {
			return g.local.GetMetrics(ctx, identity.UserID)
		}},
		Strategy[core.UserMetrics]{Name: SourceZero, Run: func(context.Context) (core.UserMetrics, error) {
			return core.NewUserMetrics(), nil
		}},
	)
	m, source, err := FirstSuccess(ctx, strategies...)
	if err != nil {
		g.logger.Warn("lifetime metrics unavailable", "user_id", string(identity.UserID), "error", err)
		return core.NewUserMetrics(), SourceZero, errors.Join(readErr, err)
	}
	return m.Coerce(), source, readErr
}

// Metrics returns the lifetime snapshot and the global view derived from it.
func (g *GameService) Metrics(ctx context.Context, identity core.Identity) (core.UserMetrics, GlobalStats, error) {
	user, err := core.NormalizeUserID(identity.UserID)
	if err != nil {
		return core.UserMetrics{}, GlobalStats{}, err
	}
	identity.UserID = user
	m, _ := g.Lifetime(ctx, identity)
	return m, GlobalStatsFrom(m), nil
}

// Badges evaluates the catalog for identity.
func (g *GameService) Badges(ctx context.Context, identity core.Identity) ([]core.BadgeEvaluation, error) {
	user, err := core.NormalizeUserID(identity.UserID)
	if err != nil {
		return nil, err
	}
	identity.UserID = user
	m, _ := g.Lifetime(ctx, identity)
	evals, err := g.badges.Evaluate(ctx, g.storeFor(identity), user, m)
	if err != nil {
		return nil, &core.PersistenceError{Op: "load earned badges", Err: err}
	}
	return evals, nil
}

// SweepSessions evicts completed sessions older than the completed retention
// and aborts then evicts unfinished sessions idle past the idle timeout. It
// returns the number of sessions removed.
func (g *GameService) SweepSessions() int {
	now := g.now()
	var expired, idle []*SessionManager
	g.mu.Lock()
	for id, m := range g.sessions {
		state, touched := m.Activity()
		age := now.Sub(touched)
		switch {
		case state == StateCompleted:
			if g.completedTTL <= 0 || age < g.completedTTL {
				continue
			}
			expired = append(expired, m)
		default:
			if g.idleTTL <= 0 || age < g.idleTTL {
				continue
			}
			idle = append(idle, m)
		}
		delete(g.sessions, id)
	}
	g.mu.Unlock()

	for _, m := range idle {
		m.Abort(ErrSessionExpired)
	}
	if n := len(expired) + len(idle); n > 0 {
		g.logger.Info("sessions swept", "completed", len(expired), "idle", len(idle))
	}
	return len(expired) + len(idle)
}

// RunSweeper calls SweepSessions every interval until ctx is done.
func (g *GameService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.SweepSessions()
		}
	}
}

// Close stops all round timers and the event bus.
func (g *GameService) Close() {
	g.mu.Lock()
	sessions := g.sessions
	g.sessions = make(map[core.SessionID]*SessionManager)
	g.mu.Unlock()
	for _, m := range sessions {
		m.timer.Cancel()
	}
	g.bus.Close()
}

// AddHook forwards every published event to h. The returned func detaches it.
func (g *GameService) AddHook(h Hook) func() {
	return g.bus.SubscribeAll(func(_ context.Context, e core.Event) { h.OnEvent(e) })
}
