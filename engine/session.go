package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"chronoguess/core"
)

// State is the session lifecycle state.
type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateError      State = "error"
)

// transitions is the allowed state graph. Error is transient: the manager
// passes through it on a failure and settles in Idle.
var transitions = map[State][]State{
	StateIdle:       {StateLoading},
	StateLoading:    {StateInProgress, StateError, StateIdle},
	StateInProgress: {StateCompleted, StateError, StateIdle},
	StateCompleted:  {StateLoading, StateIdle},
	StateError:      {StateIdle},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// GameSession is the explicit per-game state owned by one SessionManager.
type GameSession struct {
	ID                core.SessionID   `json:"session_id"`
	Identity          core.Identity    `json:"identity"`
	Rounds            []core.RoundSpec `json:"rounds"`
	CurrentRoundIndex int              `json:"current_round_index"`
	Settings          Settings         `json:"settings"`
	StartedAt         time.Time        `json:"started_at"`
}

// Snapshot is a read-only view of a manager for callers.
type Snapshot struct {
	ID                core.SessionID     `json:"session_id"`
	UserID            core.UserID        `json:"user_id"`
	State             State              `json:"state"`
	Settings          Settings           `json:"settings"`
	Rounds            int                `json:"rounds"`
	CurrentRoundIndex int                `json:"current_round_index"`
	CurrentImage      *core.ImageMeta    `json:"current_image,omitempty"`
	HintsRemaining    int                `json:"hints_remaining"`
	Results           []core.RoundResult `json:"results"`
	Error             string             `json:"error,omitempty"`
}

// ManagerOption configures a SessionManager.
type ManagerOption func(*SessionManager)

// WithLogger sets the manager's logger.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *SessionManager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithRand injects the shuffle source, mainly for deterministic tests.
func WithRand(r *rand.Rand) ManagerOption {
	return func(m *SessionManager) {
		if r != nil {
			m.rng = r
		}
	}
}

// WithTimeoutHandler is called, outside the manager's lock, with the result a
// round timer auto-submitted.
func WithTimeoutHandler(fn func(core.RoundResult)) ManagerOption {
	return func(m *SessionManager) { m.onTimeout = fn }
}

// WithStateHook observes every state transition.
func WithStateHook(fn func(from, to State, err error)) ManagerOption {
	return func(m *SessionManager) { m.onState = fn }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *SessionManager) {
		if now != nil {
			m.now = now
		}
	}
}

// SessionManager drives one player's multi-round session. All mutation goes
// through its lock, which also makes timer expiry and manual submission for
// the same round mutually exclusive.
type SessionManager struct {
	mu        sync.Mutex
	id        core.SessionID
	identity  core.Identity
	catalog   ImageCatalog
	settings  Settings
	rng       *rand.Rand
	logger    *slog.Logger
	now       func() time.Time
	onTimeout func(core.RoundResult)
	onState   func(from, to State, err error)

	state   State
	lastErr error
	touched time.Time
	session *GameSession
	results *RoundResultStore
	hints   []*core.HintTracker
	timer   RoundTimer
}

func NewSessionManager(id core.SessionID, identity core.Identity, catalog ImageCatalog, settings Settings, opts ...ManagerOption) *SessionManager {
	if catalog == nil {
		panic("NewSessionManager requires a non-nil catalog")
	}
	m := &SessionManager{
		id:       id,
		identity: identity,
		catalog:  catalog,
		settings: settings,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		logger:   slog.Default(),
		now:      time.Now,
		state:    StateIdle,
		results:  NewRoundResultStore(settings.Rounds),
	}
	for _, o := range opts {
		o(m)
	}
	m.logger = m.logger.With("session_id", string(id), "user_id", string(identity.UserID))
	m.touched = m.now()
	return m
}

func (m *SessionManager) ID() core.SessionID { return m.id }

func (m *SessionManager) Identity() core.Identity { return m.identity }

func (m *SessionManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the human-readable failure of the last start attempt, if any.
func (m *SessionManager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *SessionManager) setStateLocked(to State, err error) {
	from := m.state
	if from == to {
		return
	}
	if !canTransition(from, to) {
		m.logger.Error("illegal session transition", "from", from, "to", to)
		return
	}
	m.state = to
	m.touched = m.now()
	m.logger.Debug("session state changed", "from", from, "to", to)
	if m.onState != nil {
		m.onState(from, to, err)
	}
}

// StartGame loads a fresh set of rounds. It is valid from Idle or Completed.
// On any failure the manager ends in Idle and Err reports why.
func (m *SessionManager) StartGame(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateIdle && m.state != StateCompleted {
		st := m.state
		m.mu.Unlock()
		return &core.StateError{Op: "start game", State: string(st)}
	}
	if err := m.settings.Validate(); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("invalid settings: %w", err)
	}
	m.timer.Cancel()
	m.lastErr = nil
	m.setStateLocked(StateLoading, nil)
	m.mu.Unlock()

	// The catalog fetch is the one suspension point; round interaction is
	// rejected while loading because the state is not InProgress.
	images, err := m.catalog.FetchCandidateImages(ctx, m.settings.Rounds)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateLoading {
		// reset while loading; the fetched images belong to nobody
		return &core.StateError{Op: "start game", State: string(m.state)}
	}
	if err == nil && len(images) < m.settings.Rounds {
		err = &core.InsufficientContentError{Needed: m.settings.Rounds, Available: len(images)}
	}
	if err != nil {
		m.failLocked(err)
		return err
	}

	picked := m.pick(images, m.settings.Rounds)
	rounds := make([]core.RoundSpec, len(picked))
	for i, img := range picked {
		rounds[i] = core.RoundSpec{Index: i, Image: img}
	}
	m.session = &GameSession{
		ID:                m.id,
		Identity:          m.identity,
		Rounds:            rounds,
		CurrentRoundIndex: 0,
		Settings:          m.settings,
		StartedAt:         m.now().UTC(),
	}
	m.results.Reset(len(rounds))
	m.hints = make([]*core.HintTracker, len(rounds))
	for i := range m.hints {
		m.hints[i] = core.NewHintTracker(m.settings.HintsAllowed)
	}
	m.setStateLocked(StateInProgress, nil)
	m.armLocked()
	m.logger.Info("game started", "rounds", len(rounds), "mode", m.settings.Mode)
	return nil
}

// failLocked passes through Error and settles in Idle.
func (m *SessionManager) failLocked(err error) {
	m.lastErr = err
	m.timer.Cancel()
	m.setStateLocked(StateError, err)
	m.setStateLocked(StateIdle, err)
	m.session = nil
	m.results.Reset(m.settings.Rounds)
	m.hints = nil
	m.logger.Warn("session failed", "error", err)
}

// pick shuffles a copy of images and keeps the first n.
func (m *SessionManager) pick(images []core.ImageMeta, n int) []core.ImageMeta {
	pool := make([]core.ImageMeta, len(images))
	copy(pool, images)
	m.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:n]
}

// RecordRoundResult scores guess against the truth of round roundIndex and
// writes it to the result store, replacing any earlier result for that round.
// The round timer is invalidated before anything else happens.
func (m *SessionManager) RecordRoundResult(guess core.Guess, roundIndex int) (core.RoundResult, error) {
	res, _, err := m.RecordRound(guess, roundIndex)
	return res, err
}

// RecordRound is RecordRoundResult that also reports whether an earlier
// result for the round was replaced.
func (m *SessionManager) RecordRound(guess core.Guess, roundIndex int) (core.RoundResult, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	replaced := m.state == StateInProgress && m.results.Has(roundIndex)
	res, err := m.recordLocked(guess, roundIndex, false)
	if err != nil {
		return core.RoundResult{}, false, err
	}
	return res, replaced, nil
}

func (m *SessionManager) recordLocked(guess core.Guess, roundIndex int, timedOut bool) (core.RoundResult, error) {
	if m.state != StateInProgress {
		return core.RoundResult{}, &core.StateError{Op: "record round", State: string(m.state)}
	}
	if roundIndex < 0 || roundIndex >= len(m.session.Rounds) {
		return core.RoundResult{}, &core.InvalidRoundIndexError{Index: roundIndex, Rounds: len(m.session.Rounds)}
	}
	if roundIndex == m.session.CurrentRoundIndex {
		m.timer.Cancel()
	}
	if guess.Coordinates == nil || !guess.Coordinates.Valid() {
		m.logger.Debug("round submitted without usable location", "round_number", roundIndex+1, "reason", core.ErrMissingGuess)
	}
	res := core.ScoreRound(m.session.Rounds[roundIndex], guess, m.hints[roundIndex].Used())
	res.TimedOut = timedOut
	res.RecordedAt = m.now().UTC()
	if err := m.results.Put(res); err != nil {
		return core.RoundResult{}, err
	}
	m.touched = m.now()
	return res.Clone(), nil
}

// expire is the round timer callback. It auto-submits an empty guess unless
// the countdown was cancelled or the round already has a result.
func (m *SessionManager) expire(roundIndex int, gen uint64) {
	m.mu.Lock()
	if !m.timer.Current(gen) || m.state != StateInProgress || m.session.CurrentRoundIndex != roundIndex || m.results.Has(roundIndex) {
		m.mu.Unlock()
		return
	}
	res, err := m.recordLocked(core.Guess{}, roundIndex, true)
	handler := m.onTimeout
	m.mu.Unlock()
	if err != nil {
		m.logger.Error("auto-submit failed", "round_number", roundIndex+1, "error", err)
		return
	}
	m.logger.Info("round timed out", "round_number", roundIndex+1)
	if handler != nil {
		handler(res)
	}
}

func (m *SessionManager) armLocked() {
	if m.settings.RoundTimer <= 0 || m.session == nil {
		return
	}
	idx := m.session.CurrentRoundIndex
	m.timer.Arm(m.settings.RoundTimer, func(gen uint64) { m.expire(idx, gen) })
}

// UseHint reveals hint t for round roundIndex and returns the reveal text.
func (m *SessionManager) UseHint(roundIndex int, t core.HintType) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateInProgress {
		return "", &core.StateError{Op: "use hint", State: string(m.state)}
	}
	if roundIndex < 0 || roundIndex >= len(m.session.Rounds) {
		return "", &core.InvalidRoundIndexError{Index: roundIndex, Rounds: len(m.session.Rounds)}
	}
	if m.results.Has(roundIndex) {
		return "", &core.StateError{Op: "use hint on submitted round", State: string(m.state)}
	}
	if err := m.hints[roundIndex].Select(t); err != nil {
		return "", err
	}
	m.touched = m.now()
	return t.Reveal(m.session.Rounds[roundIndex].Image), nil
}

// AdvanceRound moves to the next round. It reports last=true without moving
// when the current round is the final one; the caller then completes the game.
func (m *SessionManager) AdvanceRound() (index int, last bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateInProgress {
		return 0, false, &core.StateError{Op: "advance round", State: string(m.state)}
	}
	if m.session.CurrentRoundIndex+1 >= len(m.session.Rounds) {
		return m.session.CurrentRoundIndex, true, nil
	}
	m.timer.Cancel()
	m.session.CurrentRoundIndex++
	m.touched = m.now()
	m.armLocked()
	return m.session.CurrentRoundIndex, false, nil
}

// Complete moves the session to Completed and returns its results.
func (m *SessionManager) Complete() ([]core.RoundResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateInProgress {
		return nil, &core.StateError{Op: "complete game", State: string(m.state)}
	}
	m.timer.Cancel()
	m.setStateLocked(StateCompleted, nil)
	return m.results.List(), nil
}

// Abort fails an in-progress session and discards it.
func (m *SessionManager) Abort(reason error) {
	if reason == nil {
		reason = errors.New("aborted")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateInProgress && m.state != StateLoading {
		return
	}
	m.failLocked(reason)
}

// ResetGame discards the session and its results from any state without
// persisting anything.
func (m *SessionManager) ResetGame() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timer.Cancel()
	m.setStateLocked(StateIdle, nil)
	m.session = nil
	m.results.Reset(m.settings.Rounds)
	m.hints = nil
	m.lastErr = nil
}

// Results returns the recorded results ordered by round index.
func (m *SessionManager) Results() []core.RoundResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.results.List()
}

// Result returns the result for roundIndex if one was recorded.
func (m *SessionManager) Result(roundIndex int) (core.RoundResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.results.Get(roundIndex)
}

// Round returns the round definition for roundIndex.
func (m *SessionManager) Round(roundIndex int) (core.RoundSpec, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return core.RoundSpec{}, &core.StateError{Op: "read round", State: string(m.state)}
	}
	if roundIndex < 0 || roundIndex >= len(m.session.Rounds) {
		return core.RoundSpec{}, &core.InvalidRoundIndexError{Index: roundIndex, Rounds: len(m.session.Rounds)}
	}
	return m.session.Rounds[roundIndex], nil
}

// Activity reports the current state and when the session last moved.
func (m *SessionManager) Activity() (State, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.touched
}

// RoundPlayed reports whether roundIndex is behind the player: an earlier
// round, one that already has a result, or any round of a completed game.
func (m *SessionManager) RoundPlayed(roundIndex int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return false
	}
	return m.state == StateCompleted || roundIndex < m.session.CurrentRoundIndex || m.results.Has(roundIndex)
}

// Snapshot returns the caller-facing view. The truth of unplayed rounds is
// not exposed beyond the current image.
func (m *SessionManager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Snapshot{
		ID:       m.id,
		UserID:   m.identity.UserID,
		State:    m.state,
		Settings: m.settings,
		Results:  m.results.List(),
	}
	if m.lastErr != nil {
		s.Error = m.lastErr.Error()
	}
	if m.session != nil {
		s.Rounds = len(m.session.Rounds)
		s.CurrentRoundIndex = m.session.CurrentRoundIndex
		img := m.session.Rounds[m.session.CurrentRoundIndex].Image
		s.CurrentImage = &img
		s.HintsRemaining = m.hints[m.session.CurrentRoundIndex].Remaining()
	}
	return s
}
