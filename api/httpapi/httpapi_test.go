package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronoguess/core"
	"chronoguess/engine"
	"chronoguess/guessr"
	"chronoguess/leaderboard"
)

type fixture struct {
	svc     *engine.GameService
	board   *leaderboard.SkipList
	handler http.Handler
}

func newFixture(t *testing.T, opts Options, svcOpts ...engine.ServiceOption) *fixture {
	t.Helper()
	board := leaderboard.NewSkipList()
	svc := guessr.New(
		guessr.WithDispatchMode(engine.DispatchSync),
		guessr.WithHooks(leaderboard.NewTracker(board)),
		guessr.WithServiceOptions(svcOpts...),
	)
	t.Cleanup(svc.Close)
	if opts.PathPrefix == "" {
		opts.PathPrefix = "/api"
	}
	opts.Leaderboard = board
	return &fixture{svc: svc, board: board, handler: NewMux(svc, nil, opts)}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) start(t *testing.T, body map[string]any) gameView {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/games", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var v gameView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestStartGameHidesAnswer(t *testing.T) {
	f := newFixture(t, Options{})
	rec := f.do(t, http.MethodPost, "/api/games", map[string]any{"user_id": " Alice ", "mode": "timed"})
	require.Equal(t, http.StatusCreated, rec.Code)

	v := decode[gameView](t, rec)
	assert.Equal(t, core.UserID("alice"), v.UserID)
	assert.Equal(t, engine.StateInProgress, v.State)
	assert.Equal(t, engine.ModeTimed, v.Mode)
	assert.Equal(t, 5, v.Rounds)
	assert.Equal(t, 2, v.HintsAllowed)
	assert.Equal(t, 60, v.RoundTimerSec)
	assert.Equal(t, 1, v.CurrentRound)
	require.NotNil(t, v.CurrentImage)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	img := raw["current_image"].(map[string]any)
	assert.NotContains(t, img, "year")
	assert.NotContains(t, img, "latitude")
	assert.NotContains(t, img, "location_name")
}

func TestStartGameValidation(t *testing.T) {
	f := newFixture(t, Options{})
	cases := []struct {
		name string
		body any
	}{
		{"missing user", map[string]any{"user_id": "  "}},
		{"unknown mode", map[string]any{"user_id": "a", "mode": "blitz"}},
		{"negative hints", map[string]any{"user_id": "a", "hints_allowed": -1}},
		{"negative timer", map[string]any{"user_id": "a", "round_timer_sec": -5}},
		{"unknown field", map[string]any{"user_id": "a", "rounds": 3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/games", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestFullGameFlow(t *testing.T) {
	f := newFixture(t, Options{})
	v := f.start(t, map[string]any{"user_id": "bob"})
	base := "/api/games/" + string(v.SessionID)

	for n := 1; n <= v.Rounds; n++ {
		snap, err := f.svc.Session(v.SessionID)
		require.NoError(t, err)
		img := snap.CurrentImage
		rec := f.do(t, http.MethodPost, fmt.Sprintf("%s/rounds/%d/guess", base, n),
			map[string]any{"lat": img.Latitude, "lng": img.Longitude, "year": img.Year})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		out := decode[engine.SubmitOutcome](t, rec)
		assert.True(t, out.Accepted)
		assert.Equal(t, 1000.0, out.Result.Score)

		rec = f.do(t, http.MethodPost, base+"/advance", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		adv := decode[engine.AdvanceOutcome](t, rec)
		assert.Equal(t, n == v.Rounds, adv.Last)
	}

	rec := f.do(t, http.MethodGet, base+"/rounds/2/result", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[struct {
		Source string           `json:"source"`
		Result core.RoundResult `json:"result"`
	}](t, rec)
	assert.Equal(t, engine.SourceSession, res.Source)
	assert.Equal(t, 1, res.Result.RoundIndex)

	rec = f.do(t, http.MethodPost, base+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sum := decode[engine.GameSummary](t, rec)
	assert.Equal(t, 100, sum.Accuracy)
	assert.Len(t, sum.Results, v.Rounds)

	// completing twice is a state conflict
	rec = f.do(t, http.MethodPost, base+"/complete", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/leaderboard?n=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	lb := decode[struct {
		Entries []leaderboard.Entry `json:"entries"`
		Total   int                 `json:"total"`
	}](t, rec)
	require.Len(t, lb.Entries, 1)
	assert.Equal(t, core.UserID("bob"), lb.Entries[0].User)
	assert.Equal(t, 1, lb.Entries[0].Rank)
	assert.Equal(t, 1, lb.Entries[0].GamesPlayed)
	assert.Equal(t, 100, lb.Entries[0].LastAccuracy)

	rec = f.do(t, http.MethodGet, "/api/users/Bob/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var metrics struct {
		Metrics core.UserMetrics `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metrics))
	assert.Equal(t, 1.0, metrics.Metrics.Get(core.ReqGamesPlayed))

	rec = f.do(t, http.MethodGet, "/api/users/bob/badges", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"badges"`)
}

func TestGuessValidation(t *testing.T) {
	f := newFixture(t, Options{})
	v := f.start(t, map[string]any{"user_id": "carol"})
	base := "/api/games/" + string(v.SessionID)

	rec := f.do(t, http.MethodPost, base+"/rounds/1/guess", map[string]any{"lat": 10.0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, base+"/rounds/1/guess", map[string]any{"lat": 95.0, "lng": 0.0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, base+"/rounds/one/guess", map[string]any{"year": 1950})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// year-only guesses are accepted and score on time alone
	rec = f.do(t, http.MethodPost, base+"/rounds/1/guess", map[string]any{"year": 1950})
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[engine.SubmitOutcome](t, rec)
	assert.Nil(t, out.Result.DistanceKm)
}

func TestInvalidRoundStrictAndLenient(t *testing.T) {
	strict := newFixture(t, Options{}, engine.WithStrict(true))
	v := strict.start(t, map[string]any{"user_id": "dan"})
	rec := strict.do(t, http.MethodPost, "/api/games/"+string(v.SessionID)+"/rounds/9/guess", map[string]any{"year": 1900})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_round")

	lenient := newFixture(t, Options{})
	v = lenient.start(t, map[string]any{"user_id": "dan"})
	rec = lenient.do(t, http.MethodPost, "/api/games/"+string(v.SessionID)+"/rounds/9/guess", map[string]any{"year": 1900})
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[engine.SubmitOutcome](t, rec)
	assert.False(t, out.Accepted)
}

func TestHints(t *testing.T) {
	f := newFixture(t, Options{})
	v := f.start(t, map[string]any{"user_id": "erin", "mode": "expert"})
	base := "/api/games/" + string(v.SessionID) + "/rounds/1/hints/"

	rec := f.do(t, http.MethodPost, base+"when", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"text"`)

	rec = f.do(t, http.MethodPost, base+"when", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "hint_already_used")

	rec = f.do(t, http.MethodPost, base+"where", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "hint_unavailable")

	rec = f.do(t, http.MethodPost, base+"who", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetAndUnknownSession(t *testing.T) {
	f := newFixture(t, Options{})
	v := f.start(t, map[string]any{"user_id": "fay", "guest": true})

	rec := f.do(t, http.MethodDelete, "/api/games/"+string(v.SessionID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/games/"+string(v.SessionID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/games/nope/advance", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoundResultHidesUnplayedRounds(t *testing.T) {
	f := newFixture(t, Options{})
	v := f.start(t, map[string]any{"user_id": "gil"})
	base := "/api/games/" + string(v.SessionID)

	for _, n := range []int{1, 5} {
		rec := f.do(t, http.MethodGet, fmt.Sprintf("%s/rounds/%d/result", base, n), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
		assert.NotContains(t, rec.Body.String(), "actual_coordinates")
		assert.NotContains(t, rec.Body.String(), "actual_year")
	}

	// a skipped round is behind the player and may be shown
	rec := f.do(t, http.MethodPost, base+"/advance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodGet, base+"/rounds/1/result", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[struct {
		Source string           `json:"source"`
		Result core.RoundResult `json:"result"`
	}](t, rec)
	assert.Equal(t, engine.SourcePlaceholder, out.Source)
	assert.Equal(t, 0.0, out.Result.Score)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", core.ErrSessionNotFound), http.StatusNotFound},
		{&core.StateError{Op: "advance", State: "completed"}, http.StatusConflict},
		{&core.InvalidRoundIndexError{Index: 7, Rounds: 5}, http.StatusBadRequest},
		{&core.InsufficientContentError{Needed: 5, Available: 2}, http.StatusServiceUnavailable},
		{&core.PersistenceError{Op: "save", Err: errors.New("down")}, http.StatusServiceUnavailable},
		{core.ErrMissingGuess, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		got, _ := statusFor(tc.err)
		assert.Equal(t, tc.want, got, tc.err.Error())
	}
}

func TestLeaderboardValidation(t *testing.T) {
	f := newFixture(t, Options{})
	rec := f.do(t, http.MethodGet, "/api/leaderboard?n=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/leaderboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"entries":[]`)
}

func TestAPIKeyAuth(t *testing.T) {
	f := newFixture(t, Options{APIKeys: []string{"secret"}})

	req := httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// health stays open
	req = httptest.NewRequest(http.MethodGet, "/api/healthz", nil)
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, Options{AllowCORSOrigin: "*", APIKeys: []string{"secret"}})
	req := httptest.NewRequest(http.MethodOptions, "/api/games", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.True(t, strings.Contains(rec.Header().Get("Access-Control-Allow-Headers"), "X-API-Key"))
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, Options{RateLimitEnabled: true, RateLimitRPM: 1, RateLimitBurst: 1})

	req := httptest.NewRequest(http.MethodGet, "/api/healthz", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/healthz", nil)
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimiterSweepsIdleClients(t *testing.T) {
	l := newRateLimiter(60, 1, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))
	assert.True(t, l.allow("b"))
	assert.Equal(t, 2, l.size())

	now = now.Add(2 * time.Minute)
	assert.True(t, l.allow("c"))
	assert.Equal(t, 1, l.size())
}

func TestHealthChecks(t *testing.T) {
	f := newFixture(t, Options{HealthChecks: map[string]func(context.Context) error{
		"redis": func(context.Context) error { return errors.New("down") },
	}})
	rec := f.do(t, http.MethodGet, "/api/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"failed"`)
}
