package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"chronoguess/core"
	"chronoguess/engine"
	"chronoguess/leaderboard"
)

const maxBodyBytes = 1 << 16

type startRequest struct {
	UserID        string `json:"user_id"`
	Guest         bool   `json:"guest"`
	Mode          string `json:"mode,omitempty"`
	HintsAllowed  *int   `json:"hints_allowed,omitempty"`
	RoundTimerSec *int   `json:"round_timer_sec,omitempty"`
}

type guessRequest struct {
	Lat  *float64 `json:"lat,omitempty"`
	Lng  *float64 `json:"lng,omitempty"`
	Year *int     `json:"year,omitempty"`
}

// publicImage is the current round's photo without its answer.
type publicImage struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type gameView struct {
	SessionID      core.SessionID     `json:"session_id"`
	UserID         core.UserID        `json:"user_id"`
	State          engine.State       `json:"state"`
	Mode           engine.GameMode    `json:"mode"`
	Rounds         int                `json:"rounds"`
	HintsAllowed   int                `json:"hints_allowed"`
	RoundTimerSec  int                `json:"round_timer_sec"`
	CurrentRound   int                `json:"current_round"`
	CurrentImage   *publicImage       `json:"current_image,omitempty"`
	HintsRemaining int                `json:"hints_remaining"`
	Results        []core.RoundResult `json:"results"`
	Error          string             `json:"error,omitempty"`
}

func viewOf(s engine.Snapshot) gameView {
	v := gameView{
		SessionID:      s.ID,
		UserID:         s.UserID,
		State:          s.State,
		Mode:           s.Settings.Mode,
		Rounds:         s.Rounds,
		HintsAllowed:   s.Settings.HintsAllowed,
		RoundTimerSec:  int(s.Settings.RoundTimer / time.Second),
		CurrentRound:   s.CurrentRoundIndex + 1,
		HintsRemaining: s.HintsRemaining,
		Results:        s.Results,
		Error:          s.Error,
	}
	if v.Results == nil {
		v.Results = []core.RoundResult{}
	}
	if s.CurrentImage != nil {
		v.CurrentImage = &publicImage{ID: s.CurrentImage.ID, URL: s.CurrentImage.URL}
	}
	return v
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (a *api) startGame(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body", err.Error())
		return
	}
	user, err := core.NormalizeUserID(core.UserID(req.UserID))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "user_id is required", nil)
		return
	}
	opts := engine.StartOptions{Mode: engine.GameMode(req.Mode), HintsAllowed: req.HintsAllowed}
	if opts.Mode != "" {
		if _, err := engine.SettingsForMode(opts.Mode); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err.Error(), nil)
			return
		}
	}
	if req.HintsAllowed != nil && *req.HintsAllowed < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "hints_allowed must not be negative", nil)
		return
	}
	if req.RoundTimerSec != nil {
		if *req.RoundTimerSec < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", "round_timer_sec must not be negative", nil)
			return
		}
		d := time.Duration(*req.RoundTimerSec) * time.Second
		opts.RoundTimer = &d
	}

	snap, err := a.svc.StartGame(r.Context(), core.Identity{UserID: user, IsGuest: req.Guest}, opts)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, viewOf(snap))
}

func (a *api) getGame(w http.ResponseWriter, r *http.Request) {
	snap, err := a.svc.Session(sessionID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, viewOf(snap))
}

func (a *api) resetGame(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.ResetGame(r.Context(), sessionID(r)); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) submitGuess(w http.ResponseWriter, r *http.Request) {
	n, ok := roundNumber(w, r)
	if !ok {
		return
	}
	var req guessRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body", err.Error())
		return
	}
	if (req.Lat == nil) != (req.Lng == nil) {
		writeError(w, http.StatusBadRequest, "bad_request", "lat and lng must be sent together", nil)
		return
	}
	guess := core.Guess{Year: req.Year}
	if req.Lat != nil {
		c := core.GuessCoordinates{Lat: *req.Lat, Lng: *req.Lng}
		if !c.Valid() {
			writeError(w, http.StatusBadRequest, "bad_request", "coordinates out of range", nil)
			return
		}
		guess.Coordinates = &c
	}

	out, err := a.svc.SubmitGuess(r.Context(), sessionID(r), n, guess)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, out)
}

func (a *api) useHint(w http.ResponseWriter, r *http.Request) {
	n, ok := roundNumber(w, r)
	if !ok {
		return
	}
	hint := core.HintType(chi.URLParam(r, "hintType"))
	if !hint.Valid() {
		writeError(w, http.StatusBadRequest, "unknown_hint", fmt.Sprintf("unknown hint type %q", hint), nil)
		return
	}
	text, err := a.svc.UseHint(r.Context(), sessionID(r), n, hint)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"round_number": n, "hint": hint, "text": text})
}

func (a *api) roundResult(w http.ResponseWriter, r *http.Request) {
	n, ok := roundNumber(w, r)
	if !ok {
		return
	}
	res, source, err := a.svc.RoundResult(r.Context(), sessionID(r), n)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"source": source, "result": res})
}

func (a *api) advance(w http.ResponseWriter, r *http.Request) {
	out, err := a.svc.Advance(r.Context(), sessionID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, out)
}

func (a *api) complete(w http.ResponseWriter, r *http.Request) {
	summary, err := a.svc.CompleteGame(r.Context(), sessionID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, summary)
}

func (a *api) userMetrics(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	m, global, err := a.svc.Metrics(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"user_id": id.UserID, "metrics": m, "global": global})
}

func (a *api) userBadges(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	evals, err := a.svc.Badges(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"user_id": id.UserID, "badges": evals})
}

func (a *api) leaderboard(w http.ResponseWriter, r *http.Request) {
	if a.board == nil {
		writeError(w, http.StatusNotFound, "not_found", "leaderboard disabled", nil)
		return
	}
	n := 10
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 || v > 100 {
			writeError(w, http.StatusBadRequest, "bad_request", "n must be between 1 and 100", nil)
			return
		}
		n = v
	}
	entries := a.board.TopN(n)
	if entries == nil {
		entries = []leaderboard.Entry{}
	}
	writeJSON(w, map[string]any{"entries": entries, "total": a.board.Len()})
}

func sessionID(r *http.Request) core.SessionID {
	return core.SessionID(chi.URLParam(r, "sessionID"))
}

func roundNumber(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "roundNumber"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "round number must be an integer", nil)
		return 0, false
	}
	return n, true
}

func identity(w http.ResponseWriter, r *http.Request) (core.Identity, bool) {
	user, err := core.NormalizeUserID(core.UserID(chi.URLParam(r, "userID")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "user id is required", nil)
		return core.Identity{}, false
	}
	guest, _ := strconv.ParseBool(r.URL.Query().Get("guest"))
	return core.Identity{UserID: user, IsGuest: guest}, true
}
