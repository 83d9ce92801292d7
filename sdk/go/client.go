package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"chronoguess/core"
)

// Option configures the Client.
type Option func(*Client)

// Client provides typed access to the chronoguess HTTP + WebSocket API.
type Client struct {
	baseURL    string
	wsURL      string
	httpClient *http.Client
	headers    http.Header
}

// NewClient constructs a new SDK client targeting the given baseURL (e.g., http://localhost:8080/api).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("baseURL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	c := &Client{
		baseURL:    baseURL,
		wsURL:      deriveWSURL(baseURL),
		httpClient: http.DefaultClient,
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithAuthToken adds an Authorization: Bearer token header to all requests (HTTP + WS).
func WithAuthToken(token string) Option {
	return func(c *Client) {
		if strings.TrimSpace(token) != "" {
			c.headers.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithAPIKey adds an X-API-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if strings.TrimSpace(key) != "" {
			c.headers.Set("X-API-Key", key)
		}
	}
}

// WithHeader sets an arbitrary header applied to HTTP and WS calls.
func WithHeader(k, v string) Option {
	return func(c *Client) {
		if k != "" {
			c.headers.Set(k, v)
		}
	}
}

// StartGame creates a new session.
func (c *Client) StartGame(ctx context.Context, req StartGameRequest) (Game, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return Game{}, ErrEmptyUserID
	}
	var g Game
	err := c.do(ctx, http.MethodPost, "/games", req, &g)
	return g, err
}

// Game fetches a session's public view.
func (c *Client) Game(ctx context.Context, sessionID string) (Game, error) {
	var g Game
	err := c.sessionCall(ctx, http.MethodGet, sessionID, "", nil, &g)
	return g, err
}

// SubmitGuess submits a guess for the 1-based round.
func (c *Client) SubmitGuess(ctx context.Context, sessionID string, round int, guess Guess) (GuessOutcome, error) {
	var out GuessOutcome
	err := c.sessionCall(ctx, http.MethodPost, sessionID, fmt.Sprintf("/rounds/%d/guess", round), guess, &out)
	return out, err
}

// UseHint reveals a hint for the 1-based round.
func (c *Client) UseHint(ctx context.Context, sessionID string, round int, hint core.HintType) (Hint, error) {
	var h Hint
	path := fmt.Sprintf("/rounds/%d/hints/%s", round, url.PathEscape(string(hint)))
	err := c.sessionCall(ctx, http.MethodPost, sessionID, path, nil, &h)
	return h, err
}

// RoundResult fetches the result of the 1-based round.
func (c *Client) RoundResult(ctx context.Context, sessionID string, round int) (RoundLookup, error) {
	var rl RoundLookup
	err := c.sessionCall(ctx, http.MethodGet, sessionID, fmt.Sprintf("/rounds/%d/result", round), nil, &rl)
	return rl, err
}

// Advance moves the session to its next round.
func (c *Client) Advance(ctx context.Context, sessionID string) (Advance, error) {
	var a Advance
	err := c.sessionCall(ctx, http.MethodPost, sessionID, "/advance", nil, &a)
	return a, err
}

// CompleteGame finalizes the session.
func (c *Client) CompleteGame(ctx context.Context, sessionID string) (Summary, error) {
	var s Summary
	err := c.sessionCall(ctx, http.MethodPost, sessionID, "/complete", nil, &s)
	return s, err
}

// ResetGame discards the session.
func (c *Client) ResetGame(ctx context.Context, sessionID string) error {
	return c.sessionCall(ctx, http.MethodDelete, sessionID, "", nil, nil)
}

// Metrics fetches a player's lifetime metrics.
func (c *Client) Metrics(ctx context.Context, userID string, guest bool) (PlayerMetrics, error) {
	var m PlayerMetrics
	err := c.userCall(ctx, userID, "metrics", guest, &m)
	return m, err
}

// Badges evaluates the badge catalog for a player.
func (c *Client) Badges(ctx context.Context, userID string, guest bool) ([]core.BadgeEvaluation, error) {
	var body struct {
		Badges []core.BadgeEvaluation `json:"badges"`
	}
	err := c.userCall(ctx, userID, "badges", guest, &body)
	return body.Badges, err
}

// Leaderboard fetches the top n players.
func (c *Client) Leaderboard(ctx context.Context, n int) (Leaderboard, error) {
	path := "/leaderboard"
	if n > 0 {
		path += "?n=" + strconv.Itoa(n)
	}
	var lb Leaderboard
	err := c.do(ctx, http.MethodGet, path, nil, &lb)
	return lb, err
}

// Health probes /healthz. An unhealthy server returns its status with an *APIError.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return HealthStatus{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return HealthStatus{}, err
	}
	defer resp.Body.Close()

	var hs HealthStatus
	if resp.StatusCode == http.StatusServiceUnavailable {
		if err := json.NewDecoder(resp.Body).Decode(&hs); err != nil {
			return HealthStatus{}, err
		}
		return hs, &APIError{Status: resp.StatusCode, Code: "unhealthy", Message: hs.Status}
	}
	if err := decodeJSON(resp, &hs); err != nil {
		return HealthStatus{}, err
	}
	return hs, nil
}

// EventFilter narrows the event stream.
type EventFilter struct {
	UserID    string
	SessionID string
}

// SubscribeEvents connects to the WebSocket stream and emits core.Event values.
// The returned channel closes when ctx is done or the connection drops.
func (c *Client) SubscribeEvents(ctx context.Context, filter EventFilter) (<-chan core.Event, error) {
	if c.wsURL == "" {
		return nil, errors.New("wsURL is not set; ensure baseURL is http/https")
	}
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	if filter.UserID != "" {
		q.Set("user", filter.UserID)
	}
	if filter.SessionID != "" {
		q.Set("session", filter.SessionID)
	}
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, u.String(), c.headers)
	if err != nil {
		return nil, err
	}

	out := make(chan core.Event, 32)
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			var evt core.Event
			if err := conn.ReadJSON(&evt); err != nil {
				return
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			default:
				// drop if consumer is slow
			}
		}
	}()
	return out, nil
}

func (c *Client) sessionCall(ctx context.Context, method, sessionID, suffix string, body, target any) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrEmptySessionID
	}
	return c.do(ctx, method, "/games/"+url.PathEscape(sessionID)+suffix, body, target)
}

func (c *Client) userCall(ctx context.Context, userID, resource string, guest bool, target any) error {
	if strings.TrimSpace(userID) == "" {
		return ErrEmptyUserID
	}
	path := fmt.Sprintf("/users/%s/%s", url.PathEscape(userID), resource)
	if guest {
		path += "?guest=true"
	}
	return c.do(ctx, http.MethodGet, path, nil, target)
}

func (c *Client) do(ctx context.Context, method, path string, body, target any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeJSON(resp, target)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.applyHeaders(req)
	return req, nil
}

func (c *Client) applyHeaders(r *http.Request) {
	for k, vals := range c.headers {
		for _, v := range vals {
			r.Header.Add(k, v)
		}
	}
}

func deriveWSURL(httpBase string) string {
	u, err := url.Parse(httpBase)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		// leave as-is for custom schemes
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}
