package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"chronoguess/core"
)

// DefaultEvents are forwarded when no filter is configured.
var DefaultEvents = []core.EventType{core.EventGameCompleted, core.EventBadgeAwarded}

// Sink posts game events to configured HTTP endpoints.
// It is synchronous for determinism; attach it to an async bus for production.
type Sink struct {
	client    *http.Client
	endpoints []string
	events    []core.EventType
	logger    *slog.Logger
}

// Option configures a Sink.
type Option func(*Sink)

// WithClient overrides the HTTP client (defaults to 2s timeout).
func WithClient(c *http.Client) Option {
	return func(s *Sink) {
		if c != nil {
			s.client = c
		}
	}
}

// WithEvents limits the forwarded event types.
func WithEvents(types ...core.EventType) Option {
	return func(s *Sink) {
		if len(types) > 0 {
			s.events = append([]core.EventType{}, types...)
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a webhook sink.
func New(endpoints []string, opts ...Option) *Sink {
	s := &Sink{
		client: &http.Client{Timeout: 2 * time.Second},
		events: DefaultEvents,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.endpoints = append([]string{}, endpoints...)
	return s
}

// OnEvent posts the event JSON to all endpoints. Delivery failures are logged
// and never reach the game.
func (s *Sink) OnEvent(e core.Event) {
	if len(s.endpoints) == 0 || !slices.Contains(s.events, e.Type) {
		return
	}
	body, err := json.Marshal(e)
	if err != nil {
		s.logger.Warn("webhook encode failed", "type", e.Type, "error", err)
		return
	}
	for _, ep := range s.endpoints {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, ep, bytes.NewReader(body))
		if err != nil {
			s.logger.Warn("webhook request invalid", "endpoint", ep, "error", err)
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Chronoguess-Event", string(e.Type))
		resp, err := s.client.Do(req)
		if err != nil {
			s.logger.Warn("webhook delivery failed", "endpoint", ep, "type", e.Type, "error", err)
			continue
		}
		_ = resp.Body.Close()
		if resp.StatusCode >= 300 {
			s.logger.Warn("webhook rejected", "endpoint", ep, "type", e.Type, "status", resp.StatusCode)
		}
	}
}
