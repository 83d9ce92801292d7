package websocket

import (
	"log/slog"
	"net/http"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"chronoguess/core"
	"chronoguess/realtime"
)

const (
	writeWait  = 5 * time.Second
	pingPeriod = 30 * time.Second
)

// Handler returns an http.Handler that upgrades to WebSocket and streams game
// events from the hub. The optional user and session query parameters narrow
// the stream to one player or one game.
func Handler(hub *realtime.Hub, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	upgrader := gorillaws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		filter := filterFor(r)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Debug("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()
		id, ch := hub.Subscribe(256, filter)
		defer hub.Unsubscribe(id)

		// reader goroutine notices client close
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.NextReader(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(pingPeriod)
		defer ping.Stop()
		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(gorillaws.TextMessage, realtime.MarshalJSON(ev)); err != nil {
					return
				}
			case <-ping.C:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(gorillaws.PingMessage, nil); err != nil {
					return
				}
			case <-closed:
				return
			}
		}
	})
}

func filterFor(r *http.Request) realtime.Filter {
	user := core.UserID(r.URL.Query().Get("user"))
	session := core.SessionID(r.URL.Query().Get("session"))
	if user != "" {
		if u, err := core.NormalizeUserID(user); err == nil {
			user = u
		}
	}
	switch {
	case user == "" && session == "":
		return nil
	case session == "":
		return realtime.ForUser(user)
	case user == "":
		return realtime.ForSession(session)
	default:
		return func(e core.Event) bool { return e.UserID == user && e.SessionID == session }
	}
}
