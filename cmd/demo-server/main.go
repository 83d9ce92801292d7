package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"chronoguess/api/httpapi"
	"chronoguess/catalog"
	"chronoguess/core"
	"chronoguess/engine"
	"chronoguess/guessr"
	"chronoguess/leaderboard"
	"chronoguess/realtime"
)

// sampleImages seeds the demo catalog so games do not fall back to placeholders.
var sampleImages = []core.ImageMeta{
	{ID: "moon-landing", Title: "Apollo 11 launch", Year: 1969, Latitude: 28.573, Longitude: -80.649, LocationName: "Cape Canaveral, USA", URL: "/img/apollo11.jpg", Ready: true},
	{ID: "berlin-wall", Title: "Fall of the Berlin Wall", Year: 1989, Latitude: 52.516, Longitude: 13.378, LocationName: "Berlin, Germany", URL: "/img/berlin.jpg", Ready: true},
	{ID: "golden-gate", Title: "Golden Gate Bridge opening", Year: 1937, Latitude: 37.819, Longitude: -122.478, LocationName: "San Francisco, USA", URL: "/img/goldengate.jpg", Ready: true},
	{ID: "panama-canal", Title: "Panama Canal first transit", Year: 1914, Latitude: 9.080, Longitude: -79.680, LocationName: "Panama", URL: "/img/panama.jpg", Ready: true},
	{ID: "tokyo-olympics", Title: "Tokyo Summer Olympics", Year: 1964, Latitude: 35.678, Longitude: 139.715, LocationName: "Tokyo, Japan", URL: "/img/tokyo64.jpg", Ready: true},
	{ID: "eiffel-tower", Title: "Eiffel Tower under construction", Year: 1888, Latitude: 48.858, Longitude: 2.294, LocationName: "Paris, France", URL: "/img/eiffel.jpg", Ready: true},
}

func main() {
	// Use readable text logging for development/demo
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	logger := slog.New(textHandler)
	slog.SetDefault(logger)

	hub := realtime.NewHub()
	board := leaderboard.NewSkipList()
	svc := guessr.New(
		guessr.WithImageSource(catalog.NewMemory(sampleImages...)),
		guessr.WithRealtime(hub),
		guessr.WithHooks(
			leaderboard.NewTracker(board),
			guessr.HookFunc(func(e core.Event) {
				if e.Type == core.EventGameCompleted {
					logger.Info("demo game finished", "user_id", e.UserID, "accuracy", e.Accuracy, "xp_total", e.XPTotal)
				}
			}),
		),
		guessr.WithLogger(logger),
		guessr.WithServiceOptions(engine.WithStrict(true)),
	)
	defer svc.Close()
	go svc.RunSweeper(context.Background(), time.Minute)

	handler := httpapi.NewMux(svc, hub, httpapi.Options{
		PathPrefix:      "/api",
		AllowCORSOrigin: "*",
		Leaderboard:     board,
		Logger:          logger,
		HealthChecks: map[string]func(context.Context) error{
			"catalog": func(ctx context.Context) error {
				_, err := catalog.NewMemory(sampleImages...).Images(ctx, true)
				return err
			},
		},
	})

	slog.Info("starting demo server on :8080", "images", len(sampleImages))

	if err := http.ListenAndServe(":8080", handler); err != nil {
		slog.Error("demo server crashed", "error", err)
		os.Exit(1)
	}
}
