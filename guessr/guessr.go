// Package guessr assembles a ready-to-use GameService with sensible defaults.
package guessr

import (
	"log/slog"

	"chronoguess/adapters/local"
	mem "chronoguess/adapters/memory"
	"chronoguess/catalog"
	"chronoguess/core"
	"chronoguess/engine"
	"chronoguess/realtime"
)

// Option configures the builder.
type Option func(*config)

type config struct {
	remote      engine.Storage
	noRemote    bool
	local       engine.LocalStore
	images      engine.ImageCatalog
	source      catalog.Source
	mode        engine.DispatchMode
	hub         *realtime.Hub
	hooks       []engine.Hook
	logger      *slog.Logger
	serviceOpts []engine.ServiceOption
}

// WithRemote sets the remote persistence adapter for registered players.
func WithRemote(s engine.Storage) Option { return func(c *config) { c.remote = s } }

// WithoutRemote serves every player from the local store.
func WithoutRemote() Option { return func(c *config) { c.noRemote = true } }

// WithLocal sets the device-local store used for guests and fallback snapshots.
func WithLocal(s engine.LocalStore) Option { return func(c *config) { c.local = s } }

// WithImages sets the image catalog directly.
func WithImages(images engine.ImageCatalog) Option { return func(c *config) { c.images = images } }

// WithImageSource wraps src in a placeholder-backed catalog chain.
func WithImageSource(src catalog.Source) Option { return func(c *config) { c.source = src } }

// WithDispatchMode selects sync or async event dispatch.
func WithDispatchMode(m engine.DispatchMode) Option { return func(c *config) { c.mode = m } }

// WithRealtime wires a realtime hub to receive all engine events.
func WithRealtime(h *realtime.Hub) Option { return func(c *config) { c.hub = h } }

// WithHooks attaches hooks that observe every event.
func WithHooks(hooks ...engine.Hook) Option {
	return func(c *config) { c.hooks = append(c.hooks, hooks...) }
}

func WithLogger(l *slog.Logger) Option { return func(c *config) { c.logger = l } }

// WithServiceOptions passes options through to engine.NewGameService.
func WithServiceOptions(opts ...engine.ServiceOption) Option {
	return func(c *config) { c.serviceOpts = append(c.serviceOpts, opts...) }
}

// New builds a configured GameService. If not provided, defaults are used:
//   - remote storage: in-memory
//   - local storage: in-memory key-value
//   - images: placeholder set only
//   - dispatch: async
func New(opts ...Option) *engine.GameService {
	cfg := &config{mode: engine.DispatchAsync, logger: slog.Default()}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.remote == nil && !cfg.noRemote {
		cfg.remote = mem.New()
	}
	if cfg.noRemote {
		cfg.remote = nil
	}
	if cfg.local == nil {
		cfg.local = local.New(nil)
	}
	if cfg.images == nil {
		src := cfg.source
		if src == nil {
			src = catalog.NewMemory()
		}
		cfg.images = catalog.NewChain(src, cfg.logger)
	}

	bus := engine.NewEventBus(cfg.mode)
	svcOpts := append([]engine.ServiceOption{engine.WithServiceLogger(cfg.logger)}, cfg.serviceOpts...)
	svc := engine.NewGameService(cfg.remote, cfg.local, cfg.images, bus, svcOpts...)
	if cfg.hub != nil {
		svc.AddHook(cfg.hub)
	}
	for _, h := range cfg.hooks {
		if h != nil {
			svc.AddHook(h)
		}
	}
	return svc
}

// HookFunc adapts a plain function to engine.Hook.
type HookFunc func(core.Event)

func (f HookFunc) OnEvent(e core.Event) { f(e) }
