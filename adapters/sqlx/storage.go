package sqlx

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"chronoguess/core"
)

// Driver names a supported database/sql driver.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Config holds SQL connection configuration
type Config struct {
	Driver          Driver        `json:"driver" env:"DRIVER"`
	DSN             string        `json:"dsn" env:"DSN"`
	MaxOpenConns    int           `json:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `json:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// DefaultConfig returns pool defaults for driver.
func DefaultConfig(driver Driver) Config {
	cfg := Config{Driver: driver, MaxOpenConns: 10, MaxIdleConns: 5, ConnMaxLifetime: 30 * time.Minute}
	if driver == DriverSQLite {
		// one writer avoids SQLITE_BUSY under concurrent requests
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
		cfg.DSN = "file:chronoguess.db?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
	}
	return cfg
}

// Store implements the engine.Storage interface on PostgreSQL or SQLite.
type Store struct {
	db     *sqlx.DB
	driver Driver
	now    func() time.Time
}

// New opens a connection pool and verifies it.
func New(cfg Config) (*Store, error) {
	if cfg.Driver != DriverPostgres && cfg.Driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported sql driver %q", cfg.Driver)
	}
	db, err := sqlx.Connect(string(cfg.Driver), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return NewWithDB(db, cfg.Driver), nil
}

// NewWithDB wraps an existing handle (useful for testing).
func NewWithDB(db *sqlx.DB, driver Driver) *Store {
	return &Store{db: db, driver: driver, now: time.Now}
}

// DB exposes the handle so other adapters can share the pool.
func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Migrate applies the embedded schema files in lexical order. Every statement
// is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		body, err := migrationsFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

func persistErr(op string, err error) error {
	return &core.PersistenceError{Op: op, Err: err}
}

func (s *Store) SaveRoundResult(ctx context.Context, session core.SessionID, user core.UserID, result core.RoundResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	q := s.db.Rebind(`INSERT INTO round_results (session_id, round_number, user_id, payload, recorded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (session_id, round_number) DO UPDATE SET
			user_id = excluded.user_id, payload = excluded.payload, recorded_at = excluded.recorded_at`)
	if _, err := s.db.ExecContext(ctx, q, string(session), result.RoundNumber(), string(user), string(payload), s.now().UTC()); err != nil {
		return persistErr("save round result", err)
	}
	return nil
}

func (s *Store) LoadRoundResult(ctx context.Context, session core.SessionID, roundIndex int) (core.RoundResult, error) {
	var payload string
	q := s.db.Rebind(`SELECT payload FROM round_results WHERE session_id = ? AND round_number = ?`)
	err := s.db.GetContext(ctx, &payload, q, string(session), roundIndex+1)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RoundResult{}, fmt.Errorf("round %d of %s: %w", roundIndex+1, session, core.ErrNotFound)
	}
	if err != nil {
		return core.RoundResult{}, persistErr("load round result", err)
	}
	var r core.RoundResult
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return core.RoundResult{}, persistErr("decode round result", err)
	}
	return r, nil
}

type summaryRow struct {
	SessionID   string    `db:"session_id"`
	UserID      string    `db:"user_id"`
	Rounds      int       `db:"rounds"`
	Recorded    int       `db:"recorded"`
	Accuracy    int       `db:"accuracy"`
	XP          float64   `db:"xp"`
	CompletedAt time.Time `db:"completed_at"`
}

func (s *Store) MarkSessionComplete(ctx context.Context, summary core.SessionSummary) error {
	row := summaryRow{
		SessionID:   string(summary.SessionID),
		UserID:      string(summary.UserID),
		Rounds:      summary.Rounds,
		Recorded:    summary.Recorded,
		Accuracy:    summary.Accuracy,
		XP:          summary.XP,
		CompletedAt: summary.CompletedAt.UTC(),
	}
	q := `INSERT INTO session_summaries (session_id, user_id, rounds, recorded, accuracy, xp, completed_at)
		VALUES (:session_id, :user_id, :rounds, :recorded, :accuracy, :xp, :completed_at)
		ON CONFLICT (session_id) DO NOTHING`
	if _, err := s.db.NamedExecContext(ctx, q, row); err != nil {
		return persistErr("mark session complete", err)
	}
	return nil
}

func (s *Store) GetMetrics(ctx context.Context, user core.UserID) (core.UserMetrics, error) {
	var payload string
	q := s.db.Rebind(`SELECT payload FROM user_metrics WHERE user_id = ?`)
	err := s.db.GetContext(ctx, &payload, q, string(user))
	if errors.Is(err, sql.ErrNoRows) {
		return core.UserMetrics{}, fmt.Errorf("metrics for %s: %w", user, core.ErrNotFound)
	}
	if err != nil {
		return core.UserMetrics{}, persistErr("get metrics", err)
	}
	var m core.UserMetrics
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return core.UserMetrics{}, persistErr("decode metrics", err)
	}
	return m.Coerce(), nil
}

func (s *Store) SaveMetrics(ctx context.Context, user core.UserID, metrics core.UserMetrics) error {
	m := metrics.Clone()
	m.Version = core.MetricsVersion
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	q := s.db.Rebind(`INSERT INTO user_metrics (user_id, version, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			version = excluded.version, payload = excluded.payload, updated_at = excluded.updated_at`)
	if _, err := s.db.ExecContext(ctx, q, string(user), m.Version, string(payload), s.now().UTC()); err != nil {
		return persistErr("save metrics", err)
	}
	return nil
}

func (s *Store) EarnedBadges(ctx context.Context, user core.UserID) (core.EarnedSet, error) {
	var ids []string
	q := s.db.Rebind(`SELECT badge_id FROM user_badges WHERE user_id = ?`)
	if err := s.db.SelectContext(ctx, &ids, q, string(user)); err != nil {
		return nil, persistErr("get badges", err)
	}
	set := core.NewEarnedSet()
	for _, id := range ids {
		set.Add(core.BadgeID(id))
	}
	return set, nil
}

// AwardBadge inserts the badge unless present; the affected row count tells
// whether it was new.
func (s *Store) AwardBadge(ctx context.Context, user core.UserID, badge core.BadgeID) (bool, error) {
	if err := core.ValidateBadgeID(badge); err != nil {
		return false, err
	}
	q := s.db.Rebind(`INSERT INTO user_badges (user_id, badge_id, awarded_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id, badge_id) DO NOTHING`)
	res, err := s.db.ExecContext(ctx, q, string(user), string(badge), s.now().UTC())
	if err != nil {
		return false, persistErr("award badge", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, persistErr("award badge", err)
	}
	return n == 1, nil
}
