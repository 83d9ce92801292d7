package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"chronoguess/core"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration
type Config struct {
	// URL, when set, takes precedence over Addr/Password/DB.
	URL          string        `json:"url" env:"URL"`
	Addr         string        `json:"addr" env:"ADDR"`
	Password     string        `json:"password" env:"PASSWORD"`
	DB           int           `json:"db" env:"DB"`
	PoolSize     int           `json:"pool_size" env:"POOL_SIZE"`
	MinIdleConns int           `json:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	DialTimeout  time.Duration `json:"dial_timeout" env:"DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `json:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout time.Duration `json:"write_timeout" env:"WRITE_TIMEOUT"`
	// SessionTTL bounds how long per-game keys are kept; 0 keeps them forever.
	SessionTTL time.Duration `json:"session_ttl" env:"SESSION_TTL"`
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		SessionTTL:   30 * 24 * time.Hour,
	}
}

// Store implements the engine.Storage interface using Redis as the backend.
// Data structure:
// - user:{user_id}:metrics -> JSON blob of UserMetrics
// - user:{user_id}:badges -> set of earned badge ids
// - game:{session_id}:rounds -> hash of round number -> JSON RoundResult
// - game:{session_id}:completed -> JSON SessionSummary
type Store struct {
	client     *redis.Client
	sessionTTL time.Duration
}

func options(config Config) (*redis.Options, error) {
	var opts *redis.Options
	if config.URL != "" {
		parsed, err := redis.ParseURL(config.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: config.Addr, Password: config.Password, DB: config.DB}
	}
	opts.PoolSize = config.PoolSize
	opts.MinIdleConns = config.MinIdleConns
	opts.DialTimeout = config.DialTimeout
	opts.ReadTimeout = config.ReadTimeout
	opts.WriteTimeout = config.WriteTimeout
	return opts, nil
}

// Connect opens a client from config and verifies it with a ping.
func Connect(config Config) (*redis.Client, error) {
	opts, err := options(config)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// New creates a new Redis-backed storage with the provided configuration
func New(config Config) (*Store, error) {
	client, err := Connect(config)
	if err != nil {
		return nil, err
	}
	return &Store{client: client, sessionTTL: config.SessionTTL}, nil
}

// NewWithClient creates a Store using an existing Redis client (useful for testing)
func NewWithClient(client *redis.Client, sessionTTL time.Duration) *Store {
	return &Store{client: client, sessionTTL: sessionTTL}
}

// Client exposes the underlying client so other adapters can share it.
func (s *Store) Client() *redis.Client { return s.client }

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func userMetricsKey(userID core.UserID) string {
	return fmt.Sprintf("user:%s:metrics", userID)
}

func userBadgesKey(userID core.UserID) string {
	return fmt.Sprintf("user:%s:badges", userID)
}

func gameRoundsKey(session core.SessionID) string {
	return fmt.Sprintf("game:%s:rounds", session)
}

func gameCompletedKey(session core.SessionID) string {
	return fmt.Sprintf("game:%s:completed", session)
}

func persistErr(op string, err error) error {
	return &core.PersistenceError{Op: op, Err: err}
}

// SaveRoundResult writes the result under its 1-based round number,
// replacing any earlier write for the same round.
func (s *Store) SaveRoundResult(ctx context.Context, session core.SessionID, _ core.UserID, result core.RoundResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	key := gameRoundsKey(session)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, strconv.Itoa(result.RoundNumber()), data)
		if s.sessionTTL > 0 {
			pipe.Expire(ctx, key, s.sessionTTL)
		}
		return nil
	})
	if err != nil {
		return persistErr("save round result", err)
	}
	return nil
}

func (s *Store) LoadRoundResult(ctx context.Context, session core.SessionID, roundIndex int) (core.RoundResult, error) {
	data, err := s.client.HGet(ctx, gameRoundsKey(session), strconv.Itoa(roundIndex+1)).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.RoundResult{}, fmt.Errorf("round %d of %s: %w", roundIndex+1, session, core.ErrNotFound)
	}
	if err != nil {
		return core.RoundResult{}, persistErr("load round result", err)
	}
	var r core.RoundResult
	if err := json.Unmarshal(data, &r); err != nil {
		return core.RoundResult{}, persistErr("decode round result", err)
	}
	return r, nil
}

func (s *Store) MarkSessionComplete(ctx context.Context, summary core.SessionSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, gameCompletedKey(summary.SessionID), data, s.sessionTTL).Err(); err != nil {
		return persistErr("mark session complete", err)
	}
	return nil
}

// SessionSummary returns what MarkSessionComplete stored.
func (s *Store) SessionSummary(ctx context.Context, session core.SessionID) (core.SessionSummary, error) {
	data, err := s.client.Get(ctx, gameCompletedKey(session)).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.SessionSummary{}, core.ErrNotFound
	}
	if err != nil {
		return core.SessionSummary{}, persistErr("load session summary", err)
	}
	var sum core.SessionSummary
	if err := json.Unmarshal(data, &sum); err != nil {
		return core.SessionSummary{}, persistErr("decode session summary", err)
	}
	return sum, nil
}

func (s *Store) GetMetrics(ctx context.Context, userID core.UserID) (core.UserMetrics, error) {
	data, err := s.client.Get(ctx, userMetricsKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.UserMetrics{}, fmt.Errorf("metrics for %s: %w", userID, core.ErrNotFound)
	}
	if err != nil {
		return core.UserMetrics{}, persistErr("get metrics", err)
	}
	var m core.UserMetrics
	if err := json.Unmarshal(data, &m); err != nil {
		return core.UserMetrics{}, persistErr("decode metrics", err)
	}
	return m.Coerce(), nil
}

func (s *Store) SaveMetrics(ctx context.Context, userID core.UserID, metrics core.UserMetrics) error {
	m := metrics.Clone()
	m.Version = core.MetricsVersion
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, userMetricsKey(userID), data, 0).Err(); err != nil {
		return persistErr("save metrics", err)
	}
	return nil
}

func (s *Store) EarnedBadges(ctx context.Context, userID core.UserID) (core.EarnedSet, error) {
	ids, err := s.client.SMembers(ctx, userBadgesKey(userID)).Result()
	if err != nil {
		return nil, persistErr("get badges", err)
	}
	set := core.NewEarnedSet()
	for _, id := range ids {
		set.Add(core.BadgeID(id))
	}
	return set, nil
}

// AwardBadge adds a badge to the user's badge set. SADD reports whether the
// member was new, which makes the award idempotent across processes.
func (s *Store) AwardBadge(ctx context.Context, userID core.UserID, badge core.BadgeID) (bool, error) {
	if err := core.ValidateBadgeID(badge); err != nil {
		return false, err
	}
	added, err := s.client.SAdd(ctx, userBadgesKey(userID), string(badge)).Result()
	if err != nil {
		return false, persistErr("award badge", err)
	}
	return added == 1, nil
}
