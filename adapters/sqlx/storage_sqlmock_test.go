package sqlx_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	libsqlx "github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	storage "chronoguess/adapters/sqlx"
	"chronoguess/core"
)

func newMockStore(t *testing.T) (*storage.Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	xdb := storage.NewWithDB(libsqlx.NewDb(db, "postgres"), storage.DriverPostgres)
	cleanup := func() {
		_ = db.Close()
	}
	return xdb, mock, cleanup
}

func TestSQLMock_AwardBadge_New(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectExec(`INSERT INTO user_badges .* ON CONFLICT \(user_id, badge_id\) DO NOTHING`).
		WithArgs("u1", "pinpoint", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	added, err := store.AwardBadge(context.Background(), "u1", "pinpoint")
	require.NoError(t, err)
	require.True(t, added)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_AwardBadge_AlreadyEarned(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectExec(`INSERT INTO user_badges`).
		WithArgs("u1", "pinpoint", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	added, err := store.AwardBadge(context.Background(), "u1", "pinpoint")
	require.NoError(t, err)
	require.False(t, added)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_AwardBadge_InvalidID(t *testing.T) {
	store, _, cleanup := newMockStore(t)
	defer cleanup()

	_, err := store.AwardBadge(context.Background(), "u1", "")
	require.Error(t, err)
}

func TestSQLMock_EarnedBadges(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT badge_id FROM user_badges WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"badge_id"}).AddRow("pinpoint").AddRow("first_steps"))

	earned, err := store.EarnedBadges(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, []core.BadgeID{"first_steps", "pinpoint"}, earned.IDs())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Metrics(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()
	ctx := context.Background()

	mock.ExpectQuery(`SELECT payload FROM user_metrics`).
		WithArgs("u1").
		WillReturnError(sql.ErrNoRows)
	_, err := store.GetMetrics(ctx, "u1")
	require.ErrorIs(t, err, core.ErrNotFound)

	mock.ExpectExec(`INSERT INTO user_metrics .* ON CONFLICT \(user_id\) DO UPDATE`).
		WithArgs("u1", core.MetricsVersion, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	m := core.NewUserMetrics()
	m.Set(core.ReqXPTotal, 1500)
	require.NoError(t, store.SaveMetrics(ctx, "u1", m))

	mock.ExpectQuery(`SELECT payload FROM user_metrics`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(`{"version":1,"values":{"xp_total":1500,"games_played":-1}}`))
	got, err := store.GetMetrics(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1500.0, got.Get(core.ReqXPTotal))
	require.Equal(t, 0.0, got.Get(core.ReqGamesPlayed))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_RoundResults(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO round_results .* ON CONFLICT \(session_id, round_number\) DO UPDATE`).
		WithArgs("s1", 3, "u1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.SaveRoundResult(ctx, "s1", "u1", core.RoundResult{RoundIndex: 2, ImageID: "img", Score: 420}))

	mock.ExpectQuery(`SELECT payload FROM round_results WHERE session_id = \$1 AND round_number = \$2`).
		WithArgs("s1", 3).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(`{"round_index":2,"image_id":"img","score":420}`))
	got, err := store.LoadRoundResult(ctx, "s1", 2)
	require.NoError(t, err)
	require.Equal(t, 420.0, got.Score)
	require.Equal(t, "img", got.ImageID)

	mock.ExpectQuery(`SELECT payload FROM round_results`).
		WithArgs("s1", 1).
		WillReturnError(errors.New("connection reset"))
	_, err = store.LoadRoundResult(ctx, "s1", 0)
	require.ErrorIs(t, err, core.ErrPersistence)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_MarkSessionComplete(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO session_summaries .* ON CONFLICT \(session_id\) DO NOTHING`).
		WithArgs("s1", "u1", 5, 5, 20, 1000.0, at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.MarkSessionComplete(context.Background(), core.SessionSummary{
		SessionID: "s1", UserID: "u1", Rounds: 5, Recorded: 5, Accuracy: 20, XP: 1000, CompletedAt: at,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Migrate(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS round_results`).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Images(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()
	src := storage.NewImageSource(store.DB())
	ctx := context.Background()

	cols := []string{"id", "title", "description", "year", "latitude", "longitude", "location_name", "url", "ready"}
	mock.ExpectQuery(`SELECT id, title, .* FROM images WHERE ready = \$1 ORDER BY id`).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("a", "Apollo", "", 1969, 28.5, -80.6, "Florida", "/a.jpg", true))
	ready, err := src.Images(ctx, true)
	require.NoError(t, err)
	require.Len(t, ready, 1)
	require.Equal(t, 1969, ready[0].Year)
	require.True(t, ready[0].Ready)

	mock.ExpectQuery(`SELECT id, title, .* FROM images ORDER BY id`).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("a", "Apollo", "", 1969, 28.5, -80.6, "Florida", "/a.jpg", true).
			AddRow("b", "Berlin", "", 1989, 52.5, 13.4, "Berlin", "/b.jpg", false))
	all, err := src.Images(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO images .* ON CONFLICT \(id\) DO UPDATE`).
		WithArgs("c", "Canal", "", 1914, 9.08, -79.68, "Panama", "/c.jpg", true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, src.Put(ctx, core.ImageMeta{ID: "c", Title: "Canal", Year: 1914, Latitude: 9.08, Longitude: -79.68, LocationName: "Panama", URL: "/c.jpg", Ready: true}))

	require.NoError(t, mock.ExpectationsWereMet())
}
