package db

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/SanchitCoder/PortIQ/internal/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

const existsQuery = `SELECT EXISTS(SELECT 1 FROM profiles WHERE id = $1)`

func setupMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return sqlx.NewDb(raw, "sqlmock"), mock
}

func TestExists(t *testing.T) {
	db, mock := setupMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(existsQuery)).
		WithArgs("abc").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := Exists(context.Background(), db, existsQuery, "abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExists_NoRows(t *testing.T) {
	db, mock := setupMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(existsQuery)).
		WithArgs("abc").
		WillReturnError(sql.ErrNoRows)

	ok, err := Exists(context.Background(), db, existsQuery, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExists_Error(t *testing.T) {
	db, mock := setupMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(existsQuery)).
		WithArgs("abc").
		WillReturnError(assert.AnError)

	_, err := Exists(context.Background(), db, existsQuery, "abc")
	assert.ErrorIs(t, err, assert.AnError)
}

func TestReady_AppliesPool(t *testing.T) {
	raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	mock.ExpectPing()

	db, err := ready(context.Background(), sqlx.NewDb(raw, "sqlmock"), Pool{MaxOpen: 7, MaxIdle: 2, MaxLifetime: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, 7, db.Stats().MaxOpenConnections)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReady_PingFailureClosesPool(t *testing.T) {
	raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectClose()

	db, err := ready(context.Background(), sqlx.NewDb(raw, "sqlmock"), Pool{})
	assert.Nil(t, db)
	assert.ErrorContains(t, err, "failed to ping database")
	assert.NoError(t, mock.ExpectationsWereMet())
}
