package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/goseed/internal/config"
)

func TestCountRows(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT(*) FROM "customers"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	n, err := CountRows(context.Background(), db, mustDialect(t, config.DriverPostgres), "customers")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountRows_Error(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT(*) FROM `missing`").WillReturnError(errors.New("table does not exist"))

	_, err = CountRows(context.Background(), db, mustDialect(t, config.DriverMySQL), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestDeleteAll_InOrder(t *testing.T) {
	tx, mock := newMockTx(t)

	mock.ExpectExec("DELETE FROM [order_items]").WillReturnResult(sqlmock.NewResult(0, 30))
	mock.ExpectExec("DELETE FROM [orders]").WillReturnResult(sqlmock.NewResult(0, 10))
	mock.ExpectExec("DELETE FROM [customers]").WillReturnResult(sqlmock.NewResult(0, 5))

	deleted, err := DeleteAll(context.Background(), tx, mustDialect(t, config.DriverSQLServer),
		[]string{"order_items", "orders", "customers"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"order_items": 30, "orders": 10, "customers": 5}, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAll_StopsOnError(t *testing.T) {
	tx, mock := newMockTx(t)

	mock.ExpectExec(`DELETE FROM "a"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "b"`).WillReturnError(errors.New("fk violation"))

	deleted, err := DeleteAll(context.Background(), tx, mustDialect(t, config.DriverPostgres),
		[]string{"a", "b", "c"})
	require.Error(t, err)
	assert.Equal(t, map[string]int64{"a": 1}, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
