package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"summerberry-forecast/config"
	"summerberry-forecast/models"
)

func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	return attachMockDatabase(t, conn, mock, err)
}

func attachMockDatabase(t *testing.T, conn *sql.DB, mock sqlmock.Sqlmock, err error) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	require.NoError(t, err)

	db, err := NewFromConn(conn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestFetchHistory_ReturnsRows(t *testing.T) {
	db, mock := newMockDatabase(t)
	gateway := NewHistoryGateway(db, 30, time.Second, nil)

	rows := sqlmock.NewRows([]string{"id", "site", "harvest_kg"}).
		AddRow(int64(2), "alm", []byte("310.50")).
		AddRow(int64(1), "alm", []byte("298.00"))

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM harvest_records`).
		WithArgs("alm", "c", "S1", "2023-01-01", 30).
		WillReturnRows(rows)
	mock.ExpectCommit()

	res := gateway.FetchHistory(context.Background(), "alm", "c", "S1", "2023-01-01")

	require.Equal(t, 2, res.Count)
	require.Len(t, res.Records, 2)
	assert.Equal(t, models.HistoricalRecord{"id": int64(2), "site": "alm", "harvest_kg": "310.50"}, res.Records[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchHistory_NoRows(t *testing.T) {
	db, mock := newMockDatabase(t)
	gateway := NewHistoryGateway(db, 0, 0, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM harvest_records`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	res := gateway.FetchHistory(context.Background(), "adm", "a", "S9", "2022-05-01")

	assert.Equal(t, 0, res.Count)
	assert.NotNil(t, res.Records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchHistory_FailuresAreAbsorbed(t *testing.T) {
	tests := []struct {
		name  string
		setup func(mock sqlmock.Sqlmock)
	}{
		{
			name: "begin fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(errors.New("connection refused"))
			},
		},
		{
			name: "query fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`FROM harvest_records`).WillReturnError(errors.New("relation does not exist"))
				mock.ExpectRollback()
			},
		},
		{
			name: "row error",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`FROM harvest_records`).WillReturnRows(
					sqlmock.NewRows([]string{"id"}).AddRow(int64(1)).RowError(0, errors.New("broken pipe")))
				mock.ExpectRollback()
			},
		},
		{
			name: "commit fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`FROM harvest_records`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
				mock.ExpectCommit().WillReturnError(errors.New("server closed the connection"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDatabase(t)
			tt.setup(mock)

			res := NewHistoryGateway(db, 30, time.Second, nil).
				FetchHistory(context.Background(), "alm", "c", "S1", "2023-01-01")

			assert.Equal(t, models.EmptyHistory(), res)
		})
	}
}

func TestFetchHistory_UnreachableStore(t *testing.T) {
	db, err := Connect(config.DatabaseConfig{
		Host:    "127.0.0.1",
		Port:    "1",
		Name:    "nowhere",
		User:    "nobody",
		SSLMode: "disable",
	}, nil)
	require.NoError(t, err, "connect must not contact the server")
	defer db.Close()

	res := NewHistoryGateway(db, 30, 2*time.Second, nil).
		FetchHistory(context.Background(), "alm", "c", "S1", "2023-01-01")

	assert.Equal(t, models.EmptyHistory(), res)
}

func TestFetchHistory_NilGateway(t *testing.T) {
	var gateway *HistoryGateway
	assert.Equal(t, models.EmptyHistory(), gateway.FetchHistory(context.Background(), "alm", "c", "S1", "2023-01-01"))
}

func TestRepository_CountRecords(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := NewRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "harvest_records"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(42)))

	count, err := repo.CountRecords(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "harvest_records"`).
		WillReturnError(errors.New("timeout"))

	_, err = repo.CountRecords(context.Background())
	var dbErr *DBError
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, "count harvest_records", dbErr.Operation)
}

func TestRepository_Ping(t *testing.T) {
	conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	db, mock := attachMockDatabase(t, conn, mock, err)
	repo := NewRepository(db)

	mock.ExpectPing()
	assert.NoError(t, repo.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("down"))
	assert.Error(t, repo.Ping(context.Background()))
}
