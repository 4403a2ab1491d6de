package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndersD76/portalpili-producao-sub005/internal/workflow"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Store{db: db, dialect: dialectPostgres}, mock
}

func TestRebind(t *testing.T) {
	assert.Equal(t, "SELECT 1 WHERE a = ? AND b = ?", dialectSQLite.rebind("SELECT 1 WHERE a = ? AND b = ?"))
	assert.Equal(t, "SELECT 1 WHERE a = $1 AND b = $2", dialectPostgres.rebind("SELECT 1 WHERE a = ? AND b = ?"))
	assert.Equal(t, "SELECT 1", dialectPostgres.rebind("SELECT 1"))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&pq.Error{Code: "40001"}))
	assert.True(t, isRetryable(&pq.Error{Code: "40P01"}))
	assert.False(t, isRetryable(&pq.Error{Code: "23505"}))
	assert.True(t, isRetryable(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.False(t, isRetryable(errors.New("no such table")))
	assert.False(t, isRetryable(nil))
}

func TestPostgresDecideUsesNumberedPlaceholders(t *testing.T) {
	st, mock := newMockStore(t)
	decidedAt := time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC)
	stamp := formatTime(decidedAt)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $3 AND kind = $4 AND status = $5 AND expires_at >= $6")).
		WithArgs("REJECTED", stamp, int64(9), "BUDGET_ANALYSIS", "PENDING", stamp).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE workflow_items")).
		WithArgs("REJECTED", "too expensive", nil, stamp, int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	won, err := st.Decide(context.Background(), DecisionInput{
		TokenID:   9,
		Decision:  workflow.DecisionRejected,
		Note:      "too expensive",
		DecidedAt: decidedAt,
	})
	require.NoError(t, err)
	assert.True(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDecideLoserSkipsItemWrite(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE auth_tokens")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	won, err := st.Decide(context.Background(), DecisionInput{
		TokenID:   9,
		Decision:  workflow.DecisionApproved,
		DecidedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.False(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRefreshCountsLocksHeaderBeforeCounting(t *testing.T) {
	st, mock := newMockStore(t)

	// Another transaction committed item 1 while this one waited on the
	// header lock, so the count sees both answers.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT kind, status, total_items, responded_items FROM auth_tokens WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"kind", "status", "total_items", "responded_items"}).
			AddRow("STATUS_CHECK", "PARTIAL", 2, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(1) FROM workflow_items WHERE token_id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE auth_tokens SET responded_items = $1, status = $2 WHERE id = $3")).
		WithArgs(2, "COMPLETE", int64(7), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := st.InTx(context.Background(), func(tx *Tx) error {
		return tx.RefreshCounts(context.Background(), 7)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteHeaderSelectHasNoLockSuffix(t *testing.T) {
	assert.Equal(t, "", dialectSQLite.forUpdate())
	assert.Equal(t, " FOR UPDATE", dialectPostgres.forUpdate())
}

func TestPostgresSerializationFailureIsRetried(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE auth_tokens")).WillReturnError(&pq.Error{Code: "40001"})
	mock.ExpectExec(regexp.QuoteMeta("UPDATE auth_tokens")).WillReturnResult(sqlmock.NewResult(0, 1))

	err := st.RecordNotification(context.Background(), 4, "+5511999990000", "msg-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSchemaMismatch(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_version")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT version FROM schema_version")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(99))

	err := st.initSchema(context.Background())
	assert.ErrorIs(t, err, ErrSchemaMismatch)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFormatTimeIsFixedWidth(t *testing.T) {
	a := formatTime(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	b := formatTime(time.Date(2025, 1, 2, 3, 4, 5, 123456000, time.FixedZone("BRT", -3*3600)))
	assert.Len(t, a, len(b))
	assert.Less(t, a, b)
	parsed, err := parseTimeString(b)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(time.Date(2025, 1, 2, 6, 4, 5, 123456000, time.UTC)))
}
