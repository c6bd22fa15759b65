package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryableTxError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&pgconn.PgError{Code: sqlStateSerializationFailure}, true},
		{fmt.Errorf("update: %w", &pgconn.PgError{Code: sqlStateDeadlockDetected}), true},
		{&pgconn.PgError{Code: "23505"}, false},
		{errors.New("plain"), false},
		{nil, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isRetryableTxError(tt.err), "%v", tt.err)
	}
}

func TestTransactionManager_RetriesSerializationFailures(t *testing.T) {
	tm := NewTransactionManager(requireDB(t))
	ctx := context.Background()

	calls := 0
	err := tm.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		calls++
		if calls == 1 {
			return &pgconn.PgError{Code: sqlStateSerializationFailure}
		}
		_, err := tx.Exec(ctx, `SELECT 1`)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	boom := errors.New("boom")
	err = tm.WithTransaction(ctx, func(context.Context, pgx.Tx) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}
