package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartRemoveDeletesByRowID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// The delete keys on the cart row id ListByUser exposes, not on the
	// listing id, and stays scoped to the owner.
	mock.ExpectExec("DELETE FROM cart_items WHERE id=(.+) AND user_id=").
		WithArgs(uint64(5), uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewCartRepo(db).Remove(context.Background(), 2, 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRemoveUnknownRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM cart_items WHERE id=(.+) AND user_id=").
		WithArgs(uint64(99), uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewCartRepo(db).Remove(context.Background(), 2, 99)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
