package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repart/marketplace/internal/model"
)

func orderRows(id, listingID, buyerID, sellerID uint64, amount int64, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "listing_id", "buyer_id", "seller_id", "amount",
		"escrow_status", "cargo_tracking_code", "delivered_at", "released_at", "created_at"}).
		AddRow(id, listingID, buyerID, sellerID, amount, status, nil, nil, nil, time.Now())
}

func TestSetTrackingRejectsConcurrentEscrowMove(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id=").
		WithArgs(uint64(4)).
		WillReturnRows(orderRows(4, 10, 2, 3, 900, model.EscrowHeld))
	// Zero rows: the escrow moved between the read and the write.
	mock.ExpectExec("UPDATE orders SET cargo_tracking_code=").
		WithArgs("AZ-123456789", uint64(4), uint64(3), model.EscrowHeld).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewOrderRepo(db).SetTracking(context.Background(), 4, 3, "AZ-123456789")
	assert.ErrorIs(t, err, ErrEscrowState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetTrackingForbiddenForNonSeller(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id=").
		WithArgs(uint64(4)).
		WillReturnRows(orderRows(4, 10, 2, 3, 900, model.EscrowHeld))

	err = NewOrderRepo(db).SetTracking(context.Background(), 4, 9, "AZ-123456789")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionTxRejectsIllegalMove(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)

	// released is terminal; the transition table rejects it before any SQL.
	err = NewOrderRepo(db).TransitionTx(context.Background(), tx, 4, model.EscrowReleased, model.EscrowHeld)
	assert.ErrorIs(t, err, ErrEscrowState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionTxLosesRace(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET escrow_status=").
		WithArgs(model.EscrowDisputed, nil, uint64(4), model.EscrowHeld).
		WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := db.Begin()
	require.NoError(t, err)
	err = NewOrderRepo(db).TransitionTx(context.Background(), tx, 4, model.EscrowHeld, model.EscrowDisputed)
	assert.ErrorIs(t, err, ErrEscrowState)
	assert.NoError(t, mock.ExpectationsWereMet())
}
