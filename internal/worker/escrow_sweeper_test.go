package worker

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/repart/marketplace/internal/model"
	"github.com/repart/marketplace/internal/repository"
)

func newSweeper(t *testing.T) (*EscrowSweeper, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	s := &EscrowSweeper{
		DB:      db,
		Orders:  repository.NewOrderRepo(db),
		Payouts: repository.NewPayoutRepo(db),
		HoldFor: 24 * time.Hour,
		Log:     zap.NewNop(),
	}
	return s, mock
}

func dueOrderRows(id, listingID, buyerID, sellerID uint64, amount int64) *sqlmock.Rows {
	delivered := time.Now().Add(-48 * time.Hour)
	return sqlmock.NewRows([]string{"id", "listing_id", "buyer_id", "seller_id", "amount",
		"escrow_status", "cargo_tracking_code", "delivered_at", "released_at", "created_at"}).
		AddRow(id, listingID, buyerID, sellerID, amount, model.EscrowHeld,
			"AZ-123456789", delivered, nil, delivered.Add(-time.Hour))
}

// A due order is released once: the escrow flip and the auto_release ledger
// row commit together, with no operator recorded on the payout.
func TestSweepOnceReleasesDueOrder(t *testing.T) {
	s, mock := newSweeper(t)

	mock.ExpectQuery("SELECT (.+) FROM orders").
		WithArgs(model.EscrowHeld, sqlmock.AnyArg(), 100).
		WillReturnRows(dueOrderRows(6, 10, 1, 3, 1200))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET escrow_status=").
		WithArgs(model.EscrowReleased, sqlmock.AnyArg(), uint64(6), model.EscrowHeld).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO payouts").
		WithArgs(uint64(6), int64(1200), model.PayoutAutoRelease, "processed", nil, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	n, err := s.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// When a dispute or manual action wins the race after the due query, the
// compare-and-set matches zero rows and the order is skipped without a
// ledger row.
func TestSweepOnceSkipsOrderThatLostRace(t *testing.T) {
	s, mock := newSweeper(t)

	mock.ExpectQuery("SELECT (.+) FROM orders").
		WithArgs(model.EscrowHeld, sqlmock.AnyArg(), 100).
		WillReturnRows(dueOrderRows(6, 10, 1, 3, 1200))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET escrow_status=").
		WithArgs(model.EscrowReleased, sqlmock.AnyArg(), uint64(6), model.EscrowHeld).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	n, err := s.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepOnceNothingDue(t *testing.T) {
	s, mock := newSweeper(t)

	mock.ExpectQuery("SELECT (.+) FROM orders").
		WithArgs(model.EscrowHeld, sqlmock.AnyArg(), 100).
		WillReturnRows(sqlmock.NewRows([]string{"id", "listing_id", "buyer_id", "seller_id",
			"amount", "escrow_status", "cargo_tracking_code", "delivered_at", "released_at",
			"created_at"}))

	n, err := s.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
