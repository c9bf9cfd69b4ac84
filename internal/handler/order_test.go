package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/repart/marketplace/internal/model"
	"github.com/repart/marketplace/internal/repository"
)

func newOrderHandler(t *testing.T) (*OrderHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	h := &OrderHandler{
		DB:       db,
		Orders:   repository.NewOrderRepo(db),
		Listings: repository.NewListingRepo(db),
		Payouts:  repository.NewPayoutRepo(db),
		Carts:    repository.NewCartRepo(db),
		Log:      zap.NewNop(),
	}
	return h, mock
}

func listingRows(id, sellerID uint64, price int64, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "seller_id", "model_name", "imei_masked", "imei_encrypted",
		"fault_tree", "photos", "price", "status", "moderation_notes", "risk_score",
		"created_at", "updated_at"}).
		AddRow(id, sellerID, "iPhone 12", "490***518", "sealed",
			[]byte(`{"screen":"working","board":"working","battery":"good"}`), []byte(`[]`),
			price, status, nil, 0, time.Now(), time.Now())
}

func orderTestRows(id, listingID, buyerID, sellerID uint64, amount int64, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "listing_id", "buyer_id", "seller_id", "amount",
		"escrow_status", "cargo_tracking_code", "delivered_at", "released_at", "created_at"}).
		AddRow(id, listingID, buyerID, sellerID, amount, status, nil, nil, nil, time.Now())
}

// A purchase commits the listing flip, the order insert and the cart
// cleanup as one transaction.
func TestOrderCreateCommitsListingFlipOrderAndCartCleanup(t *testing.T) {
	h, mock := newOrderHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM listings WHERE id=").
		WithArgs(uint64(10)).
		WillReturnRows(listingRows(10, 3, 1200, model.ListingActive))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE listings SET status=").
		WithArgs(model.ListingSold, uint64(10), model.ListingActive).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(uint64(10), uint64(1), uint64(3), int64(1200), model.EscrowHeld).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("DELETE FROM cart_items WHERE listing_id=").
		WithArgs(uint64(10)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	c, rec := newJSONContext(t, http.MethodPost, "/v1/orders", `{"listing_id":10}`)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"escrow_status":"held"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Losing the race for the last unit rolls everything back; no order row is
// ever written.
func TestOrderCreateRollsBackWhenListingAlreadySold(t *testing.T) {
	h, mock := newOrderHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM listings WHERE id=").
		WithArgs(uint64(10)).
		WillReturnRows(listingRows(10, 3, 1200, model.ListingActive))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE listings SET status=").
		WithArgs(model.ListingSold, uint64(10), model.ListingActive).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	c, rec := newJSONContext(t, http.MethodPost, "/v1/orders", `{"listing_id":10}`)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderCreateRejectsOwnListing(t *testing.T) {
	h, mock := newOrderHandler(t)

	// Seller id matches the authenticated user set by newJSONContext.
	mock.ExpectQuery("SELECT (.+) FROM listings WHERE id=").
		WithArgs(uint64(10)).
		WillReturnRows(listingRows(10, 1, 1200, model.ListingActive))

	c, rec := newJSONContext(t, http.MethodPost, "/v1/orders", `{"listing_id":10}`)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Releasing funds writes exactly one ledger row carrying the full order
// amount, in the same transaction as the escrow transition.
func TestReleaseFundsWritesSingleFullAmountPayout(t *testing.T) {
	h, mock := newOrderHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id=(.+) FOR UPDATE").
		WithArgs(uint64(6)).
		WillReturnRows(orderTestRows(6, 10, 1, 3, 1200, model.EscrowHeld))
	mock.ExpectExec("UPDATE orders SET escrow_status=").
		WithArgs(model.EscrowReleased, sqlmock.AnyArg(), uint64(6), model.EscrowHeld).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO payouts").
		WithArgs(uint64(6), int64(1200), model.PayoutSellerRelease, "processed", uint64(1), nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	c, rec := newJSONContext(t, http.MethodPatch, "/v1/orders/6", `{"action":"release_funds"}`)
	c.SetParamNames("id")
	c.SetParamValues("6")
	require.NoError(t, h.Action(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A release racing a dispute fails on the compare-and-set and writes no
// ledger row.
func TestReleaseFundsLosesRaceAgainstDispute(t *testing.T) {
	h, mock := newOrderHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id=(.+) FOR UPDATE").
		WithArgs(uint64(6)).
		WillReturnRows(orderTestRows(6, 10, 1, 3, 1200, model.EscrowHeld))
	mock.ExpectExec("UPDATE orders SET escrow_status=").
		WithArgs(model.EscrowReleased, sqlmock.AnyArg(), uint64(6), model.EscrowHeld).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	c, rec := newJSONContext(t, http.MethodPatch, "/v1/orders/6", `{"action":"release_funds"}`)
	c.SetParamNames("id")
	c.SetParamValues("6")
	require.NoError(t, h.Action(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
