package handler

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repart/marketplace/internal/repository"
)

// newJSONContext builds an echo context carrying a JSON body and an
// authenticated user, without any backing database.  Only validation
// paths that reject before touching a repository are exercised here.
func newJSONContext(t *testing.T, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uint64(1))
	c.Set("role", "user")
	return c, rec
}

func TestErrJSONMapsSentinels(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{sql.ErrNoRows, http.StatusNotFound},
		{repository.ErrForbidden, http.StatusForbidden},
		{repository.ErrConflict, http.StatusConflict},
		{repository.ErrListingUnavailable, http.StatusConflict},
		{repository.ErrOwnListing, http.StatusBadRequest},
		{repository.ErrEscrowState, http.StatusConflict},
		{repository.ErrEmailExists, http.StatusConflict},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		c, rec := newJSONContext(t, http.MethodGet, "/", "")
		require.NoError(t, errJSON(c, tc.err, "fallback"))
		assert.Equal(t, tc.code, rec.Code, "error %v", tc.err)
	}
}

func TestListingCreateRejectsBadIMEI(t *testing.T) {
	h := &ListingHandler{}
	c, rec := newJSONContext(t, http.MethodPost, "/v1/listings",
		`{"model_name":"iPhone 12","imei":"123456789012345","price":500}`)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "imei")
}

func TestListingCreateRejectsBadFaultTree(t *testing.T) {
	h := &ListingHandler{}
	c, rec := newJSONContext(t, http.MethodPost, "/v1/listings",
		`{"model_name":"iPhone 12","imei":"490154203237518","price":500,"fault_tree":{"screen":"shattered"}}`)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "fault tree")
}

func TestListingCreateRequiresPrice(t *testing.T) {
	h := &ListingHandler{}
	c, rec := newJSONContext(t, http.MethodPost, "/v1/listings",
		`{"model_name":"iPhone 12","imei":"490154203237518"}`)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValuationRequiresModel(t *testing.T) {
	h := &ListingHandler{}
	c, rec := newJSONContext(t, http.MethodGet, "/v1/valuation", "")
	require.NoError(t, h.Valuation(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValuationRejectsUnknownAnswer(t *testing.T) {
	h := &ListingHandler{}
	c, rec := newJSONContext(t, http.MethodGet, "/v1/valuation?model=iPhone+12&screen=cracked", "")
	require.NoError(t, h.Valuation(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderActionRejectsUnknownAction(t *testing.T) {
	h := &OrderHandler{}
	c, rec := newJSONContext(t, http.MethodPatch, "/v1/orders/3", `{"action":"teleport"}`)
	c.SetParamNames("id")
	c.SetParamValues("3")
	require.NoError(t, h.Action(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDisputeCreateRequiresReason(t *testing.T) {
	h := &DisputeHandler{}
	c, rec := newJSONContext(t, http.MethodPost, "/v1/disputes", `{"order_id":9}`)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddressCreateRequiresFields(t *testing.T) {
	h := &AddressHandler{}
	c, rec := newJSONContext(t, http.MethodPost, "/v1/addresses", `{"title":"Home"}`)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTwoFactorVerifyRequiresFields(t *testing.T) {
	h := &TwoFactorHandler{}
	c, rec := newJSONContext(t, http.MethodPost, "/v1/auth/2fa/verify", `{"email":"a@b.c"}`)
	require.NoError(t, h.Verify(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfilePayoutCardRejectsBadPan(t *testing.T) {
	h := &ProfileHandler{}
	c, rec := newJSONContext(t, http.MethodPost, "/v1/profile/payout-card", `{"pan":"4111111111111112"}`)
	require.NoError(t, h.SetPayoutCard(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogEntryRejectsFloorAboveBase(t *testing.T) {
	req := catalogEntryReq{DeviceType: "phone", Brand: "Apple", Model: "iPhone 11",
		BasePrice: 500, FloorPrice: 900}
	assert.Equal(t, "floor price cannot exceed base price", req.validate())

	req.FloorPrice = 500
	assert.Empty(t, req.validate())
}

func TestPasswordResetRequestRejectsBadEmail(t *testing.T) {
	h := &PasswordResetHandler{}
	c, rec := newJSONContext(t, http.MethodPost, "/v1/auth/password-reset/request", `{"email":"not-an-email"}`)
	require.NoError(t, h.Request(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPasswordResetConfirmRejectsShortPassword(t *testing.T) {
	h := &PasswordResetHandler{}
	c, rec := newJSONContext(t, http.MethodPost, "/v1/auth/password-reset/confirm",
		`{"email":"a@b.c","code":"123456","new_password":"short"}`)
	require.NoError(t, h.Confirm(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
