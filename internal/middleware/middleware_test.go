package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repart/marketplace/internal/config"
	"github.com/repart/marketplace/internal/model"
	"github.com/repart/marketplace/internal/utils"
)

func doRequest(t *testing.T, mw echo.MiddlewareFunc, setup func(echo.Context)) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if setup != nil {
		setup(c)
	}
	h := mw(func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	})
	require.NoError(t, h(c))
	return rec
}

func TestJWTAuthRoundTrip(t *testing.T) {
	const secret = "test-secret"
	tok, err := utils.NewAccessToken(secret, 42, model.RoleUser, 5)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := JWTAuth(secret)(func(c echo.Context) error {
		assert.Equal(t, uint64(42), ContextUserID(c))
		assert.Equal(t, model.RoleUser, c.Get("role"))
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTAuthRejectsMissingToken(t *testing.T) {
	rec := doRequest(t, JWTAuth("secret"), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthRejectsWrongSecret(t *testing.T) {
	tok, err := utils.NewAccessToken("other-secret", 1, model.RoleUser, 5)
	require.NoError(t, err)
	rec := doRequest(t, JWTAuth("secret"), func(c echo.Context) {
		c.Request().Header.Set("Authorization", "Bearer "+tok.Token)
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	rec := doRequest(t, RequireRole(model.RoleAdmin), func(c echo.Context) {
		c.Set("role", model.RoleAdmin)
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, RequireRole(model.RoleAdmin), func(c echo.Context) {
		c.Set("role", model.RoleUser)
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, RequireRole(model.RoleAdmin), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminGate(t *testing.T) {
	allow := func(email string) bool { return email == "root@repart.dev" }

	rec := doRequest(t, AdminGate(allow, model.RoleAdmin, model.RoleModerator), func(c echo.Context) {
		c.Set("role", model.RoleModerator)
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Allow-listed email passes with a plain user role.
	rec = doRequest(t, AdminGate(allow, model.RoleAdmin), func(c echo.Context) {
		c.Set("role", model.RoleUser)
		c.Set("user_email", "root@repart.dev")
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, AdminGate(allow, model.RoleAdmin), func(c echo.Context) {
		c.Set("role", model.RoleUser)
		c.Set("user_email", "someone@example.com")
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRateLimitPassThroughWithoutRedis(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true}
	rec := doRequest(t, NewTokenBucket(cfg, nil), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCachePassThroughWithoutRedis(t *testing.T) {
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}
	rec := doRequest(t, NewRedisCache(cfg, nil), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestContextUserIDTypes(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	c.Set("user_id", float64(7))
	assert.Equal(t, uint64(7), ContextUserID(c))

	c.Set("user_id", uint64(9))
	assert.Equal(t, uint64(9), ContextUserID(c))

	c.Set("user_id", nil)
	assert.Equal(t, uint64(0), ContextUserID(c))
}
