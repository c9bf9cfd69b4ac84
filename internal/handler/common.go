// Package handler implements the HTTP endpoints.  Handlers bind a request
// DTO, run the repository calls under a short timeout, and translate
// sentinel errors into status codes in one place (errJSON) so every route
// reports failures the same way.
package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/repart/marketplace/internal/middleware"
	"github.com/repart/marketplace/internal/repository"
)

// getUserID returns the authenticated user's ID from context, or 0.
func getUserID(c echo.Context) uint64 {
	return middleware.ContextUserID(c)
}

// reqCtx derives a bounded context for repository calls.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// errJSON maps repository sentinels to HTTP responses.  Unknown errors
// surface as 500 with the fallback message so internals never leak.
func errJSON(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
	case errors.Is(err, repository.ErrListingUnavailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "listing unavailable"})
	case errors.Is(err, repository.ErrOwnListing):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot purchase own listing"})
	case errors.Is(err, repository.ErrEscrowState):
		return c.JSON(http.StatusConflict, echo.Map{"error": "invalid escrow state"})
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": fallback})
	}
}

// queryInt parses an integer query parameter with a default.
func queryInt(c echo.Context, name string, def int) int {
	if v := c.QueryParam(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
