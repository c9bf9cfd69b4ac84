package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/repart/marketplace/internal/repository"
)

// recordAudit appends an audit row for a privileged mutation.  It runs
// after the data transaction commits, on its own context, and failures are
// logged rather than surfaced: the action already happened.
func recordAudit(c echo.Context, audit *repository.AuditRepo, log *zap.Logger, action, entityType string, entityID uint64, meta any) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var idPtr *string
	if entityID != 0 {
		id := strconv.FormatUint(entityID, 10)
		idPtr = &id
	}
	if err := audit.Record(ctx, getUserID(c), action, entityType, idPtr, meta); err != nil {
		log.Warn("audit write failed",
			zap.String("action", action),
			zap.Uint64("actor_id", getUserID(c)),
			zap.Error(err))
	}
}
