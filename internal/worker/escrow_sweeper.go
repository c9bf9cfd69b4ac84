// Package worker runs the background escrow sweeper.  It replaces any
// read-time evaluation of the auto-release rule with a guaranteed periodic
// job: held orders whose delivery confirmation is older than the hold
// period are released exactly once, with a ledger row written in the same
// transaction.
package worker

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/repart/marketplace/internal/model"
	"github.com/repart/marketplace/internal/queue"
	"github.com/repart/marketplace/internal/repository"
	"github.com/repart/marketplace/internal/service"
)

// EscrowSweeper periodically releases held escrow after the hold period.
// Disputed orders never match the due query; a dispute filed before the
// sweep wins over the elapsed timer.
type EscrowSweeper struct {
	DB       *sql.DB
	Orders   *repository.OrderRepo
	Payouts  *repository.PayoutRepo
	Interval time.Duration
	HoldFor  time.Duration
	Log      *zap.Logger
}

// Run sweeps on the configured interval until ctx is cancelled.  One sweep
// failing is logged and retried on the next tick.
func (s *EscrowSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Log.Info("escrow sweeper started",
		zap.Duration("interval", s.Interval), zap.Duration("hold_for", s.HoldFor))
	for {
		select {
		case <-ctx.Done():
			s.Log.Info("escrow sweeper stopped")
			return
		case <-ticker.C:
			if n, err := s.SweepOnce(ctx); err != nil {
				s.Log.Error("escrow sweep failed", zap.Error(err))
			} else if n > 0 {
				s.Log.Info("escrow sweep released orders", zap.Int("count", n))
			}
		}
	}
}

// SweepOnce releases every due order and returns how many were released.
// Each order is handled in its own transaction so one bad row does not
// block the rest of the batch.
func (s *EscrowSweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.HoldFor)
	due, err := s.Orders.ListDueForAutoRelease(ctx, cutoff, 100)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, o := range due {
		if err := s.releaseOne(ctx, o); err != nil {
			s.Log.Warn("auto-release skipped order", zap.Uint64("order_id", o.ID), zap.Error(err))
			continue
		}
		released++
	}
	return released, nil
}

func (s *EscrowSweeper) releaseOne(ctx context.Context, o model.Order) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// The held->released compare-and-set makes the release exactly-once:
	// if a dispute or manual action got in first, this returns
	// ErrEscrowState and the order is left alone.
	if err := s.Orders.TransitionTx(ctx, tx, o.ID, model.EscrowHeld, model.EscrowReleased); err != nil {
		return err
	}
	payout := model.Payout{
		OrderID: o.ID,
		Amount:  o.Amount,
		Type:    model.PayoutAutoRelease,
	}
	if err := s.Payouts.CreateTx(ctx, tx, &payout); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	// Best effort: a failed publish does not undo the release.
	_ = service.Publish(ctx, s.Log, queue.EscrowQueueName, queue.EscrowReleasedEvent{
		OrderID:    o.ID,
		ListingID:  o.ListingID,
		SellerID:   o.SellerID,
		BuyerID:    o.BuyerID,
		Amount:     o.Amount,
		PayoutType: model.PayoutAutoRelease,
		ReleasedAt: time.Now().UTC().Format(time.RFC3339),
	})
	return nil
}
