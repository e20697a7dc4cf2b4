package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"opstower/internal/models/db_models"
	"opstower/internal/repositories"
	"opstower/pkg/utils"
)

// ExpirySweeper is the only actor allowed to move payments to expired. It
// funnels through the same guarded transition as webhooks, so a late-arriving
// webhook and the sweep cannot both win.
type ExpirySweeper struct {
	txns     repositories.TransactionRepositoryInterface
	interval time.Duration
	batch    int
	logger   *zap.Logger
	audit    *zap.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewExpirySweeper(txns repositories.TransactionRepositoryInterface, interval time.Duration, logger *zap.Logger) *ExpirySweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ExpirySweeper{
		txns:     txns,
		interval: interval,
		batch:    200,
		logger:   logger,
		audit:    logger.Named("audit"),
	}
}

func (s *ExpirySweeper) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.SweepOnce(ctx)
			}
		}
	}()
}

func (s *ExpirySweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *ExpirySweeper) SweepOnce(ctx context.Context) {
	stale, err := s.txns.ListExpiredPending(ctx, time.Now().Unix(), s.batch)
	if err != nil {
		s.logger.Error("expiry sweep query failed", zap.Error(err))
		return
	}

	for i := range stale {
		txn := stale[i]
		dedupeKey := "expiry:" + txn.TransactionID
		_, err := s.txns.ApplyStatusTransition(ctx, txn.TransactionID, db_models.TxnStatusExpired, time.Now(), dedupeKey, nil)
		switch {
		case err == nil:
			s.audit.Info("transaction expired by sweep",
				zap.String("transaction_id", txn.TransactionID))
		case errors.Is(err, utils.ErrAlreadyApplied), errors.Is(err, utils.ErrIllegalTransition):
			// A webhook resolved the payment between the query and the
			// transition. The guard did its job.
		default:
			s.logger.Error("expiry transition failed",
				zap.String("transaction_id", txn.TransactionID), zap.Error(err))
		}
	}
}
