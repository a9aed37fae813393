// Package audit periodically reconciles stored message costs against the
// credit log.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"paperforge/internal/metrics"
	"paperforge/internal/storage"
)

type MismatchSource interface {
	Mismatches(ctx context.Context, since time.Time) ([]storage.LedgerMismatch, error)
}

type LedgerAudit struct {
	source  MismatchSource
	window  time.Duration
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

func NewLedgerAudit(source MismatchSource, window time.Duration, m *metrics.Metrics, logger *zap.Logger) *LedgerAudit {
	if window <= 0 {
		window = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerAudit{
		source:  source,
		window:  window,
		metrics: m,
		logger:  logger.With(zap.String("component", "ledger_audit")),
		now:     time.Now,
	}
}

// Run checks the trailing window once and reports every mismatched session.
func (a *LedgerAudit) Run(ctx context.Context) ([]storage.LedgerMismatch, error) {
	since := a.now().Add(-a.window)
	found, err := a.source.Mismatches(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("ledger audit: %w", err)
	}
	a.metrics.SetLedgerMismatches(len(found))
	for _, m := range found {
		a.logger.Warn("ledger mismatch",
			zap.String("session_id", m.SessionID),
			zap.String("user_id", m.UserID),
			zap.Int64("message_cost", m.MessageCost),
			zap.Int64("debited", m.Debited))
	}
	a.logger.Info("ledger audit completed", zap.Time("since", since), zap.Int("mismatches", len(found)))
	return found, nil
}

// Schedule registers Run on c with a standard five-field cron spec.
func (a *LedgerAudit) Schedule(c *cron.Cron, spec string, timeout time.Duration) (cron.EntryID, error) {
	id, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if _, err := a.Run(ctx); err != nil {
			a.logger.Error("ledger audit failed", zap.Error(err))
		}
	})
	if err != nil {
		return 0, fmt.Errorf("schedule ledger audit %q: %w", spec, err)
	}
	return id, nil
}
