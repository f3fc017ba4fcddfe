package pnl

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/s7qm7jrhsv-cmyk/tradingview-coinbase-bot/internal/notify"
)

const errorBackoff = 60 * time.Second

// Scheduler runs the aggregator once per UTC day at a fixed hour. It is
// the process's only long-lived background task and must survive transient
// exchange errors indefinitely; only context cancellation stops it.
type Scheduler struct {
	aggregator *Aggregator
	notifier   notify.Notifier
	hour       int
	backoff    time.Duration
	logger     zerolog.Logger
	now        func() time.Time
}

func NewScheduler(aggregator *Aggregator, notifier notify.Notifier, hour int) *Scheduler {
	return &Scheduler{
		aggregator: aggregator,
		notifier:   notifier,
		hour:       hour,
		backoff:    errorBackoff,
		logger:     log.With().Str("component", "pnl_scheduler").Logger(),
		now:        time.Now,
	}
}

// Start blocks until ctx is cancelled, sleeping to each trigger instant
// and running one aggregation pass. A failed pass is logged, notified and
// followed by a short backoff before the next trigger is recomputed.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info().Int("utc_hour", s.hour).Msg("starting pnl scheduler")

	for {
		next := s.nextTrigger(s.now())
		timer := time.NewTimer(next.Sub(s.now()))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info().Msg("shutting down pnl scheduler")
			return
		case <-timer.C:
		}

		if _, err := s.aggregator.Run(ctx); err != nil {
			s.logger.Error().Err(err).Msg("pnl aggregation failed")
			if nerr := s.notifier.Notify(ctx, fmt.Sprintf("PnL report failed: %v", err)); nerr != nil {
				s.logger.Warn().Err(nerr).Msg("failure notification not delivered")
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.backoff):
			}
		}
	}
}

// nextTrigger is today at the configured UTC hour, rolled to tomorrow when
// that instant has already passed.
func (s *Scheduler) nextTrigger(now time.Time) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
