package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// MarketCloser persists the Closed status of markets past their deadline.
type MarketCloser interface {
	CloseExpired(ctx context.Context) ([]uint64, error)
}

// DeadlineSweeper periodically closes markets whose deadline has passed.
// Betting already stops at the deadline; the sweep makes the stored status
// match.
type DeadlineSweeper struct {
	markets  MarketCloser
	interval time.Duration
	log      logrus.FieldLogger
	stopChan chan struct{}
}

// NewDeadlineSweeper creates a new deadline sweeper job
func NewDeadlineSweeper(markets MarketCloser, interval time.Duration, log logrus.FieldLogger) *DeadlineSweeper {
	return &DeadlineSweeper{
		markets:  markets,
		interval: interval,
		log:      log.WithField("job", "deadline_sweeper"),
		stopChan: make(chan struct{}),
	}
}

// Run sweeps once immediately and then every interval until ctx is done or
// Stop is called.
func (s *DeadlineSweeper) Run(ctx context.Context) error {
	s.log.WithField("interval", s.interval.String()).Info("Starting deadline sweeper")

	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-s.stopChan:
			s.log.Info("Stopping deadline sweeper")
			return nil
		case <-ctx.Done():
			s.log.Info("Stopping deadline sweeper")
			return nil
		}
	}
}

// Stop stops the sweep loop
func (s *DeadlineSweeper) Stop() {
	close(s.stopChan)
}

// Sweep closes every expired market and returns how many it closed.
func (s *DeadlineSweeper) Sweep(ctx context.Context) int {
	closed, err := s.markets.CloseExpired(ctx)
	if err != nil {
		s.log.WithError(err).Error("Failed to close expired markets")
		return 0
	}
	if len(closed) > 0 {
		s.log.WithField("market_ids", closed).Info("Closed expired markets")
	}
	return len(closed)
}
