package scheduler

import (
	"context"
	"time"

	"github.com/Gundoganfa/SomeNiceLinks/internal/logger"
)

// DefaultQuoteRefreshInterval is used when no interval is configured.
const DefaultQuoteRefreshInterval = 5 * time.Minute

// MarketRefresher re-fetches the market snapshot into the quote cache.
type MarketRefresher interface {
	Refresh(ctx context.Context) error
}

// QuoteRefresher keeps the market snapshot cache warm
type QuoteRefresher struct {
	quotes   MarketRefresher
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewQuoteRefresher creates a new quote refresher
func NewQuoteRefresher(quotes MarketRefresher, log logger.Logger, interval time.Duration) *QuoteRefresher {
	if interval <= 0 {
		interval = DefaultQuoteRefreshInterval
	}
	return &QuoteRefresher{
		quotes:   quotes,
		logger:   log.With(logger.Component("quote_refresher")),
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start refreshes immediately, then periodically.
func (qr *QuoteRefresher) Start(ctx context.Context) {
	qr.refresh(ctx)

	ticker := time.NewTicker(qr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				qr.refresh(ctx)
			case <-qr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the refresher
func (qr *QuoteRefresher) Stop() {
	close(qr.stopCh)
}

func (qr *QuoteRefresher) refresh(ctx context.Context) {
	if err := qr.quotes.Refresh(ctx); err != nil {
		// the previous snapshot stays cached until its ttl runs out
		qr.logger.Warn("market refresh failed", logger.Error(err))
		return
	}
	qr.logger.Debug("market snapshot refreshed")
}
