package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/Gundoganfa/SomeNiceLinks/internal/linksync"
	"github.com/Gundoganfa/SomeNiceLinks/internal/logger"
)

const (
	// DefaultFlushDelay is the wait after start before the first replay.
	DefaultFlushDelay = 2 * time.Second
	// DefaultFlushInterval is the wait between replays.
	DefaultFlushInterval = 30 * time.Second
)

// DeltaSyncer replays queued click deltas. A sign-in reconcile that could
// not reach the cloud is retried before the replay.
type DeltaSyncer interface {
	SignedIn() bool
	ReconcileDue() bool
	Reconcile(ctx context.Context) (linksync.Outcome, error)
	SyncPendingDeltas(ctx context.Context) (linksync.SyncResult, error)
}

// DeltaFlusher periodically replays pending click deltas while a session
// is attached.
type DeltaFlusher struct {
	syncer        DeltaSyncer
	logger        logger.Logger
	delay         time.Duration
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewDeltaFlusher creates a flusher. A nil manualTrigger disables manual
// flushes.
func NewDeltaFlusher(
	syncer DeltaSyncer,
	log logger.Logger,
	delay time.Duration,
	interval time.Duration,
	manualTrigger chan struct{},
) *DeltaFlusher {
	if delay <= 0 {
		delay = DefaultFlushDelay
	}
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	return &DeltaFlusher{
		syncer:        syncer,
		logger:        log.With(logger.Component("delta_flusher")),
		delay:         delay,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start runs the flush loop in the background. The first replay happens
// once the start delay has passed.
func (df *DeltaFlusher) Start(ctx context.Context) {
	go func() {
		first := time.NewTimer(df.delay)
		defer first.Stop()
		ticker := time.NewTicker(df.interval)
		defer ticker.Stop()

		for {
			select {
			case <-first.C:
				df.Flush(ctx)
			case <-ticker.C:
				df.Flush(ctx)
			case <-df.manualTrigger:
				df.logger.Info("manual delta flush triggered")
				df.Flush(ctx)
			case <-df.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the flusher
func (df *DeltaFlusher) Stop() {
	close(df.stopCh)
}

// Flush replays the queue once. It is a no-op while signed out. While the
// sign-in reconcile is still owed it runs first, and a failure leaves the
// queue for the next attempt.
func (df *DeltaFlusher) Flush(ctx context.Context) {
	if !df.syncer.SignedIn() {
		df.logger.Debug("skipping delta flush, not signed in")
		return
	}

	if df.syncer.ReconcileDue() {
		outcome, err := df.syncer.Reconcile(ctx)
		if err != nil && !errors.Is(err, linksync.ErrConflictPending) {
			df.logger.Warn("reconcile retry failed, will try again", logger.Error(err))
			return
		}
		df.logger.Info("reconciled with cloud", logger.String("outcome", outcome.Kind.String()))
	}

	res, err := df.syncer.SyncPendingDeltas(ctx)
	switch {
	case errors.Is(err, linksync.ErrNotSignedIn):
		return
	case err != nil:
		df.logger.Warn("pending delta flush incomplete",
			logger.Int("applied", res.Applied),
			logger.Int("failed", res.Failed),
			logger.Error(err))
	case res.Applied > 0:
		df.logger.Info("pending deltas flushed",
			logger.Int("applied", res.Applied),
			logger.Int64("clicks", res.Clicks))
	}
}
