package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Gundoganfa/SomeNiceLinks/internal/linksync"
	"github.com/Gundoganfa/SomeNiceLinks/internal/logger"
)

type fakeSyncer struct {
	signedIn     atomic.Bool
	reconcileDue atomic.Bool
	calls        chan struct{}
	err          error
	reconcileErr error
	reconciles   int
}

func newFakeSyncer(signedIn bool) *fakeSyncer {
	s := &fakeSyncer{calls: make(chan struct{}, 16)}
	s.signedIn.Store(signedIn)
	return s
}

func (s *fakeSyncer) SignedIn() bool { return s.signedIn.Load() }

func (s *fakeSyncer) ReconcileDue() bool { return s.reconcileDue.Load() }

func (s *fakeSyncer) Reconcile(context.Context) (linksync.Outcome, error) {
	s.reconciles++
	if s.reconcileErr != nil {
		return linksync.Outcome{}, s.reconcileErr
	}
	s.reconcileDue.Store(false)
	return linksync.Outcome{Kind: linksync.InSync}, nil
}

func (s *fakeSyncer) SyncPendingDeltas(context.Context) (linksync.SyncResult, error) {
	s.calls <- struct{}{}
	return linksync.SyncResult{Applied: 1, Clicks: 2}, s.err
}

func waitCall(t *testing.T, ch <-chan struct{}, within time.Duration) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(within):
		t.Fatalf("expected a call within %s", within)
	}
}

func TestDeltaFlusher_FlushesAfterDelay(t *testing.T) {
	s := newFakeSyncer(true)
	df := NewDeltaFlusher(s, logger.Nop(), 10*time.Millisecond, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	df.Start(ctx)
	defer df.Stop()

	waitCall(t, s.calls, time.Second)
}

func TestDeltaFlusher_ManualTrigger(t *testing.T) {
	s := newFakeSyncer(true)
	trigger := make(chan struct{}, 1)
	df := NewDeltaFlusher(s, logger.Nop(), time.Hour, time.Hour, trigger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	df.Start(ctx)
	defer df.Stop()

	trigger <- struct{}{}
	waitCall(t, s.calls, time.Second)
}

func TestDeltaFlusher_SkipsWhenSignedOut(t *testing.T) {
	s := newFakeSyncer(false)
	df := NewDeltaFlusher(s, logger.Nop(), time.Hour, time.Hour, nil)

	df.Flush(context.Background())
	if len(s.calls) != 0 {
		t.Fatalf("expected no sync while signed out, got %d", len(s.calls))
	}

	s.signedIn.Store(true)
	s.err = errors.New("offline")
	df.Flush(context.Background())
	if len(s.calls) != 1 {
		t.Fatalf("expected one sync, got %d", len(s.calls))
	}
}

func TestDeltaFlusher_RetriesReconcileFirst(t *testing.T) {
	s := newFakeSyncer(true)
	s.reconcileDue.Store(true)
	s.reconcileErr = errors.New("connection refused")
	df := NewDeltaFlusher(s, logger.Nop(), time.Hour, time.Hour, nil)

	df.Flush(context.Background())
	if s.reconciles != 1 {
		t.Fatalf("expected one reconcile attempt, got %d", s.reconciles)
	}
	if len(s.calls) != 0 {
		t.Fatalf("expected no replay while the cloud is unreachable, got %d", len(s.calls))
	}

	s.reconcileErr = nil
	df.Flush(context.Background())
	if s.reconciles != 2 {
		t.Fatalf("expected a second reconcile attempt, got %d", s.reconciles)
	}
	if len(s.calls) != 1 {
		t.Fatalf("expected replay after reconcile, got %d", len(s.calls))
	}

	df.Flush(context.Background())
	if s.reconciles != 2 {
		t.Fatalf("reconcile should not repeat once done, got %d", s.reconciles)
	}
}

func TestDeltaFlusher_Defaults(t *testing.T) {
	df := NewDeltaFlusher(newFakeSyncer(false), logger.Nop(), 0, 0, nil)
	if df.delay != DefaultFlushDelay {
		t.Errorf("delay = %s, want %s", df.delay, DefaultFlushDelay)
	}
	if df.interval != DefaultFlushInterval {
		t.Errorf("interval = %s, want %s", df.interval, DefaultFlushInterval)
	}
}

type fakeMarket struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *fakeMarket) Refresh(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.err
}

func (m *fakeMarket) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestQuoteRefresher_RefreshesOnStartAndTick(t *testing.T) {
	m := &fakeMarket{err: errors.New("upstream down")}
	qr := NewQuoteRefresher(m, logger.Nop(), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	qr.Start(ctx)
	defer qr.Stop()

	if got := m.count(); got != 1 {
		t.Fatalf("expected a refresh on start, got %d", got)
	}

	deadline := time.Now().Add(time.Second)
	for m.count() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("expected periodic refreshes, got %d", m.count())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
