package linksync

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/Gundoganfa/SomeNiceLinks/internal/domain"
	"github.com/Gundoganfa/SomeNiceLinks/internal/logger"
)

const syncFlightKey = "pending-deltas"

// SyncResult summarizes a pending delta replay.
type SyncResult struct {
	Applied int
	Failed  int
	Clicks  int64
}

// TrackClick counts a click. The local count goes up at once; the cloud
// increment follows and on failure the click is queued for replay. The
// returned link carries the count after the attempt.
func (m *Manager) TrackClick(ctx context.Context, id, url string) (domain.Link, error) {
	mut, err := m.updateLink(ctx, id, url, func(l *domain.Link) { l.ClickCount++ })
	if err != nil {
		return domain.Link{}, err
	}
	link := mut.After[findLink(mut.After, id, url)]
	key := domain.DeltaKey(link.ID, link.URL)

	user, signedIn := m.userID()
	if !signedIn {
		if err := m.queueDelta(ctx, key, link.URL, 1); err != nil {
			return link, err
		}
		return link, nil
	}

	res, err := m.remote.Increment(ctx, domain.IncrementTarget{LinkID: link.ID, OwnerID: user, URL: link.URL}, 1)
	if err != nil {
		m.log.Warn("click increment failed, queued", logger.String("link", link.ID), logger.Error(err))
		if qerr := m.queueDelta(ctx, key, link.URL, 1); qerr != nil {
			m.notify.Notify(KindError, "Click could not be recorded.")
			return link, qerr
		}
		m.notify.Notify(KindInfo, "Click saved offline, it will sync later.")
		return link, nil
	}

	updated, err := m.applyServerCount(ctx, link.ID, link.URL, res.ClickCount)
	if err != nil {
		return link, err
	}
	return updated, nil
}

// SyncPendingDeltas replays the pending queue with one increment per entry
// carrying its whole accumulated count. Applied entries leave the queue;
// failed ones stay for the next trigger. Concurrent calls share one run,
// which is detached from the cancellation of whichever caller started it.
func (m *Manager) SyncPendingDeltas(ctx context.Context) (SyncResult, error) {
	if !m.SignedIn() {
		return SyncResult{}, ErrNotSignedIn
	}
	runCtx := context.WithoutCancel(ctx)
	v, err, _ := m.flight.Do(syncFlightKey, func() (any, error) {
		return m.syncPending(runCtx)
	})
	res, _ := v.(SyncResult)
	return res, err
}

func (m *Manager) syncPending(ctx context.Context) (SyncResult, error) {
	var res SyncResult
	user, ok := m.userID()
	if !ok {
		return res, ErrNotSignedIn
	}

	queue, err := m.loadPending(ctx)
	if err != nil {
		return res, err
	}
	if len(queue) == 0 {
		return res, nil
	}

	keys := make([]string, 0, len(queue))
	for k := range queue {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		d := queue[key]
		id, _ := domain.SplitDeltaKey(key)
		t := domain.IncrementTarget{LinkID: id, OwnerID: user, URL: d.URL}

		cc, err := m.remote.Increment(ctx, t, d.Count)
		if err != nil {
			res.Failed++
			m.log.Warn("pending delta not applied", logger.String("key", key), logger.Int64("count", d.Count), logger.Error(err))
			continue
		}

		// the cloud has the clicks now; the queue must drop exactly them
		if err := m.settleDelta(ctx, key, d.Count); err != nil {
			return res, err
		}
		res.Applied++
		res.Clicks += d.Count

		if _, err := m.applyServerCount(ctx, id, d.URL, cc.ClickCount); err != nil && !errors.Is(err, ErrUnknownLink) {
			m.log.Warn("failed to store confirmed click count", logger.String("key", key), logger.Error(err))
		}
	}

	m.log.Info("pending deltas synced",
		logger.Int("applied", res.Applied),
		logger.Int("failed", res.Failed),
		logger.Int64("clicks", res.Clicks))
	return res, nil
}

// PendingDeltas returns a copy of the pending queue.
func (m *Manager) PendingDeltas(ctx context.Context) (domain.PendingDeltas, error) {
	return m.loadPending(ctx)
}

// applyServerCount stores the cloud count plus whatever is still queued
// for the link, so local equals cloud plus pending.
func (m *Manager) applyServerCount(ctx context.Context, id, url string, serverCount int64) (domain.Link, error) {
	still := m.pendingSnapshot(ctx).CountFor(id, url)
	mut, err := m.updateLink(ctx, id, url, func(l *domain.Link) {
		l.ClickCount = serverCount + still
	})
	if err != nil {
		return domain.Link{}, err
	}
	return mut.After[findLink(mut.After, id, url)], nil
}

// ─────────────────────────────────────────────────────────────────
// Pending queue
// ─────────────────────────────────────────────────────────────────

func (m *Manager) loadPending(ctx context.Context) (domain.PendingDeltas, error) {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()

	p, err := m.cache.LoadPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending deltas: %w", err)
	}
	return p, nil
}

// pendingSnapshot is loadPending for callers that degrade to an empty
// queue on a read failure.
func (m *Manager) pendingSnapshot(ctx context.Context) domain.PendingDeltas {
	p, err := m.loadPending(ctx)
	if err != nil {
		m.log.Warn("pending deltas unavailable", logger.Error(err))
		return domain.PendingDeltas{}
	}
	return p
}

func (m *Manager) editPending(ctx context.Context, fn func(p domain.PendingDeltas)) error {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()

	p, err := m.cache.LoadPending(ctx)
	if err != nil {
		return fmt.Errorf("failed to load pending deltas: %w", err)
	}
	fn(p)
	if err := m.cache.SavePending(ctx, p); err != nil {
		return fmt.Errorf("failed to save pending deltas: %w", err)
	}
	return nil
}

func (m *Manager) queueDelta(ctx context.Context, key, url string, n int64) error {
	return m.editPending(ctx, func(p domain.PendingDeltas) {
		p.Add(key, url, n, m.opts.Now())
	})
}

func (m *Manager) settleDelta(ctx context.Context, key string, n int64) error {
	return m.editPending(ctx, func(p domain.PendingDeltas) {
		p.Subtract(key, n)
	})
}

func (m *Manager) dropDeltas(ctx context.Context, id, url string) error {
	return m.editPending(ctx, func(p domain.PendingDeltas) {
		for _, k := range p.KeysFor(id, url) {
			delete(p, k)
		}
	})
}
