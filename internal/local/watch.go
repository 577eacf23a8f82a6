package local

import (
	"context"
	"fmt"
	"time"

	"github.com/Gundoganfa/SomeNiceLinks/internal/logger"
)

type change struct {
	key   string
	value []byte
}

// OnExternalChange registers cb for writes made by other processes sharing
// the same database. The watcher starts with the first subscription. The
// returned func removes the subscription.
func (s *Store) OnExternalChange(cb ChangeFunc) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = cb
	if s.stopCh == nil {
		s.stopCh = make(chan struct{})
		s.doneCh = make(chan struct{})
		go s.watch(s.stopCh, s.doneCh)
	}
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) watch(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := s.poll(context.Background()); err != nil {
				s.log.Warn("external change poll failed", logger.Error(err))
			}
		}
	}
}

// poll delivers every external write newer than the last one seen. Only
// the latest value per key reaches subscribers: last write wins.
func (s *Store) poll(ctx context.Context) error {
	s.mu.Lock()
	since := s.lastSeq
	s.mu.Unlock()

	changes, latest, err := s.changesSince(ctx, since)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if latest > s.lastSeq {
		s.lastSeq = latest
	}
	subs := make([]ChangeFunc, 0, len(s.subs))
	for _, cb := range s.subs {
		subs = append(subs, cb)
	}
	s.mu.Unlock()

	// rows are closed here; callbacks may write back to the store
	for _, c := range changes {
		for _, cb := range subs {
			cb(c.key, c.value)
		}
	}
	return nil
}

func (s *Store) changesSince(ctx context.Context, since int64) ([]change, int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value, seq, writer FROM kv WHERE seq > ? ORDER BY seq`, since)
	if err != nil {
		return nil, since, fmt.Errorf("failed to query changes: %w", err)
	}
	defer rows.Close()

	var changes []change
	latest := since
	for rows.Next() {
		var (
			key, value, writer string
			seq                int64
		)
		if err := rows.Scan(&key, &value, &seq, &writer); err != nil {
			return nil, since, fmt.Errorf("failed to scan change: %w", err)
		}
		if seq > latest {
			latest = seq
		}
		if writer != s.writer {
			changes = append(changes, change{key: key, value: []byte(value)})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, since, fmt.Errorf("failed to read changes: %w", err)
	}
	return changes, latest, nil
}
