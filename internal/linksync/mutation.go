package linksync

import (
	"context"
	"fmt"
	"slices"

	"github.com/Gundoganfa/SomeNiceLinks/internal/domain"
	"github.com/Gundoganfa/SomeNiceLinks/internal/logger"
)

// State is the lifecycle of a local mutation.
type State int

const (
	Pending State = iota
	Confirmed
	RolledBack
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	case RolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Mutation records a local change. Before is captured when the mutation
// starts and is restored verbatim on rollback.
type Mutation struct {
	Before []domain.Link
	After  []domain.Link
	State  State
}

// commit applies fn to a copy of the collection, publishes the result and
// persists it. A persistence failure restores the captured snapshot.
// An error from fn aborts before anything changes.
func (m *Manager) commit(ctx context.Context, fn func(links []domain.Link) ([]domain.Link, error)) (*Mutation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	before := m.idx.All()
	after, err := fn(slices.Clone(before))
	if err != nil {
		return nil, err
	}

	mut := &Mutation{Before: before, After: after, State: Pending}
	m.idx.Replace(after)

	if err := m.cache.SaveLinks(ctx, after); err != nil {
		m.idx.Replace(mut.Before)
		mut.State = RolledBack
		m.log.Error("local save failed, mutation rolled back", logger.Error(err))
		return mut, fmt.Errorf("failed to save links locally: %w", err)
	}
	mut.State = Confirmed
	return mut, nil
}

// replaceAll is a commit that swaps in links wholesale.
func (m *Manager) replaceAll(ctx context.Context, links []domain.Link) (*Mutation, error) {
	return m.commit(ctx, func([]domain.Link) ([]domain.Link, error) {
		return slices.Clone(links), nil
	})
}

// updateLink commits fn applied to the link found by id or url.
func (m *Manager) updateLink(ctx context.Context, id, url string, fn func(l *domain.Link)) (*Mutation, error) {
	return m.commit(ctx, func(links []domain.Link) ([]domain.Link, error) {
		i := findLink(links, id, url)
		if i < 0 {
			return nil, ErrUnknownLink
		}
		fn(&links[i])
		return links, nil
	})
}

func findLink(links []domain.Link, id, url string) int {
	if id != "" {
		if i := slices.IndexFunc(links, func(l domain.Link) bool { return l.ID == id }); i >= 0 {
			return i
		}
	}
	if url == "" {
		return -1
	}
	return slices.IndexFunc(links, func(l domain.Link) bool { return l.URL == url })
}
