// Package store defines the remote link store contract shared by the
// Redis and Postgres backends.
package store

import (
	"context"
	"errors"

	"github.com/Gundoganfa/SomeNiceLinks/internal/domain"
)

var (
	// ErrLinkNotFound is returned when no link matches an id or (owner, url).
	ErrLinkNotFound = errors.New("link not found")
	// ErrInvalidTarget is returned when an increment names no link.
	ErrInvalidTarget = errors.New("linkId or ownerId+url required")
	// ErrEmptyMatch is returned when an update selects no id or url.
	ErrEmptyMatch = errors.New("update requires an id or url match")
)

// LinkStore is the remote table of links. Every row has exactly one owner.
type LinkStore interface {
	// ListLinks returns the owner's rows ordered by sort order.
	ListLinks(ctx context.Context, owner string) ([]domain.LinkRow, error)

	// InsertLinks creates rows under owner. Each row gets a fresh id.
	InsertLinks(ctx context.Context, owner string, rows []domain.LinkInsert) ([]domain.LinkRow, error)

	// UpdateLinks applies a patch to the owner's rows selected by m and
	// returns the number of rows changed.
	UpdateLinks(ctx context.Context, owner string, m domain.Match, p domain.LinkPatch) (int, error)

	// DeleteLinks removes the owner's rows selected by m, or all of them
	// when m is zero.
	DeleteLinks(ctx context.Context, owner string, m domain.Match) (int, error)

	// IncrementClicks adds delta to a link's click count in one atomic
	// server-side step and returns the new count.
	IncrementClicks(ctx context.Context, t domain.IncrementTarget, delta int64) (domain.ClickCount, error)

	// GetLink returns a single row by id.
	GetLink(ctx context.Context, id string) (domain.LinkRow, error)

	Ping(ctx context.Context) error
}

// Increment resolves t by link id first and falls back to (owner, url)
// when the id is unknown and the fallback pair is present.
func Increment(ctx context.Context, s LinkStore, t domain.IncrementTarget, delta int64) (domain.ClickCount, error) {
	if !t.Valid() {
		return domain.ClickCount{}, ErrInvalidTarget
	}
	if t.LinkID == "" {
		return s.IncrementClicks(ctx, t, delta)
	}

	res, err := s.IncrementClicks(ctx, domain.IncrementTarget{LinkID: t.LinkID}, delta)
	if errors.Is(err, ErrLinkNotFound) && t.OwnerID != "" && t.URL != "" {
		return s.IncrementClicks(ctx, domain.IncrementTarget{OwnerID: t.OwnerID, URL: t.URL}, delta)
	}
	return res, err
}
