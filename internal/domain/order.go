package domain

import (
	"errors"
	"fmt"
	"slices"
)

// ErrIndexOutOfRange is returned when a move references a position
// outside the visible list.
var ErrIndexOutOfRange = errors.New("index out of range")

// Move returns a copy of links with the element at from moved to to,
// using standard array move semantics: remove at from, then insert at to
// shifted left by one when the source precedes the target.
func Move(links []Link, from, to int) ([]Link, error) {
	n := len(links)
	if from < 0 || from >= n {
		return nil, fmt.Errorf("move from %d: %w", from, ErrIndexOutOfRange)
	}
	if to < 0 || to > n {
		return nil, fmt.Errorf("move to %d: %w", to, ErrIndexOutOfRange)
	}
	out := slices.Clone(links)
	item := out[from]
	out = slices.Delete(out, from, from+1)
	if from < to {
		to--
	}
	if to > len(out) {
		to = len(out)
	}
	return slices.Insert(out, to, item), nil
}

// MoveVisible moves an element inside a filtered projection. visible holds
// the full-collection index of each visible element in display order. The
// visible positions are mapped back to full indices before splicing, and a
// move to the last visible position places the element right after the
// last visible element.
func MoveVisible(links []Link, visible []int, from, to int) ([]Link, error) {
	if from < 0 || from >= len(visible) {
		return nil, fmt.Errorf("visible from %d: %w", from, ErrIndexOutOfRange)
	}
	if to < 0 || to >= len(visible) {
		return nil, fmt.Errorf("visible to %d: %w", to, ErrIndexOutOfRange)
	}
	fullFrom := visible[from]
	fullTo := visible[to]
	if fullFrom < fullTo {
		// insertion point is after the target element
		fullTo++
	}
	return Move(links, fullFrom, fullTo)
}

// Resequence reassigns sort orders by position.
func Resequence(links []Link) []Link {
	out := slices.Clone(links)
	for i := range out {
		out[i].SortOrder = SortOrderAt(i)
	}
	return out
}

// SortBySortOrder orders links by sort order, keeping insertion order for
// ties.
func SortBySortOrder(links []Link) {
	slices.SortStableFunc(links, func(a, b Link) int {
		return a.SortOrder - b.SortOrder
	})
}
