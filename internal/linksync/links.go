package linksync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Gundoganfa/SomeNiceLinks/internal/domain"
	"github.com/Gundoganfa/SomeNiceLinks/internal/logger"
)

// AddLink appends a validated link. When signed in the cloud row is
// created as well and its id replaces the local one; on a cloud failure
// the local entry stays local-only and a *RemoteError is returned.
func (m *Manager) AddLink(ctx context.Context, n domain.NewLink) (domain.Link, error) {
	n = n.Normalized()
	if err := n.Validate(); err != nil {
		return domain.Link{}, err
	}

	link := n.WithID(m.opts.NewID())
	mut, err := m.commit(ctx, func(links []domain.Link) ([]domain.Link, error) {
		link.SortOrder = nextSortOrder(links)
		return append(links, link), nil
	})
	if err != nil {
		return domain.Link{}, err
	}
	link = mut.After[len(mut.After)-1]
	m.notify.Notify(KindSuccess, "New link added.")

	user, ok := m.userID()
	if !ok {
		return link, nil
	}

	in := domain.InsertFromLink(user, link, 0)
	in.SortOrder = link.SortOrder
	created, err := m.remote.InsertLinks(ctx, []domain.LinkInsert{in})
	if err != nil || len(created) == 0 {
		if err == nil {
			err = fmt.Errorf("no row returned")
		}
		m.notify.Notify(KindError, fmt.Sprintf("Could not save to the cloud: %v", err))
		return link, &RemoteError{Op: "insert", Err: err}
	}

	localID := link.ID
	mut, err = m.updateLink(ctx, localID, "", func(l *domain.Link) { l.ID = created[0].ID })
	if err != nil {
		return link, err
	}
	m.notify.Notify(KindSuccess, "Link saved to the cloud.")
	return mut.After[findLink(mut.After, created[0].ID, "")], nil
}

func nextSortOrder(links []domain.Link) int {
	highest := 0
	for _, l := range links {
		highest = max(highest, l.SortOrder)
	}
	return highest + domain.SortStep
}

// DeleteLink removes a link locally, and from the cloud by url when
// signed in. Its pending clicks are discarded.
func (m *Manager) DeleteLink(ctx context.Context, id string) error {
	link, ok := m.idx.Get(id)
	if !ok {
		return ErrUnknownLink
	}

	if _, err := m.commit(ctx, func(links []domain.Link) ([]domain.Link, error) {
		i := findLink(links, id, "")
		if i < 0 {
			return nil, ErrUnknownLink
		}
		return append(links[:i], links[i+1:]...), nil
	}); err != nil {
		return err
	}
	if err := m.dropDeltas(ctx, link.ID, link.URL); err != nil {
		m.log.Warn("failed to drop pending deltas of deleted link", logger.Error(err))
	}
	m.notify.Notify(KindSuccess, "Link deleted.")

	if !m.SignedIn() {
		return nil
	}
	if _, err := m.remote.DeleteLinks(ctx, domain.Match{URL: link.URL}); err != nil {
		m.notify.Notify(KindError, "Link could not be deleted from the cloud.")
		return &RemoteError{Op: "delete", Err: err}
	}
	m.notify.Notify(KindSuccess, "Link deleted from the cloud.")
	return nil
}

// ChangeColor sets a link's custom color. ColorReset clears it.
func (m *Manager) ChangeColor(ctx context.Context, id, color string) (domain.Link, error) {
	normalized := color
	if color == domain.ColorReset {
		normalized = ""
	}

	mut, err := m.updateLink(ctx, id, "", func(l *domain.Link) { l.CustomColor = normalized })
	if err != nil {
		return domain.Link{}, err
	}
	link := mut.After[findLink(mut.After, id, "")]

	if !m.SignedIn() {
		return link, nil
	}
	if _, err := m.remote.UpdateLinks(ctx, domain.Match{URL: link.URL}, domain.LinkPatch{CustomColor: &normalized}); err != nil {
		m.notify.Notify(KindError, "Color change could not be synced to the cloud.")
		return link, &RemoteError{Op: "update color", Err: err}
	}
	return link, nil
}

// Reorder moves a link within a filtered view. Indices are positions in
// the view; the move is applied to the full collection, which is then
// resequenced. When signed in the changed sort orders are pushed as a
// batch of independent updates; failures come back as a *BatchError and
// neither local state nor the successful updates are reverted.
func (m *Manager) Reorder(ctx context.Context, v View, from, to int) ([]domain.Link, error) {
	mut, err := m.commit(ctx, func(links []domain.Link) ([]domain.Link, error) {
		moved, err := domain.MoveVisible(links, domain.Filter(links, v.Query, v.Category), from, to)
		if err != nil {
			return nil, err
		}
		return domain.Resequence(moved), nil
	})
	if err != nil {
		return nil, err
	}

	if !m.SignedIn() {
		return mut.After, nil
	}

	before := make(map[string]int, len(mut.Before))
	for _, l := range mut.Before {
		before[l.URL] = l.SortOrder
	}
	var changed []domain.Link
	for _, l := range mut.After {
		if prev, ok := before[l.URL]; !ok || prev != l.SortOrder {
			changed = append(changed, l)
		}
	}

	if err := m.pushSortOrders(ctx, changed); err != nil {
		m.notify.Notify(KindError, "Order could not be synced to the cloud.")
		return mut.After, err
	}
	return mut.After, nil
}

func (m *Manager) pushSortOrders(ctx context.Context, links []domain.Link) error {
	var (
		mu       sync.Mutex
		failures []BatchFailure
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.BatchConcurrency)
	for _, l := range links {
		order := l.SortOrder
		url := l.URL
		g.Go(func() error {
			// failures are collected, not returned, so one failure does not cancel the rest
			if _, err := m.remote.UpdateLinks(gctx, domain.Match{URL: url}, domain.LinkPatch{SortOrder: &order}); err != nil {
				mu.Lock()
				failures = append(failures, BatchFailure{URL: url, Err: err})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failures) == 0 {
		return nil
	}
	err := &BatchError{Op: "sort order sync", Total: len(links), Failures: failures}
	m.log.Warn("partial sort order sync", logger.Int("failed", len(failures)), logger.Int("total", len(links)), logger.Error(err))
	return err
}

// Import reads an exported links file. Merge folds it into the collection
// by url, otherwise it replaces the collection. When signed in the result
// overwrites the cloud copy. It returns the number of usable records.
func (m *Manager) Import(ctx context.Context, r io.Reader, merge bool) (int, error) {
	incoming, err := SanitizeImport(r, m.opts.NewID)
	if err != nil {
		m.notify.Notify(KindError, "Invalid or empty file.")
		return 0, err
	}

	mut, err := m.commit(ctx, func(links []domain.Link) ([]domain.Link, error) {
		if merge {
			return domain.MergeImport(links, incoming, m.opts.NewID), nil
		}
		return incoming, nil
	})
	if err != nil {
		return 0, err
	}

	mode := "replace"
	if merge {
		mode = "merge"
	}
	if !m.SignedIn() {
		m.notify.Notify(KindSuccess, fmt.Sprintf("Import (%s) done.", mode))
		return len(incoming), nil
	}

	if _, err := m.overwriteCloud(ctx, mut.After); err != nil {
		m.notify.Notify(KindError, fmt.Sprintf("Import (%s) done. Cloud sync failed.", mode))
		return len(incoming), err
	}
	m.notify.Notify(KindSuccess, fmt.Sprintf("%d links imported (%s) and synced to the cloud.", len(incoming), mode))
	return len(incoming), nil
}

// SanitizeImport parses an import file. Records need a title and a valid
// url; every kept record gets a fresh id and display defaults.
func SanitizeImport(r io.Reader, newID func() string) ([]domain.Link, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}

	links := make([]domain.Link, 0, len(raw))
	for _, item := range raw {
		var n domain.NewLink
		if err := json.Unmarshal(item, &n); err != nil {
			continue
		}
		n = n.Normalized()
		if n.Validate() != nil {
			continue
		}
		links = append(links, n.WithID(newID()))
	}
	if len(links) == 0 {
		return nil, ErrInvalidImport
	}
	return links, nil
}

// Export writes the collection as indented JSON.
func (m *Manager) Export(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m.idx.All()); err != nil {
		m.notify.Notify(KindError, "Export failed.")
		return fmt.Errorf("failed to export links: %w", err)
	}
	return nil
}

// ExportFileName is the default file name for an export taken at t.
func ExportFileName(t time.Time) string {
	return "somenice-links-" + t.UTC().Format("2006-01-02_15-04") + ".json"
}

// ResetToDefaults replaces the local collection with the default set.
func (m *Manager) ResetToDefaults(ctx context.Context) ([]domain.Link, error) {
	seeded := m.opts.Defaults(m.opts.NewID)
	if _, err := m.replaceAll(ctx, seeded); err != nil {
		return nil, err
	}
	m.notify.Notify(KindSuccess, "Default links loaded.")
	return seeded, nil
}

// ClearAll empties the local collection and its pending queue.
func (m *Manager) ClearAll(ctx context.Context) error {
	if _, err := m.replaceAll(ctx, []domain.Link{}); err != nil {
		return err
	}
	if err := m.editPending(ctx, func(p domain.PendingDeltas) { clear(p) }); err != nil {
		m.log.Warn("failed to clear pending deltas", logger.Error(err))
	}
	m.notify.Notify(KindSuccess, "All links deleted.")
	return nil
}
