package linksync

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/Gundoganfa/SomeNiceLinks/internal/domain"
	"github.com/Gundoganfa/SomeNiceLinks/internal/logger"
)

// OutcomeKind is the relationship found between local and cloud links.
type OutcomeKind int

const (
	NoChange OutcomeKind = iota
	Seeded
	AdoptRemote
	AdoptLocalAndUpload
	InSync
	ConflictPending
)

func (k OutcomeKind) String() string {
	switch k {
	case NoChange:
		return "no_change"
	case Seeded:
		return "seeded"
	case AdoptRemote:
		return "adopt_remote"
	case AdoptLocalAndUpload:
		return "adopt_local_and_upload"
	case InSync:
		return "in_sync"
	case ConflictPending:
		return "conflict_pending"
	default:
		return "unknown"
	}
}

// Outcome is the result of a reconciliation. Links is the adopted
// collection; for ConflictPending it is nil and Conflict holds both sides.
type Outcome struct {
	Kind     OutcomeKind
	Links    []domain.Link
	Conflict *Conflict
}

// Conflict is the divergent pair captured at detection. It is never
// persisted.
type Conflict struct {
	Local []domain.Link
	Cloud []domain.Link
}

// Choice is a conflict resolution.
type Choice int

const (
	UseLocal Choice = iota + 1
	UseCloud
	Merge
)

func (c Choice) String() string {
	switch c {
	case UseLocal:
		return "local"
	case UseCloud:
		return "cloud"
	case Merge:
		return "merge"
	default:
		return "unknown"
	}
}

// ParseChoice accepts local, cloud and merge.
func ParseChoice(s string) (Choice, error) {
	switch s {
	case "local":
		return UseLocal, nil
	case "cloud":
		return UseCloud, nil
	case "merge":
		return Merge, nil
	default:
		return 0, fmt.Errorf("unknown resolution %q (want local, cloud or merge)", s)
	}
}

// Classify decides how two snapshots relate. The first matching rule wins.
func Classify(local, cloud []domain.Link) OutcomeKind {
	switch {
	case len(local) == 0 && len(cloud) == 0:
		return Seeded
	case len(local) == 0:
		return AdoptRemote
	case len(cloud) == 0:
		return AdoptLocalAndUpload
	case domain.Equal(local, cloud):
		return InSync
	default:
		return ConflictPending
	}
}

// Reconcile compares the local collection with the cloud copy and applies
// the transition Classify selects. A cloud read failure aborts without
// touching local state. A divergence is held as the pending conflict.
func (m *Manager) Reconcile(ctx context.Context) (Outcome, error) {
	outcome, err := m.reconcile(ctx)
	if err == nil {
		m.stateMu.Lock()
		m.reconcileDue = false
		m.stateMu.Unlock()
	}
	return outcome, err
}

func (m *Manager) reconcile(ctx context.Context) (Outcome, error) {
	user, ok := m.userID()
	if !ok {
		return Outcome{}, ErrNotSignedIn
	}
	if c, pending := m.PendingConflict(); pending {
		return Outcome{Kind: ConflictPending, Conflict: c}, ErrConflictPending
	}

	rows, err := m.remote.ListLinks(ctx)
	if err != nil {
		m.notify.Notify(KindError, "Cloud links could not be fetched.")
		return Outcome{}, fmt.Errorf("failed to fetch cloud links: %w", err)
	}

	localLinks := m.idx.All()
	cloud := domain.LinksFromRows(rows)
	domain.SortBySortOrder(cloud)
	kind := Classify(localLinks, cloud)
	log := m.log.With(logger.String("outcome", kind.String()), logger.Int("local", len(localLinks)), logger.Int("cloud", len(cloud)))

	switch kind {
	case Seeded:
		seeded := m.opts.Defaults(m.opts.NewID)
		if _, err := m.replaceAll(ctx, seeded); err != nil {
			return Outcome{}, err
		}
		log.Info("both sides empty, seeded defaults")
		return Outcome{Kind: kind, Links: seeded}, nil

	case AdoptRemote, InSync:
		if kind == InSync && !sameOrder(localLinks, cloud) {
			// the cloud copy wins ties, including its order
			log.Info("content in sync, local order replaced by cloud order")
		}
		adopted, err := m.adopt(ctx, cloud)
		if err != nil {
			return Outcome{}, err
		}
		if kind == AdoptRemote {
			m.notify.Notify(KindSuccess, fmt.Sprintf("%d cloud links loaded.", len(adopted)))
		}
		log.Info("adopted cloud links")
		return Outcome{Kind: kind, Links: adopted}, nil

	case AdoptLocalAndUpload:
		created, err := m.remote.InsertLinks(ctx, m.inserts(ctx, user, localLinks))
		if err != nil {
			m.notify.Notify(KindError, "Local links could not be uploaded to the cloud.")
			return Outcome{}, fmt.Errorf("failed to upload local links: %w", err)
		}
		adopted, err := m.adoptCreated(ctx, localLinks, created)
		if err != nil {
			return Outcome{}, err
		}
		m.notify.Notify(KindSuccess, fmt.Sprintf("%d local links uploaded to the cloud.", len(adopted)))
		log.Info("uploaded local links")
		return Outcome{Kind: kind, Links: adopted}, nil

	default:
		c := &Conflict{Local: localLinks, Cloud: cloud}
		m.stateMu.Lock()
		m.conflict = c
		m.stateMu.Unlock()
		m.notify.Notify(KindInfo, "Local and cloud links differ. Choose local, cloud or merge.")
		log.Info("conflict pending")
		return Outcome{Kind: kind, Conflict: c}, nil
	}
}

// PendingConflict returns the conflict awaiting resolution, if any.
func (m *Manager) PendingConflict() (*Conflict, bool) {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.conflict, m.conflict != nil
}

// DismissConflict drops the pending conflict without a choice. Nothing
// changes; the next sign-in detects the divergence again.
func (m *Manager) DismissConflict() {
	m.stateMu.Lock()
	m.conflict = nil
	m.stateMu.Unlock()
}

// Resolve applies a choice to the pending conflict. UseLocal and Merge
// overwrite the cloud copy; the local collection is updated first, so a
// failed overwrite yields an *InconsistencyError and keeps the conflict
// for a retry.
func (m *Manager) Resolve(ctx context.Context, choice Choice) ([]domain.Link, error) {
	c, ok := m.PendingConflict()
	if !ok {
		return nil, ErrNoConflict
	}

	var target []domain.Link
	switch choice {
	case UseCloud:
		adopted, err := m.adopt(ctx, c.Cloud)
		if err != nil {
			return nil, err
		}
		m.clearConflict(c)
		m.notify.Notify(KindSuccess, fmt.Sprintf("%d cloud links loaded.", len(adopted)))
		return adopted, nil
	case UseLocal:
		target = slices.Clone(c.Local)
	case Merge:
		target = domain.MergeByURL(c.Local, c.Cloud)
	default:
		return nil, fmt.Errorf("unknown resolution %d", choice)
	}

	links, err := m.overwriteCloud(ctx, target)
	if err != nil {
		return nil, err
	}
	m.clearConflict(c)
	m.notify.Notify(KindSuccess, fmt.Sprintf("%d links saved to the cloud.", len(links)))
	return links, nil
}

func (m *Manager) clearConflict(c *Conflict) {
	m.stateMu.Lock()
	if m.conflict == c {
		m.conflict = nil
	}
	m.stateMu.Unlock()
}

// overwriteCloud adopts target locally, then replaces every cloud row of
// the owner with it. Delete and insert are separate calls, so a failure in
// between leaves the two sides inconsistent.
func (m *Manager) overwriteCloud(ctx context.Context, target []domain.Link) ([]domain.Link, error) {
	user, ok := m.userID()
	if !ok {
		return nil, ErrNotSignedIn
	}

	if _, err := m.replaceAll(ctx, target); err != nil {
		return nil, err
	}

	if _, err := m.remote.DeleteLinks(ctx, domain.Match{}); err != nil {
		m.notify.Notify(KindError, "Local links updated, cloud NOT updated.")
		return nil, &InconsistencyError{Op: "delete", Err: err}
	}

	created, err := m.remote.InsertLinks(ctx, m.inserts(ctx, user, target))
	if err != nil {
		m.notify.Notify(KindError, "Local links updated, cloud NOT updated. The cloud is now empty.")
		return nil, &InconsistencyError{Op: "insert", RemoteCleared: true, Err: err}
	}

	return m.adoptCreated(ctx, target, created)
}

// adopt replaces the collection with cloud links. Click counts include
// the clicks still waiting in the pending queue.
func (m *Manager) adopt(ctx context.Context, cloud []domain.Link) ([]domain.Link, error) {
	pending := m.pendingSnapshot(ctx)
	adopted := slices.Clone(cloud)
	for i := range adopted {
		adopted[i].ClickCount += pending.CountFor(adopted[i].ID, adopted[i].URL)
	}
	if _, err := m.replaceAll(ctx, adopted); err != nil {
		return nil, err
	}
	return adopted, nil
}

// adoptCreated swaps local ids for the ids the cloud assigned. Rows come
// back in insert order; a short answer keeps the remaining local ids.
func (m *Manager) adoptCreated(ctx context.Context, links []domain.Link, created []domain.LinkRow) ([]domain.Link, error) {
	out := slices.Clone(links)
	for i := range out {
		if i >= len(created) {
			break
		}
		if created[i].URL != "" && created[i].URL != out[i].URL {
			continue
		}
		out[i].ID = created[i].ID
		out[i].SortOrder = created[i].SortOrder
	}
	if _, err := m.replaceAll(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// inserts builds cloud rows for links. Clicks still in the pending queue
// are left out of the uploaded count; the queue replay adds them.
func (m *Manager) inserts(ctx context.Context, owner string, links []domain.Link) []domain.LinkInsert {
	pending := m.pendingSnapshot(ctx)
	rows := domain.InsertsFromLinks(owner, links)
	for i := range rows {
		rows[i].ClickCount = max(rows[i].ClickCount-pending.CountFor(links[i].ID, links[i].URL), 0)
	}
	return rows
}

func sameOrder(a, b []domain.Link) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].URL != b[i].URL {
			return false
		}
	}
	return true
}

// IsInconsistent reports whether err left local and cloud out of step.
func IsInconsistent(err error) bool {
	var ie *InconsistencyError
	return errors.As(err, &ie)
}
