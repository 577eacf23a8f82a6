// Package linksync keeps the local link collection and the cloud copy in
// step. It reconciles the two on sign-in, resolves conflicts, tracks clicks
// with a durable pending queue and pushes local edits to the cloud on a
// best-effort basis.
package linksync

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/Gundoganfa/SomeNiceLinks/internal/domain"
	"github.com/Gundoganfa/SomeNiceLinks/internal/index"
	"github.com/Gundoganfa/SomeNiceLinks/internal/local"
	"github.com/Gundoganfa/SomeNiceLinks/internal/logger"
	"github.com/Gundoganfa/SomeNiceLinks/internal/remote"
)

// Cache is the durable local persistence.
type Cache interface {
	LoadLinks(ctx context.Context) ([]domain.Link, error)
	SaveLinks(ctx context.Context, links []domain.Link) error
	LoadPending(ctx context.Context) (domain.PendingDeltas, error)
	SavePending(ctx context.Context, p domain.PendingDeltas) error
	Theme(ctx context.Context) (string, error)
	SetTheme(ctx context.Context, class string) error
	ShowClickCounts(ctx context.Context) (bool, error)
	SetShowClickCounts(ctx context.Context, show bool) error
	OnExternalChange(cb local.ChangeFunc) (unsubscribe func())
}

// Remote is the cloud link table of the signed-in owner.
type Remote interface {
	SetTokenGetter(fn remote.TokenGetter)
	ListLinks(ctx context.Context) ([]domain.LinkRow, error)
	InsertLinks(ctx context.Context, rows []domain.LinkInsert) ([]domain.LinkRow, error)
	UpdateLinks(ctx context.Context, m domain.Match, p domain.LinkPatch) (int, error)
	DeleteLinks(ctx context.Context, m domain.Match) (int, error)
	Increment(ctx context.Context, t domain.IncrementTarget, delta int64) (domain.ClickCount, error)
}

// Session identifies the signed-in user.
type Session struct {
	UserID string
	Token  remote.TokenGetter
}

// Options configure a Manager. Zero values select defaults.
type Options struct {
	// Defaults produces the canonical default set with fresh ids.
	Defaults func(newID func() string) []domain.Link
	NewID    func() string
	Now      func() time.Time
	Notifier Notifier
	// BatchConcurrency bounds parallel cloud updates of a batch.
	BatchConcurrency int
}

// Manager owns the in-memory collection. It is safe for concurrent use.
type Manager struct {
	log    logger.Logger
	cache  Cache
	remote Remote
	idx    *index.MemoryIndex
	notify Notifier
	opts   Options

	// mu serializes local mutations so they apply in issue order.
	mu sync.Mutex
	// pendingMu guards read-modify-write of the pending queue.
	pendingMu sync.Mutex

	stateMu    sync.RWMutex
	session    *Session
	conflict   *Conflict
	// reconcileDue is set on the sign-in edge until a Reconcile completes.
	reconcileDue bool
	theme      domain.BackgroundTheme
	showClicks bool

	flight      singleflight.Group
	unsubscribe func()
}

// New creates a Manager. Call Load before using it.
func New(cache Cache, rem Remote, log logger.Logger, opts Options) *Manager {
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Defaults == nil {
		opts.Defaults = func(func() string) []domain.Link { return nil }
	}
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = 4
	}
	log = log.With(logger.Component("linksync"))
	if opts.Notifier == nil {
		opts.Notifier = LogNotifier{Log: log}
	}
	return &Manager{
		log:        log,
		cache:      cache,
		remote:     rem,
		idx:        index.NewMemoryIndex(),
		notify:     opts.Notifier,
		opts:       opts,
		theme:      domain.DefaultTheme(),
		showClicks: true,
	}
}

// Load hydrates the collection from the local cache, seeding the default
// set on first run, and subscribes to external changes.
func (m *Manager) Load(ctx context.Context) error {
	links, err := m.cache.LoadLinks(ctx)
	if err != nil {
		return fmt.Errorf("failed to load links: %w", err)
	}

	if len(links) == 0 {
		seeded := m.opts.Defaults(m.opts.NewID)
		if _, err := m.commit(ctx, func([]domain.Link) ([]domain.Link, error) { return seeded, nil }); err != nil {
			return err
		}
		m.log.Info("seeded default links", logger.Int("count", len(seeded)))
	} else {
		m.idx.Replace(links)
		m.log.Debug("links loaded", logger.Int("count", len(links)))
	}

	m.loadPreferences(ctx)

	m.stateMu.Lock()
	if m.unsubscribe == nil {
		m.unsubscribe = m.cache.OnExternalChange(m.onExternalChange)
	}
	m.stateMu.Unlock()
	return nil
}

// Close drops the external change subscription.
func (m *Manager) Close() {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

func (m *Manager) loadPreferences(ctx context.Context) {
	class, err := m.cache.Theme(ctx)
	if err != nil {
		m.log.Warn("failed to load background theme", logger.Error(err))
	}
	show, err := m.cache.ShowClickCounts(ctx)
	if err != nil {
		m.log.Warn("failed to load click count setting", logger.Error(err))
		show = true
	}

	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	if class != "" {
		m.theme = themeForClass(class)
	}
	m.showClicks = show
}

func themeForClass(class string) domain.BackgroundTheme {
	for _, t := range domain.BackgroundThemes {
		if t.Class == class {
			return t
		}
	}
	return domain.BackgroundTheme{Name: class, Class: class}
}

// onExternalChange re-hydrates from a write made by another process.
// The external value replaces the in-memory one wholesale.
func (m *Manager) onExternalChange(key string, value []byte) {
	switch key {
	case local.KeyLinks:
		links, rejected, err := local.DecodeLinks(value, m.opts.NewID)
		if err != nil {
			m.log.Warn("ignoring unreadable external links write", logger.Error(err))
			return
		}
		for _, r := range rejected {
			m.log.Warn("dropping external link record", logger.Int("index", r.Index), logger.Error(r.Err))
		}
		m.mu.Lock()
		m.idx.Replace(links)
		m.mu.Unlock()
		m.log.Info("links re-hydrated from external change", logger.Int("count", len(links)))
	case local.KeyTheme:
		m.stateMu.Lock()
		m.theme = themeForClass(string(value))
		m.stateMu.Unlock()
	case local.KeyShowClicks:
		show, err := strconv.ParseBool(string(value))
		if err != nil {
			return
		}
		m.stateMu.Lock()
		m.showClicks = show
		m.stateMu.Unlock()
	}
}

// ─────────────────────────────────────────────────────────────────
// Session
// ─────────────────────────────────────────────────────────────────

// SignIn attaches a session. On the signed-out to signed-in edge it
// reconciles with the cloud and then replays pending click deltas.
func (m *Manager) SignIn(ctx context.Context, s Session) (Outcome, error) {
	if s.UserID == "" {
		return Outcome{}, fmt.Errorf("sign in: %w", ErrNotSignedIn)
	}
	m.remote.SetTokenGetter(s.Token)

	m.stateMu.Lock()
	edge := m.session == nil || m.session.UserID != s.UserID
	m.session = &Session{UserID: s.UserID, Token: s.Token}
	if edge {
		m.conflict = nil
		m.reconcileDue = true
	}
	m.stateMu.Unlock()

	if !edge {
		return Outcome{}, nil
	}

	m.log.Info("signed in", logger.String("user", s.UserID))
	outcome, err := m.Reconcile(ctx)
	if _, serr := m.SyncPendingDeltas(ctx); serr != nil {
		m.log.Warn("pending delta sync after sign-in failed", logger.Error(serr))
	}
	return outcome, err
}

// Restore attaches a session without running the sign-in transition.
func (m *Manager) Restore(s Session) {
	m.remote.SetTokenGetter(s.Token)
	m.stateMu.Lock()
	m.session = &Session{UserID: s.UserID, Token: s.Token}
	m.stateMu.Unlock()
}

// SignOut detaches the session and discards any pending conflict.
func (m *Manager) SignOut() {
	m.remote.SetTokenGetter(nil)
	m.stateMu.Lock()
	m.session = nil
	m.conflict = nil
	m.reconcileDue = false
	m.stateMu.Unlock()
}

// ReconcileDue reports whether the sign-in reconcile has not completed yet,
// typically because the cloud was unreachable at sign-in.
func (m *Manager) ReconcileDue() bool {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.session != nil && m.reconcileDue
}

// SignedIn reports whether a session is attached.
func (m *Manager) SignedIn() bool {
	_, ok := m.userID()
	return ok
}

func (m *Manager) userID() (string, bool) {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	if m.session == nil {
		return "", false
	}
	return m.session.UserID, true
}

// ─────────────────────────────────────────────────────────────────
// Views
// ─────────────────────────────────────────────────────────────────

// View is a filtered projection of the collection.
type View struct {
	Query    string
	Category string
}

// Links returns the full collection in display order.
func (m *Manager) Links() []domain.Link { return m.idx.All() }

// Visible returns the links of a view.
func (m *Manager) Visible(v View) []domain.Link {
	all := m.idx.All()
	return domain.Pick(all, domain.Filter(all, v.Query, v.Category))
}

// Categories returns the selectable categories, all-categories first.
func (m *Manager) Categories() []string {
	return append([]string{domain.AllCategories}, domain.Categories(m.idx.All())...)
}

// ─────────────────────────────────────────────────────────────────
// Preferences
// ─────────────────────────────────────────────────────────────────

// Theme returns the chosen background theme.
func (m *Manager) Theme() domain.BackgroundTheme {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.theme
}

// SetTheme stores a background theme by name.
func (m *Manager) SetTheme(ctx context.Context, name string) (domain.BackgroundTheme, error) {
	t, ok := domain.ThemeByName(name)
	if !ok {
		return domain.BackgroundTheme{}, fmt.Errorf("unknown background theme %q", name)
	}
	if err := m.cache.SetTheme(ctx, t.Class); err != nil {
		m.notify.Notify(KindError, "Theme could not be saved.")
		return domain.BackgroundTheme{}, fmt.Errorf("failed to save theme: %w", err)
	}
	m.stateMu.Lock()
	m.theme = t
	m.stateMu.Unlock()
	m.notify.Notify(KindSuccess, "Background theme changed.")
	return t, nil
}

// ShowClickCounts returns the click count visibility preference.
func (m *Manager) ShowClickCounts() bool {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.showClicks
}

// SetShowClickCounts stores the click count visibility preference.
func (m *Manager) SetShowClickCounts(ctx context.Context, show bool) error {
	if err := m.cache.SetShowClickCounts(ctx, show); err != nil {
		m.notify.Notify(KindError, "Setting could not be saved.")
		return fmt.Errorf("failed to save click count setting: %w", err)
	}
	m.stateMu.Lock()
	m.showClicks = show
	m.stateMu.Unlock()
	if show {
		m.notify.Notify(KindSuccess, "Click counts shown.")
	} else {
		m.notify.Notify(KindSuccess, "Click counts hidden.")
	}
	return nil
}
