package linksync

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"

	"github.com/Gundoganfa/SomeNiceLinks/internal/domain"
	"github.com/Gundoganfa/SomeNiceLinks/internal/local"
	"github.com/Gundoganfa/SomeNiceLinks/internal/logger"
	"github.com/Gundoganfa/SomeNiceLinks/internal/remote"
	"github.com/Gundoganfa/SomeNiceLinks/internal/store"
)

var errOffline = errors.New("network unreachable")

// fakeCache is an in-memory Cache that round-trips values through JSON
// like the real one.
type fakeCache struct {
	mu       sync.Mutex
	links    []byte
	pending  []byte
	theme    string
	show     *bool
	saveErr  error
	saves    int
	onChange local.ChangeFunc
}

func (c *fakeCache) LoadLinks(context.Context) ([]domain.Link, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.links == nil {
		return nil, nil
	}
	var links []domain.Link
	err := json.Unmarshal(c.links, &links)
	return links, err
}

func (c *fakeCache) SaveLinks(_ context.Context, links []domain.Link) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.saveErr != nil {
		return c.saveErr
	}
	c.saves++
	c.links, _ = json.Marshal(links)
	return nil
}

func (c *fakeCache) LoadPending(context.Context) (domain.PendingDeltas, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := domain.PendingDeltas{}
	if c.pending != nil {
		_ = json.Unmarshal(c.pending, &p)
	}
	return p, nil
}

func (c *fakeCache) SavePending(_ context.Context, p domain.PendingDeltas) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending, _ = json.Marshal(p)
	return nil
}

func (c *fakeCache) Theme(context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.theme, nil
}

func (c *fakeCache) SetTheme(_ context.Context, class string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.theme = class
	return nil
}

func (c *fakeCache) ShowClickCounts(context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.show == nil {
		return true, nil
	}
	return *c.show, nil
}

func (c *fakeCache) SetShowClickCounts(_ context.Context, show bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.show = &show
	return nil
}

func (c *fakeCache) OnExternalChange(cb local.ChangeFunc) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = cb
	return func() {
		c.mu.Lock()
		c.onChange = nil
		c.mu.Unlock()
	}
}

func (c *fakeCache) stored() []domain.Link {
	links, _ := c.LoadLinks(context.Background())
	return links
}

// fakeRemote is a single-owner cloud table.
type fakeRemote struct {
	mu     sync.Mutex
	rows   []domain.LinkRow
	nextID int
	token  remote.TokenGetter

	fail       map[string]error // op -> error
	failURLs   map[string]bool  // update failures by url
	increments []domain.IncrementTarget
	deltas     []int64
	calls      map[string]int

	// gate, when set, holds every increment until it is closed.
	gate    chan struct{}
	entered chan struct{}
}

func newFakeRemote(rows ...domain.LinkRow) *fakeRemote {
	return &fakeRemote{rows: rows, fail: map[string]error{}, failURLs: map[string]bool{}, calls: map[string]int{}}
}

func (r *fakeRemote) SetTokenGetter(fn remote.TokenGetter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.token = fn
}

func (r *fakeRemote) op(name string) error {
	r.calls[name]++
	return r.fail[name]
}

func (r *fakeRemote) ListLinks(context.Context) ([]domain.LinkRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.op("list"); err != nil {
		return nil, err
	}
	out := append([]domain.LinkRow(nil), r.rows...)
	return out, nil
}

func (r *fakeRemote) InsertLinks(_ context.Context, rows []domain.LinkInsert) ([]domain.LinkRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.op("insert"); err != nil {
		return nil, err
	}
	created := make([]domain.LinkRow, 0, len(rows))
	for _, in := range rows {
		r.nextID++
		row := domain.LinkRow{
			ID:          "srv-" + strconv.Itoa(r.nextID),
			OwnerID:     in.OwnerID,
			Title:       in.Title,
			URL:         in.URL,
			Description: in.Description,
			Icon:        in.Icon,
			Category:    in.Category,
			CustomColor: in.CustomColor,
			SortOrder:   in.SortOrder,
			ClickCount:  in.ClickCount,
		}
		r.rows = append(r.rows, row)
		created = append(created, row)
	}
	return created, nil
}

func (r *fakeRemote) UpdateLinks(_ context.Context, m domain.Match, p domain.LinkPatch) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.op("update"); err != nil {
		return 0, err
	}
	if r.failURLs[m.URL] {
		return 0, errOffline
	}
	n := 0
	for i := range r.rows {
		if m.Matches(r.rows[i]) {
			p.Apply(&r.rows[i])
			n++
		}
	}
	return n, nil
}

func (r *fakeRemote) DeleteLinks(_ context.Context, m domain.Match) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.op("delete"); err != nil {
		return 0, err
	}
	kept := r.rows[:0]
	n := 0
	for _, row := range r.rows {
		if m.IsZero() || m.Matches(row) {
			n++
			continue
		}
		kept = append(kept, row)
	}
	r.rows = kept
	return n, nil
}

func (r *fakeRemote) Increment(ctx context.Context, t domain.IncrementTarget, delta int64) (domain.ClickCount, error) {
	r.mu.Lock()
	gate, entered := r.gate, r.entered
	r.mu.Unlock()
	if gate != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.ClickCount{}, ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.op("increment"); err != nil {
		return domain.ClickCount{}, err
	}
	r.increments = append(r.increments, t)
	r.deltas = append(r.deltas, delta)
	for _, byURL := range []bool{false, true} {
		for i := range r.rows {
			if (!byURL && t.LinkID != "" && r.rows[i].ID == t.LinkID) || (byURL && t.URL != "" && r.rows[i].URL == t.URL) {
				r.rows[i].ClickCount += delta
				return domain.ClickCount{ID: r.rows[i].ID, ClickCount: r.rows[i].ClickCount}, nil
			}
		}
	}
	return domain.ClickCount{}, store.ErrLinkNotFound
}

func (r *fakeRemote) setFail(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.fail, op)
		return
	}
	r.fail[op] = err
}

func (r *fakeRemote) snapshot() []domain.LinkRow {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.LinkRow(nil), r.rows...)
}

func (r *fakeRemote) row(url string) (domain.LinkRow, bool) {
	for _, row := range r.snapshot() {
		if row.URL == url {
			return row, true
		}
	}
	return domain.LinkRow{}, false
}

// recorder collects notices.
type recorder struct {
	mu      sync.Mutex
	notices []string
}

func (r *recorder) Notify(kind Kind, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, string(kind)+": "+msg)
}

func idGen(prefix string) func() string {
	n := 0
	var mu sync.Mutex
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + strconv.Itoa(n)
	}
}

func defaultSet(newID func() string) []domain.Link {
	return []domain.Link{
		domain.NewLink{Title: "Google", URL: "https://google.com"}.WithID(newID()),
		domain.NewLink{Title: "GitHub", URL: "https://github.com", Category: "Dev"}.WithID(newID()),
	}
}

func link(id, url, title string) domain.Link {
	l := domain.Link{ID: id, Title: title, URL: url}
	l.FillDefaults()
	return l
}

func row(id, url, title string) domain.LinkRow {
	return domain.LinkRow{ID: id, OwnerID: "alice", Title: title, URL: url, Icon: domain.DefaultIcon, Category: domain.DefaultCategory}
}

type harness struct {
	cache  *fakeCache
	remote *fakeRemote
	notes  *recorder
	m      *Manager
}

func newHarness(localLinks []domain.Link, rows ...domain.LinkRow) *harness {
	h := &harness{cache: &fakeCache{}, remote: newFakeRemote(rows...), notes: &recorder{}}
	if localLinks != nil {
		h.cache.links, _ = json.Marshal(localLinks)
	}
	h.m = New(h.cache, h.remote, logger.Nop(), Options{
		Defaults: defaultSet,
		NewID:    idGen("local-"),
		Notifier: h.notes,
	})
	return h
}

var alice = Session{UserID: "alice", Token: func(context.Context) (string, error) { return "tok", nil }}
