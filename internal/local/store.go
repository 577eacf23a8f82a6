// Package local is the durable key-value cache on the client device.
//
// Values live in a single SQLite table. Every write stamps the row with a
// global sequence number and the id of the writing process, which lets each
// process notice writes made by the others and re-hydrate from them.
package local

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Gundoganfa/SomeNiceLinks/internal/domain"
	"github.com/Gundoganfa/SomeNiceLinks/internal/logger"
)

// Storage keys.
const (
	KeyLinks      = "someNiceLinks"
	KeyPending    = "someNiceLinks.pendingDeltas"
	KeyTheme      = "backgroundTheme"
	KeyShowClicks = "showClickCounts"
)

// DBFile is the database file name inside the data directory.
const DBFile = "somenicelinks.db"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	writer     TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS kv_seq_idx ON kv (seq);
`

const upsertSQL = `
INSERT INTO kv (key, value, seq, writer, updated_at)
VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM kv), ?, ?)
ON CONFLICT(key) DO UPDATE SET
	value = excluded.value,
	seq = excluded.seq,
	writer = excluded.writer,
	updated_at = excluded.updated_at`

// ChangeFunc receives the key and raw value of an external write.
type ChangeFunc func(key string, value []byte)

// Options tune a Store. Zero values select defaults.
type Options struct {
	// PollInterval is how often the watcher looks for external writes.
	PollInterval time.Duration
	// NewID generates ids for persisted links that have none.
	NewID func() string
}

// Store is the local cache. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	writer string
	log    logger.Logger
	opts   Options

	mu      sync.Mutex
	subs    map[int]ChangeFunc
	nextSub int
	lastSeq int64
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Open opens (or creates) the cache in dataDir.
func Open(dataDir string, log logger.Logger, opts Options) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return OpenPath(filepath.Join(dataDir, DBFile), log, opts)
}

// OpenPath opens the cache at an explicit database path.
func OpenPath(path string, log logger.Logger, opts Options) (*Store, error) {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local cache: %w", err)
	}
	// single writer per process
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL;", "PRAGMA busy_timeout=5000;"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to configure local cache: %w", err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}

	s := &Store{
		db:     db,
		writer: uuid.NewString(),
		log:    log.With(logger.Component("local")),
		opts:   opts,
		subs:   make(map[int]ChangeFunc),
	}
	if err := db.QueryRow(`SELECT COALESCE(MAX(seq), 0) FROM kv`).Scan(&s.lastSeq); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to read kv sequence: %w", err)
	}
	return s, nil
}

// Close stops the watcher and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	stop, done := s.stopCh, s.doneCh
	s.stopCh, s.doneCh = nil, nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return s.db.Close()
}

// ─────────────────────────────────────────────────────────────────
// Raw access
// ─────────────────────────────────────────────────────────────────

// Get returns the raw value under key. A missing key is ok=false.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return []byte(v), true, nil
}

// Put stores a raw value under key.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.db.ExecContext(ctx, upsertSQL, key, string(value), s.writer, now); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *Store) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Put(ctx, key, data)
}

// ─────────────────────────────────────────────────────────────────
// Typed values
// ─────────────────────────────────────────────────────────────────

// LoadLinks returns the persisted collection, or nil when nothing is stored.
// Records that cannot be used are dropped and logged.
func (s *Store) LoadLinks(ctx context.Context) ([]domain.Link, error) {
	data, ok, err := s.Get(ctx, KeyLinks)
	if err != nil || !ok {
		return nil, err
	}
	links, rejected, err := DecodeLinks(data, s.opts.NewID)
	if err != nil {
		return nil, err
	}
	for _, r := range rejected {
		s.log.Warn("dropping persisted link", logger.Int("index", r.Index), logger.Error(r.Err))
	}
	return links, nil
}

// SaveLinks persists the whole collection.
func (s *Store) SaveLinks(ctx context.Context, links []domain.Link) error {
	if links == nil {
		links = []domain.Link{}
	}
	return s.putJSON(ctx, KeyLinks, links)
}

// LoadPending returns the pending delta queue. It is never nil.
func (s *Store) LoadPending(ctx context.Context) (domain.PendingDeltas, error) {
	p := domain.PendingDeltas{}
	data, ok, err := s.Get(ctx, KeyPending)
	if err != nil || !ok {
		return p, err
	}
	if err := json.Unmarshal(data, &p); err != nil {
		s.log.Warn("discarding unreadable pending deltas", logger.Error(err))
		return domain.PendingDeltas{}, nil
	}
	for k, d := range p {
		if d.Count <= 0 {
			delete(p, k)
		}
	}
	return p, nil
}

// SavePending persists the pending delta queue.
func (s *Store) SavePending(ctx context.Context, p domain.PendingDeltas) error {
	if p == nil {
		p = domain.PendingDeltas{}
	}
	return s.putJSON(ctx, KeyPending, p)
}

// Theme returns the stored background theme class, "" when unset.
func (s *Store) Theme(ctx context.Context) (string, error) {
	data, ok, err := s.Get(ctx, KeyTheme)
	if err != nil || !ok {
		return "", err
	}
	return string(data), nil
}

// SetTheme stores the background theme class.
func (s *Store) SetTheme(ctx context.Context, class string) error {
	return s.Put(ctx, KeyTheme, []byte(class))
}

// ShowClickCounts returns the click count visibility flag. Defaults to true.
func (s *Store) ShowClickCounts(ctx context.Context) (bool, error) {
	data, ok, err := s.Get(ctx, KeyShowClicks)
	if err != nil || !ok {
		return true, err
	}
	v, perr := strconv.ParseBool(string(data))
	if perr != nil {
		return true, nil
	}
	return v, nil
}

// SetShowClickCounts stores the click count visibility flag.
func (s *Store) SetShowClickCounts(ctx context.Context, show bool) error {
	return s.Put(ctx, KeyShowClicks, []byte(strconv.FormatBool(show)))
}
