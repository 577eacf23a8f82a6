// Package postgres is the relational link store on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Gundoganfa/SomeNiceLinks/internal/domain"
	"github.com/Gundoganfa/SomeNiceLinks/internal/store"
)

const schemaSQL = /*language=postgresql*/ `
CREATE TABLE IF NOT EXISTS links (
	id           TEXT PRIMARY KEY,
	owner_id     TEXT NOT NULL,
	title        TEXT NOT NULL,
	url          TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	icon         TEXT NOT NULL DEFAULT 'globe',
	category     TEXT NOT NULL DEFAULT 'Genel',
	custom_color TEXT,
	sort_order   INTEGER NOT NULL DEFAULT 0,
	click_count  BIGINT NOT NULL DEFAULT 0 CHECK (click_count >= 0),
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS links_owner_sort_idx ON links (owner_id, sort_order);
CREATE INDEX IF NOT EXISTS links_owner_url_idx ON links (owner_id, url);
`

const selectColumns = `id, owner_id, title, url, description, icon, category, custom_color, sort_order, click_count, created_at`

// Store is the Postgres link store.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.LinkStore = (*Store)(nil)

// NewStore wraps an open pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the links table when it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, schemaSQL); err != nil {
			return fmt.Errorf("failed to create links table: %w", err)
		}
		return nil
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func scanRow(row pgx.Row) (domain.LinkRow, error) {
	var r domain.LinkRow
	err := row.Scan(&r.ID, &r.OwnerID, &r.Title, &r.URL, &r.Description, &r.Icon,
		&r.Category, &r.CustomColor, &r.SortOrder, &r.ClickCount, &r.CreatedAt)
	return r, err
}

func (s *Store) GetLink(ctx context.Context, id string) (domain.LinkRow, error) {
	row, err := scanRow(s.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM links WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.LinkRow{}, fmt.Errorf("%w: %s", store.ErrLinkNotFound, id)
		}
		return domain.LinkRow{}, fmt.Errorf("failed to get link: %w", err)
	}
	return row, nil
}

func (s *Store) ListLinks(ctx context.Context, owner string) ([]domain.LinkRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM links WHERE owner_id = $1 ORDER BY sort_order, created_at, id`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	out := []domain.LinkRow{}
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return out, nil
}

// InsertLinks creates all rows in one transaction.
func (s *Store) InsertLinks(ctx context.Context, owner string, rows []domain.LinkInsert) ([]domain.LinkRow, error) {
	created := make([]domain.LinkRow, 0, len(rows))
	if len(rows) == 0 {
		return created, nil
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, in := range rows {
			batch.Queue(`INSERT INTO links (id, owner_id, title, url, description, icon, category, custom_color, sort_order, click_count, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING `+selectColumns,
				uuid.NewString(), owner, in.Title, in.URL, in.Description, in.Icon, in.Category,
				in.CustomColor, in.SortOrder, in.ClickCount, time.Now().UTC())
		}

		br := tx.SendBatch(ctx, batch)
		for range rows {
			r, err := scanRow(br.QueryRow())
			if err != nil {
				_ = br.Close()
				return fmt.Errorf("failed to insert link: %w", err)
			}
			created = append(created, r)
		}
		return br.Close()
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Store) UpdateLinks(ctx context.Context, owner string, m domain.Match, p domain.LinkPatch) (int, error) {
	if m.IsZero() {
		return 0, store.ErrEmptyMatch
	}
	if p.IsEmpty() {
		return 0, nil
	}

	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.Icon != nil {
		add("icon", *p.Icon)
	}
	if p.Category != nil {
		add("category", *p.Category)
	}
	if p.CustomColor != nil {
		var color *string
		if *p.CustomColor != "" {
			color = p.CustomColor
		}
		add("custom_color", color)
	}
	if p.SortOrder != nil {
		add("sort_order", *p.SortOrder)
	}

	args = append(args, owner)
	where := fmt.Sprintf("owner_id = $%d", len(args))
	if m.ID != "" {
		args = append(args, m.ID)
		where += fmt.Sprintf(" AND id = $%d", len(args))
	} else {
		args = append(args, m.URL)
		where += fmt.Sprintf(" AND url = $%d", len(args))
	}

	tag, err := s.pool.Exec(ctx, `UPDATE links SET `+strings.Join(sets, ", ")+` WHERE `+where, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update links: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) DeleteLinks(ctx context.Context, owner string, m domain.Match) (int, error) {
	query := `DELETE FROM links WHERE owner_id = $1`
	args := []any{owner}
	switch {
	case m.ID != "":
		query += ` AND id = $2`
		args = append(args, m.ID)
	case m.URL != "":
		query += ` AND url = $2`
		args = append(args, m.URL)
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete links: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// IncrementClicks adds delta in a single UPDATE, never read-modify-write.
func (s *Store) IncrementClicks(ctx context.Context, t domain.IncrementTarget, delta int64) (domain.ClickCount, error) {
	if !t.Valid() {
		return domain.ClickCount{}, store.ErrInvalidTarget
	}

	var row pgx.Row
	if t.LinkID != "" {
		row = s.pool.QueryRow(ctx,
			`UPDATE links SET click_count = click_count + $2 WHERE id = $1 RETURNING id, click_count`,
			t.LinkID, delta)
	} else {
		row = s.pool.QueryRow(ctx, `UPDATE links SET click_count = click_count + $3
WHERE id = (SELECT id FROM links WHERE owner_id = $1 AND url = $2 ORDER BY sort_order, created_at LIMIT 1)
RETURNING id, click_count`, t.OwnerID, t.URL, delta)
	}

	var res domain.ClickCount
	if err := row.Scan(&res.ID, &res.ClickCount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ClickCount{}, store.ErrLinkNotFound
		}
		return domain.ClickCount{}, fmt.Errorf("failed to increment clicks: %w", err)
	}
	return res, nil
}
