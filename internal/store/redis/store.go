package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Gundoganfa/SomeNiceLinks/internal/domain"
	"github.com/Gundoganfa/SomeNiceLinks/internal/store"
)

// record is the JSON payload kept in a link hash. The click counter lives
// in its own hash field so that it can be incremented atomically.
type record struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Category    string    `json:"category"`
	CustomColor *string   `json:"custom_color,omitempty"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
}

func recordFromRow(row domain.LinkRow) record {
	return record{
		ID:          row.ID,
		OwnerID:     row.OwnerID,
		Title:       row.Title,
		URL:         row.URL,
		Description: row.Description,
		Icon:        row.Icon,
		Category:    row.Category,
		CustomColor: row.CustomColor,
		SortOrder:   row.SortOrder,
		CreatedAt:   row.CreatedAt,
	}
}

func (r record) row(clicks int64) domain.LinkRow {
	return domain.LinkRow{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Title:       r.Title,
		URL:         r.URL,
		Description: r.Description,
		Icon:        r.Icon,
		Category:    r.Category,
		CustomColor: r.CustomColor,
		SortOrder:   r.SortOrder,
		ClickCount:  clicks,
		CreatedAt:   r.CreatedAt,
	}
}

// incrementScript adds ARGV[1] to the counter of the link hash KEYS[1].
// Returns nil when the link does not exist.
var incrementScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], 'data') == 0 then
  return false
end
return redis.call('HINCRBY', KEYS[1], 'click_count', ARGV[1])
`)

// Store is the Redis link store.
type Store struct {
	client *redis.Client
	now    func() time.Time
}

var _ store.LinkStore = (*Store)(nil)

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
		now:    time.Now,
	}
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// GetLink retrieves a link by ID
func (s *Store) GetLink(ctx context.Context, id string) (domain.LinkRow, error) {
	vals, err := s.client.HMGet(ctx, LinkKey(id), fieldData, fieldClicks).Result()
	if err != nil {
		return domain.LinkRow{}, fmt.Errorf("failed to get link: %w", err)
	}
	row, ok, err := decode(vals)
	if err != nil {
		return domain.LinkRow{}, err
	}
	if !ok {
		return domain.LinkRow{}, fmt.Errorf("%w: %s", store.ErrLinkNotFound, id)
	}
	return row, nil
}

// ListLinks retrieves an owner's links ordered by sort order
func (s *Store) ListLinks(ctx context.Context, owner string) ([]domain.LinkRow, error) {
	ids, err := s.client.ZRange(ctx, OwnerLinksKey(owner), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get link IDs: %w", err)
	}

	if len(ids) == 0 {
		return []domain.LinkRow{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.SliceCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HMGet(ctx, LinkKey(id), fieldData, fieldClicks)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to get links: %w", err)
	}

	rows := make([]domain.LinkRow, 0, len(ids))
	for _, cmd := range cmds {
		row, ok, err := decode(cmd.Val())
		if err != nil || !ok {
			// Skip links that couldn't be retrieved
			continue
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// InsertLinks stores new links under owner (bulk operation)
func (s *Store) InsertLinks(ctx context.Context, owner string, rows []domain.LinkInsert) ([]domain.LinkRow, error) {
	if len(rows) == 0 {
		return []domain.LinkRow{}, nil
	}

	now := s.now().UTC()
	created := make([]domain.LinkRow, 0, len(rows))

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, in := range rows {
			row := domain.LinkRow{
				ID:          uuid.NewString(),
				OwnerID:     owner,
				Title:       in.Title,
				URL:         in.URL,
				Description: in.Description,
				Icon:        in.Icon,
				Category:    in.Category,
				CustomColor: in.CustomColor,
				SortOrder:   in.SortOrder,
				ClickCount:  in.ClickCount,
				CreatedAt:   now,
			}
			data, err := json.Marshal(recordFromRow(row))
			if err != nil {
				return fmt.Errorf("failed to marshal link %s: %w", row.URL, err)
			}

			pipe.HSet(ctx, LinkKey(row.ID), fieldData, data, fieldClicks, row.ClickCount)
			pipe.ZAdd(ctx, OwnerLinksKey(owner), redis.Z{Score: float64(row.SortOrder), Member: row.ID})
			pipe.HSetNX(ctx, OwnerURLsKey(owner), row.URL, row.ID)
			created = append(created, row)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert links: %w", err)
	}

	return created, nil
}

// UpdateLinks applies a patch to the owner's links selected by m
func (s *Store) UpdateLinks(ctx context.Context, owner string, m domain.Match, p domain.LinkPatch) (int, error) {
	if m.IsZero() {
		return 0, store.ErrEmptyMatch
	}

	rows, err := s.ListLinks(ctx, owner)
	if err != nil {
		return 0, err
	}

	var matched []domain.LinkRow
	for _, row := range rows {
		if m.Matches(row) {
			p.Apply(&row)
			matched = append(matched, row)
		}
	}
	if len(matched) == 0 {
		return 0, nil
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, row := range matched {
			data, err := json.Marshal(recordFromRow(row))
			if err != nil {
				return fmt.Errorf("failed to marshal link %s: %w", row.ID, err)
			}
			// the counter field is left untouched
			pipe.HSet(ctx, LinkKey(row.ID), fieldData, data)
			if p.SortOrder != nil {
				pipe.ZAdd(ctx, OwnerLinksKey(owner), redis.Z{Score: float64(row.SortOrder), Member: row.ID})
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to update links: %w", err)
	}

	return len(matched), nil
}

// DeleteLinks removes the owner's links selected by m, or all when m is zero
func (s *Store) DeleteLinks(ctx context.Context, owner string, m domain.Match) (int, error) {
	rows, err := s.ListLinks(ctx, owner)
	if err != nil {
		return 0, err
	}

	var gone, kept []domain.LinkRow
	for _, row := range rows {
		if m.IsZero() || m.Matches(row) {
			gone = append(gone, row)
		} else {
			kept = append(kept, row)
		}
	}

	if m.IsZero() {
		// also clears ids whose hash is already gone
		ids, err := s.client.ZRange(ctx, OwnerLinksKey(owner), 0, -1).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to get link IDs: %w", err)
		}
		_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, id := range ids {
				pipe.Del(ctx, LinkKey(id))
			}
			pipe.Del(ctx, OwnerLinksKey(owner), OwnerURLsKey(owner))
			return nil
		})
		if err != nil {
			return 0, fmt.Errorf("failed to delete links: %w", err)
		}
		return len(gone), nil
	}

	if len(gone) == 0 {
		return 0, nil
	}

	survivor := make(map[string]string, len(kept))
	for _, row := range kept {
		if _, ok := survivor[row.URL]; !ok {
			survivor[row.URL] = row.ID
		}
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, row := range gone {
			pipe.Del(ctx, LinkKey(row.ID))
			pipe.ZRem(ctx, OwnerLinksKey(owner), row.ID)
			if id, ok := survivor[row.URL]; ok {
				pipe.HSet(ctx, OwnerURLsKey(owner), row.URL, id)
			} else {
				pipe.HDel(ctx, OwnerURLsKey(owner), row.URL)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete links: %w", err)
	}

	return len(gone), nil
}

// IncrementClicks atomically adds delta to a link's click count
func (s *Store) IncrementClicks(ctx context.Context, t domain.IncrementTarget, delta int64) (domain.ClickCount, error) {
	if !t.Valid() {
		return domain.ClickCount{}, store.ErrInvalidTarget
	}

	id := t.LinkID
	if id == "" {
		var err error
		id, err = s.client.HGet(ctx, OwnerURLsKey(t.OwnerID), t.URL).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return domain.ClickCount{}, store.ErrLinkNotFound
			}
			return domain.ClickCount{}, fmt.Errorf("failed to resolve link url: %w", err)
		}
	}

	// The script only touches the key it declares, so it is cluster safe.
	n, err := incrementScript.Run(ctx, s.client, []string{LinkKey(id)}, delta).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ClickCount{}, store.ErrLinkNotFound
		}
		return domain.ClickCount{}, fmt.Errorf("failed to increment clicks: %w", err)
	}
	return domain.ClickCount{ID: id, ClickCount: n}, nil
}

// decode turns an HMGET reply of (data, click_count) into a row.
func decode(vals []interface{}) (domain.LinkRow, bool, error) {
	if len(vals) != 2 || vals[0] == nil {
		return domain.LinkRow{}, false, nil
	}
	data, ok := vals[0].(string)
	if !ok {
		return domain.LinkRow{}, false, fmt.Errorf("unexpected link payload type %T", vals[0])
	}

	var rec record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return domain.LinkRow{}, false, fmt.Errorf("failed to unmarshal link: %w", err)
	}

	var clicks int64
	if s, ok := vals[1].(string); ok {
		clicks, _ = strconv.ParseInt(s, 10, 64)
	}
	return rec.row(clicks), true, nil
}
