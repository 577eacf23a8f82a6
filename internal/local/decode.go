package local

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Gundoganfa/SomeNiceLinks/internal/domain"
)

// Rejected is a persisted record that was dropped during decoding.
type Rejected struct {
	Index int
	Err   error
}

// persistedLink is the tolerant on-disk shape. Older writers stored numeric
// ids and omitted optional fields.
type persistedLink struct {
	ID          json.RawMessage `json:"id"`
	Title       *string         `json:"title"`
	URL         *string         `json:"url"`
	Description *string         `json:"description"`
	Icon        *string         `json:"icon"`
	Category    *string         `json:"category"`
	CustomColor *string         `json:"customColor"`
	SortOrder   *float64        `json:"sortOrder"`
	ClickCount  *float64        `json:"clickCount"`
}

// DecodeLinks parses a persisted links array. Missing optional fields get
// their defaults and records without a usable url are returned in rejected.
// A value that is not an array is an error.
func DecodeLinks(data []byte, newID func() string) ([]domain.Link, []Rejected, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("links value is not an array: %w", err)
	}

	links := make([]domain.Link, 0, len(raw))
	var rejected []Rejected
	for i, item := range raw {
		l, err := decodeLink(item, newID)
		if err != nil {
			rejected = append(rejected, Rejected{Index: i, Err: err})
			continue
		}
		links = append(links, l)
	}
	return links, rejected, nil
}

func decodeLink(item json.RawMessage, newID func() string) (domain.Link, error) {
	var p persistedLink
	if err := json.Unmarshal(item, &p); err != nil {
		return domain.Link{}, fmt.Errorf("malformed record: %w", err)
	}
	if err := domain.ValidateURL(deref(p.URL)); err != nil {
		return domain.Link{}, err
	}

	l := domain.Link{
		ID:          decodeID(p.ID),
		URL:         *p.URL,
		Title:       deref(p.Title),
		Description: deref(p.Description),
		Icon:        deref(p.Icon),
		Category:    deref(p.Category),
		CustomColor: deref(p.CustomColor),
	}
	if l.ID == "" {
		l.ID = newID()
	}
	if p.SortOrder != nil {
		l.SortOrder = int(*p.SortOrder)
	}
	if p.ClickCount != nil && *p.ClickCount > 0 {
		l.ClickCount = int64(*p.ClickCount)
	}
	l.FillDefaults()
	return l, nil
}

// decodeID accepts string and numeric ids.
func decodeID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return n.String()
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
