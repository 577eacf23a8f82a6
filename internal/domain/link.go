package domain

import "time"

const (
	// DefaultIcon is used when a link carries no icon.
	DefaultIcon = "globe"
	// DefaultCategory is used when a link carries no category.
	DefaultCategory = "Genel"
	// ColorReset clears a custom color when passed to a color change.
	ColorReset = "default"
	// SortStep is the gap between consecutive sort orders.
	SortStep = 100
)

// Link is a bookmark entry as held on the client device.
// The JSON shape is the persisted local format.
type Link struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is assigned at creation. When the link is stored remotely the
	// remote-assigned id replaces the local one.
	ID string `json:"id"`

	// ─────────────────────────────
	// Display metadata
	// ─────────────────────────────

	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Category    string `json:"category"`

	// CustomColor overrides the category color. Empty means none.
	CustomColor string `json:"customColor,omitempty"`

	// ─────────────────────────────
	// Volatile state
	// ─────────────────────────────

	// SortOrder defines the total order. Lower sorts earlier, gaps allowed.
	SortOrder int `json:"sortOrder,omitempty"`

	// ClickCount is the cumulative interaction count.
	ClickCount int64 `json:"clickCount"`
}

// NewLink is a link that has not been assigned an id yet.
type NewLink struct {
	Title       string `json:"title" yaml:"title"`
	URL         string `json:"url" yaml:"url"`
	Description string `json:"description" yaml:"description"`
	Icon        string `json:"icon" yaml:"icon"`
	Category    string `json:"category" yaml:"category"`
	CustomColor string `json:"customColor,omitempty" yaml:"customColor"`
}

// WithID turns a normalized NewLink into a Link, filling display defaults.
func (n NewLink) WithID(id string) Link {
	n = n.Normalized()
	l := Link{
		ID:          id,
		Title:       n.Title,
		URL:         n.URL,
		Description: n.Description,
		Icon:        n.Icon,
		Category:    n.Category,
		CustomColor: n.CustomColor,
	}
	l.FillDefaults()
	return l
}

// FillDefaults sets the icon and category defaults when they are missing.
func (l *Link) FillDefaults() {
	if l.Icon == "" {
		l.Icon = DefaultIcon
	}
	if l.Category == "" {
		l.Category = DefaultCategory
	}
}

// ─────────────────────────────────────────────────────────────────
// Remote row types
// ─────────────────────────────────────────────────────────────────

// LinkRow is a link as returned by the remote store. Every row has exactly
// one owner.
type LinkRow struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Category    string    `json:"category"`
	CustomColor *string   `json:"custom_color"`
	SortOrder   int       `json:"sort_order"`
	ClickCount  int64     `json:"click_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// LinkInsert is a row to be created remotely. The store assigns the id.
type LinkInsert struct {
	OwnerID     string  `json:"owner_id"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	Category    string  `json:"category"`
	CustomColor *string `json:"custom_color,omitempty"`
	SortOrder   int     `json:"sort_order"`
	ClickCount  int64   `json:"click_count"`
}

// LinkPatch is a partial update. Nil fields are left untouched.
// A CustomColor pointing at "" clears the color.
type LinkPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	Category    *string `json:"category,omitempty"`
	CustomColor *string `json:"custom_color,omitempty"`
	SortOrder   *int    `json:"sort_order,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p LinkPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Icon == nil &&
		p.Category == nil && p.CustomColor == nil && p.SortOrder == nil
}

// Apply writes the patch onto a row.
func (p LinkPatch) Apply(row *LinkRow) {
	if p.Title != nil {
		row.Title = *p.Title
	}
	if p.Description != nil {
		row.Description = *p.Description
	}
	if p.Icon != nil {
		row.Icon = *p.Icon
	}
	if p.Category != nil {
		row.Category = *p.Category
	}
	if p.CustomColor != nil {
		if *p.CustomColor == "" {
			row.CustomColor = nil
		} else {
			c := *p.CustomColor
			row.CustomColor = &c
		}
	}
	if p.SortOrder != nil {
		row.SortOrder = *p.SortOrder
	}
}

// Match selects remote rows of one owner either by id or by url.
type Match struct {
	ID  string
	URL string
}

// IsZero reports whether the match selects nothing in particular.
func (m Match) IsZero() bool { return m.ID == "" && m.URL == "" }

// Matches reports whether the row is selected.
func (m Match) Matches(row LinkRow) bool {
	if m.ID != "" {
		return row.ID == m.ID
	}
	return m.URL != "" && row.URL == m.URL
}

// IncrementTarget names the link a click increment applies to, either by
// id or by (owner, url) when the id is not known.
type IncrementTarget struct {
	LinkID  string `json:"linkId,omitempty"`
	OwnerID string `json:"ownerId,omitempty"`
	URL     string `json:"url,omitempty"`
}

// Valid reports whether the target identifies a link.
func (t IncrementTarget) Valid() bool {
	return t.LinkID != "" || (t.OwnerID != "" && t.URL != "")
}

// ClickCount is the authoritative counter returned by an increment.
type ClickCount struct {
	ID         string `json:"id"`
	ClickCount int64  `json:"clickCount"`
}

// ─────────────────────────────────────────────────────────────────
// Conversions
// ─────────────────────────────────────────────────────────────────

// LinkFromRow converts a remote row to a client link.
func LinkFromRow(row LinkRow) Link {
	l := Link{
		ID:          row.ID,
		Title:       row.Title,
		URL:         row.URL,
		Description: row.Description,
		Icon:        row.Icon,
		Category:    row.Category,
		SortOrder:   row.SortOrder,
		ClickCount:  row.ClickCount,
	}
	if row.CustomColor != nil {
		l.CustomColor = *row.CustomColor
	}
	l.FillDefaults()
	return l
}

// LinksFromRows converts rows preserving their order.
func LinksFromRows(rows []LinkRow) []Link {
	links := make([]Link, 0, len(rows))
	for _, r := range rows {
		links = append(links, LinkFromRow(r))
	}
	return links
}

// InsertFromLink builds an insert row for owner. The sort order is derived
// from the position of the link in its collection.
func InsertFromLink(owner string, l Link, position int) LinkInsert {
	in := LinkInsert{
		OwnerID:     owner,
		Title:       l.Title,
		URL:         l.URL,
		Description: l.Description,
		Icon:        l.Icon,
		Category:    l.Category,
		SortOrder:   SortOrderAt(position),
		ClickCount:  l.ClickCount,
	}
	if l.CustomColor != "" {
		c := l.CustomColor
		in.CustomColor = &c
	}
	return in
}

// InsertsFromLinks builds insert rows for a whole collection.
func InsertsFromLinks(owner string, links []Link) []LinkInsert {
	rows := make([]LinkInsert, 0, len(links))
	for i, l := range links {
		rows = append(rows, InsertFromLink(owner, l, i))
	}
	return rows
}

// SortOrderAt returns the sort order for a zero-based position.
func SortOrderAt(position int) int { return (position + 1) * SortStep }
