package seed

import (
	"errors"
	"fmt"

	"github.com/Gundoganfa/SomeNiceLinks/internal/domain"
)

// ErrNoLinks is returned when a defaults file yields no usable link.
var ErrNoLinks = errors.New("no valid links found in defaults")

// MapLinks converts a LinksConfig into new links, in file order.
// Any invalid entry fails the whole set.
func MapLinks(config LinksConfig) ([]domain.NewLink, error) {
	var links []domain.NewLink

	for _, categoryMap := range config {
		for category, entries := range categoryMap {
			for _, entryMap := range entries {
				for title, props := range entryMap {
					link := domain.NewLink{
						Title:       title,
						URL:         props.URL,
						Description: props.Description,
						Icon:        props.Icon,
						Category:    category,
						CustomColor: props.CustomColor,
					}.Normalized()
					if err := link.Validate(); err != nil {
						return nil, fmt.Errorf("default link %q in %q: %w", title, category, err)
					}
					links = append(links, link)
				}
			}
		}
	}

	if len(links) == 0 {
		return nil, ErrNoLinks
	}

	return links, nil
}

// Set is a loaded canonical default link set.
type Set struct {
	links []domain.NewLink
}

// Load reads and maps the defaults at path, or the embedded set when path
// is empty.
func Load(path string) (*Set, error) {
	config, err := NewLoader(path).Load()
	if err != nil {
		return nil, err
	}
	links, err := MapLinks(config)
	if err != nil {
		return nil, err
	}
	return &Set{links: links}, nil
}

// MustEmbedded returns the embedded set. It panics if the embedded file is
// broken, which is a build defect.
func MustEmbedded() *Set {
	s, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("embedded defaults: %v", err))
	}
	return s
}

// Len returns the number of default links.
func (s *Set) Len() int { return len(s.links) }

// Links materializes the set with fresh ids, zero click counts and sort
// orders by position.
func (s *Set) Links(newID func() string) []domain.Link {
	out := make([]domain.Link, 0, len(s.links))
	for i, n := range s.links {
		l := n.WithID(newID())
		l.SortOrder = domain.SortOrderAt(i)
		out = append(out, l)
	}
	return out
}
