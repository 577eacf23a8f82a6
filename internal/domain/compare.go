package domain

import (
	"slices"
	"strings"
)

// Equal reports whether two collections hold the same content regardless
// of order. ClickCount and SortOrder are ignored so that counter skew
// between devices never counts as a difference.
func Equal(a, b []Link) bool {
	if len(a) != len(b) {
		return false
	}
	sa, sb := sortedByURL(a), sortedByURL(b)
	for i := range sa {
		if !sameContent(sa[i], sb[i]) {
			return false
		}
	}
	return true
}

func sameContent(a, b Link) bool {
	return a.Title == b.Title &&
		a.URL == b.URL &&
		a.Description == b.Description &&
		a.Category == b.Category &&
		a.Icon == b.Icon &&
		a.CustomColor == b.CustomColor
}

func sortedByURL(links []Link) []Link {
	out := slices.Clone(links)
	slices.SortStableFunc(out, func(x, y Link) int {
		return strings.Compare(x.URL, y.URL)
	})
	return out
}

// MergeByURL unites local and cloud keyed by url. Cloud entries seed the
// result, local entries overwrite those sharing a url. The order is cloud
// order followed by local-only urls in local order.
func MergeByURL(local, cloud []Link) []Link {
	byURL := make(map[string]int, len(cloud)+len(local))
	merged := make([]Link, 0, len(cloud)+len(local))

	for _, c := range cloud {
		if i, ok := byURL[c.URL]; ok {
			merged[i] = c
			continue
		}
		byURL[c.URL] = len(merged)
		merged = append(merged, c)
	}
	for _, l := range local {
		if i, ok := byURL[l.URL]; ok {
			merged[i] = l
			continue
		}
		byURL[l.URL] = len(merged)
		merged = append(merged, l)
	}
	return merged
}

// MergeImport folds incoming links into existing by url. For a url already
// present, non-empty incoming fields replace existing ones. New urls are
// appended with the id produced by newID.
func MergeImport(existing, incoming []Link, newID func() string) []Link {
	out := slices.Clone(existing)
	byURL := make(map[string]int, len(out))
	for i, l := range out {
		byURL[l.URL] = i
	}
	for _, in := range incoming {
		if i, ok := byURL[in.URL]; ok {
			cur := &out[i]
			if in.Title != "" {
				cur.Title = in.Title
			}
			if in.Description != "" {
				cur.Description = in.Description
			}
			if in.Icon != "" {
				cur.Icon = in.Icon
			}
			if in.Category != "" {
				cur.Category = in.Category
			}
			if in.CustomColor != "" {
				cur.CustomColor = in.CustomColor
			}
			continue
		}
		in.ID = newID()
		in.FillDefaults()
		byURL[in.URL] = len(out)
		out = append(out, in)
	}
	return out
}
