package domain

import "strings"

// AllCategories selects every category in Filter.
const AllCategories = "Hepsi"

// Filter returns the full-collection indices of links visible under a
// text query and a category. The query is a case-insensitive substring
// match over title, url and description.
func Filter(links []Link, query, category string) []int {
	q := strings.ToLower(strings.TrimSpace(query))
	visible := make([]int, 0, len(links))
	for i, l := range links {
		if !inCategory(l, category) {
			continue
		}
		if q != "" && !matchesQuery(l, q) {
			continue
		}
		visible = append(visible, i)
	}
	return visible
}

func inCategory(l Link, category string) bool {
	if category == "" || category == AllCategories || strings.EqualFold(category, "all") {
		return true
	}
	return categoryOf(l) == category
}

func matchesQuery(l Link, q string) bool {
	return strings.Contains(strings.ToLower(l.Title), q) ||
		strings.Contains(strings.ToLower(l.URL), q) ||
		strings.Contains(strings.ToLower(l.Description), q)
}

// Categories returns the distinct categories in first-seen order.
func Categories(links []Link) []string {
	seen := make(map[string]bool, len(links))
	out := make([]string, 0, len(links))
	for _, l := range links {
		c := categoryOf(l)
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func categoryOf(l Link) string {
	if l.Category == "" {
		return DefaultCategory
	}
	return l.Category
}

// Pick returns the links at the given indices.
func Pick(links []Link, indices []int) []Link {
	out := make([]Link, 0, len(indices))
	for _, i := range indices {
		out = append(out, links[i])
	}
	return out
}
