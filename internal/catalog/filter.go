package catalog

import "strings"

// Filter returns, in input order, the products matching category (when
// non-empty) whose name or subtitle contains query, ignoring case. An
// empty query matches every product.
func Filter(products []Product, category Category, query string) []Product {
	q := strings.ToLower(query)
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if category != "" && p.Category != category {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Subtitle), q) {
			continue
		}
		out = append(out, p)
	}
	return out
}
