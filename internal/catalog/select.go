package catalog

import (
	"cantonfair/scraper/internal/domain"
	"sort"

	log "github.com/sirupsen/logrus"
)

// ResolveProductCategories expands a selection of category IDs (any mix of main,
// sub and product IDs) to the product category IDs it covers. The result keeps
// registry order and holds each ID once. An empty selection means every product
// category.
func ResolveProductCategories(categories *domain.CategoryMap, selection []string) []string {
	if len(selection) == 0 {
		return dedupe(categories.ProductCategories)
	}

	mains := make(map[string]bool)
	subs := make(map[string]bool)
	products := make(map[string]bool)

	for _, id := range selection {
		category, ok := categories.Get(id)
		if !ok {
			log.Warnf("⚠️ Unknown category ID in selection: %s", id)
			continue
		}

		switch category.Role() {
		case domain.RoleMain:
			mains[id] = true
		case domain.RoleSub:
			subs[id] = true
		case domain.RoleProduct:
			products[id] = true
		default:
			log.Warnf("⚠️ Category %s has no role, ignoring it", id)
		}
	}

	resolved := make([]string, 0)
	seen := make(map[string]bool)
	for _, id := range categories.ProductCategories {
		if seen[id] {
			continue
		}
		category, ok := categories.Get(id)
		if !ok {
			continue
		}
		if products[id] || subs[category.SubCategoryID] || mains[category.MainCategoryID] {
			seen[id] = true
			resolved = append(resolved, id)
		}
	}

	return resolved
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// SortByPath orders product category IDs by their full category path.
func SortByPath(categories *domain.CategoryMap, ids []string) []string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.SliceStable(sorted, func(i, j int) bool {
		left, _ := categories.Get(sorted[i])
		right, _ := categories.Get(sorted[j])
		if left.CategoryPath != right.CategoryPath {
			return left.CategoryPath < right.CategoryPath
		}
		return sorted[i] < sorted[j]
	})
	return sorted
}

// MainCategorySummary counts product categories per main category name.
func MainCategorySummary(categories *domain.CategoryMap) map[string]int {
	summary := make(map[string]int)
	for _, id := range categories.ProductCategories {
		product, ok := categories.Get(id)
		if !ok {
			continue
		}
		main, ok := categories.Get(product.MainCategoryID)
		if !ok {
			continue
		}
		summary[main.Name]++
	}
	return summary
}
