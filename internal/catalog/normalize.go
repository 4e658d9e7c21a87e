package catalog

import (
	"cantonfair/scraper/internal/domain"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// CategoryIDLength is the length of every valid main and product category ID.
const CategoryIDLength = 18

// productCategoryDepth is main -> sub -> product.
const productCategoryDepth = 3

// ErrInvalidCategoryPath means a leaf was found at an unexpected depth, i.e. the
// portal's category structure no longer matches what the scraper expects.
var ErrInvalidCategoryPath = errors.New("invalid path for a product category")

// Administrative branches that are not product catalogs. Their subtrees are skipped.
var excludedCategories = map[string]bool{
	"International Pavilion": true,
	"Trade Services":         true,
}

type pathSegment struct {
	ID   string
	Name string
}

func (s pathSegment) String() string {
	return fmt.Sprintf("%s (%s)", s.Name, s.ID)
}

// Normalize flattens the raw category forest into an ID keyed map.
//
// Leaves must sit exactly three levels deep, anything else aborts with
// ErrInvalidCategoryPath. A leaf whose main or product category ID is not
// CategoryIDLength long is logged and skipped while its siblings are kept.
// Sub category IDs are not validated.
func Normalize(nodes []domain.CategoryNode) (*domain.CategoryMap, error) {
	log.Info("🔄 Normalizing categories data...")

	normalized := domain.NewCategoryMap()
	if err := traverse(nodes, nil, normalized); err != nil {
		return nil, err
	}

	log.Infof("✅ Normalized %d categories, %d product categories",
		len(normalized.Categories), len(normalized.ProductCategories))
	return normalized, nil
}

func traverse(nodes []domain.CategoryNode, parents []pathSegment, normalized *domain.CategoryMap) error {
	for _, node := range nodes {
		if excludedCategories[node.Name] {
			continue
		}

		path := make([]pathSegment, len(parents), len(parents)+1)
		copy(path, parents)
		path = append(path, pathSegment{
			ID:   strings.TrimSpace(node.ID),
			Name: strings.TrimSpace(node.Name),
		})

		if !node.IsLeaf() {
			if err := traverse(node.Children(), path, normalized); err != nil {
				return err
			}
			continue
		}

		if len(path) != productCategoryDepth {
			return fmt.Errorf("%w: %s", ErrInvalidCategoryPath, formatPath(path))
		}

		register(path[0], path[1], path[2], normalized)
	}

	return nil
}

func register(main, sub, product pathSegment, normalized *domain.CategoryMap) {
	if len(main.ID) != CategoryIDLength || len(product.ID) != CategoryIDLength {
		log.Warnf("⚠️ Skipping a category with an invalid category ID length: %s > %s (%s)",
			main.Name, product.Name, product.ID)
		return
	}

	normalized.Add(domain.Category{
		ID:             main.ID,
		Name:           main.Name,
		IsMainCategory: true,
	})
	normalized.Add(domain.Category{
		ID:             sub.ID,
		Name:           sub.Name,
		MainCategoryID: main.ID,
		IsSubCategory:  true,
	})
	normalized.Add(domain.Category{
		ID:                product.ID,
		Name:              product.Name,
		SubCategoryID:     sub.ID,
		MainCategoryID:    main.ID,
		IsProductCategory: true,
		CategoryPath:      strings.Join([]string{main.Name, sub.Name, product.Name}, " > "),
	})
}

func formatPath(path []pathSegment) string {
	parts := make([]string, len(path))
	for i, segment := range path {
		parts[i] = segment.String()
	}
	return strings.Join(parts, " -> ")
}
