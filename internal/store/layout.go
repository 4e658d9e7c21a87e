package store

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Layout resolves the files of one data directory.
type Layout struct {
	DataDir string
}

func NewLayout(dataDir string) Layout {
	return Layout{DataDir: dataDir}
}

func (l Layout) Categories() string {
	return filepath.Join(l.DataDir, "categories.json")
}

func (l Layout) NormalizedCategories() string {
	return filepath.Join(l.DataDir, "normalized_categories.json")
}

func (l Layout) ProductsDir() string {
	return filepath.Join(l.DataDir, "products")
}

func (l Layout) ProductFile(categoryID string) string {
	return filepath.Join(l.ProductsDir(), categoryID+".json")
}

func (l Layout) ProductWorkbook(categoryID string) string {
	return filepath.Join(l.ProductsDir(), categoryID+".xlsx")
}

func (l Layout) Exhibitors() string {
	return filepath.Join(l.DataDir, "exhibitors.json")
}

func (l Layout) Session() string {
	return filepath.Join(l.DataDir, "canton_fair_session.json")
}

func (l Layout) Workbook() string {
	return filepath.Join(l.DataDir, "products.xlsx")
}

// ProductCategoryIDs lists the category IDs that have a product file, sorted.
func (l Layout) ProductCategoryIDs() ([]string, error) {
	entries, err := os.ReadDir(l.ProductsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)

	return ids, nil
}
