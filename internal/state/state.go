package state

import (
	"cantonfair/scraper/internal/store"
	"encoding/json"
	"fmt"
)

// StateManager answers resume questions from the durable files themselves, so
// a restarted stage never depends on in-memory progress.
type StateManager interface {
	// CompletedPages is the number of page batches already persisted for a
	// product category. Pages 1..n are complete.
	CompletedPages(categoryID string) (int, error)
	// ScrapedMainCategories returns the names of the top level categories
	// present in the raw category file.
	ScrapedMainCategories() (map[string]bool, error)
	// ScrapedExhibitors returns the IDs present in the exhibitor map.
	ScrapedExhibitors() (map[string]bool, error)
	// CategoriesNormalized reports whether the normalized category map exists.
	CategoriesNormalized() bool
	// CategoryExported reports whether the category's workbook has been written.
	CategoryExported(categoryID string) bool
}

type fileStateManager struct {
	layout store.Layout
}

func NewFileStateManager(layout store.Layout) StateManager {
	return &fileStateManager{
		layout: layout,
	}
}

func (s *fileStateManager) CompletedPages(categoryID string) (int, error) {
	var batches []json.RawMessage
	if _, err := store.ReadJSON(s.layout.ProductFile(categoryID), &batches); err != nil {
		return 0, fmt.Errorf("failed to get completed pages for category %s: %w", categoryID, err)
	}
	return len(batches), nil
}

func (s *fileStateManager) ScrapedMainCategories() (map[string]bool, error) {
	var categories []struct {
		Name string `json:"name"`
	}
	if _, err := store.ReadJSON(s.layout.Categories(), &categories); err != nil {
		return nil, fmt.Errorf("failed to get scraped categories: %w", err)
	}

	names := make(map[string]bool, len(categories))
	for _, c := range categories {
		names[c.Name] = true
	}
	return names, nil
}

func (s *fileStateManager) ScrapedExhibitors() (map[string]bool, error) {
	var exhibitors map[string]json.RawMessage
	if _, err := store.ReadJSON(s.layout.Exhibitors(), &exhibitors); err != nil {
		return nil, fmt.Errorf("failed to get scraped exhibitors: %w", err)
	}

	ids := make(map[string]bool, len(exhibitors))
	for id := range exhibitors {
		ids[id] = true
	}
	return ids, nil
}

func (s *fileStateManager) CategoriesNormalized() bool {
	return store.Exists(s.layout.NormalizedCategories())
}

func (s *fileStateManager) CategoryExported(categoryID string) bool {
	return store.Exists(s.layout.ProductWorkbook(categoryID))
}
