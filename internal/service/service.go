package service

import (
	"cantonfair/scraper/internal/catalog"
	"cantonfair/scraper/internal/client"
	"cantonfair/scraper/internal/config"
	"cantonfair/scraper/internal/domain"
	"cantonfair/scraper/internal/state"
	"cantonfair/scraper/internal/store"
	"fmt"
)

// CategoryExporter writes the workbook of one completed product category.
type CategoryExporter interface {
	ExportCategory(categories *domain.CategoryMap, categoryID string) error
}

type Service struct {
	launcher     client.Launcher
	layout       store.Layout
	stateManager state.StateManager
	exporter     CategoryExporter
	portal       config.PortalConfig
	scrape       config.ScrapeConfig
	retry        RetryPolicy
}

func NewService(
	launcher client.Launcher,
	layout store.Layout,
	stateManager state.StateManager,
	exporter CategoryExporter,
	cfg config.Config,
) *Service {
	return &Service{
		launcher:     launcher,
		layout:       layout,
		stateManager: stateManager,
		exporter:     exporter,
		portal:       cfg.Portal,
		scrape:       cfg.Scrape,
		retry:        NewRetryPolicy(cfg.Retry),
	}
}

// LoadCategories reads the normalized category map.
func (s *Service) LoadCategories() (*domain.CategoryMap, error) {
	categories := domain.NewCategoryMap()
	found, err := store.ReadJSON(s.layout.NormalizedCategories(), categories)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("normalized categories not found at %s", s.layout.NormalizedCategories())
	}
	return categories, nil
}

// SelectedCategories resolves the configured selection to product category IDs.
func (s *Service) SelectedCategories(categories *domain.CategoryMap) []string {
	return catalog.ResolveProductCategories(categories, s.scrape.Categories)
}
