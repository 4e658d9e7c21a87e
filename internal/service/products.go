package service

import (
	"cantonfair/scraper/internal/client"
	"cantonfair/scraper/internal/domain"
	"cantonfair/scraper/internal/store"
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// productsDone reports whether every selected product category has its
// workbook. Without normalized categories nothing is done yet.
func (s *Service) productsDone() bool {
	categories, err := s.LoadCategories()
	if err != nil {
		return false
	}
	for _, id := range s.SelectedCategories(categories) {
		if !s.stateManager.CategoryExported(id) {
			return false
		}
	}
	log.Info("⏭️ Every selected product category has been exported. Skipping the product scraping process.")
	return true
}

// ScrapeProducts extracts every selected product category whose workbook has
// not been written yet.
func (s *Service) ScrapeProducts(ctx context.Context, portal client.PortalClient) error {
	categories, err := s.LoadCategories()
	if err != nil {
		return err
	}

	selected := s.SelectedCategories(categories)
	pending := make([]string, 0, len(selected))
	for _, id := range selected {
		if s.stateManager.CategoryExported(id) {
			continue
		}
		pending = append(pending, id)
	}

	log.Infof("📦 %d of %d selected product categories left to extract", len(pending), len(selected))

	for i, id := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		category, _ := categories.Get(id)
		log.Infof("🔄 [%d/%d] Extracting products from the product category %q (ID: %s)", i+1, len(pending), category.Name, id)
		log.Infof("   Parent categories: %s", category.CategoryPath)

		if err := s.ExtractCategory(ctx, portal, category); err != nil {
			return fmt.Errorf("failed to extract product category %s: %w", id, err)
		}

		if s.exporter != nil {
			if err := s.exporter.ExportCategory(categories, id); err != nil {
				return err
			}
		}
	}

	return nil
}

// ExtractCategory resumes the extraction of one product category from the
// first page without a persisted batch. Each page is appended as one batch as
// soon as it is read.
func (s *Service) ExtractCategory(ctx context.Context, portal client.PortalClient, category domain.Category) error {
	done, err := s.stateManager.CompletedPages(category.ID)
	if err != nil {
		return err
	}

	listing, err := portal.OpenProductListing(category.MainCategoryID, category.ID)
	if err != nil {
		return err
	}
	defer listing.Close()

	totalItems, err := listing.TotalItems()
	if err != nil {
		return err
	}
	totalPages := TotalPages(totalItems, s.portal.PageSize)

	log.Infof("   Total items: %d, Total pages: %d", totalItems, totalPages)

	if done >= totalPages {
		log.Infof("✅ All %d pages already extracted", totalPages)
		return nil
	}
	if done > 0 {
		log.Infof("🔄 Continue from page %d", done+1)
	}

	productFile := s.layout.ProductFile(category.ID)
	for page := done + 1; page <= totalPages; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if page > 1 {
			if err := listing.GoToPage(page); err != nil {
				return err
			}
		}

		log.Infof("- Fetching ~%d products from page %d of %d...", s.portal.PageSize, page, totalPages)

		batch, err := s.extractPage(listing)
		if err != nil {
			return fmt.Errorf("page %d: %w", page, err)
		}

		if err := store.AppendArray(productFile, batch); err != nil {
			return err
		}
	}

	return nil
}

// extractPage reads the cards of the current page and resolves the detail URL
// of every unlocked one. Locked cards are dropped.
func (s *Service) extractPage(listing client.ListingTab) (domain.PageBatch, error) {
	cards, err := listing.ProductCards()
	if err != nil {
		return nil, err
	}

	batch := make(domain.PageBatch, 0, len(cards))
	for i, card := range cards {
		if card.IsLocked {
			log.Debugf("Skipping locked product %q", card.Title)
			continue
		}

		productURL, err := listing.OpenProductDetail(i)
		if err != nil {
			return nil, err
		}
		card.ProductURL = &productURL

		batch = append(batch, card)
	}

	if locked := len(cards) - len(batch); locked > 0 {
		log.Infof("   %d products, %d locked", len(cards), locked)
	}
	return batch, nil
}

// TotalPages is ceil(totalItems / pageSize).
func TotalPages(totalItems, pageSize int) int {
	if totalItems <= 0 || pageSize <= 0 {
		return 0
	}
	return (totalItems + pageSize - 1) / pageSize
}
