package service

import (
	"cantonfair/scraper/internal/client"
	"cantonfair/scraper/internal/domain"
	"cantonfair/scraper/internal/store"
	"context"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"
)

// ExhibitorsToScrape maps every exhibitor ID found in the product files to its
// contact page URL. With a category selection configured only the selected
// product files are read.
func (s *Service) ExhibitorsToScrape() (map[string]string, error) {
	ids, err := s.productFilesToScan()
	if err != nil {
		return nil, err
	}

	exhibitors := make(map[string]string)
	for _, id := range ids {
		var batches []domain.PageBatch
		if _, err := store.ReadJSON(s.layout.ProductFile(id), &batches); err != nil {
			return nil, err
		}

		for _, batch := range batches {
			for _, product := range batch {
				if product.CompanyLink == "" {
					continue
				}
				exhibitors[domain.ExhibitorID(product.CompanyLink)] = domain.ContactURL(s.portal.BaseURL, product.CompanyLink)
			}
		}
	}

	return exhibitors, nil
}

func (s *Service) productFilesToScan() ([]string, error) {
	if len(s.scrape.Categories) == 0 {
		return s.layout.ProductCategoryIDs()
	}

	categories, err := s.LoadCategories()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0)
	for _, id := range s.SelectedCategories(categories) {
		if store.Exists(s.layout.ProductFile(id)) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ScrapeExhibitors harvests the contact details of every exhibitor not yet in
// the exhibitor map, persisting them one at a time.
func (s *Service) ScrapeExhibitors(ctx context.Context, portal client.PortalClient) error {
	exhibitors, err := s.ExhibitorsToScrape()
	if err != nil {
		return err
	}

	scraped, err := s.stateManager.ScrapedExhibitors()
	if err != nil {
		return err
	}

	remaining := make([]string, 0, len(exhibitors))
	for id := range exhibitors {
		if !scraped[id] {
			remaining = append(remaining, id)
		}
	}
	sort.Strings(remaining)

	total := len(exhibitors)
	if len(remaining) == 0 {
		log.Infof("✅ All %d exhibitors have already been scraped.", total)
		return nil
	}

	log.Infof("👥 %d (out of %d) exhibitors have already been scraped.", total-len(remaining), total)
	log.Infof("👥 %d exhibitors yet to be scraped...", len(remaining))

	for i, id := range remaining {
		if err := ctx.Err(); err != nil {
			return err
		}

		record, err := s.harvestExhibitor(portal, id, exhibitors[id])
		if err != nil {
			return err
		}

		if err := store.AppendObject(s.layout.Exhibitors(), map[string]domain.ExhibitorRecord{id: record}); err != nil {
			return fmt.Errorf("failed to save exhibitor %s: %w", id, err)
		}
		log.Infof("- Processed %d/%d exhibitors.", i+1, len(remaining))
	}

	log.Infof("✅ All %d exhibitors have been scraped.", total)
	return nil
}

func (s *Service) harvestExhibitor(portal client.PortalClient, id, contactURL string) (domain.ExhibitorRecord, error) {
	details, revealed, err := portal.ExhibitorContacts(contactURL)
	if err != nil {
		return domain.ExhibitorRecord{}, fmt.Errorf("failed to scrape exhibitor %s: %w", id, err)
	}
	if !revealed {
		log.Warnf("⚠️ Exhibitor %s has no contact details to reveal, recording it empty", id)
		return domain.ExhibitorRecord{}, nil
	}
	return domain.NewExhibitorRecord(details), nil
}
