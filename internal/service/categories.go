package service

import (
	"cantonfair/scraper/internal/catalog"
	"cantonfair/scraper/internal/client"
	"cantonfair/scraper/internal/domain"
	"cantonfair/scraper/internal/store"
	"context"
	"errors"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"
)

func (s *Service) categoriesDone() bool {
	if s.stateManager.CategoriesNormalized() {
		log.Info("⏭️ Normalized categories' data already exists. Skipping the category scraping process.")
		return true
	}
	return false
}

// ScrapeCategories walks every main category not yet in the raw category file,
// appending each one as soon as it is complete, then normalizes the result.
func (s *Service) ScrapeCategories(ctx context.Context, portal client.PortalClient) error {
	names, err := portal.ListMainCategories()
	if err != nil {
		return fmt.Errorf("failed to list main categories: %w", err)
	}
	if len(names) == 0 {
		return fmt.Errorf("failed to list main categories: %w", client.ErrNoCategories)
	}

	scraped, err := s.stateManager.ScrapedMainCategories()
	if err != nil {
		return err
	}

	log.Infof("📚 Found %d main categories, %d already scraped", len(names), len(scraped))

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}

		if scraped[name] {
			log.Infof("⏭️ Category %q has already been scraped. Skipping...", name)
			continue
		}

		node, err := s.walkMainCategory(portal, i, name)
		if errors.Is(err, client.ErrNoCategories) {
			log.Errorf("❌ No categories found for %q. Possible reasons: changed selector or page not fully loaded: %v", name, err)
			continue
		}
		if err != nil {
			return err
		}

		if err := store.AppendArray(s.layout.Categories(), node); err != nil {
			return fmt.Errorf("failed to save category %q: %w", name, err)
		}
		log.Infof("✅ Saved category %q", name)
	}

	return s.NormalizeCategories()
}

func (s *Service) walkMainCategory(portal client.PortalClient, index int, name string) (domain.CategoryNode, error) {
	tab, err := portal.OpenMainCategory(index, name)
	if err != nil {
		return domain.CategoryNode{}, err
	}
	defer tab.Close()

	groups, err := tab.Groups()
	if err != nil {
		return domain.CategoryNode{}, err
	}

	for _, group := range groups {
		leaves := group.Children()
		log.Infof("🔄 Processing the %d product categories of %q (COUNT: %d | ID: %s)...",
			len(leaves), group.Name, group.Count, group.ID)

		if err := tab.ExpandGroup(group.ID); err != nil {
			return domain.CategoryNode{}, err
		}

		for i := range leaves {
			log.Infof("- Scraping meta for the product category: %s (%d)...", leaves[i].Name, leaves[i].Count)

			id, err := tab.SelectLeaf(group.ID, leaves[i])
			if err != nil {
				return domain.CategoryNode{}, err
			}
			leaves[i].ID = id
		}
	}

	return domain.WithChildren(tab.CategoryID(), name, groups), nil
}

// NormalizeCategories flattens the raw category file into the normalized map.
// A missing or empty raw file is an error so no empty map marks the stage done.
func (s *Service) NormalizeCategories() error {
	var nodes []domain.CategoryNode
	found, err := store.ReadJSON(s.layout.Categories(), &nodes)
	if err != nil {
		return err
	}
	if !found || len(nodes) == 0 {
		return fmt.Errorf("nothing to normalize in %s: %w", s.layout.Categories(), client.ErrNoCategories)
	}

	categories, err := catalog.Normalize(nodes)
	if err != nil {
		return err
	}

	if err := store.WriteJSON(s.layout.NormalizedCategories(), categories); err != nil {
		return fmt.Errorf("failed to save normalized categories: %w", err)
	}

	summary := catalog.MainCategorySummary(categories)
	names := make([]string, 0, len(summary))
	for name := range summary {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		log.Infof("   %s: %d product categories", name, summary[name])
	}
	return nil
}
