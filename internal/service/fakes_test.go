package service

import (
	"cantonfair/scraper/internal/client"
	"cantonfair/scraper/internal/config"
	"cantonfair/scraper/internal/domain"
	"cantonfair/scraper/internal/state"
	"cantonfair/scraper/internal/store"
	"context"
	"errors"
	"fmt"
	"testing"
)

const testBaseURL = "https://portal.example/en-US/"

var errBrowserCrashed = errors.New("browser crashed")

func testConfig(dataDir string) config.Config {
	return config.Config{
		Portal:  config.PortalConfig{BaseURL: testBaseURL, PageSize: 60},
		Scrape:  config.ScrapeConfig{Exhibitors: true},
		Storage: config.StorageConfig{DataDir: dataDir},
		Retry:   config.RetryConfig{MaxAttempts: 3},
	}
}

func newTestService(t *testing.T, cfg config.Config, launcher client.Launcher, exporter CategoryExporter) (*Service, store.Layout) {
	t.Helper()
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = t.TempDir()
	}
	layout := store.NewLayout(cfg.Storage.DataDir)
	return NewService(launcher, layout, state.NewFileStateManager(layout), exporter, cfg), layout
}

type fakeLauncher struct {
	portal   *fakePortal
	failures int
	launches int
}

func (l *fakeLauncher) Launch(ctx context.Context) (client.PortalClient, error) {
	l.launches++
	if l.launches <= l.failures {
		return nil, errBrowserCrashed
	}
	return l.portal, nil
}

type fakePortal struct {
	mainCategories []string
	categoryTabs   map[string]*fakeCategoryTab
	listings       map[string]*fakeListing
	contacts       map[string]map[string]string

	openedMain     []string
	openedListings []string
	contactVisits  []string
	closes         int
}

func newFakePortal() *fakePortal {
	return &fakePortal{
		categoryTabs: make(map[string]*fakeCategoryTab),
		listings:     make(map[string]*fakeListing),
		contacts:     make(map[string]map[string]string),
	}
}

func (p *fakePortal) ListMainCategories() ([]string, error) {
	return p.mainCategories, nil
}

func (p *fakePortal) OpenMainCategory(index int, name string) (client.CategoryTab, error) {
	p.openedMain = append(p.openedMain, name)
	tab, ok := p.categoryTabs[name]
	if !ok {
		return nil, fmt.Errorf("no tab for %q", name)
	}
	return tab, nil
}

func (p *fakePortal) OpenProductListing(mainCategoryID, productCategoryID string) (client.ListingTab, error) {
	p.openedListings = append(p.openedListings, productCategoryID)
	listing, ok := p.listings[productCategoryID]
	if !ok {
		return nil, fmt.Errorf("no listing for %s", productCategoryID)
	}
	listing.current = 1
	return listing, nil
}

func (p *fakePortal) ExhibitorContacts(contactURL string) (map[string]string, bool, error) {
	p.contactVisits = append(p.contactVisits, contactURL)
	details, ok := p.contacts[contactURL]
	return details, ok, nil
}

func (p *fakePortal) LoggedInUser() (string, error) {
	return "tester", nil
}

func (p *fakePortal) Close() error {
	p.closes++
	return nil
}

type fakeCategoryTab struct {
	id       string
	groups   []domain.CategoryNode
	err      error
	leafIDs  map[string]string
	expanded []string
	closed   bool
}

func (t *fakeCategoryTab) CategoryID() string { return t.id }

func (t *fakeCategoryTab) Groups() ([]domain.CategoryNode, error) {
	if t.err != nil {
		return nil, t.err
	}
	return t.groups, nil
}

func (t *fakeCategoryTab) ExpandGroup(groupID string) error {
	t.expanded = append(t.expanded, groupID)
	return nil
}

func (t *fakeCategoryTab) SelectLeaf(groupID string, leaf domain.CategoryNode) (string, error) {
	id, ok := t.leafIDs[leaf.Name]
	if !ok {
		return "", fmt.Errorf("%w: %s", client.ErrTimeout, leaf.Name)
	}
	return id, nil
}

func (t *fakeCategoryTab) Close() { t.closed = true }

type fakeListing struct {
	totalItems int
	pages      map[int][]domain.ProductRecord
	// failOnPage makes ProductCards fail once on that page.
	failOnPage int
	totalErr   error

	current   int
	cardReads []int
	pageLoads []int
	details   []int
	closed    bool
}

func (l *fakeListing) TotalItems() (int, error) {
	if l.totalErr != nil {
		return 0, l.totalErr
	}
	return l.totalItems, nil
}

func (l *fakeListing) GoToPage(page int) error {
	l.pageLoads = append(l.pageLoads, page)
	l.current = page
	return nil
}

func (l *fakeListing) ProductCards() ([]domain.ProductRecord, error) {
	if l.failOnPage == l.current {
		l.failOnPage = 0
		return nil, fmt.Errorf("%w: page %d", client.ErrTimeout, l.current)
	}
	l.cardReads = append(l.cardReads, l.current)
	cards := make([]domain.ProductRecord, len(l.pages[l.current]))
	copy(cards, l.pages[l.current])
	return cards, nil
}

func (l *fakeListing) OpenProductDetail(index int) (string, error) {
	l.details = append(l.details, index)
	return fmt.Sprintf("https://portal.example/en-US/product/%d/%d", l.current, index), nil
}

func (l *fakeListing) Close() { l.closed = true }

type fakeExporter struct {
	exported []string
}

func (e *fakeExporter) ExportCategory(categories *domain.CategoryMap, categoryID string) error {
	e.exported = append(e.exported, categoryID)
	return nil
}

// product builds an unlocked card of exhibitor shop.
func product(title, shop string) domain.ProductRecord {
	return domain.ProductRecord{
		Image:       "https://img.example/" + title + ".jpg",
		Title:       title,
		Tags:        []string{"tag"},
		Company:     "Company " + shop,
		CompanyLink: "/en-US/shops/" + shop + "?keyword=#/",
	}
}

func locked(title, shop string) domain.ProductRecord {
	p := product(title, shop)
	p.IsLocked = true
	return p
}

func fullPage(n int, prefix, shop string) []domain.ProductRecord {
	cards := make([]domain.ProductRecord, 0, n)
	for i := 0; i < n; i++ {
		cards = append(cards, product(fmt.Sprintf("%s-%d", prefix, i), shop))
	}
	return cards
}
