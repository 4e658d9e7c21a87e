package service

import (
	"cantonfair/scraper/internal/domain"
	"cantonfair/scraper/internal/store"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	shopA = "451234567890000001"
	shopB = "451234567890000002"
	shopC = "451234567890000003"
)

func contactURL(shop string) string {
	return testBaseURL + "shops/" + shop + "?keyword=#/contact"
}

func writeProducts(t *testing.T, layout store.Layout, categoryID string, batches ...domain.PageBatch) {
	t.Helper()
	for _, batch := range batches {
		require.NoError(t, store.AppendArray(layout.ProductFile(categoryID), batch))
	}
}

func TestExhibitorsToScrape(t *testing.T) {
	svc, layout := newTestService(t, testConfig(""), nil, nil)
	writeProducts(t, layout, fridgesID,
		domain.PageBatch{product("a", shopA), product("b", shopB)},
		domain.PageBatch{product("c", shopA)},
	)
	writeProducts(t, layout, lampsID, domain.PageBatch{product("d", shopC)})

	exhibitors, err := svc.ExhibitorsToScrape()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		shopA: contactURL(shopA),
		shopB: contactURL(shopB),
		shopC: contactURL(shopC),
	}, exhibitors)
}

func TestExhibitorsToScrape_Selection(t *testing.T) {
	cfg := testConfig("")
	cfg.Scrape.Categories = []string{lightingID}
	svc, layout := newTestService(t, cfg, nil, nil)
	writeNormalized(t, layout)
	writeProducts(t, layout, fridgesID, domain.PageBatch{product("a", shopA)})
	writeProducts(t, layout, lampsID, domain.PageBatch{product("d", shopC)})

	exhibitors, err := svc.ExhibitorsToScrape()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{shopC: contactURL(shopC)}, exhibitors)
}

func TestScrapeExhibitors_Idempotent(t *testing.T) {
	svc, layout := newTestService(t, testConfig(""), nil, nil)
	writeProducts(t, layout, fridgesID,
		domain.PageBatch{product("a", shopA), product("b", shopB), product("c", shopC)},
	)

	// shopA was harvested by an earlier run.
	require.NoError(t, store.AppendObject(layout.Exhibitors(), map[string]domain.ExhibitorRecord{
		shopA: {Name: "Company A"},
	}))

	portal := newFakePortal()
	portal.contacts[contactURL(shopB)] = map[string]string{
		"Company Name": "Company B",
		"Email":        "b@example.com",
	}

	require.NoError(t, svc.ScrapeExhibitors(context.Background(), portal))
	assert.Equal(t, []string{contactURL(shopB), contactURL(shopC)}, portal.contactVisits)

	var exhibitors domain.ExhibitorMap
	_, err := store.ReadJSON(layout.Exhibitors(), &exhibitors)
	require.NoError(t, err)
	assert.Equal(t, domain.ExhibitorMap{
		shopA: {Name: "Company A"},
		shopB: {Name: "Company B", Email: "b@example.com"},
		shopC: {},
	}, exhibitors)

	portal.contactVisits = nil
	require.NoError(t, svc.ScrapeExhibitors(context.Background(), portal))
	assert.Empty(t, portal.contactVisits)
}
