package container

import (
	"context"
	"testing"

	"cantonfair/scraper/internal/catalog"
	"cantonfair/scraper/internal/config"
	"cantonfair/scraper/internal/domain"
	"cantonfair/scraper/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Portal:  config.PortalConfig{BaseURL: "https://portal.example/en-US/", PageSize: 60},
		Storage: config.StorageConfig{DataDir: t.TempDir()},
		Browser: config.BrowserConfig{MaxNavigationsPerSecond: 2},
		Retry:   config.RetryConfig{MaxAttempts: 1},
	}
}

func TestNew(t *testing.T) {
	cfg := testConfig(t)

	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Close()

	assert.NotNil(t, c.Launcher)
	assert.NotNil(t, c.StateManager)
	assert.NotNil(t, c.Exporter)
	assert.NotNil(t, c.Service)
	assert.Equal(t, cfg.Storage.DataDir, c.Layout.DataDir)
}

// With every category exported and exhibitors disabled no stage needs a
// browser, so Run only curates the combined workbook.
func TestRun_CuratesWhenEverythingIsDone(t *testing.T) {
	cfg := testConfig(t)

	c, err := New(cfg)
	require.NoError(t, err)

	categories, err := catalog.Normalize([]domain.CategoryNode{
		domain.WithChildren("461148003609088000", "Lighting", []domain.CategoryNode{
			domain.WithChildren("S2", "Indoor Lighting", []domain.CategoryNode{
				{ID: "461148003609080001", Name: "Lamps"},
			}),
		}),
	})
	require.NoError(t, err)
	require.NoError(t, store.WriteJSON(c.Layout.NormalizedCategories(), categories))
	require.NoError(t, store.AppendArray(c.Layout.ProductFile("461148003609080001"), domain.PageBatch{{Title: "lamp"}}))
	require.NoError(t, c.Exporter.ExportCategory(categories, "461148003609080001"))

	require.NoError(t, c.Run(context.Background()))
	assert.True(t, store.Exists(c.Layout.Workbook()))
}
