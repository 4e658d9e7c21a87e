package state

import (
	"cantonfair/scraper/internal/store"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletedPagesCountsBatches(t *testing.T) {
	layout := store.NewLayout(t.TempDir())
	manager := NewFileStateManager(layout)

	pages, err := manager.CompletedPages("100000000000000001")
	require.NoError(t, err)
	assert.Equal(t, 0, pages)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.AppendArray(layout.ProductFile("100000000000000001"), []map[string]string{}))
	}

	pages, err = manager.CompletedPages("100000000000000001")
	require.NoError(t, err)
	assert.Equal(t, 3, pages)
}

func TestCompletedPagesCorruptFile(t *testing.T) {
	layout := store.NewLayout(t.TempDir())
	require.NoError(t, os.MkdirAll(layout.ProductsDir(), 0755))
	require.NoError(t, os.WriteFile(layout.ProductFile("x"), []byte("{"), 0644))

	_, err := NewFileStateManager(layout).CompletedPages("x")
	assert.Error(t, err)
}

func TestScrapedMainCategoriesAndExhibitors(t *testing.T) {
	layout := store.NewLayout(t.TempDir())
	manager := NewFileStateManager(layout)

	names, err := manager.ScrapedMainCategories()
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, store.AppendArray(layout.Categories(), map[string]string{"id": "1", "name": "Hardware"}))
	require.NoError(t, store.AppendObject(layout.Exhibitors(), map[string]map[string]string{"shop-1": {"name": "ACME"}}))

	names, err = manager.ScrapedMainCategories()
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"Hardware": true}, names)

	ids, err := manager.ScrapedExhibitors()
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"shop-1": true}, ids)
}

func TestMarkers(t *testing.T) {
	layout := store.NewLayout(t.TempDir())
	manager := NewFileStateManager(layout)

	assert.False(t, manager.CategoriesNormalized())
	assert.False(t, manager.CategoryExported("42"))

	require.NoError(t, store.WriteJSON(layout.NormalizedCategories(), map[string]any{}))
	require.NoError(t, os.MkdirAll(layout.ProductsDir(), 0755))
	require.NoError(t, os.WriteFile(layout.ProductWorkbook("42"), []byte("xlsx"), 0644))

	assert.True(t, manager.CategoriesNormalized())
	assert.True(t, manager.CategoryExported("42"))
}
