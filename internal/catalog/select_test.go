package catalog

import (
	"cantonfair/scraper/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selectionFixture(t *testing.T) *domain.CategoryMap {
	t.Helper()
	normalized, err := Normalize([]domain.CategoryNode{
		group(mainElectronics, "Electronics & Appliance",
			group("S1", "Lighting", leaf(prodLamps, "Lamps")),
			group("S2", "Wiring", leaf(prodCables, "Cables")),
		),
		group(mainHardware, "Hardware",
			group("S3", "Hand Tools", leaf(prodTools, "Tools")),
		),
	})
	require.NoError(t, err)
	return normalized
}

func TestResolveProductCategories(t *testing.T) {
	categories := selectionFixture(t)

	tests := []struct {
		name      string
		selection []string
		expected  []string
	}{
		{name: "empty selection means all", selection: nil, expected: []string{prodLamps, prodCables, prodTools}},
		{name: "main expands to its leaves", selection: []string{mainElectronics}, expected: []string{prodLamps, prodCables}},
		{name: "sub expands to its leaves", selection: []string{"S2"}, expected: []string{prodCables}},
		{name: "leaf is used directly", selection: []string{prodTools}, expected: []string{prodTools}},
		{
			name:      "overlapping entries collapse",
			selection: []string{prodLamps, "S1", mainElectronics, prodLamps},
			expected:  []string{prodLamps, prodCables},
		},
		{name: "unknown IDs are ignored", selection: []string{"nope"}, expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveProductCategories(categories, tt.selection))
		})
	}
}

func TestSortByPath(t *testing.T) {
	categories := selectionFixture(t)

	sorted := SortByPath(categories, []string{prodTools, prodLamps, prodCables})
	// Electronics & Appliance > Lighting < Electronics & Appliance > Wiring < Hardware
	assert.Equal(t, []string{prodLamps, prodCables, prodTools}, sorted)
}

func TestMainCategorySummary(t *testing.T) {
	categories := selectionFixture(t)
	assert.Equal(t, map[string]int{"Electronics & Appliance": 2, "Hardware": 1}, MainCategorySummary(categories))
}
