package domain

import (
	"encoding/json"
	"fmt"
)

// CategoryNode is a category as discovered on the portal. A nil SubCategories
// marks a leaf (product) category; a present but empty list is not a leaf.
type CategoryNode struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Count         int             `json:"count,omitempty"`
	SubCategories *[]CategoryNode `json:"subCategories,omitempty"`
}

func (n CategoryNode) IsLeaf() bool {
	return n.SubCategories == nil
}

// Children returns the sub categories, nil for leaves.
func (n CategoryNode) Children() []CategoryNode {
	if n.SubCategories == nil {
		return nil
	}
	return *n.SubCategories
}

// WithChildren returns a non-leaf node holding children (which may be empty).
func WithChildren(id, name string, children []CategoryNode) CategoryNode {
	if children == nil {
		children = []CategoryNode{}
	}
	return CategoryNode{ID: id, Name: name, SubCategories: &children}
}

type CategoryRole int

const (
	RoleUnknown CategoryRole = iota
	RoleMain
	RoleSub
	RoleProduct
)

// Category is one entry of the normalized category map. Exactly one role flag is set.
type Category struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	SubCategoryID     string `json:"subCategoryId,omitempty"`
	MainCategoryID    string `json:"mainCategoryId,omitempty"`
	IsMainCategory    bool   `json:"isMainCategory,omitempty"`
	IsSubCategory     bool   `json:"isSubCategory,omitempty"`
	IsProductCategory bool   `json:"isProductCategory,omitempty"`
	CategoryPath      string `json:"categoryPath,omitempty"`
}

func (c Category) Role() CategoryRole {
	switch {
	case c.IsMainCategory:
		return RoleMain
	case c.IsSubCategory:
		return RoleSub
	case c.IsProductCategory:
		return RoleProduct
	default:
		return RoleUnknown
	}
}

const productCategoriesKey = "productCategories"

// CategoryMap is the flat, ID keyed lookup that replaces the nested category tree.
// It serializes as a single JSON object holding every category under its ID plus
// the "productCategories" registry of accepted leaf IDs.
type CategoryMap struct {
	Categories        map[string]Category
	ProductCategories []string
}

func NewCategoryMap() *CategoryMap {
	return &CategoryMap{
		Categories:        make(map[string]Category),
		ProductCategories: make([]string, 0),
	}
}

func (m *CategoryMap) Get(id string) (Category, bool) {
	c, ok := m.Categories[id]
	return c, ok
}

// Add stores c unless its ID is already present. First seen wins.
func (m *CategoryMap) Add(c Category) bool {
	if _, exists := m.Categories[c.ID]; exists {
		return false
	}
	m.Categories[c.ID] = c
	if c.IsProductCategory {
		m.ProductCategories = append(m.ProductCategories, c.ID)
	}
	return true
}

func (m *CategoryMap) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(m.Categories)+1)
	for id, c := range m.Categories {
		flat[id] = c
	}
	registry := m.ProductCategories
	if registry == nil {
		registry = []string{}
	}
	flat[productCategoriesKey] = registry
	return json.Marshal(flat)
}

func (m *CategoryMap) UnmarshalJSON(data []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}

	m.Categories = make(map[string]Category, len(flat))
	m.ProductCategories = make([]string, 0)

	for key, raw := range flat {
		if key == productCategoriesKey {
			if err := json.Unmarshal(raw, &m.ProductCategories); err != nil {
				return fmt.Errorf("failed to decode %s: %w", productCategoriesKey, err)
			}
			continue
		}

		var c Category
		if err := json.Unmarshal(raw, &c); err != nil {
			return fmt.Errorf("failed to decode category %s: %w", key, err)
		}
		m.Categories[key] = c
	}

	return nil
}
