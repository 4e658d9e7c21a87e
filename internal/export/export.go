package export

import (
	"cantonfair/scraper/internal/catalog"
	"cantonfair/scraper/internal/domain"
	"cantonfair/scraper/internal/store"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

const (
	indexSheet    = "Index"
	productsSheet = "Products"
	tagSeparator  = ", "
)

var productHeader = []interface{}{
	"Main Category", "Sub Category", "Product Category", "Product", "Tags",
	"Company", "Product URL", "Company Link", "Image",
}

var exhibitorHeader = []interface{}{
	"Exhibitor ID", "Company Name", "Website", "Address", "Country/Region", "Zip Code",
	"Contact Person", "Telephone", "Mobile Phone", "Fax", "Email",
}

var indexHeader = []interface{}{
	"Sheet", "Main Category", "Sub Category", "Product Category", "Category Path", "Products",
}

// Exporter turns the persisted product batches into workbooks.
type Exporter struct {
	layout         store.Layout
	withExhibitors bool
}

func NewExporter(layout store.Layout, withExhibitors bool) *Exporter {
	return &Exporter{
		layout:         layout,
		withExhibitors: withExhibitors,
	}
}

// Products returns the flattened records of a product category with exact
// duplicates removed, in first-seen order.
func (e *Exporter) Products(categoryID string) ([]domain.ProductRecord, error) {
	var batches []domain.PageBatch
	if _, err := store.ReadJSON(e.layout.ProductFile(categoryID), &batches); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	products := make([]domain.ProductRecord, 0)
	for _, batch := range batches {
		for _, product := range batch {
			key, err := json.Marshal(product)
			if err != nil {
				return nil, err
			}
			if seen[string(key)] {
				continue
			}
			seen[string(key)] = true
			products = append(products, product)
		}
	}
	return products, nil
}

// ExportCategory writes the workbook of a single product category. Its
// presence marks the category as done for later runs.
func (e *Exporter) ExportCategory(categories *domain.CategoryMap, categoryID string) error {
	products, err := e.Products(categoryID)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), productsSheet); err != nil {
		return err
	}
	if err := writeProductSheet(f, productsSheet, lineage(categories, categoryID), products, nil); err != nil {
		return err
	}

	if err := saveAtomically(f, e.layout.ProductWorkbook(categoryID)); err != nil {
		return fmt.Errorf("failed to save workbook of category %s: %w", categoryID, err)
	}

	log.Infof("📗 Exported %d products of category %s", len(products), categoryID)
	return nil
}

// Export writes the combined workbook: an index sheet followed by one sheet per
// product category, ordered by category path. Categories without a product
// file are left out.
func (e *Exporter) Export(categories *domain.CategoryMap, categoryIDs []string) error {
	var exhibitors domain.ExhibitorMap
	if e.withExhibitors {
		exhibitors = make(domain.ExhibitorMap)
		if _, err := store.ReadJSON(e.layout.Exhibitors(), &exhibitors); err != nil {
			return err
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), indexSheet); err != nil {
		return err
	}

	index := make([][]interface{}, 0, len(categoryIDs))
	for _, id := range catalog.SortByPath(categories, categoryIDs) {
		if !store.Exists(e.layout.ProductFile(id)) {
			log.Warnf("⚠️ No products scraped for category %s, leaving it out", id)
			continue
		}

		products, err := e.Products(id)
		if err != nil {
			return err
		}

		if _, err := f.NewSheet(id); err != nil {
			return err
		}
		names := lineage(categories, id)
		if err := writeProductSheet(f, id, names, products, exhibitors); err != nil {
			return err
		}

		category, _ := categories.Get(id)
		index = append(index, []interface{}{id, names[0], names[1], names[2], category.CategoryPath, len(products)})
	}

	if err := writeSheet(f, indexSheet, indexHeader, index); err != nil {
		return err
	}

	if err := saveAtomically(f, e.layout.Workbook()); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	log.Infof("📗 Exported %d product categories to %s", len(index), e.layout.Workbook())
	return nil
}

// lineage returns the main, sub and product category names of a product category.
func lineage(categories *domain.CategoryMap, categoryID string) [3]string {
	product, _ := categories.Get(categoryID)
	sub, _ := categories.Get(product.SubCategoryID)
	main, _ := categories.Get(product.MainCategoryID)
	return [3]string{main.Name, sub.Name, product.Name}
}

func writeProductSheet(f *excelize.File, sheet string, names [3]string, products []domain.ProductRecord, exhibitors domain.ExhibitorMap) error {
	header := productHeader
	if exhibitors != nil {
		header = append(append([]interface{}{}, productHeader...), exhibitorHeader...)
	}

	rows := make([][]interface{}, 0, len(products))
	for _, product := range products {
		productURL := ""
		if product.ProductURL != nil {
			productURL = *product.ProductURL
		}

		row := []interface{}{
			names[0], names[1], names[2],
			product.Title,
			strings.Join(product.Tags, tagSeparator),
			product.Company,
			productURL,
			product.CompanyLink,
			product.Image,
		}
		if exhibitors != nil {
			id := domain.ExhibitorID(product.CompanyLink)
			x := exhibitors[id]
			row = append(row, id, x.Name, x.Website, x.Address, x.CountryRegion, x.ZipCode,
				x.ContactPerson, x.Telephone, x.MobilePhone, x.Fax, x.Email)
		}
		rows = append(rows, row)
	}

	return writeSheet(f, sheet, header, rows)
}

func writeSheet(f *excelize.File, sheet string, header []interface{}, rows [][]interface{}) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}

	if err := sw.SetColWidth(1, len(header), 24); err != nil {
		return err
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	return sw.Flush()
}

func saveAtomically(f *excelize.File, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	// SaveAs infers the format from the extension.
	tmp := strings.TrimSuffix(path, filepath.Ext(path)) + ".tmp" + filepath.Ext(path)
	if err := f.SaveAs(tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
