package domain

type ProductRecord struct {
	Image       string   `json:"image"`
	Title       string   `json:"title"`
	Tags        []string `json:"tags"`
	Company     string   `json:"company"`
	CompanyLink string   `json:"companyLink"`
	IsLocked    bool     `json:"isLocked"`
	ProductURL  *string  `json:"productURL"`
}

// PageBatch holds the unlocked products of one listing page. A product file is
// a JSON array of batches where batch i (1-based) is page i.
type PageBatch []ProductRecord
