package domain

import "strings"

type ExhibitorRecord struct {
	Name          string `json:"name,omitempty"`
	Website       string `json:"website,omitempty"`
	Address       string `json:"address,omitempty"`
	CountryRegion string `json:"countryRegion,omitempty"`
	ZipCode       string `json:"zipCode,omitempty"`
	ContactPerson string `json:"contactPerson,omitempty"`
	Telephone     string `json:"telephone,omitempty"`
	MobilePhone   string `json:"mobilePhone,omitempty"`
	Fax           string `json:"fax,omitempty"`
	Email         string `json:"email,omitempty"`
}

// ExhibitorMap is keyed by exhibitor ID.
type ExhibitorMap map[string]ExhibitorRecord

// ContactLabels maps the labels of the portal's contact panel to record fields.
var ContactLabels = map[string]func(*ExhibitorRecord) *string{
	"Company Name":    func(r *ExhibitorRecord) *string { return &r.Name },
	"Company website": func(r *ExhibitorRecord) *string { return &r.Website },
	"Address":         func(r *ExhibitorRecord) *string { return &r.Address },
	"Country/Region":  func(r *ExhibitorRecord) *string { return &r.CountryRegion },
	"Zip code":        func(r *ExhibitorRecord) *string { return &r.ZipCode },
	"Contact Person":  func(r *ExhibitorRecord) *string { return &r.ContactPerson },
	"Telephone":       func(r *ExhibitorRecord) *string { return &r.Telephone },
	"Mobile Phone":    func(r *ExhibitorRecord) *string { return &r.MobilePhone },
	"Fax":             func(r *ExhibitorRecord) *string { return &r.Fax },
	"Email":           func(r *ExhibitorRecord) *string { return &r.Email },
}

// NewExhibitorRecord projects a label -> value contact mapping onto the fixed
// record shape. Unknown labels are ignored.
func NewExhibitorRecord(details map[string]string) ExhibitorRecord {
	var record ExhibitorRecord
	for label, value := range details {
		if field, ok := ContactLabels[label]; ok {
			*field(&record) = value
		}
	}
	return record
}

const (
	shopPathPrefix = "/en-US/shops/"
	shopHashSuffix = "?keyword=#/"
	localePath     = "/en-US/"
)

// ExhibitorID derives the stable exhibitor ID from a product's company link,
// e.g. "/en-US/shops/451234567890123456?keyword=#/" -> "451234567890123456".
func ExhibitorID(companyLink string) string {
	id := strings.Replace(companyLink, shopHashSuffix, "", 1)
	return strings.Replace(id, shopPathPrefix, "", 1)
}

// ContactURL builds the exhibitor's contact page URL from a company link.
// baseURL must end with the locale path, e.g. "https://host/en-US/".
func ContactURL(baseURL, companyLink string) string {
	return strings.Replace(companyLink, localePath, baseURL, 1) + "contact"
}
