package client

import (
	"cantonfair/scraper/internal/domain"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

// Portal DOM selectors
const (
	selMainCategory      = ".page__item--X870u"
	selMainCategoryName  = ".page__item--X870u .kylin-text__text"
	selCategoryGroupBase = ".index__Collapse--RUAbD"
	selCategoryGroup     = selCategoryGroupBase + "[id]"
	selCategoryGroupText = ".index__text--lKhSS"
	selCategoryLeaf      = "li.index__item--ZSYkz.index__option--PoIIn"
	selTotalItems        = ".index__total--hiD2n"
	selProductCard       = ".index__ProductCard--LIttx"
	selProductImage      = ".index__img--R37kn"
	selProductTitle      = ".index__title--sIKzt"
	selProductTag        = ".index__tag--YjxvG"
	selProductCompany    = ".index__company--R66AE"
	selProductLock       = ".index__lock--UmiPo"
	selContactSection    = ".index__ContactInfoSections--WHmlE"
	selContactRow        = ".index__ContactInfoSections--WHmlE .index__row--GoCEM"
	selContactItem       = ".index__item--vuNk7"
	selContactLabel      = ".index__name--KiZnD"
	selContactValue      = ".index__content--HCLQC"
	selLoggedInUser      = ".index__name--Whtb3"
)

var (
	// ErrNoCategories means the category panel selector matched nothing.
	ErrNoCategories = errors.New("no categories found")
	// ErrElementNotFound means an expected element is absent from the page.
	ErrElementNotFound = errors.New("element not found")
)

var (
	countedNameRegex   = regexp.MustCompile(`^(.*)\((\d+)\)$`)
	totalItemsRegex    = regexp.MustCompile(`Total\s+([\d,]+)\s+items`)
	backgroundURLRegex = regexp.MustCompile(`url\(\s*["']?(.+?)["']?\s*\)`)
	categoryParamRegex = regexp.MustCompile(`[?&]category=([0-9]+)`)
	subCategoryRegex   = regexp.MustCompile(`[?&]scategory=([0-9]+)`)
)

type catalogParser struct{}

func newCatalogParser() *catalogParser {
	return &catalogParser{}
}

func (p *catalogParser) document(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// ParseMainCategories returns the top level category names of the landing page
// in display order.
func (p *catalogParser) ParseMainCategories(html string) ([]string, error) {
	doc, err := p.document(html)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0)
	doc.Find(selMainCategoryName).Each(func(i int, s *goquery.Selection) {
		names = append(names, strings.TrimSpace(s.Text()))
	})

	if len(names) == 0 {
		return nil, fmt.Errorf("%w: selector %q matched nothing", ErrNoCategories, selMainCategoryName)
	}

	log.Debugf("Parsed %d main categories", len(names))
	return names, nil
}

// ParseCategoryGroups reads the collapsible second level groups of a main
// category page. Each group carries its third level items as leaves whose IDs
// are still unknown; they are only revealed by navigating to them.
func (p *catalogParser) ParseCategoryGroups(html string) ([]domain.CategoryNode, error) {
	doc, err := p.document(html)
	if err != nil {
		return nil, err
	}

	groups := make([]domain.CategoryNode, 0)
	doc.Find(selCategoryGroup).Each(func(i int, node *goquery.Selection) {
		id, _ := node.Attr("id")
		name, count := splitCountedName(node.Find(selCategoryGroupText).First().Text())

		leaves := make([]domain.CategoryNode, 0)
		node.Find(selCategoryLeaf).Each(func(j int, item *goquery.Selection) {
			leafCount := strings.NewReplacer("(", "", ")", "").Replace(
				strings.TrimSpace(item.Find("span:last-child").First().Text()))
			n, _ := strconv.Atoi(leafCount)

			leaves = append(leaves, domain.CategoryNode{
				Name:  strings.TrimSpace(item.Find("span:first-child").First().Text()),
				Count: n,
			})
		})

		group := domain.WithChildren(id, name, leaves)
		group.Count = count
		groups = append(groups, group)
	})

	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: selector %q matched nothing", ErrNoCategories, selCategoryGroup)
	}

	return groups, nil
}

// splitCountedName splits "Name(123)" into its parts.
func splitCountedName(text string) (string, int) {
	text = strings.TrimSpace(text)
	matches := countedNameRegex.FindStringSubmatch(text)
	if len(matches) < 3 {
		return text, 0
	}
	count, _ := strconv.Atoi(matches[2])
	return strings.TrimSpace(matches[1]), count
}

// ParseTotalItems reads the "Total N items" summary of a product listing.
// Thousands separators are accepted.
func (p *catalogParser) ParseTotalItems(html string) (int, error) {
	doc, err := p.document(html)
	if err != nil {
		return 0, err
	}

	summary := doc.Find(selTotalItems).First()
	if summary.Length() == 0 {
		return 0, fmt.Errorf("%w: %s", ErrElementNotFound, selTotalItems)
	}

	matches := totalItemsRegex.FindStringSubmatch(summary.Text())
	if len(matches) < 2 {
		return 0, fmt.Errorf("%w: no item total in %q", ErrElementNotFound, strings.TrimSpace(summary.Text()))
	}

	total, err := strconv.Atoi(strings.ReplaceAll(matches[1], ",", ""))
	if err != nil {
		return 0, fmt.Errorf("failed to parse item total %q: %w", matches[1], err)
	}
	return total, nil
}

// ParseProductCards extracts one record per product card in page order. Locked
// cards are kept and flagged; ProductURL is left nil for the caller to fill in.
func (p *catalogParser) ParseProductCards(html string) ([]domain.ProductRecord, error) {
	doc, err := p.document(html)
	if err != nil {
		return nil, err
	}

	var parseErr error
	cards := make([]domain.ProductRecord, 0)
	doc.Find(selProductCard).EachWithBreak(func(i int, card *goquery.Selection) bool {
		company := card.Find(selProductCompany).First()
		if company.Length() == 0 {
			parseErr = fmt.Errorf("%w: %s in product card %d", ErrElementNotFound, selProductCompany, i)
			return false
		}
		companyLink, _ := company.Attr("href")

		style, _ := card.Find(selProductImage).First().Attr("style")

		tags := make([]string, 0)
		card.Find(selProductTag).Each(func(j int, tag *goquery.Selection) {
			tags = append(tags, strings.TrimSpace(tag.Text()))
		})

		cards = append(cards, domain.ProductRecord{
			Image:       backgroundImageURL(style),
			Title:       strings.TrimSpace(card.Find(selProductTitle).First().Text()),
			Tags:        tags,
			Company:     strings.TrimSpace(company.Text()),
			CompanyLink: companyLink,
			IsLocked:    card.Find(selProductLock).Length() > 0,
		})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	log.Debugf("Parsed %d product cards", len(cards))
	return cards, nil
}

// backgroundImageURL pulls the URL out of a background-image declaration.
func backgroundImageURL(style string) string {
	for _, declaration := range strings.Split(style, ";") {
		property, value, found := strings.Cut(declaration, ":")
		if !found || strings.TrimSpace(strings.ToLower(property)) != "background-image" {
			continue
		}
		if matches := backgroundURLRegex.FindStringSubmatch(value); len(matches) > 1 {
			return strings.ReplaceAll(matches[1], "&quot;", "")
		}
	}
	return ""
}

// ParseContactDetails reads the label -> value pairs of the exhibitor contact panel.
func (p *catalogParser) ParseContactDetails(html string) (map[string]string, error) {
	doc, err := p.document(html)
	if err != nil {
		return nil, err
	}

	if doc.Find(selContactSection).Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selContactSection)
	}

	details := make(map[string]string)
	doc.Find(selContactRow).Each(func(i int, row *goquery.Selection) {
		row.Find(selContactItem).Each(func(j int, item *goquery.Selection) {
			label := strings.TrimSpace(item.Find(selContactLabel).First().Text())
			if label == "" {
				return
			}
			details[label] = strings.TrimSpace(item.Find(selContactValue).First().Text())
		})
	})

	return details, nil
}

// ParseLoggedInUser returns the displayed account name, empty when logged out.
func (p *catalogParser) ParseLoggedInUser(html string) (string, error) {
	doc, err := p.document(html)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(doc.Find(selLoggedInUser).First().Text()), nil
}

// CategoryIDsFromURL extracts the main ("category") and product ("scategory")
// category IDs from a listing URL. Missing parameters come back empty.
func CategoryIDsFromURL(rawURL string) (categoryID, subCategoryID string) {
	if matches := categoryParamRegex.FindStringSubmatch(rawURL); len(matches) > 1 {
		categoryID = matches[1]
	}
	if matches := subCategoryRegex.FindStringSubmatch(rawURL); len(matches) > 1 {
		subCategoryID = matches[1]
	}
	return categoryID, subCategoryID
}
