package client

import (
	"cantonfair/scraper/internal/domain"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	log "github.com/sirupsen/logrus"
)

const (
	expandSettle    = time.Second
	urlPollInterval = 100 * time.Millisecond
)

type categoryTab struct {
	portal     *portalClient
	ctx        context.Context
	cancel     context.CancelFunc
	categoryID string
}

func (t *categoryTab) CategoryID() string {
	return t.categoryID
}

func (t *categoryTab) Groups() ([]domain.CategoryNode, error) {
	html, err := t.portal.outerHTML(t.ctx)
	if err != nil {
		return nil, err
	}
	return t.portal.parser.ParseCategoryGroups(html)
}

func groupSelector(groupID string) string {
	return fmt.Sprintf(`%s[id=%s]`, selCategoryGroupBase, strconv.Quote(groupID))
}

func (t *categoryTab) ExpandGroup(groupID string) error {
	err := RunWithTimeout(t.ctx, t.portal.cfg.Browser.NavTimeout(),
		chromedp.Click(groupSelector(groupID), chromedp.ByQuery),
		chromedp.Sleep(expandSettle),
	)
	if err != nil {
		return fmt.Errorf("failed to expand category group %s: %w", groupID, err)
	}
	return nil
}

func (t *categoryTab) SelectLeaf(groupID string, leaf domain.CategoryNode) (string, error) {
	var previous string
	if err := RunWithTimeout(t.ctx, t.portal.cfg.Browser.NavTimeout(), chromedp.Location(&previous)); err != nil {
		return "", err
	}

	clickLeaf := fmt.Sprintf(`(() => {
		const items = document.querySelectorAll(%s);
		for (const item of items) {
			const name = item.querySelector('span:first-child');
			if (name && name.textContent.trim() === %s) {
				item.scrollIntoView({block: 'center'});
				item.click();
				return true;
			}
		}
		return false;
	})()`,
		strconv.Quote(groupSelector(groupID)+" "+selCategoryLeaf),
		strconv.Quote(leaf.Name))

	var clicked bool
	t.portal.rl.Take()
	if err := RunWithTimeout(t.ctx, t.portal.cfg.Browser.NavTimeout(), chromedp.Evaluate(clickLeaf, &clicked)); err != nil {
		return "", fmt.Errorf("failed to click product category %q: %w", leaf.Name, err)
	}
	if !clicked {
		return "", fmt.Errorf("%w: product category %q in group %s", ErrElementNotFound, leaf.Name, groupID)
	}

	urlChanged := fmt.Sprintf(`location.href !== %s`, strconv.Quote(previous))
	var changed bool
	var current string
	timeout := t.portal.cfg.Browser.URLChangeTimeout()
	err := RunWithTimeout(t.ctx, timeout+time.Second,
		chromedp.Poll(urlChanged, &changed,
			chromedp.WithPollingInterval(urlPollInterval),
			chromedp.WithPollingTimeout(timeout)),
		chromedp.Location(&current),
	)
	if err != nil {
		return "", fmt.Errorf("URL did not change after selecting %q: %w", leaf.Name, err)
	}

	_, productCategoryID := CategoryIDsFromURL(current)
	if productCategoryID == "" {
		return "", fmt.Errorf("no product category ID in %s", current)
	}
	return productCategoryID, nil
}

func (t *categoryTab) Close() {
	t.cancel()
}

type listingTab struct {
	portal            *portalClient
	ctx               context.Context
	cancel            context.CancelFunc
	mainCategoryID    string
	productCategoryID string
}

func (t *listingTab) load(page int) error {
	url := ListingURL(t.portal.cfg.Portal.BaseURL, t.mainCategoryID, t.productCategoryID, t.portal.cfg.Portal.PageSize, page)

	err := RunWithTimeout(t.ctx, t.portal.cfg.Browser.NavTimeout(),
		t.portal.navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(t.portal.cfg.Browser.Settle()),
	)
	if err != nil {
		return fmt.Errorf("failed to load page %d of product category %s: %w", page, t.productCategoryID, err)
	}
	return nil
}

func (t *listingTab) TotalItems() (int, error) {
	html, err := t.portal.outerHTML(t.ctx)
	if err != nil {
		return 0, err
	}
	return t.portal.parser.ParseTotalItems(html)
}

func (t *listingTab) GoToPage(page int) error {
	return t.load(page)
}

func (t *listingTab) ProductCards() ([]domain.ProductRecord, error) {
	html, err := t.portal.outerHTML(t.ctx)
	if err != nil {
		return nil, err
	}
	return t.portal.parser.ParseProductCards(html)
}

func (t *listingTab) OpenProductDetail(index int) (string, error) {
	var cards []*cdp.Node
	err := RunWithTimeout(t.ctx, t.portal.cfg.Browser.NavTimeout(),
		chromedp.Nodes(selProductCard, &cards, chromedp.ByQueryAll))
	if err != nil {
		return "", fmt.Errorf("failed to locate product cards: %w", err)
	}
	if index < 0 || index >= len(cards) {
		return "", fmt.Errorf("%w: product card %d of %d", ErrElementNotFound, index, len(cards))
	}

	card := cards[index]
	click := chromedp.Tasks{
		chromedp.ScrollIntoView([]cdp.NodeID{card.NodeID}, chromedp.ByNodeID),
		chromedp.MouseClickNode(card),
	}

	detailCtx, closeDetail, err := t.portal.clickIntoNewTab(t.ctx, click)
	if err != nil {
		return "", fmt.Errorf("failed to open product card %d: %w", index, err)
	}
	defer closeDetail()

	var productURL string
	err = RunWithTimeout(detailCtx, t.portal.cfg.Browser.NewTabTimeout(),
		chromedp.WaitReady("body"),
		chromedp.Location(&productURL),
	)
	if err != nil {
		return "", fmt.Errorf("product detail tab did not load: %w", err)
	}

	log.Debugf("Product card %d -> %s", index, productURL)
	return productURL, nil
}

func (t *listingTab) Close() {
	t.cancel()
}
