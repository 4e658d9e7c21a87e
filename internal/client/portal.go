package client

import (
	"cantonfair/scraper/internal/config"
	"cantonfair/scraper/internal/domain"
	"cantonfair/scraper/internal/proxy"
	"cantonfair/scraper/internal/store"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
)

// ErrNotLoggedIn means no portal session could be established.
var ErrNotLoggedIn = errors.New("not logged in to the portal")

// PortalClient drives one browser session on the trade fair portal. The session
// lives as long as the context it was launched with, or until Close.
type PortalClient interface {
	ListMainCategories() ([]string, error)
	// OpenMainCategory clicks the index-th main category of the landing page
	// and returns the tab it opens.
	OpenMainCategory(index int, name string) (CategoryTab, error)
	OpenProductListing(mainCategoryID, productCategoryID string) (ListingTab, error)
	// ExhibitorContacts opens a contact page and reveals the contact panel. The
	// bool is false when the page offers no contact-reveal button.
	ExhibitorContacts(contactURL string) (map[string]string, bool, error)
	LoggedInUser() (string, error)
	Close() error
}

// CategoryTab is the page of one main category.
type CategoryTab interface {
	CategoryID() string
	// Groups returns the second level groups with their unresolved leaves.
	Groups() ([]domain.CategoryNode, error)
	ExpandGroup(groupID string) error
	// SelectLeaf clicks a leaf of an expanded group and returns the product
	// category ID read from the URL it navigates to.
	SelectLeaf(groupID string, leaf domain.CategoryNode) (string, error)
	Close()
}

// ListingTab is the paginated product listing of one product category.
type ListingTab interface {
	TotalItems() (int, error)
	GoToPage(page int) error
	ProductCards() ([]domain.ProductRecord, error)
	// OpenProductDetail clicks the index-th card, captures the URL of the tab
	// it opens and closes that tab.
	OpenProductDetail(index int) (string, error)
	Close()
}

// Launcher starts a logged-in portal session.
type Launcher interface {
	Launch(ctx context.Context) (PortalClient, error)
}

// Authenticator establishes a session and persists it to the session file.
type Authenticator interface {
	Login(ctx context.Context) error
}

type launcher struct {
	cfg           config.Config
	layout        store.Layout
	proxySupplier proxy.ProxySupplier
	auth          Authenticator
	rl            ratelimit.Limiter
}

func NewLauncher(cfg config.Config, layout store.Layout, proxySupplier proxy.ProxySupplier, auth Authenticator) Launcher {
	return &launcher{
		cfg:           cfg,
		layout:        layout,
		proxySupplier: proxySupplier,
		auth:          auth,
		rl:            ratelimit.New(cfg.Browser.MaxNavigationsPerSecond),
	}
}

func (l *launcher) Launch(ctx context.Context) (PortalClient, error) {
	proxyURL := ""
	if l.proxySupplier != nil {
		proxyURL = l.proxySupplier.Get()
	}

	if err := Probe(ctx, l.cfg.Portal.BaseURL, proxyURL); err != nil {
		return nil, err
	}

	portal, err := l.start(ctx, proxyURL)
	if err != nil {
		return nil, err
	}
	if l.loggedIn(portal) {
		return portal, nil
	}
	portal.Close()

	if l.auth == nil {
		return nil, ErrNotLoggedIn
	}

	log.Info("🔐 Not logged in, starting the login process in a visible browser...")
	if err := l.auth.Login(ctx); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	log.Info("✅ Logged in successfully, reopening the browser...")

	portal, err = l.start(ctx, proxyURL)
	if err != nil {
		return nil, err
	}
	if !l.loggedIn(portal) {
		portal.Close()
		return nil, ErrNotLoggedIn
	}
	return portal, nil
}

func (l *launcher) start(ctx context.Context, proxyURL string) (*portalClient, error) {
	browserCtx, cancel, err := NewBrowserContext(ctx, l.cfg.Browser, l.cfg.Browser.Headless, proxyURL)
	if err != nil {
		return nil, err
	}
	log.Infof("🚀 Launched a new browser (headless: %t)", l.cfg.Browser.Headless)

	portal := &portalClient{
		cfg:     l.cfg,
		browser: browserCtx,
		cancel:  cancel,
		rl:      l.rl,
		parser:  newCatalogParser(),
	}

	err = RunWithTimeout(browserCtx, l.cfg.Browser.NavTimeout(),
		LoadSession(l.layout.Session()),
		portal.navigate(l.cfg.Portal.BaseURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(l.cfg.Browser.Settle()),
	)
	if err != nil {
		portal.Close()
		return nil, fmt.Errorf("failed to open the portal: %w", err)
	}

	return portal, nil
}

func (l *launcher) loggedIn(portal PortalClient) bool {
	user, err := portal.LoggedInUser()
	if err != nil {
		log.Warnf("⚠️ Could not read the logged in user: %v", err)
		return false
	}
	if user == "" {
		return false
	}
	if l.cfg.Auth.Username != "" && user != l.cfg.Auth.Username {
		log.Warnf("⚠️ Logged in as %q, expected %q", user, l.cfg.Auth.Username)
		return false
	}
	log.Infof("👤 Logged in as %s", user)
	return true
}

type portalClient struct {
	cfg     config.Config
	browser context.Context
	cancel  context.CancelFunc
	rl      ratelimit.Limiter
	parser  *catalogParser
}

// navigate is a rate limited chromedp.Navigate.
func (c *portalClient) navigate(url string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		c.rl.Take()
		log.Debugf("Navigating to %s", url)
		return chromedp.Navigate(url).Do(ctx)
	})
}

func (c *portalClient) outerHTML(ctx context.Context) (string, error) {
	var html string
	if err := RunWithTimeout(ctx, c.cfg.Browser.NavTimeout(), chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("failed to read page HTML: %w", err)
	}
	return html, nil
}

func (c *portalClient) LoggedInUser() (string, error) {
	html, err := c.outerHTML(c.browser)
	if err != nil {
		return "", err
	}
	return c.parser.ParseLoggedInUser(html)
}

func (c *portalClient) ListMainCategories() ([]string, error) {
	html, err := c.outerHTML(c.browser)
	if err != nil {
		return nil, err
	}
	return c.parser.ParseMainCategories(html)
}

func (c *portalClient) OpenMainCategory(index int, name string) (CategoryTab, error) {
	selector := fmt.Sprintf("%s:nth-of-type(%d)", selMainCategory, index+1)

	tabCtx, cancel, err := c.clickIntoNewTab(c.browser, chromedp.Click(selector, chromedp.ByQuery))
	if err != nil {
		return nil, fmt.Errorf("failed to open main category %q: %w", name, err)
	}

	var location string
	err = RunWithTimeout(tabCtx, c.cfg.Browser.NavTimeout(),
		chromedp.WaitReady("body"),
		chromedp.Location(&location),
		chromedp.Sleep(c.cfg.Browser.Settle()),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("main category %q did not load: %w", name, err)
	}

	categoryID, _ := CategoryIDsFromURL(location)
	log.Infof("📂 Navigated to category: %s - %s", name, categoryID)

	return &categoryTab{
		portal:     c,
		ctx:        tabCtx,
		cancel:     cancel,
		categoryID: categoryID,
	}, nil
}

// clickIntoNewTab performs click on the tab of ctx and attaches to the page
// target it opens.
func (c *portalClient) clickIntoNewTab(ctx context.Context, click chromedp.Action) (context.Context, context.CancelFunc, error) {
	listenCtx, stopListening := context.WithCancel(ctx)
	defer stopListening()
	targets := chromedp.WaitNewTarget(listenCtx, func(info *target.Info) bool {
		return info.Type == "page"
	})

	c.rl.Take()
	if err := RunWithTimeout(ctx, c.cfg.Browser.NavTimeout(), click); err != nil {
		return nil, nil, err
	}

	timeout := c.cfg.Browser.NewTabTimeout()
	select {
	case id := <-targets:
		tabCtx, cancel := chromedp.NewContext(c.browser, chromedp.WithTargetID(id))
		if err := chromedp.Run(tabCtx); err != nil {
			cancel()
			return nil, nil, fmt.Errorf("failed to attach to new tab: %w", err)
		}
		return tabCtx, cancel, nil
	case <-ctx.Done():
		stopListening()
		closeLateTab(targets, c.closeTarget)
		return nil, nil, ctx.Err()
	case <-time.After(timeout):
		stopListening()
		closeLateTab(targets, c.closeTarget)
		return nil, nil, fmt.Errorf("%w after %s waiting for a new tab", ErrTimeout, timeout)
	}
}

// closeLateTab closes a tab that was announced after its listener gave up.
// The listener must already be stopped.
func closeLateTab(targets <-chan target.ID, closeTab func(target.ID) error) {
	select {
	case id, ok := <-targets:
		if !ok {
			return
		}
		log.Debugf("Closing late tab %s", id)
		if err := closeTab(id); err != nil {
			log.Warnf("⚠️ Failed to close late tab %s: %v", id, err)
		}
	default:
	}
}

func (c *portalClient) closeTarget(id target.ID) error {
	browser := chromedp.FromContext(c.browser).Browser
	return target.CloseTarget(id).Do(cdp.WithExecutor(c.browser, browser))
}

func (c *portalClient) OpenProductListing(mainCategoryID, productCategoryID string) (ListingTab, error) {
	tabCtx, cancel, err := newTab(c.browser)
	if err != nil {
		return nil, err
	}

	tab := &listingTab{
		portal:            c,
		ctx:               tabCtx,
		cancel:            cancel,
		mainCategoryID:    mainCategoryID,
		productCategoryID: productCategoryID,
	}
	if err := tab.load(1); err != nil {
		cancel()
		return nil, err
	}
	return tab, nil
}

func (c *portalClient) ExhibitorContacts(contactURL string) (map[string]string, bool, error) {
	tabCtx, cancel, err := newTab(c.browser)
	if err != nil {
		return nil, false, err
	}
	defer cancel()

	const revealButton = "View company's contact"

	var buttons int
	err = RunWithTimeout(tabCtx, c.cfg.Browser.NavTimeout(),
		c.navigate(contactURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(c.cfg.Browser.Settle()),
		ClickText("Contact Us"),
		chromedp.Sleep(c.cfg.Browser.Settle()),
		CountButtons(revealButton, &buttons),
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open contact page %s: %w", contactURL, err)
	}
	if buttons == 0 {
		return nil, false, nil
	}

	err = RunWithTimeout(tabCtx, c.cfg.Browser.NavTimeout(),
		ClickButton(revealButton),
		chromedp.WaitVisible(selContactSection, chromedp.ByQuery),
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to reveal contact details: %w", err)
	}

	html, err := c.outerHTML(tabCtx)
	if err != nil {
		return nil, false, err
	}

	details, err := c.parser.ParseContactDetails(html)
	if err != nil {
		return nil, false, err
	}
	return details, true, nil
}

func (c *portalClient) Close() error {
	c.cancel()
	log.Debug("Browser closed")
	return nil
}
