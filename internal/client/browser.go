package client

import (
	"cantonfair/scraper/internal/config"
	"cantonfair/scraper/internal/store"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	log "github.com/sirupsen/logrus"
	"resty.dev/v3"
)

// ErrTimeout marks a bounded browser wait that ran out.
var ErrTimeout = errors.New("browser wait timed out")

// NewBrowserContext starts a Chrome instance and returns a context bound to its
// first tab. Cancelling the returned func closes the browser.
func NewBrowserContext(parent context.Context, cfg config.BrowserConfig, headless bool, proxyURL string) (context.Context, context.CancelFunc, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("headless", headless),
		chromedp.WindowSize(1440, 900),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if proxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(proxyURL))
		log.Infof("🔗 Using proxy: %s", proxyURL)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	cancel := func() {
		browserCancel()
		allocCancel()
	}

	// The first Run allocates the browser; it must not carry a timeout.
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return browserCtx, cancel, nil
}

// newTab opens a blank tab in the browser that owns parent.
func newTab(parent context.Context) (context.Context, context.CancelFunc, error) {
	tabCtx, cancel := chromedp.NewContext(parent)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to open tab: %w", err)
	}
	return tabCtx, cancel, nil
}

// RunWithTimeout runs actions under a deadline and reports an expired deadline
// as ErrTimeout.
func RunWithTimeout(parent context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	if err := chromedp.Run(ctx, actions...); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, chromedp.ErrPollingTimeout) {
			return fmt.Errorf("%w after %s: %v", ErrTimeout, timeout, err)
		}
		return err
	}
	return nil
}

// ClickText clicks the first element whose own text is exactly text.
func ClickText(text string) chromedp.Action {
	return chromedp.Click(textXPath("*", text), chromedp.BySearch, chromedp.NodeVisible)
}

// ClickButton clicks the first button whose text content is exactly text.
func ClickButton(text string) chromedp.Action {
	return chromedp.Click(buttonXPath(text), chromedp.BySearch, chromedp.NodeVisible)
}

// CountButtons counts the buttons labelled text without waiting for any.
func CountButtons(text string, count *int) chromedp.Action {
	expression := fmt.Sprintf(
		`document.evaluate(%s, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null).snapshotLength`,
		strconv.Quote(buttonXPath(text)))
	return chromedp.Evaluate(expression, count)
}

func textXPath(tag, text string) string {
	return fmt.Sprintf(`//%s[normalize-space(text())=%q]`, tag, text)
}

func buttonXPath(text string) string {
	return fmt.Sprintf(`//button[normalize-space(.)=%q]`, text)
}

// SaveSession writes every cookie of the browser to path.
func SaveSession(path string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to read cookies: %w", err)
		}
		if err := store.WriteJSON(path, cookies); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		log.Infof("💾 Saved %d session cookies to %s", len(cookies), path)
		return nil
	})
}

// LoadSession restores the cookies saved by SaveSession. A missing session
// file is not an error.
func LoadSession(path string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var cookies []*network.Cookie
		found, err := store.ReadJSON(path, &cookies)
		if err != nil {
			return fmt.Errorf("failed to load session: %w", err)
		}
		if !found {
			log.Info("🆕 No saved session found, starting a new one")
			return nil
		}

		if err := network.SetCookies(cookieParams(cookies)).Do(ctx); err != nil {
			return fmt.Errorf("failed to restore cookies: %w", err)
		}
		log.Infof("🍪 Loaded %d session cookies", len(cookies))
		return nil
	})
}

func cookieParams(cookies []*network.Cookie) []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		param := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: c.SameSite,
		}
		if !c.Session && c.Expires > 0 {
			expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			param.Expires = &expires
		}
		params = append(params, param)
	}
	return params
}

// Probe checks that the portal answers over plain HTTP before a browser is
// started for it.
func Probe(ctx context.Context, baseURL, proxyURL string) error {
	client := resty.New().
		SetTimeout(30*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(2*time.Second).
		SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36").
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.5").
		SetTLSClientConfig(&tls.Config{
			InsecureSkipVerify: true,
		})
	defer client.Close()
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}

	resp, err := client.R().
		SetContext(ctx).
		Get(baseURL)
	if err != nil {
		return fmt.Errorf("portal unreachable: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("portal returned status: %s", resp.Status())
	}
	return nil
}

// ListingURL builds the product listing URL of a product category. Page 1 has
// no page parameter.
func ListingURL(baseURL, mainCategoryID, productCategoryID string, pageSize, page int) string {
	query := url.Values{}
	query.Set("category", mainCategoryID)
	query.Set("scategory", productCategoryID)
	query.Set("size", strconv.Itoa(pageSize))
	if page > 1 {
		query.Set("page", strconv.Itoa(page))
	}
	return baseURL + "detailed?" + query.Encode()
}
