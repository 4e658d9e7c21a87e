package proxy

import (
	"context"
	"crypto/tls"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"resty.dev/v3"
)

const (
	maxParallelChecks = 50
	probeTimeout      = 5 * time.Second
	userAgent         = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// ProxySupplier hands out browser proxies in round-robin order. Each browser
// launch takes one.
type ProxySupplier interface {
	Get() string
	Len() int
}

type proxySupplier struct {
	proxies []string
	current int
	mutex   sync.Mutex
}

// Validator reports whether a proxy can reach testURL.
type Validator func(ctx context.Context, proxyURL, testURL string) bool

// NewProxySupplier validates the configured proxies in parallel and keeps the
// working ones in their configured order. An empty list yields a supplier
// that always returns "" (direct connection).
func NewProxySupplier(ctx context.Context, proxies []string, testURL string) (ProxySupplier, error) {
	return newProxySupplier(ctx, proxies, testURL, reachable)
}

func newProxySupplier(ctx context.Context, proxies []string, testURL string, validate Validator) (ProxySupplier, error) {
	if len(proxies) == 0 {
		return &proxySupplier{proxies: []string{}}, nil
	}

	log.Infof("🔄 Testing %d proxies in parallel...", len(proxies))

	working := make([]bool, len(proxies))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelChecks)

	for i, proxyURL := range proxies {
		g.Go(func() error {
			log.Debugf("🔄 Testing proxy %d/%d: %s", i+1, len(proxies), proxyURL)

			if validate(gctx, proxyURL, testURL) {
				working[i] = true
				log.Infof("✅ Proxy %s is working", proxyURL)
			} else {
				log.Infof("❌ Proxy %s is not working, skipping", proxyURL)
			}
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	validProxies := make([]string, 0, len(proxies))
	for i, ok := range working {
		if ok {
			validProxies = append(validProxies, proxies[i])
		}
	}

	log.Infof("✅ ProxySupplier initialized with %d working proxies out of %d tested", len(validProxies), len(proxies))

	return &proxySupplier{
		proxies: validProxies,
	}, nil
}

// Get returns the next proxy URL, or "" when the pool is empty
func (p *proxySupplier) Get() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if len(p.proxies) == 0 {
		return ""
	}

	proxy := p.proxies[p.current]
	p.current = (p.current + 1) % len(p.proxies)

	return proxy
}

func (p *proxySupplier) Len() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.proxies)
}

// reachable reports whether testURL answers through proxyURL within the
// probe timeout.
func reachable(ctx context.Context, proxyURL, testURL string) bool {
	client := resty.New().
		SetTimeout(probeTimeout).
		SetRetryCount(0).
		SetProxy(proxyURL).
		SetHeader("User-Agent", userAgent).
		SetTLSClientConfig(&tls.Config{
			InsecureSkipVerify: true,
		})
	defer client.Close()

	resp, err := client.R().
		SetContext(ctx).
		Head(testURL)
	if err != nil {
		log.Debugf("Proxy %s failed: %v", proxyURL, err)
		return false
	}
	if resp.IsError() {
		log.Debugf("Proxy %s answered %s", proxyURL, resp.Status())
		return false
	}
	return true
}
