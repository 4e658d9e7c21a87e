package container

import (
	"context"
	"fmt"
	"os"

	"cantonfair/scraper/internal/auth"
	"cantonfair/scraper/internal/client"
	"cantonfair/scraper/internal/config"
	"cantonfair/scraper/internal/export"
	"cantonfair/scraper/internal/proxy"
	"cantonfair/scraper/internal/service"
	"cantonfair/scraper/internal/state"
	"cantonfair/scraper/internal/store"

	log "github.com/sirupsen/logrus"
)

// Container holds all initialized components
type Container struct {
	Config       *config.Config
	Layout       store.Layout
	Launcher     client.Launcher
	StateManager state.StateManager
	Exporter     *export.Exporter

	Service *service.Service
}

// New creates a new container with all dependencies initialized
func New(cfg *config.Config) (*Container, error) {
	container := &Container{
		Config: cfg,
		Layout: store.NewLayout(cfg.Storage.DataDir),
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	testURL := cfg.Proxy.TestURL
	if testURL == "" {
		testURL = cfg.Portal.BaseURL
	}
	proxySupplier, err := proxy.NewProxySupplier(context.Background(), cfg.Proxy.List, testURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize proxy supplier: %w", err)
	}
	if len(cfg.Proxy.List) > 0 && proxySupplier.Len() == 0 {
		log.Warn("⚠️ None of the configured proxies work, connecting directly")
	}

	login := auth.NewInteractiveLogin(*cfg, container.Layout, os.Stdout, os.Stdin)
	container.Launcher = client.NewLauncher(*cfg, container.Layout, proxySupplier, login)

	container.StateManager = state.NewFileStateManager(container.Layout)
	container.Exporter = export.NewExporter(container.Layout, cfg.Scrape.Exhibitors)

	container.Service = service.NewService(
		container.Launcher,
		container.Layout,
		container.StateManager,
		container.Exporter,
		*cfg,
	)

	return container, nil
}

// Run executes every scraping stage, then curates the combined workbook
func (c *Container) Run(ctx context.Context) error {
	if err := c.Service.Run(ctx); err != nil {
		return err
	}

	categories, err := c.Service.LoadCategories()
	if err != nil {
		return err
	}

	log.Info("📊 Curating all products data in Excel...")
	return c.Exporter.Export(categories, c.Service.SelectedCategories(categories))
}

// Close reports where progress lives so an interrupted run can be resumed.
func (c *Container) Close() error {
	log.WithField("data_dir", c.Config.Storage.DataDir).Info("💾 Progress saved, rerun to resume")
	return nil
}
