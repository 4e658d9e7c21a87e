package service

import (
	"cantonfair/scraper/internal/catalog"
	"cantonfair/scraper/internal/client"
	"cantonfair/scraper/internal/config"
	"cantonfair/scraper/internal/domain"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

type startTimeKey struct{}

// WithStartTime records the pipeline start time in ctx.
func WithStartTime(ctx context.Context, start time.Time) context.Context {
	return context.WithValue(ctx, startTimeKey{}, start)
}

// StartTime returns the time recorded by WithStartTime.
func StartTime(ctx context.Context) (time.Time, bool) {
	start, ok := ctx.Value(startTimeKey{}).(time.Time)
	return start, ok
}

// RetryPolicy bounds how often a failed stage is restarted. MaxAttempts 0
// retries until the context ends.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func NewRetryPolicy(cfg config.RetryConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     cfg.MaxAttempts,
		InitialInterval: time.Duration(cfg.InitialIntervalS) * time.Second,
		MaxInterval:     time.Duration(cfg.MaxIntervalS) * time.Second,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	exponential := backoff.NewExponentialBackOff()
	exponential.InitialInterval = p.InitialInterval
	exponential.MaxInterval = p.MaxInterval
	exponential.MaxElapsedTime = 0
	exponential.Reset()

	var b backoff.BackOff = exponential
	if p.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
	}
	return backoff.WithContext(b, ctx)
}

type stageHandler struct {
	skip func() bool
	run  func(ctx context.Context, portal client.PortalClient) error
}

func (s *Service) stages() [domain.StageCount]stageHandler {
	return [domain.StageCount]stageHandler{
		domain.StageCategories: {skip: s.categoriesDone, run: s.ScrapeCategories},
		domain.StageProducts:   {skip: s.productsDone, run: s.ScrapeProducts},
		domain.StageExhibitors: {skip: s.exhibitorsDisabled, run: s.ScrapeExhibitors},
	}
}

func (s *Service) exhibitorsDisabled() bool {
	if !s.scrape.Exhibitors {
		log.Info("⏭️ Exhibitor scraping is disabled")
		return true
	}
	return false
}

// Run executes every stage in order. A stage starts only after the previous
// one succeeded.
func (s *Service) Run(ctx context.Context) error {
	if _, ok := StartTime(ctx); !ok {
		ctx = WithStartTime(ctx, time.Now())
	}

	for _, stage := range domain.Stages {
		if err := s.RunStage(ctx, stage); err != nil {
			return err
		}
	}
	return nil
}

// RunStage runs one stage in a fresh browser session. On failure the session is
// closed and the whole stage restarts under the retry policy; completed work is
// skipped through the on-disk checkpoints.
func (s *Service) RunStage(ctx context.Context, stage domain.Stage) error {
	handler := s.stages()[stage]
	if handler.run == nil {
		return fmt.Errorf("no handler for %s stage", stage)
	}
	if handler.skip != nil && handler.skip() {
		return nil
	}

	attempt := 0
	operation := func() error {
		attempt++
		if attempt > 1 {
			log.Infof("🔁 Retrying %s scraping sequence (attempt %d)...", stage, attempt)
		} else {
			log.Infof("🚀 Starting %s scraping sequence...", stage)
		}

		err := s.runAttempt(ctx, handler.run)
		if err == nil {
			return nil
		}

		logStageError(ctx, stage, err)
		if isPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		log.Warnf("⏳ Next %s attempt in %s", stage, wait.Round(time.Second))
	}

	if err := backoff.RetryNotify(operation, s.retry.backOff(ctx), notify); err != nil {
		return fmt.Errorf("%s stage failed after %d attempts: %w", stage, attempt, err)
	}

	log.Infof("✅ Completed %s scraping sequence", stage)
	return nil
}

func (s *Service) runAttempt(ctx context.Context, run func(context.Context, client.PortalClient) error) error {
	portal, err := s.launcher.Launch(ctx)
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		log.Info("Closing the browser...")
		if err := portal.Close(); err != nil {
			log.Warnf("⚠️ Failed to close the browser: %v", err)
		}
	}()

	return run(ctx, portal)
}

// isPermanent reports errors a restart cannot fix: a changed site structure,
// corrupted durable files or a cancelled run.
func isPermanent(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.Is(err, catalog.ErrInvalidCategoryPath) ||
		errors.Is(err, context.Canceled) ||
		errors.As(err, &syntaxErr) ||
		errors.As(err, &typeErr)
}

func logStageError(ctx context.Context, stage domain.Stage, err error) {
	entry := log.WithField("stage", stage.String())
	if start, ok := StartTime(ctx); ok {
		entry = entry.WithField("elapsed", time.Since(start).Round(time.Second).String())
	}
	entry.Errorf("❌ Error while running the %s scraping sequence: %v", stage, err)
}
