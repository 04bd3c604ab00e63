// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"rentalwatch/internal/api"
	"rentalwatch/internal/classifier"
	"rentalwatch/internal/clock/system"
	"rentalwatch/internal/config"
	"rentalwatch/internal/crawler"
	"rentalwatch/internal/errbuf"
	"rentalwatch/internal/logging"
	"rentalwatch/internal/mailer"
	"rentalwatch/internal/metrics"
	"rentalwatch/internal/oracle"
	"rentalwatch/internal/pipeline"
	"rentalwatch/internal/scheduler"
	"rentalwatch/internal/source/headless"
	"rentalwatch/internal/source/static"
	"rentalwatch/internal/store"
	"rentalwatch/internal/watch"
)

// defaultPromptPath is the shared classification prompt used when a site
// does not configure its own.
const defaultPromptPath = "classification-prompt.txt"

// App holds all the shared, long-lived services for the application.
// It is initialized once at startup and handed to the CLI commands.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	errs      *errbuf.Buffer
	sources   []watch.PageSource
	scheduler *scheduler.Scheduler
	server    *api.Server
}

// GetLogger returns the shared zap logger instance.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetConfig returns the loaded configuration.
func (a *App) GetConfig() config.Config {
	return a.cfg
}

// GetScheduler returns the background-loop driver.
func (a *App) GetScheduler() *scheduler.Scheduler {
	return a.scheduler
}

// GetServer returns the HTTP health surface.
func (a *App) GetServer() *api.Server {
	return a.server
}

// Close releases browser and logger resources.
func (a *App) Close() {
	for _, src := range a.sources {
		if err := src.Close(); err != nil {
			a.logger.Warn("failed to close page source", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// NewApp creates and initializes a new App from configuration. Sites with
// broken configuration are skipped (they stay dormant); a missing oracle
// credential or mail transport likewise degrades the relevant component
// instead of failing startup.
func NewApp(_ context.Context, cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	logging.L = logger
	logger.Info("initializing application services")

	metrics.Init()

	errs := errbuf.New()
	clk := system.New()
	pauser := watch.TimerPauser{}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	digest := store.NewDigest(filepath.Join(cfg.Data.Dir, "notification-queue.html"), logger)

	var orc watch.Oracle
	if cfg.Oracle.APIKey != "" {
		client, err := oracle.New(oracle.Config{APIKey: cfg.Oracle.APIKey, Model: cfg.Oracle.Model})
		if err != nil {
			return nil, fmt.Errorf("build oracle: %w", err)
		}
		orc = client
	} else {
		logger.Warn("oracle credential missing, classifiers will stay dormant")
	}

	var transport watch.Transport
	smtp, err := mailer.NewSMTPTransport(mailer.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
		To:       cfg.Mail.To,
	})
	if err != nil {
		logger.Warn("mail transport not configured, sends will fail until fixed", zap.Error(err))
		transport = disabledTransport{}
	} else {
		transport = smtp
	}

	app := &App{cfg: cfg, logger: logger, errs: errs}

	var (
		crawlers    []*crawler.Crawler
		classifiers []*classifier.Classifier
	)
	crawlCfg := crawler.Config{
		PageDelayMin:   cfg.Crawl.PageDelayMin,
		PageDelayMax:   cfg.Crawl.PageDelayMax,
		DetailDelayMin: cfg.Crawl.DetailDelayMin,
		DetailDelayMax: cfg.Crawl.DetailDelayMax,
	}

	for _, name := range sortedSiteNames(cfg.Sites) {
		siteCfg := cfg.Sites[name]
		if err := siteCfg.Validate(); err != nil {
			logger.Error("site misconfigured, skipping", zap.String("site", name), zap.Error(err))
			continue
		}

		src, err := newPageSource(name, siteCfg, cfg.Data.Dir, clk, logger)
		if err != nil {
			logger.Error("failed to build page source, skipping site", zap.String("site", name), zap.Error(err))
			continue
		}
		app.sources = append(app.sources, src)

		siteDir := filepath.Join(cfg.Data.Dir, name)
		queue := store.NewQueue(filepath.Join(siteDir, name+"-new-listings.ndjson"), logger)
		viewed := store.NewViewed(filepath.Join(siteDir, name+"-viewed.ndjson"), logger)

		crawlers = append(crawlers, crawler.New(name, src, queue, viewed, errs, pauser, rng, crawlCfg, logger))

		promptPath := siteCfg.PromptPath
		if promptPath == "" {
			promptPath = defaultPromptPath
		}
		classifiers = append(classifiers, classifier.New(
			name, siteCfg.BaseURL, promptPath, queue, viewed, digest, orc, errs, logger,
		))
	}
	if len(crawlers) == 0 {
		logger.Warn("no usable sites configured")
	}

	m := mailer.New(transport, digest, errs, mailer.Config{
		ErrorDigestEnabled: cfg.Mail.ErrorDigestEnabled,
	}, logger)

	pipe := pipeline.New(crawlers, classifiers, m, errs, logger)
	app.scheduler = scheduler.New(pipe, clk, pauser, rng, scheduler.Config{
		StartHour:     cfg.Schedule.StartHour,
		EndHour:       cfg.Schedule.EndHour,
		CycleDelayMin: cfg.Schedule.CycleDelayMin,
		CycleDelayMax: cfg.Schedule.CycleDelayMax,
		WakeOffsetMin: cfg.Schedule.WakeOffsetMin,
		WakeOffsetMax: cfg.Schedule.WakeOffsetMax,
	}, logger)
	app.server = api.NewServer(logger)

	return app, nil
}

func newPageSource(name string, siteCfg config.SiteConfig, dataDir string, clk watch.Clock, logger *zap.Logger) (watch.PageSource, error) {
	siteLogger := logger.With(zap.String("site", name))
	switch siteCfg.Mode {
	case config.ModeHeadless:
		userDataDir := siteCfg.UserDataDir
		if userDataDir == "" {
			userDataDir = filepath.Join(dataDir, name, "browser-profile")
		}
		return headless.New(headless.Config{
			BaseURL:     siteCfg.BaseURL,
			SearchURL:   siteCfg.SearchURL,
			PageParam:   siteCfg.PageParam,
			UserAgent:   siteCfg.UserAgent,
			UserDataDir: userDataDir,
			Selectors:   siteCfg.Selectors,
		}, clk, siteLogger)
	default:
		return static.New(static.Config{
			BaseURL:   siteCfg.BaseURL,
			SearchURL: siteCfg.SearchURL,
			PageParam: siteCfg.PageParam,
			UserAgent: siteCfg.UserAgent,
			Selectors: siteCfg.Selectors,
		}, clk, siteLogger)
	}
}

func sortedSiteNames(sites map[string]config.SiteConfig) []string {
	names := make([]string, 0, len(sites))
	for name := range sites {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// disabledTransport stands in when the mail configuration is incomplete so
// send attempts surface as buffered errors rather than nil panics.
type disabledTransport struct{}

func (disabledTransport) Send(context.Context, string, string) (string, error) {
	return "", fmt.Errorf("mail transport is not configured")
}
