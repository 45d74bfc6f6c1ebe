package cmd

import (
	"fmt"
	"net/http"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/spf13/cobra"

	"github.com/storelens/storelens/internal/config"
	"github.com/storelens/storelens/internal/core/engine"
	"github.com/storelens/storelens/internal/core/storefront"
	"github.com/storelens/storelens/internal/enrich"
	"github.com/storelens/storelens/internal/observability"
	"github.com/storelens/storelens/internal/output"
)

// newRegistry builds the rate limit registry described by cfg.
func newRegistry(cfg *config.Config, logger *logging.Logger) *engine.Registry {
	registry := engine.NewRegistry()
	registry.Logger = logger
	registry.Configure(cfg.RateLimit.Engine())
	return registry
}

// newFetcher builds the shared fetcher for storefront and enrichment
// requests.
func newFetcher(cfg *config.Config, registry *engine.Registry, logger *logging.Logger) *engine.Fetcher {
	return &engine.Fetcher{
		Client:    &http.Client{},
		Limits:    registry,
		Policy:    cfg.Retry.Policy(),
		Timeout:   cfg.HTTP.Timeout,
		UserAgent: cfg.HTTP.UserAgent,
		Logger:    logger,
	}
}

// storeOptions is the client template shared by the CLI and the server pool.
func storeOptions(cfg *config.Config, fetcher *engine.Fetcher, logger *logging.Logger) storefront.Options {
	pause := cfg.Showcase.BatchPause
	if pause == 0 {
		pause = -1
	}
	return storefront.Options{
		Fetcher:            fetcher,
		InfoTTL:            cfg.Cache.InfoTTL,
		ValidationTTL:      cfg.Cache.ValidationTTL,
		ShowcaseBatchSize:  cfg.Showcase.BatchSize,
		ShowcaseBatchPause: pause,
		Logger:             logger,
	}
}

// session is one CLI invocation's view of a store.
type session struct {
	client   *storefront.Client
	fetcher  *engine.Fetcher
	registry *engine.Registry
}

func openSession(store string) (*session, error) {
	cfg := GetConfig()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	logger := observability.CLILogger

	registry := newRegistry(cfg, logger)
	fetcher := newFetcher(cfg, registry, logger)
	opts := storeOptions(cfg, fetcher, logger)
	opts.BaseURL = store

	client, err := storefront.New(opts)
	if err != nil {
		registry.Stop()
		return nil, err
	}
	return &session{client: client, fetcher: fetcher, registry: registry}, nil
}

func (s *session) close() {
	s.registry.Stop()
}

func (s *session) classifier() *enrich.Classifier {
	cfg := GetConfig().Enrich
	classifier := enrich.NewClassifier(cfg.BaseURL, cfg.APIKey, cfg.Model, s.fetcher)
	if cfg.Timeout > 0 {
		classifier.Timeout = cfg.Timeout
	}
	return classifier
}

// render writes data in the --output format to stdout or --out.
func render(cmd *cobra.Command, data any, view output.Tabular) error {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	sink, err := openSink(cmd, outputPath)
	if err != nil {
		return err
	}
	defer func() { _ = sink.close() }()

	if err := output.Write(sink.writer, format, data, view); err != nil {
		return err
	}
	if sink.path != "-" {
		observability.CLILogger.Info("Wrote output to " + sink.path)
	}
	return nil
}
