package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/c360studio/spicecouncil/bundle"
	"github.com/c360studio/spicecouncil/config"
	"github.com/c360studio/spicecouncil/ensemble"
	"github.com/c360studio/spicecouncil/fanout"
	"github.com/c360studio/spicecouncil/llm"
	"github.com/c360studio/spicecouncil/metrics"
	"github.com/c360studio/spicecouncil/report"
	"github.com/c360studio/spicecouncil/storage"
)

// App wires together the pipeline components for the ask path.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	client      *llm.Client
	coordinator *fanout.Coordinator
	writer      *report.Writer

	natsConn   *storage.Conn
	store      *storage.Store
	metricsSrv *http.Server
}

// NewApp creates an application instance from configuration.
func NewApp(cfg *config.Config, logger *slog.Logger) *App {
	client := llm.NewClient(llm.WithLogger(logger))
	return &App{
		cfg:         cfg,
		logger:      logger,
		client:      client,
		coordinator: fanout.New(client, logger),
		writer:      report.NewWriter(logger),
	}
}

// Start brings up the audit store and the optional metrics listener.
func (a *App) Start(ctx context.Context) error {
	conn, err := storage.Connect(a.cfg.NATS.URL, a.logger)
	if err != nil {
		return fmt.Errorf("start audit store: %w", err)
	}
	a.natsConn = conn

	store, err := storage.NewStore(ctx, conn.JS)
	if err != nil {
		conn.Close()
		return fmt.Errorf("open run bucket: %w", err)
	}
	a.store = store

	if a.cfg.Metrics.Addr != "" {
		a.metricsSrv = metrics.Serve(a.cfg.Metrics.Addr, a.logger)
	}

	return nil
}

// Shutdown stops the metrics listener and the audit store.
func (a *App) Shutdown() {
	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.metricsSrv.Shutdown(ctx)
	}
	if a.natsConn != nil {
		a.natsConn.Close()
	}
}

// fanoutTargets builds the fanout targets from the enabled provider entries.
func (a *App) fanoutTargets() []fanout.Target {
	enabled := a.cfg.EnabledProviders()
	targets := make([]fanout.Target, 0, len(enabled))
	for _, p := range enabled {
		targets = append(targets, fanout.Target{
			Endpoint: llm.Endpoint{
				Provider: p.Name,
				URL:      p.URL,
				Model:    p.Model,
			},
		})
	}
	return targets
}

// ensembleEndpoint is the endpoint that synthesizes the final answer.
func (a *App) ensembleEndpoint() llm.Endpoint {
	return llm.Endpoint{
		Provider: a.cfg.Ensemble.Provider,
		URL:      a.cfg.Ensemble.URL,
		Model:    a.cfg.Ensemble.Model,
	}
}

// bundleNetlist runs one bundling pass with the configured budgets.
func (a *App) bundleNetlist(text, basePath, outputRoot string) (*bundle.Result, error) {
	bundler := bundle.New(bundle.WithLogger(a.logger))
	result, err := bundler.Bundle(bundle.Request{
		NetlistText:   text,
		BaseFilePath:  basePath,
		OutputRoot:    outputRoot,
		MaxFiles:      a.cfg.Bundler.MaxFiles,
		MaxBytes:      a.cfg.Bundler.MaxBytes,
		AllowPatterns: a.cfg.Bundler.AllowPatterns,
	})
	if err != nil {
		return nil, fmt.Errorf("bundle netlist: %w", err)
	}
	metrics.ObserveBundle(len(result.Copied), len(result.Missing))
	return result, nil
}

// ensembleAnswers sends the assembled prompt to the ensembling endpoint.
// A failed or empty ensembling response is fatal to the run: there is no
// final answer to recover outputs from.
func (a *App) ensembleAnswers(ctx context.Context, in ensemble.PromptInput, image *llm.Image) (string, error) {
	prompt := ensemble.BuildPrompt(in)
	temp := a.cfg.Ensemble.Temperature

	if a.cfg.Ensemble.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Ensemble.Timeout.Std())
		defer cancel()
	}

	resp, err := a.client.Query(ctx, a.ensembleEndpoint(), llm.Request{
		Prompt:      prompt,
		Image:       image,
		Temperature: &temp,
		MaxTokens:   a.cfg.Ensemble.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("ensembling call failed: %w", err)
	}
	if resp.Content == "" {
		return "", fmt.Errorf("ensembling call returned an empty response")
	}
	return resp.Content, nil
}
