// Command evaluate runs one or more models over the evaluation dataset and
// checkpoints every prediction to the result store.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/chainguard-dev/clog"
	"golang.org/x/time/rate"

	"github.com/ahrav/litcast/infrastructure/llm"
	"github.com/ahrav/litcast/infrastructure/metrics"
	"github.com/ahrav/litcast/infrastructure/predictor"
	"github.com/ahrav/litcast/infrastructure/store"
	"github.com/ahrav/litcast/internal/application"
	"github.com/ahrav/litcast/internal/cli"
	"github.com/ahrav/litcast/internal/domain"
	"github.com/ahrav/litcast/internal/ports"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Run config YAML (defaults to $LITCAST_CONFIG)")
		datasetPath = flag.String("dataset", "", "Dataset directory or evaluation JSON file (defaults to dataset.dir)")
		models      = flag.String("model", "", "Comma separated provider/model refs (defaults to the config's models)")
		offset      = flag.Int("offset", 0, "Skip the first N cases in release order")
		limit       = flag.Int("limit", 0, "Attempt at most N cases; 0 means no limit")
		appendMode  = flag.Bool("append", false, "Keep existing results and skip cases that already succeeded")
		backend     = flag.String("store", "", "Result store backend: json or sqlite (defaults to results.backend)")
		concurrency = flag.Int("concurrency", 0, "Concurrent requests per model (defaults to runner.concurrency)")
	)
	flag.Parse()

	ctx, cancel, session, err := cli.Start(*configPath)
	if err != nil {
		clog.FatalContextf(context.Background(), "startup failed: %v", err)
	}
	defer cancel()

	cfg := session.Config
	refs := cli.SplitList(*models)
	if len(refs) == 0 {
		refs = cfg.Models
	}
	if len(refs) == 0 {
		clog.FatalContextf(ctx, "no models given: pass -model or list models in the run config")
	}
	if *backend != "" {
		cfg.Results.Backend = *backend
	}
	if *concurrency > 0 {
		cfg.Runner.Concurrency = *concurrency
	}
	path := *datasetPath
	if path == "" {
		path = cfg.Dataset.Dir
	}

	records, err := store.LoadEvaluationRecords(path)
	if err != nil {
		clog.FatalContextf(ctx, "failed to load dataset: %v", err)
	}
	clog.InfoContextf(ctx, "loaded %d evaluation records from %s", len(records), path)

	results, closeStore, err := openResultStore(cfg.Results)
	if err != nil {
		clog.FatalContextf(ctx, "failed to open result store: %v", err)
	}
	defer closeStore()

	pm := metrics.NewPrometheusMetrics()
	opts := application.RunOptions{
		Offset:      *offset,
		Limit:       *limit,
		Append:      *appendMode,
		Concurrency: cfg.Runner.Concurrency,
	}

	var summaries []application.RunSummary
	for _, m := range refs {
		summary, err := evaluate(ctx, session.Env, cfg, m, pm, results, records, opts)
		if err != nil {
			writeMetrics(ctx, pm, session.Env.MetricsFile)
			if errors.Is(err, context.Canceled) {
				clog.FatalContextf(ctx, "interrupted during %s after %d cases; rerun with -append to resume", m, summary.Attempted)
			}
			clog.FatalContextf(ctx, "evaluate %s failed: %v", m, err)
		}
		summaries = append(summaries, summary)
	}

	if err := writeSummaries(os.Stdout, summaries); err != nil {
		clog.FatalContextf(ctx, "failed to write summary: %v", err)
	}
	writeMetrics(ctx, pm, session.Env.MetricsFile)
}

func evaluate(
	ctx context.Context,
	env application.Env,
	cfg application.RunConfig,
	model string,
	pm *metrics.PrometheusMetrics,
	results ports.ResultStore,
	records map[string]domain.EvaluationRecord,
	opts application.RunOptions,
) (application.RunSummary, error) {
	ref, err := llm.ParseModelRef(model)
	if err != nil {
		return application.RunSummary{}, err
	}
	key, err := env.RequireAPIKey(ref.Provider)
	if err != nil {
		return application.RunSummary{}, err
	}
	client, err := llm.NewClientFromRef(ref, llm.RefConfig{
		APIKey:     key,
		BaseURL:    env.BaseURL,
		Timeout:    cfg.Predictor.Timeout,
		Middleware: middleware(cfg, ref.Provider, pm),
	})
	if err != nil {
		return application.RunSummary{}, fmt.Errorf("failed to create client for %s: %w", ref, err)
	}
	p, err := predictor.New(ref.String(), client, cfg.Predictor)
	if err != nil {
		return application.RunSummary{}, err
	}
	runner, err := application.NewBatchRunner(p, results, application.WithRunnerMetrics(pm))
	if err != nil {
		return application.RunSummary{}, err
	}

	return runner.Run(ctx, records, opts)
}

// middleware assembles the resilience chain, outermost first. Metrics and
// tracing wrap the retries; the timeout bounds a single attempt.
func middleware(cfg application.RunConfig, provider string, pm *metrics.PrometheusMetrics) []llm.Middleware {
	res := cfg.Resilience
	chain := []llm.Middleware{
		llm.MetricsMiddleware(pm, provider),
		llm.TracingMiddleware(provider),
	}
	if cfg.Budget.MaxTokens > 0 || cfg.Budget.MaxCalls > 0 {
		chain = append(chain, llm.BudgetMiddleware(&llm.Budget{
			MaxTokens: cfg.Budget.MaxTokens,
			MaxCalls:  cfg.Budget.MaxCalls,
		}))
	}
	if res.BreakerFailures > 0 {
		chain = append(chain, llm.CircuitBreakerMiddlewareWithMetrics(res.BreakerFailures, res.BreakerCooldown, pm.CircuitBreaker(provider)))
	}
	if res.MaxRetries > 0 {
		chain = append(chain, llm.RetryMiddleware(res.MaxRetries, res.BaseDelay, res.MaxDelay))
	}
	if res.RequestsPerSecond > 0 {
		chain = append(chain, llm.RateLimitMiddleware(rate.Limit(res.RequestsPerSecond), max(res.Burst, 1)))
	}
	if res.AttemptTimeout > 0 {
		chain = append(chain, llm.TimeoutMiddleware(res.AttemptTimeout))
	}
	return chain
}

func openResultStore(cfg application.ResultsConfig) (ports.ResultStore, func(), error) {
	switch cfg.Backend {
	case application.BackendJSON:
		s, err := store.NewJSONResultStore(cfg.Dir)
		return s, func() {}, err
	case application.BackendSQLite:
		s, err := store.OpenSQLiteResultStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown result store backend %q", cfg.Backend)
}

func writeSummaries(w io.Writer, summaries []application.RunSummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summaries)
}

func writeMetrics(ctx context.Context, pm *metrics.PrometheusMetrics, path string) {
	if path == "" {
		return
	}
	if err := pm.WriteTextfile(path); err != nil {
		clog.WarnContextf(ctx, "failed to write metrics: %v", err)
	}
}
