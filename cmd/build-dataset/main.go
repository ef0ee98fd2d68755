// Command build-dataset turns the litigation-release corpus into the
// evaluation, prediction and skip files consumed by evaluate and score.
package main

import (
	"context"
	"flag"
	"net/http"

	"github.com/chainguard-dev/clog"

	"github.com/ahrav/litcast/infrastructure/acquisition"
	"github.com/ahrav/litcast/infrastructure/corpus"
	"github.com/ahrav/litcast/infrastructure/groundtruth"
	"github.com/ahrav/litcast/infrastructure/metrics"
	"github.com/ahrav/litcast/infrastructure/store"
	"github.com/ahrav/litcast/internal/application"
	"github.com/ahrav/litcast/internal/cli"
	"github.com/ahrav/litcast/internal/domain"
)

func main() {
	var (
		configPath = flag.String("config", "", "Run config YAML (defaults to $LITCAST_CONFIG)")
		corpusPath = flag.String("corpus", "", "Corpus JSON file (overrides dataset.corpus)")
		outDir     = flag.String("out", "", "Output directory (overrides dataset.dir)")
		maxCases   = flag.Int("max", -1, "Process at most this many cases; 0 means all (overrides dataset.max_cases)")
	)
	flag.Parse()

	ctx, cancel, session, err := cli.Start(*configPath)
	if err != nil {
		clog.FatalContextf(context.Background(), "startup failed: %v", err)
	}
	defer cancel()

	cfg := session.Config.Dataset
	if *corpusPath != "" {
		cfg.Corpus = *corpusPath
	}
	if *outDir != "" {
		cfg.Dir = *outDir
	}
	if *maxCases >= 0 {
		cfg.MaxCases = *maxCases
	}

	pm := metrics.NewPrometheusMetrics()
	if err := run(ctx, cfg, pm); err != nil {
		clog.FatalContextf(ctx, "build-dataset failed: %v", err)
	}
	if session.Env.MetricsFile != "" {
		if err := pm.WriteTextfile(session.Env.MetricsFile); err != nil {
			clog.WarnContextf(ctx, "failed to write metrics: %v", err)
		}
	}
}

func run(ctx context.Context, cfg application.DatasetConfig, pm *metrics.PrometheusMetrics) error {
	cases, err := corpus.LoadJSONStore(ctx, cfg.Corpus)
	if err != nil {
		return err
	}

	truth := groundtruth.NewDefaultExtractor()
	if cfg.RulesFile != "" {
		rules, err := groundtruth.LoadRuleSet(cfg.RulesFile)
		if err != nil {
			return err
		}
		if truth, err = groundtruth.NewExtractor(rules); err != nil {
			return err
		}
	}

	fetchOpts := []acquisition.FetcherOption{
		acquisition.WithHTTPClient(&http.Client{Timeout: cfg.FetchTimeout}),
	}
	if cfg.MaxDocumentBytes > 0 {
		fetchOpts = append(fetchOpts, acquisition.WithMaxBytes(cfg.MaxDocumentBytes))
	}

	builder, err := application.NewDatasetBuilder(
		cases,
		acquisition.NewHTTPFetcher(fetchOpts...),
		acquisition.NewPDFExtractor(),
		truth,
		application.BuilderOptions{
			MinTextLength: cfg.MinTextLength,
			MaxCases:      cfg.MaxCases,
			Concurrency:   cfg.Concurrency,
			Metrics:       pm,
		},
	)
	if err != nil {
		return err
	}

	ds, err := builder.Build(ctx)
	if err != nil {
		return err
	}
	if err := store.SaveDataset(cfg.Dir, ds); err != nil {
		return err
	}

	clog.InfoContextf(ctx, "wrote %d resolved and %d ongoing cases to %s (%d skipped)",
		ds.Metadata.ResolvedCount, ds.Metadata.OngoingCount, cfg.Dir, ds.Metadata.SkippedCount)
	counts := make(map[domain.SkipReason]int)
	for _, s := range ds.Skipped {
		counts[s.Reason]++
	}
	for _, reason := range []domain.SkipReason{domain.SkipNoComplaintURL, domain.SkipFetchFailed, domain.SkipParseFailed} {
		if counts[reason] > 0 {
			clog.InfoContextf(ctx, "skipped %s: %d", reason, counts[reason])
		}
	}
	return nil
}
