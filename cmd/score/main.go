// Command score compares stored predictions with the evaluation dataset and
// prints per-model accuracy.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/chainguard-dev/clog"

	"github.com/ahrav/litcast/infrastructure/llm"
	"github.com/ahrav/litcast/infrastructure/metrics"
	"github.com/ahrav/litcast/infrastructure/report"
	"github.com/ahrav/litcast/infrastructure/scoring"
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
		resultsPath = flag.String("results", "", "Results directory, or a SQLite database file (defaults to the configured store)")
		models      = flag.String("model", "", "Comma separated models to score (defaults to the config's models)")
		asJSON      = flag.Bool("json", false, "Write score reports as JSON instead of tables")
		cases       = flag.Bool("cases", false, "Include per-case scores in JSON output")
	)
	flag.Parse()

	ctx, cancel, session, err := cli.Start(*configPath)
	if err != nil {
		clog.FatalContextf(context.Background(), "startup failed: %v", err)
	}
	defer cancel()

	cfg := session.Config
	if *resultsPath != "" {
		cfg.Results = resultsFromPath(*resultsPath)
	}
	if *cases {
		cfg.Scoring.IncludeCases = true
	}
	path := *datasetPath
	if path == "" {
		path = cfg.Dataset.Dir
	}

	records, err := store.LoadEvaluationRecords(path)
	if err != nil {
		clog.FatalContextf(ctx, "failed to load dataset: %v", err)
	}

	pm := metrics.NewPrometheusMetrics()
	reports, err := score(ctx, cfg, cli.SplitList(*models), records, pm)
	if err != nil {
		clog.FatalContextf(ctx, "score failed: %v", err)
	}

	if *asJSON {
		err = report.WriteJSON(os.Stdout, reports...)
	} else {
		err = printTables(reports)
	}
	if err != nil {
		clog.FatalContextf(ctx, "failed to write report: %v", err)
	}

	if session.Env.MetricsFile != "" {
		if err := pm.WriteTextfile(session.Env.MetricsFile); err != nil {
			clog.WarnContextf(ctx, "failed to write metrics: %v", err)
		}
	}
}

// resultsFromPath picks the SQLite backend for an existing regular file and
// the JSON backend otherwise.
func resultsFromPath(path string) application.ResultsConfig {
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
		return application.ResultsConfig{Backend: application.BackendSQLite, SQLitePath: path}
	}
	return application.ResultsConfig{Backend: application.BackendJSON, Dir: path}
}

func score(
	ctx context.Context,
	cfg application.RunConfig,
	models []string,
	records map[string]domain.EvaluationRecord,
	pm *metrics.PrometheusMetrics,
) ([]domain.ScoreReport, error) {
	var results ports.ResultStore
	switch cfg.Results.Backend {
	case application.BackendSQLite:
		s, err := store.OpenSQLiteResultStore(cfg.Results.SQLitePath)
		if err != nil {
			return nil, err
		}
		defer s.Close()
		results = s
		if len(models) == 0 && len(cfg.Models) == 0 {
			if models, err = s.Models(ctx); err != nil {
				return nil, err
			}
		}
	default:
		s, err := store.NewJSONResultStore(cfg.Results.Dir)
		if err != nil {
			return nil, err
		}
		results = s
	}
	if len(models) == 0 {
		models = cfg.Models
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("no models to score: pass -model or list models in the run config")
	}

	calc, err := scoring.NewCalculator(cfg.Scoring, scoring.WithMetrics(pm))
	if err != nil {
		return nil, err
	}

	reports := make([]domain.ScoreReport, 0, len(models))
	for _, m := range models {
		if ref, err := llm.ParseModelRef(m); err == nil {
			m = ref.String()
		}
		rs, err := results.Load(ctx, m)
		if err != nil {
			return nil, fmt.Errorf("failed to load results for %s: %w", m, err)
		}
		reports = append(reports, calc.Report(ctx, rs, records))
	}
	return reports, nil
}

func printTables(reports []domain.ScoreReport) error {
	if len(reports) == 1 {
		summary, err := report.Summary(reports[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(os.Stdout, summary)
		return err
	}
	return report.Leaderboard(os.Stdout, reports)
}
