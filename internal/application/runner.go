package application

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/litcast/internal/domain"
	"github.com/ahrav/litcast/internal/ports"
)

var (
	ErrPredictorNil = errors.New("predictor cannot be nil")
	ErrStoreNil     = errors.New("result store cannot be nil")
)

// RunOptions selects which cases a run attempts.
type RunOptions struct {
	// Offset skips the first Offset ids in release order.
	Offset int
	// Limit caps the cases attempted by this run. Zero means no cap.
	Limit int
	// Append resumes from the stored result set: cases that already
	// succeeded are skipped and new records are unioned in. Without Append
	// the stored set is discarded first.
	Append      bool
	Concurrency int
	// RunID tags every record written by this run. A random id is used when
	// empty.
	RunID string
}

// RunState is the mutable state of one Run call.
type RunState struct {
	RunID string
	// Completed holds ids that already have a successful record.
	Completed map[string]struct{}
	Results   *domain.ResultSet
}

// RunSummary reports what a run did.
type RunSummary struct {
	RunID     string        `json:"run_id"`
	Model     string        `json:"model"`
	Attempted int           `json:"attempted"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"duration"`
}

// RunnerOption configures a BatchRunner.
type RunnerOption func(*BatchRunner)

// WithRunnerMetrics reports per-case counters and latencies to collector.
func WithRunnerMetrics(collector ports.MetricsCollector) RunnerOption {
	return func(r *BatchRunner) { r.metrics = collector }
}

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *BatchRunner) { r.now = now }
}

// BatchRunner asks one predictor about many cases and checkpoints every
// result through a ResultStore as soon as it is produced.
type BatchRunner struct {
	predictor ports.Predictor
	store     ports.ResultStore
	metrics   ports.MetricsCollector
	tracer    trace.Tracer
	now       func() time.Time
}

// NewBatchRunner returns a runner for predictor writing to store.
func NewBatchRunner(predictor ports.Predictor, store ports.ResultStore, opts ...RunnerOption) (*BatchRunner, error) {
	if predictor == nil {
		return nil, ErrPredictorNil
	}
	if store == nil {
		return nil, ErrStoreNil
	}
	r := &BatchRunner{
		predictor: predictor,
		store:     store,
		tracer:    otel.Tracer("github.com/ahrav/litcast/internal/application"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Prepare builds the state for a run. In append mode a stored result set
// that cannot be read is returned as an error and never replaced.
func (r *BatchRunner) Prepare(ctx context.Context, opts RunOptions) (*RunState, error) {
	model := r.predictor.Name()
	state := &RunState{
		RunID:     opts.RunID,
		Completed: make(map[string]struct{}),
		Results:   domain.NewResultSet(model),
	}
	if state.RunID == "" {
		state.RunID = uuid.NewString()
	}

	if !opts.Append {
		if err := r.store.Reset(ctx, model); err != nil {
			return nil, fmt.Errorf("failed to reset results for %s: %w", model, err)
		}
		return state, nil
	}

	prior, err := r.store.Load(ctx, model)
	switch {
	case errors.Is(err, domain.ErrResultsNotFound):
		return state, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load prior results for %s: %w", model, err)
	}
	state.Results = prior
	state.Completed = prior.SuccessfulIDs()
	return state, nil
}

// Select returns the ids this run will attempt and how many ids in the
// window were skipped because they already succeeded.
func (s *RunState) Select(records map[string]domain.EvaluationRecord, opts RunOptions) (ids []string, skipped int) {
	all := slices.SortedFunc(maps.Keys(records), domain.CompareReleaseIDs)
	if opts.Offset > 0 {
		all = all[min(opts.Offset, len(all)):]
	}
	for _, id := range all {
		if opts.Limit > 0 && len(ids) == opts.Limit {
			break
		}
		if _, done := s.Completed[id]; done {
			skipped++
			continue
		}
		ids = append(ids, id)
	}
	return ids, skipped
}

// Run predicts every selected case. Provider and parse failures become
// failed records and the run continues. Cancellation stops scheduling and
// returns the partial summary with the context error; a checkpoint failure
// aborts the run.
func (r *BatchRunner) Run(ctx context.Context, records map[string]domain.EvaluationRecord, opts RunOptions) (RunSummary, error) {
	start := r.now()
	model := r.predictor.Name()
	summary := RunSummary{Model: model}

	if opts.Offset < 0 || opts.Limit < 0 {
		return summary, fmt.Errorf("%w: offset and limit must not be negative", domain.ErrInvalidConfiguration)
	}
	concurrency := max(opts.Concurrency, 1)

	state, err := r.Prepare(ctx, opts)
	if err != nil {
		return summary, err
	}
	summary.RunID = state.RunID

	ids, skipped := state.Select(records, opts)
	summary.Skipped = skipped

	ctx, span := r.tracer.Start(ctx, "BatchRunner.Run", trace.WithAttributes(
		attribute.String("run.id", state.RunID),
		attribute.String("run.model", model),
		attribute.Int("run.cases", len(ids)),
		attribute.Bool("run.append", opts.Append),
	))
	defer span.End()

	log := clog.FromContext(ctx).With("model", model, "run_id", state.RunID)
	log.With("cases", len(ids), "skipped", skipped, "concurrency", concurrency).Info("starting run")

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, id := range ids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			rec := r.PredictCase(gctx, state.RunID, records[id])
			if gctx.Err() != nil {
				// Interrupted mid-request; the case stays pending for a resumed run.
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			if err := r.store.Merge(gctx, model, rec); err != nil {
				return fmt.Errorf("failed to checkpoint %s: %w", rec.CaseID, err)
			}
			state.Results.Merge(rec)
			if rec.Success {
				state.Completed[rec.CaseID] = struct{}{}
				summary.Succeeded++
			} else {
				summary.Failed++
				log.With("case_id", rec.CaseID).Warnf("prediction failed: %s", rec.Error)
			}
			summary.Attempted++
			if summary.Attempted%5 == 0 || summary.Attempted == len(ids) {
				log.With("done", summary.Attempted, "total", len(ids), "failed", summary.Failed).Info("run progress")
			}
			return nil
		})
	}
	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	summary.Duration = r.now().Sub(start)
	span.SetAttributes(
		attribute.Int("run.succeeded", summary.Succeeded),
		attribute.Int("run.failed", summary.Failed),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return summary, err
	}

	log.With("succeeded", summary.Succeeded, "failed", summary.Failed, "duration", summary.Duration).Info("run complete")
	return summary, nil
}

// PredictCase renders, invokes and parses one case. It never returns an
// error: every failure is captured in the record.
func (r *BatchRunner) PredictCase(ctx context.Context, runID string, rec domain.EvaluationRecord) (out domain.PredictionRecord) {
	start := time.Now()
	out = domain.PredictionRecord{
		CaseID: rec.CaseID,
		Model:  r.predictor.Name(),
		RunID:  runID,
	}
	defer func() {
		out.LatencyMS = time.Since(start).Milliseconds()
		r.record(out, time.Since(start))
	}()

	prompt, err := r.predictor.RenderPrompt(rec)
	if err != nil {
		out.Error = fmt.Sprintf("render prompt: %v", err)
		out.CreatedAt = r.now().UTC()
		return out
	}

	raw, err := r.predictor.Invoke(ctx, prompt)
	if err != nil {
		out.Error = err.Error()
		out.CreatedAt = r.now().UTC()
		return out
	}
	out.RawResponse = raw

	pred, warnings, err := r.predictor.ParseResponse(raw)
	out.Warnings = warnings
	out.CreatedAt = r.now().UTC()
	if err != nil {
		out.Error = fmt.Sprintf("parse response: %v", err)
		return out
	}
	out.Prediction = pred
	out.Success = true
	return out
}

func (r *BatchRunner) record(rec domain.PredictionRecord, latency time.Duration) {
	if r.metrics == nil {
		return
	}
	status := "success"
	if !rec.Success {
		status = "failed"
	}
	r.metrics.RecordCounter("predictions_total", 1, map[string]string{"model": rec.Model, "status": status})
	r.metrics.RecordLatency("predict_case", latency, map[string]string{"model": rec.Model})
}
