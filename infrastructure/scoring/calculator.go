package scoring

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/litcast/internal/domain"
	"github.com/ahrav/litcast/internal/ports"
)

var validate = validator.New()

// OmittedPolicy decides how fields a model did not address are scored.
type OmittedPolicy string

// Omitted-field policies.
const (
	// OmitSkip treats an unaddressed field as inapplicable for that case.
	OmitSkip OmittedPolicy = "skip"
	// OmitPenalize treats an unaddressed field as applicable and wrong
	// whenever the ground truth is known.
	OmitPenalize OmittedPolicy = "penalize"
)

// Config controls scoring. The zero value is not valid; start from
// DefaultConfig.
type Config struct {
	Tolerance      float64        `yaml:"tolerance" validate:"gte=0,lte=1"`
	OmittedFields  OmittedPolicy  `yaml:"omitted_fields" validate:"required,oneof=skip penalize"`
	ResolutionMode ResolutionMode `yaml:"resolution_mode" validate:"required,oneof=exact collapsed"`
	// IncludeCases keeps per-case scores in the report.
	IncludeCases bool `yaml:"include_cases"`
}

// DefaultConfig returns a 10% tolerance, the skip policy, and exact
// resolution matching.
func DefaultConfig() Config {
	return Config{
		Tolerance:      DefaultTolerance,
		OmittedFields:  OmitSkip,
		ResolutionMode: ResolutionExact,
	}
}

// Calculator scores predictions against ground truth.
//
// A field is applicable for a case only when its ground truth is known.
// Explicit "unknown" answers are always applicable, so they count against a
// model whenever the truth is known. Unaddressed fields follow the
// configured OmittedPolicy.
type Calculator struct {
	cfg     Config
	scorers []FieldScorer
	metrics ports.MetricsCollector
	tracer  trace.Tracer
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithMetrics publishes report accuracies to collector.
func WithMetrics(collector ports.MetricsCollector) Option {
	return func(c *Calculator) { c.metrics = collector }
}

// NewCalculator validates cfg and builds the field scorers.
func NewCalculator(cfg Config, opts ...Option) (*Calculator, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("scoring configuration validation failed: %w", err)
	}

	c := &Calculator{
		cfg: cfg,
		scorers: []FieldScorer{
			resolutionScorer{mode: cfg.ResolutionMode},
			monetaryScorer{field: domain.FieldDisgorgementAmount, tolerance: cfg.Tolerance},
			monetaryScorer{field: domain.FieldPenaltyAmount, tolerance: cfg.Tolerance},
			monetaryScorer{field: domain.FieldPrejudgmentInterest, tolerance: cfg.Tolerance},
			flagScorer{field: domain.FieldHasInjunction},
			flagScorer{field: domain.FieldHasOfficerDirectorBar},
			flagScorer{field: domain.FieldHasConductRestriction},
		},
		tracer: otel.Tracer("score-calculator"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ScoreCase scores every field of one prediction. Score is the mean over
// applicable fields and zero when none apply.
func (c *Calculator) ScoreCase(caseID string, pred domain.Prediction, truth domain.GroundTruth) domain.CaseScore {
	cs := domain.CaseScore{
		CaseID: caseID,
		Fields: make(map[domain.Field]domain.FieldOutcome, len(c.scorers)),
	}
	for _, s := range c.scorers {
		outcome := c.scoreField(s, pred, truth)
		cs.Fields[s.Field()] = outcome
		switch outcome {
		case domain.FieldCorrect:
			cs.Correct++
			cs.Applicable++
		case domain.FieldIncorrect:
			cs.Applicable++
		}
	}
	if cs.Applicable > 0 {
		cs.Score = float64(cs.Correct) / float64(cs.Applicable)
	}
	return cs
}

func (c *Calculator) scoreField(s FieldScorer, pred domain.Prediction, truth domain.GroundTruth) domain.FieldOutcome {
	f := s.Field()
	if !truth.Known(f) {
		return domain.FieldNotApplicable
	}
	if !pred.Given(f) {
		if c.cfg.OmittedFields == OmitPenalize {
			return domain.FieldIncorrect
		}
		return domain.FieldNotApplicable
	}
	if s.Score(pred, truth) {
		return domain.FieldCorrect
	}
	return domain.FieldIncorrect
}

// Report scores a model's result set against evaluation records.
//
// Failed predictions are excluded from every denominator and counted in
// FailedCount. Predictions for ids missing from records are counted in
// UnmatchedCount. Cases with no applicable field are counted in
// ExcludedCount and do not contribute to OverallScore.
func (c *Calculator) Report(
	ctx context.Context,
	results *domain.ResultSet,
	records map[string]domain.EvaluationRecord,
) domain.ScoreReport {
	_, span := c.tracer.Start(ctx, "Calculator.Report",
		trace.WithAttributes(
			attribute.String("model", results.Model),
			attribute.Int("results.count", results.Len()),
			attribute.Int("records.count", len(records)),
		),
	)
	defer span.End()

	report := domain.ScoreReport{
		Model:            results.Model,
		PerFieldAccuracy: make(map[domain.Field]float64),
		FieldCounts:      make(map[domain.Field]domain.FieldTally),
	}

	var scoreSum float64
	for _, id := range results.IDs() {
		rec := results.Records[id]
		if !rec.Success {
			report.FailedCount++
			continue
		}
		eval, ok := records[id]
		if !ok {
			report.UnmatchedCount++
			continue
		}

		cs := c.ScoreCase(id, rec.Prediction, eval.GroundTruth)
		if cs.Applicable == 0 {
			report.ExcludedCount++
			continue
		}
		for f, outcome := range cs.Fields {
			if outcome == domain.FieldNotApplicable {
				continue
			}
			tally := report.FieldCounts[f]
			tally.Applicable++
			if outcome == domain.FieldCorrect {
				tally.Correct++
			}
			report.FieldCounts[f] = tally
		}
		scoreSum += cs.Score
		report.CaseCount++
		if c.cfg.IncludeCases {
			report.Cases = append(report.Cases, cs)
		}
	}

	if report.CaseCount > 0 {
		report.OverallScore = scoreSum / float64(report.CaseCount)
	}

	var fieldSum, monetarySum, categorySum float64
	var fieldN, monetaryN, categoryN int
	for _, f := range domain.AllFields() {
		acc, ok := report.FieldCounts[f].Accuracy()
		if !ok {
			continue
		}
		report.PerFieldAccuracy[f] = acc
		fieldSum += acc
		fieldN++
		if f.IsMonetary() {
			monetarySum += acc
			monetaryN++
		} else {
			categorySum += acc
			categoryN++
		}
	}
	if fieldN > 0 {
		report.FieldAverage = fieldSum / float64(fieldN)
	}
	if monetaryN > 0 {
		report.MonetaryAccuracy = monetarySum / float64(monetaryN)
		categorySum += report.MonetaryAccuracy
		categoryN++
	}
	if categoryN > 0 {
		report.CategoryAverage = categorySum / float64(categoryN)
	}

	span.SetAttributes(
		attribute.Float64("score.overall", report.OverallScore),
		attribute.Int("score.case_count", report.CaseCount),
		attribute.Int("score.failed_count", report.FailedCount),
	)
	c.publish(report)
	return report
}

func (c *Calculator) publish(report domain.ScoreReport) {
	if c.metrics == nil {
		return
	}
	for f, acc := range report.PerFieldAccuracy {
		c.metrics.RecordGauge("field_accuracy", acc, map[string]string{
			"model": report.Model,
			"field": string(f),
		})
	}
	c.metrics.RecordGauge("overall_score", report.OverallScore, map[string]string{"model": report.Model})
	c.metrics.RecordGauge("scored_cases", float64(report.CaseCount), map[string]string{"model": report.Model})
}
