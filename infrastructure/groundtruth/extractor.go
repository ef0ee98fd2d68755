package groundtruth

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/litcast/internal/domain"
	"github.com/ahrav/litcast/internal/ports"
)

var _ ports.GroundTruthExtractor = (*Extractor)(nil)

// Extractor maps release text to a GroundTruth using a RuleSet.
//
// Extraction is total and deterministic: every input yields a GroundTruth
// with a valid resolution type and definite flags, and identical text always
// yields identical output. Missing evidence degrades to the default
// resolution, nil amounts, and false flags.
//
// Concurrency: Extractor is immutable after construction and safe for
// concurrent use.
type Extractor struct {
	rules  RuleSet
	tracer trace.Tracer
}

// NewExtractor validates rules and returns an Extractor using them.
func NewExtractor(rules RuleSet) (*Extractor, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{
		rules:  rules.folded(),
		tracer: otel.Tracer("groundtruth-extractor"),
	}, nil
}

// NewDefaultExtractor returns an Extractor using DefaultRules.
func NewDefaultExtractor() *Extractor {
	e, err := NewExtractor(DefaultRules())
	if err != nil {
		// DefaultRules is a constant table; failing validation is a programming error.
		panic(err)
	}
	return e
}

// Extract derives the full outcome record from text.
func (e *Extractor) Extract(ctx context.Context, text string) domain.GroundTruth {
	_, span := e.tracer.Start(ctx, "Extractor.Extract",
		trace.WithAttributes(attribute.Int("text.length", len(text))),
	)
	defer span.End()

	folded := fold(text)

	gt := domain.GroundTruth{
		ResolutionType:        e.resolution(folded),
		DisgorgementAmount:    e.amount(folded, e.rules.Monetary.Labels.Disgorgement),
		PenaltyAmount:         e.amount(folded, e.rules.Monetary.Labels.Penalty),
		PrejudgmentInterest:   e.amount(folded, e.rules.Monetary.Labels.Interest),
		HasInjunction:         domain.Bool(e.rules.Flags.Injunction.Matches(folded)),
		HasOfficerDirectorBar: domain.Bool(e.rules.Flags.OfficerDirectorBar.Matches(folded)),
		HasConductRestriction: domain.Bool(e.rules.Flags.ConductRestriction.Matches(folded)),
	}

	span.SetAttributes(
		attribute.String("ground_truth.resolution", string(gt.ResolutionType)),
		attribute.Bool("ground_truth.has_disgorgement", gt.DisgorgementAmount != nil),
		attribute.Bool("ground_truth.has_penalty", gt.PenaltyAmount != nil),
		attribute.Bool("ground_truth.has_interest", gt.PrejudgmentInterest != nil),
	)
	return gt
}

// Resolution classifies text with the ordered decision list alone.
func (e *Extractor) Resolution(text string) domain.ResolutionType {
	return e.resolution(fold(text))
}

func (e *Extractor) resolution(folded string) domain.ResolutionType {
	for _, rule := range e.rules.Resolution {
		if rule.Matches(folded) {
			return rule.Outcome
		}
	}
	return e.rules.DefaultResolution
}

// Amount extracts the monetary value of field from text, or nil when no
// label is followed by a dollar amount within the window.
func (e *Extractor) Amount(text string, field domain.Field) *float64 {
	return e.amount(fold(text), e.rules.Monetary.Labels.For(field))
}

// amount tries labels in priority order and, for each label, its
// occurrences in text order. The first dollar amount starting within the
// window after the end of an occurrence wins.
func (e *Extractor) amount(folded string, labels []string) *float64 {
	for _, label := range labels {
		offset := 0
		for {
			idx := strings.Index(folded[offset:], label)
			if idx < 0 {
				break
			}
			end := offset + idx + len(label)
			if v, ok := firstDollarAmount(folded[end:], e.rules.Monetary.Window); ok {
				return domain.Float(v)
			}
			offset = end
		}
	}
	return nil
}
