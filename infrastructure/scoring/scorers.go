// Package scoring compares predictions to ground truth and aggregates the
// results into per-model reports.
package scoring

import (
	"math"

	"github.com/ahrav/litcast/internal/domain"
)

// DefaultTolerance is the relative error within which a monetary prediction
// counts as correct.
const DefaultTolerance = 0.10

// FieldScorer judges one field of a prediction against ground truth. It is
// only called when the ground truth is known and the prediction addressed
// the field.
type FieldScorer interface {
	Field() domain.Field
	Score(pred domain.Prediction, truth domain.GroundTruth) bool
}

// ResolutionMode selects how resolution types are compared.
type ResolutionMode string

// Resolution comparison modes.
const (
	// ResolutionExact requires the predicted label to equal the actual one.
	ResolutionExact ResolutionMode = "exact"
	// ResolutionCollapsed compares settled/litigated/ongoing classes.
	ResolutionCollapsed ResolutionMode = "collapsed"
)

type resolutionScorer struct{ mode ResolutionMode }

func (resolutionScorer) Field() domain.Field { return domain.FieldResolutionType }

func (s resolutionScorer) Score(pred domain.Prediction, truth domain.GroundTruth) bool {
	if !pred.HasValue(domain.FieldResolutionType) {
		return false
	}
	if s.mode == ResolutionCollapsed {
		return pred.ResolutionType.Outcome() == truth.ResolutionType.Outcome()
	}
	return pred.ResolutionType == truth.ResolutionType
}

type monetaryScorer struct {
	field     domain.Field
	tolerance float64
}

func (s monetaryScorer) Field() domain.Field { return s.field }

func (s monetaryScorer) Score(pred domain.Prediction, truth domain.GroundTruth) bool {
	p, a := pred.Amount(s.field), truth.Amount(s.field)
	if p == nil || a == nil {
		return false
	}
	return WithinTolerance(*p, *a, s.tolerance)
}

type flagScorer struct{ field domain.Field }

func (s flagScorer) Field() domain.Field { return s.field }

func (s flagScorer) Score(pred domain.Prediction, truth domain.GroundTruth) bool {
	p, a := pred.Flag(s.field), truth.Flag(s.field)
	return p != nil && a != nil && *p == *a
}

// WithinTolerance reports whether predicted is within tolerance of actual,
// measured relative to actual. An actual of zero only matches an exact zero.
func WithinTolerance(predicted, actual, tolerance float64) bool {
	if actual == 0 {
		return predicted == 0
	}
	return math.Abs(predicted-actual)/math.Abs(actual) <= tolerance
}
