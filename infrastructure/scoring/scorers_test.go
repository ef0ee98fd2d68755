package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ahrav/litcast/internal/domain"
)

func TestWithinTolerance(t *testing.T) {
	tests := []struct {
		name      string
		predicted float64
		actual    float64
		want      bool
	}{
		{name: "exact", predicted: 100, actual: 100, want: true},
		{name: "within ten percent above", predicted: 380000, actual: 373885, want: true},
		{name: "boundary above", predicted: 110, actual: 100, want: true},
		{name: "boundary below", predicted: 90, actual: 100, want: true},
		{name: "just outside", predicted: 110.01, actual: 100, want: false},
		{name: "far off", predicted: 1, actual: 100, want: false},
		{name: "zero matches zero", predicted: 0, actual: 0, want: true},
		{name: "nonzero never matches zero", predicted: 50, actual: 0, want: false},
		{name: "tiny nonzero never matches zero", predicted: 1e-12, actual: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WithinTolerance(tt.predicted, tt.actual, DefaultTolerance))
		})
	}
}

func TestMonetaryScorer(t *testing.T) {
	s := monetaryScorer{field: domain.FieldPenaltyAmount, tolerance: DefaultTolerance}
	truth := domain.GroundTruth{PenaltyAmount: domain.Float(0)}

	assert.True(t, s.Score(domain.Prediction{PenaltyAmount: domain.Float(0)}, truth))
	assert.False(t, s.Score(domain.Prediction{PenaltyAmount: domain.Float(50)}, truth))

	unknown := domain.Prediction{}
	unknown.MarkUnknown(domain.FieldPenaltyAmount)
	assert.False(t, s.Score(unknown, truth), "an explicit unknown is never a match")
}

func TestFlagScorer(t *testing.T) {
	s := flagScorer{field: domain.FieldHasInjunction}
	truth := domain.GroundTruth{HasInjunction: domain.Bool(false)}

	assert.True(t, s.Score(domain.Prediction{HasInjunction: domain.Bool(false)}, truth))
	assert.False(t, s.Score(domain.Prediction{HasInjunction: domain.Bool(true)}, truth))
	assert.False(t, s.Score(domain.Prediction{}, truth))
	assert.Equal(t, domain.FieldHasInjunction, s.Field())
}
