package domain

// FieldOutcome is the result of scoring one field of one case.
type FieldOutcome string

// Field outcomes.
const (
	FieldCorrect       FieldOutcome = "correct"
	FieldIncorrect     FieldOutcome = "incorrect"
	FieldNotApplicable FieldOutcome = "not_applicable"
)

// FieldTally counts correct answers over applicable cases for a field.
type FieldTally struct {
	Correct    int `json:"correct"`
	Applicable int `json:"applicable"`
}

// Accuracy returns Correct/Applicable. The second value is false when no
// case was applicable.
func (t FieldTally) Accuracy() (float64, bool) {
	if t.Applicable == 0 {
		return 0, false
	}
	return float64(t.Correct) / float64(t.Applicable), true
}

// CaseScore is the per-case view of a scored prediction.
type CaseScore struct {
	CaseID     string                 `json:"case_id"`
	Score      float64                `json:"score"`
	Correct    int                    `json:"correct"`
	Applicable int                    `json:"applicable"`
	Fields     map[Field]FieldOutcome `json:"fields"`
}

// ScoreReport aggregates a model's scored predictions. It is derived from a
// result set and a dataset and never mutated afterwards.
type ScoreReport struct {
	Model string `json:"model"`
	// PerFieldAccuracy only holds fields with at least one applicable case.
	PerFieldAccuracy map[Field]float64    `json:"per_field_accuracy"`
	FieldCounts      map[Field]FieldTally `json:"field_counts"`
	// OverallScore is the mean of per-case scores.
	OverallScore float64 `json:"overall_score"`
	// FieldAverage is the unweighted mean of PerFieldAccuracy.
	FieldAverage float64 `json:"field_average"`
	// CategoryAverage is the mean over five categories: resolution type,
	// MonetaryAccuracy and the three flags. Categories with no applicable
	// case are left out.
	CategoryAverage float64 `json:"category_average"`
	// MonetaryAccuracy is the mean accuracy of the monetary fields that had
	// applicable cases.
	MonetaryAccuracy float64 `json:"monetary_accuracy"`
	CaseCount        int     `json:"case_count"`
	// FailedCount counts unsuccessful predictions; they are excluded.
	FailedCount int `json:"failed_count"`
	// UnmatchedCount counts predictions for ids absent from the dataset.
	UnmatchedCount int `json:"unmatched_count"`
	// ExcludedCount counts successful predictions with no applicable field.
	ExcludedCount int         `json:"excluded_count"`
	Cases         []CaseScore `json:"cases,omitempty"`
}
