package domain

import "strings"

// ResolutionType is the procedural outcome of a case. The set is closed.
type ResolutionType string

// Resolution types in extraction precedence order. FiledCharges is the
// default for cases with no recognizable disposition.
const (
	SettledAction   ResolutionType = "settled_action"
	ConsentJudgment ResolutionType = "consent_judgment"
	FinalJudgment   ResolutionType = "final_judgment"
	JuryVerdict     ResolutionType = "jury_verdict"
	Dismissed       ResolutionType = "dismissed"
	FiledCharges    ResolutionType = "filed_charges"
)

// ResolutionTypes returns every resolution type in precedence order.
func ResolutionTypes() []ResolutionType {
	return []ResolutionType{SettledAction, ConsentJudgment, FinalJudgment, JuryVerdict, Dismissed, FiledCharges}
}

// Outcome is the coarse grouping of resolution types.
type Outcome string

// Collapsed outcome classes.
const (
	OutcomeSettled   Outcome = "settled"
	OutcomeLitigated Outcome = "litigated"
	OutcomeOngoing   Outcome = "ongoing"
)

// Valid reports whether r is one of the six resolution types.
func (r ResolutionType) Valid() bool {
	switch r {
	case SettledAction, ConsentJudgment, FinalJudgment, JuryVerdict, Dismissed, FiledCharges:
		return true
	}
	return false
}

// Outcome collapses r into settled, litigated or ongoing.
func (r ResolutionType) Outcome() Outcome {
	switch r {
	case SettledAction, ConsentJudgment:
		return OutcomeSettled
	case FinalJudgment, JuryVerdict, Dismissed:
		return OutcomeLitigated
	default:
		return OutcomeOngoing
	}
}

// Resolved reports whether the case has reached a disposition and is
// therefore scorable.
func (r ResolutionType) Resolved() bool { return r.Outcome() != OutcomeOngoing }

// ParseResolutionType normalizes s (case, surrounding whitespace, spaces and
// hyphens) and returns the matching resolution type.
func ParseResolutionType(s string) (ResolutionType, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	r := ResolutionType(norm)
	return r, r.Valid()
}

// Field names one scored outcome field. Values match the JSON keys used in
// ground truth and model responses.
type Field string

// Scored fields.
const (
	FieldResolutionType        Field = "resolution_type"
	FieldDisgorgementAmount    Field = "disgorgement_amount"
	FieldPenaltyAmount         Field = "penalty_amount"
	FieldPrejudgmentInterest   Field = "prejudgment_interest"
	FieldHasInjunction         Field = "has_injunction"
	FieldHasOfficerDirectorBar Field = "has_officer_director_bar"
	FieldHasConductRestriction Field = "has_conduct_restriction"
)

// AllFields returns the scored fields in report order.
func AllFields() []Field {
	return []Field{
		FieldResolutionType,
		FieldDisgorgementAmount,
		FieldPenaltyAmount,
		FieldPrejudgmentInterest,
		FieldHasInjunction,
		FieldHasOfficerDirectorBar,
		FieldHasConductRestriction,
	}
}

// MonetaryFields returns the three dollar-amount fields.
func MonetaryFields() []Field {
	return []Field{FieldDisgorgementAmount, FieldPenaltyAmount, FieldPrejudgmentInterest}
}

// FlagFields returns the three remedial-measure fields.
func FlagFields() []Field {
	return []Field{FieldHasInjunction, FieldHasOfficerDirectorBar, FieldHasConductRestriction}
}

// IsMonetary reports whether f is a dollar-amount field.
func (f Field) IsMonetary() bool {
	return f == FieldDisgorgementAmount || f == FieldPenaltyAmount || f == FieldPrejudgmentInterest
}

// IsFlag reports whether f is a remedial-measure field.
func (f Field) IsFlag() bool {
	return f == FieldHasInjunction || f == FieldHasOfficerDirectorBar || f == FieldHasConductRestriction
}

// GroundTruth is the structured outcome extracted from a release's full text.
//
// A nil monetary field means the amount was not stated; it is never coerced
// to zero. ResolutionType is always set.
type GroundTruth struct {
	ResolutionType        ResolutionType `json:"resolution_type"`
	DisgorgementAmount    *float64       `json:"disgorgement_amount"`
	PenaltyAmount         *float64       `json:"penalty_amount"`
	PrejudgmentInterest   *float64       `json:"prejudgment_interest"`
	HasInjunction         *bool          `json:"has_injunction"`
	HasOfficerDirectorBar *bool          `json:"has_officer_director_bar"`
	HasConductRestriction *bool          `json:"has_conduct_restriction"`
}

// Amount returns the monetary value of f, or nil for non-monetary fields.
func (g GroundTruth) Amount(f Field) *float64 {
	switch f {
	case FieldDisgorgementAmount:
		return g.DisgorgementAmount
	case FieldPenaltyAmount:
		return g.PenaltyAmount
	case FieldPrejudgmentInterest:
		return g.PrejudgmentInterest
	}
	return nil
}

// Flag returns the boolean value of f, or nil for non-flag fields.
func (g GroundTruth) Flag(f Field) *bool {
	switch f {
	case FieldHasInjunction:
		return g.HasInjunction
	case FieldHasOfficerDirectorBar:
		return g.HasOfficerDirectorBar
	case FieldHasConductRestriction:
		return g.HasConductRestriction
	}
	return nil
}

// Known reports whether the ground truth carries a value for f.
func (g GroundTruth) Known(f Field) bool {
	switch {
	case f == FieldResolutionType:
		return g.ResolutionType != ""
	case f.IsMonetary():
		return g.Amount(f) != nil
	case f.IsFlag():
		return g.Flag(f) != nil
	}
	return false
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
