package domain

import (
	"maps"
	"slices"
	"strings"
	"time"
)

// Prediction is a model's forecast for one case. Pointer fields are nil when
// the model did not answer them. Fields the model explicitly answered as
// unknown are listed in Unknown instead.
type Prediction struct {
	ResolutionType        ResolutionType `json:"resolution_type,omitempty"`
	DisgorgementAmount    *float64       `json:"disgorgement_amount,omitempty"`
	PenaltyAmount         *float64       `json:"penalty_amount,omitempty"`
	PrejudgmentInterest   *float64       `json:"prejudgment_interest,omitempty"`
	HasInjunction         *bool          `json:"has_injunction,omitempty"`
	HasOfficerDirectorBar *bool          `json:"has_officer_director_bar,omitempty"`
	HasConductRestriction *bool          `json:"has_conduct_restriction,omitempty"`
	Unknown               []Field        `json:"unknown_fields,omitempty"`
	Reasoning             string         `json:"reasoning,omitempty"`
}

// Amount returns the predicted monetary value of f.
func (p Prediction) Amount(f Field) *float64 {
	switch f {
	case FieldDisgorgementAmount:
		return p.DisgorgementAmount
	case FieldPenaltyAmount:
		return p.PenaltyAmount
	case FieldPrejudgmentInterest:
		return p.PrejudgmentInterest
	}
	return nil
}

// Flag returns the predicted boolean value of f.
func (p Prediction) Flag(f Field) *bool {
	switch f {
	case FieldHasInjunction:
		return p.HasInjunction
	case FieldHasOfficerDirectorBar:
		return p.HasOfficerDirectorBar
	case FieldHasConductRestriction:
		return p.HasConductRestriction
	}
	return nil
}

// SetAmount stores a monetary value for f. Non-monetary fields are ignored.
func (p *Prediction) SetAmount(f Field, v float64) {
	switch f {
	case FieldDisgorgementAmount:
		p.DisgorgementAmount = &v
	case FieldPenaltyAmount:
		p.PenaltyAmount = &v
	case FieldPrejudgmentInterest:
		p.PrejudgmentInterest = &v
	}
}

// SetFlag stores a boolean value for f. Non-flag fields are ignored.
func (p *Prediction) SetFlag(f Field, v bool) {
	switch f {
	case FieldHasInjunction:
		p.HasInjunction = &v
	case FieldHasOfficerDirectorBar:
		p.HasOfficerDirectorBar = &v
	case FieldHasConductRestriction:
		p.HasConductRestriction = &v
	}
}

// MarkUnknown records that the model explicitly declined to give f.
func (p *Prediction) MarkUnknown(f Field) {
	if !slices.Contains(p.Unknown, f) {
		p.Unknown = append(p.Unknown, f)
	}
}

// IsUnknown reports whether the model explicitly answered f as unknown.
func (p Prediction) IsUnknown(f Field) bool { return slices.Contains(p.Unknown, f) }

// HasValue reports whether the prediction carries a concrete value for f.
func (p Prediction) HasValue(f Field) bool {
	switch {
	case f == FieldResolutionType:
		return p.ResolutionType != ""
	case f.IsMonetary():
		return p.Amount(f) != nil
	case f.IsFlag():
		return p.Flag(f) != nil
	}
	return false
}

// Given reports whether the model addressed f at all, either with a value
// or an explicit unknown.
func (p Prediction) Given(f Field) bool { return p.HasValue(f) || p.IsUnknown(f) }

// GivenCount returns how many scored fields the model addressed.
func (p Prediction) GivenCount() int {
	n := 0
	for _, f := range AllFields() {
		if p.Given(f) {
			n++
		}
	}
	return n
}

// PredictionRecord is the persisted outcome of asking one model about one
// case.
type PredictionRecord struct {
	CaseID      string     `json:"case_id"`
	Model       string     `json:"model"`
	RunID       string     `json:"run_id,omitempty"`
	RawResponse string     `json:"raw_response,omitempty"`
	Prediction  Prediction `json:"prediction"`
	Success     bool       `json:"success"`
	Error       string     `json:"error,omitempty"`
	Warnings    []string   `json:"warnings,omitempty"`
	LatencyMS   int64      `json:"latency_ms,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Supersedes reports whether r may replace existing in a result set. A
// successful record is never replaced by a failed one; otherwise the later
// write wins.
func (r PredictionRecord) Supersedes(existing PredictionRecord) bool {
	return r.Success || !existing.Success
}

// ResultSet is the accumulated predictions of one model, keyed by case id.
type ResultSet struct {
	Model   string                      `json:"model"`
	Records map[string]PredictionRecord `json:"records"`
}

// NewResultSet returns an empty result set for model.
func NewResultSet(model string) *ResultSet {
	return &ResultSet{Model: model, Records: make(map[string]PredictionRecord)}
}

// Merge unions incoming records into the set and returns how many were
// applied. Records that would downgrade a success to a failure are dropped.
func (rs *ResultSet) Merge(incoming ...PredictionRecord) int {
	if rs.Records == nil {
		rs.Records = make(map[string]PredictionRecord)
	}
	applied := 0
	for _, rec := range incoming {
		if existing, ok := rs.Records[rec.CaseID]; ok && !rec.Supersedes(existing) {
			continue
		}
		rs.Records[rec.CaseID] = rec
		applied++
	}
	return applied
}

// SuccessfulIDs returns the ids whose latest record succeeded. A resumed run
// skips exactly these.
func (rs *ResultSet) SuccessfulIDs() map[string]struct{} {
	ids := make(map[string]struct{})
	for id, rec := range rs.Records {
		if rec.Success {
			ids[id] = struct{}{}
		}
	}
	return ids
}

// IDs returns every case id in the set in release order.
func (rs *ResultSet) IDs() []string {
	ids := slices.Collect(maps.Keys(rs.Records))
	slices.SortFunc(ids, CompareReleaseIDs)
	return ids
}

// Len returns the number of cases in the set.
func (rs *ResultSet) Len() int { return len(rs.Records) }

// ModelSlug turns a model name such as "openai/gpt-4.1" into a
// filesystem-safe name ("openai_gpt-4.1"). Every rune outside [A-Za-z0-9.-]
// becomes an underscore.
func ModelSlug(model string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		}
		return '_'
	}, model)
}
