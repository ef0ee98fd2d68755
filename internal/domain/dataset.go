package domain

import (
	"maps"
	"slices"
	"time"
)

// CaseMetadata carries descriptive data about an evaluation record. None of
// it is shown to a model.
type CaseMetadata struct {
	ReleaseDate  string   `json:"release_date,omitempty"`
	Title        string   `json:"title"`
	ComplaintURL string   `json:"complaint_url"`
	CaseURL      string   `json:"case_url,omitempty"`
	Court        string   `json:"court,omitempty"`
	Respondents  []string `json:"respondents,omitempty"`
	Charges      []string `json:"charges,omitempty"`
}

// EvaluationRecord pairs a complaint's text with the ground truth extracted
// from the case's full release text. Records are immutable once built.
type EvaluationRecord struct {
	CaseID string `json:"case_id"`
	// InputText is sourced exclusively from the complaint document so that
	// no outcome language leaks into the prompt.
	InputText   string       `json:"input_text"`
	GroundTruth GroundTruth  `json:"ground_truth"`
	Metadata    CaseMetadata `json:"metadata"`
}

// SkipReason explains why a case produced no evaluation record.
type SkipReason string

// The closed set of skip reasons.
const (
	SkipNoComplaintURL SkipReason = "no_complaint_url"
	SkipFetchFailed    SkipReason = "fetch_failed"
	SkipParseFailed    SkipReason = "parse_failed"
)

// SkipRecord is emitted instead of an EvaluationRecord when a case cannot be
// used.
type SkipRecord struct {
	CaseID string     `json:"case_id"`
	Title  string     `json:"title,omitempty"`
	Reason SkipReason `json:"reason"`
	Detail string     `json:"detail,omitempty"`
	URL    string     `json:"url,omitempty"`
}

// DatasetMetadata summarizes one dataset build.
type DatasetMetadata struct {
	CreatedAt      time.Time `json:"created_at"`
	TotalProcessed int       `json:"total_processed"`
	ResolvedCount  int       `json:"resolved_count"`
	OngoingCount   int       `json:"ongoing_count"`
	SkippedCount   int       `json:"skipped_count"`
}

// Availability is a count with its share of the record total.
type Availability struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Statistics describes the ground-truth distribution of a dataset.
type Statistics struct {
	ResolutionDistribution map[ResolutionType]int `json:"resolution_distribution"`
	MonetaryAvailability   map[Field]Availability `json:"monetary_availability"`
	RemedialMeasures       map[Field]Availability `json:"remedial_measures"`
}

// ComputeStatistics tallies resolution types, stated monetary amounts and
// remedial flags across records.
func ComputeStatistics(records map[string]EvaluationRecord) Statistics {
	stats := Statistics{
		ResolutionDistribution: make(map[ResolutionType]int),
		MonetaryAvailability:   make(map[Field]Availability),
		RemedialMeasures:       make(map[Field]Availability),
	}

	total := len(records)
	monetary := make(map[Field]int)
	flags := make(map[Field]int)
	for _, rec := range records {
		gt := rec.GroundTruth
		stats.ResolutionDistribution[gt.ResolutionType]++
		for _, f := range MonetaryFields() {
			if gt.Amount(f) != nil {
				monetary[f]++
			}
		}
		for _, f := range FlagFields() {
			if v := gt.Flag(f); v != nil && *v {
				flags[f]++
			}
		}
	}

	share := func(n int) Availability {
		if total == 0 {
			return Availability{Count: n}
		}
		return Availability{Count: n, Percentage: float64(n) / float64(total) * 100}
	}
	for _, f := range MonetaryFields() {
		stats.MonetaryAvailability[f] = share(monetary[f])
	}
	for _, f := range FlagFields() {
		stats.RemedialMeasures[f] = share(flags[f])
	}
	return stats
}

// Dataset is the output of a dataset build: evaluation records keyed by case
// id plus the cases that were skipped and why.
type Dataset struct {
	Metadata   DatasetMetadata             `json:"metadata"`
	Statistics Statistics                  `json:"statistics"`
	Records    map[string]EvaluationRecord `json:"records"`
	Skipped    []SkipRecord                `json:"skipped,omitempty"`
}

// IDs returns the record ids in release order.
func (d *Dataset) IDs() []string {
	ids := slices.Collect(maps.Keys(d.Records))
	slices.SortFunc(ids, CompareReleaseIDs)
	return ids
}

// Resolved returns the records whose ground truth shows a disposition.
func (d *Dataset) Resolved() map[string]EvaluationRecord {
	return d.filter(func(r ResolutionType) bool { return r.Resolved() })
}

// Ongoing returns the records still at the filed-charges stage. They can be
// forecast but not scored.
func (d *Dataset) Ongoing() map[string]EvaluationRecord {
	return d.filter(func(r ResolutionType) bool { return !r.Resolved() })
}

func (d *Dataset) filter(keep func(ResolutionType) bool) map[string]EvaluationRecord {
	out := make(map[string]EvaluationRecord)
	for id, rec := range d.Records {
		if keep(rec.GroundTruth.ResolutionType) {
			out[id] = rec
		}
	}
	return out
}
