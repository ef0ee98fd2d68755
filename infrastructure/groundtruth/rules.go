// Package groundtruth derives structured case outcomes from litigation
// release text using fixed lexical rules.
//
// Rules are data. A RuleSet holds the ordered resolution decision list, the
// monetary label tables, and the phrase predicates for the remedial flags.
// DefaultRules reproduces the reference rule tables; LoadRuleSet reads an
// alternative table from YAML so the phrase sets can grow without code
// changes.
package groundtruth

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/litcast/internal/domain"
)

// DefaultWindow is the number of characters after the end of a monetary
// label within which a dollar amount must start.
const DefaultWindow = 200

// Clause is a conjunction of terms. It matches when every term occurs
// somewhere in the text; the terms need not be adjacent.
type Clause []string

// Predicate is a disjunction of clauses.
type Predicate struct {
	AnyOf []Clause `yaml:"any_of" validate:"required,min=1,dive,min=1,dive,required"`
}

// Phrases builds a predicate that matches any one of the given phrases.
func Phrases(phrases ...string) Predicate {
	p := Predicate{AnyOf: make([]Clause, 0, len(phrases))}
	for _, ph := range phrases {
		p.AnyOf = append(p.AnyOf, Clause{ph})
	}
	return p
}

// AllOf builds a predicate with a single conjunctive clause.
func AllOf(terms ...string) Predicate { return Predicate{AnyOf: []Clause{terms}} }

// Or returns a predicate matching either p or other.
func (p Predicate) Or(other Predicate) Predicate {
	return Predicate{AnyOf: append(slices.Clone(p.AnyOf), other.AnyOf...)}
}

// Matches reports whether folded text satisfies the predicate. The text and
// the terms must both be case folded.
func (p Predicate) Matches(folded string) bool {
	for _, clause := range p.AnyOf {
		if clauseMatches(clause, folded) {
			return true
		}
	}
	return false
}

func clauseMatches(c Clause, folded string) bool {
	for _, term := range c {
		if !strings.Contains(folded, term) {
			return false
		}
	}
	return len(c) > 0
}

// ResolutionRule maps a predicate to a resolution type.
type ResolutionRule struct {
	Outcome   domain.ResolutionType `yaml:"outcome" validate:"required,resolution"`
	Predicate `yaml:",inline"`
}

// MonetaryLabels lists, per monetary field, the labels to scan for in
// priority order.
type MonetaryLabels struct {
	Disgorgement []string `yaml:"disgorgement_amount" validate:"required,min=1,dive,required"`
	Penalty      []string `yaml:"penalty_amount" validate:"required,min=1,dive,required"`
	Interest     []string `yaml:"prejudgment_interest" validate:"required,min=1,dive,required"`
}

// For returns the labels for a monetary field.
func (m MonetaryLabels) For(f domain.Field) []string {
	switch f {
	case domain.FieldDisgorgementAmount:
		return m.Disgorgement
	case domain.FieldPenaltyAmount:
		return m.Penalty
	case domain.FieldPrejudgmentInterest:
		return m.Interest
	}
	return nil
}

// MonetaryRules configures dollar-amount extraction.
type MonetaryRules struct {
	Window int            `yaml:"window" validate:"required,min=1,max=10000"`
	Labels MonetaryLabels `yaml:"labels" validate:"required"`
}

// FlagRules holds the phrase predicates for the remedial-measure flags.
type FlagRules struct {
	Injunction         Predicate `yaml:"has_injunction" validate:"required"`
	OfficerDirectorBar Predicate `yaml:"has_officer_director_bar" validate:"required"`
	ConductRestriction Predicate `yaml:"has_conduct_restriction" validate:"required"`
}

// For returns the predicate for a flag field.
func (f FlagRules) For(field domain.Field) Predicate {
	switch field {
	case domain.FieldHasInjunction:
		return f.Injunction
	case domain.FieldHasOfficerDirectorBar:
		return f.OfficerDirectorBar
	case domain.FieldHasConductRestriction:
		return f.ConductRestriction
	}
	return Predicate{}
}

// RuleSet is the complete extraction rule table.
type RuleSet struct {
	// Resolution is an ordered decision list; the first matching rule wins.
	Resolution        []ResolutionRule      `yaml:"resolution" validate:"required,min=1,dive"`
	DefaultResolution domain.ResolutionType `yaml:"default_resolution" validate:"required,resolution"`
	Monetary          MonetaryRules         `yaml:"monetary" validate:"required"`
	Flags             FlagRules             `yaml:"flags" validate:"required"`
}

// DefaultRules returns the reference rule tables.
func DefaultRules() RuleSet {
	return RuleSet{
		Resolution: []ResolutionRule{
			{Outcome: domain.SettledAction, Predicate: Phrases("settled action", "filed settled action")},
			{Outcome: domain.ConsentJudgment, Predicate: AllOf("consent", "judgment")},
			{Outcome: domain.FinalJudgment, Predicate: Phrases("final judgment")},
			{Outcome: domain.JuryVerdict, Predicate: AllOf("jury", "verdict")},
			{Outcome: domain.Dismissed, Predicate: Phrases("dismiss", "dismissed with prejudice")},
		},
		DefaultResolution: domain.FiledCharges,
		Monetary: MonetaryRules{
			Window: DefaultWindow,
			Labels: MonetaryLabels{
				Disgorgement: []string{
					"disgorgement of", "disgorgement totaling", "disgorge", "disgorgement",
				},
				Penalty: []string{
					"civil penalty of", "civil penalties of", "civil penalty totaling",
					"penalty of", "penalties of", "civil monetary penalty", "civil penalty",
				},
				Interest: []string{
					"prejudgment interest of", "prejudgment interest totaling",
					"pre-judgment interest of", "prejudgment interest",
				},
			},
		},
		Flags: FlagRules{
			Injunction:         Phrases("injunction", "injunctive relief"),
			OfficerDirectorBar: AllOf("officer", "director", "bar"),
			ConductRestriction: Phrases(
				"conduct-based injunction",
				"trading restriction",
				"penny stock bar",
				"industry bar",
				"barred from the securities industry",
				"barred from associating",
				"prohibited from participating",
				"trading in any brokerage account",
			).Or(Predicate{AnyOf: []Clause{
				{"prohibit", "trading"},
				{"restrict", "trading"},
			}}),
		},
	}
}

var rulesValidate = newRulesValidator()

func newRulesValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("resolution", func(fl validator.FieldLevel) bool {
		return domain.ResolutionType(fl.Field().String()).Valid()
	})
	return v
}

// Validate checks the rule set's structure.
func (rs RuleSet) Validate() error {
	if err := rulesValidate.Struct(rs); err != nil {
		verr := domain.NewValidationError("RuleSet")
		verr.AddError(err.Error())
		return verr
	}
	return nil
}

// folded returns a copy of rs with every term case folded, so matching can be
// done against folded text with plain substring search.
func (rs RuleSet) folded() RuleSet {
	out := rs
	out.Resolution = make([]ResolutionRule, len(rs.Resolution))
	for i, r := range rs.Resolution {
		out.Resolution[i] = ResolutionRule{Outcome: r.Outcome, Predicate: foldPredicate(r.Predicate)}
	}
	out.Monetary.Labels = MonetaryLabels{
		Disgorgement: foldAll(rs.Monetary.Labels.Disgorgement),
		Penalty:      foldAll(rs.Monetary.Labels.Penalty),
		Interest:     foldAll(rs.Monetary.Labels.Interest),
	}
	out.Flags = FlagRules{
		Injunction:         foldPredicate(rs.Flags.Injunction),
		OfficerDirectorBar: foldPredicate(rs.Flags.OfficerDirectorBar),
		ConductRestriction: foldPredicate(rs.Flags.ConductRestriction),
	}
	return out
}

func foldPredicate(p Predicate) Predicate {
	out := Predicate{AnyOf: make([]Clause, len(p.AnyOf))}
	for i, c := range p.AnyOf {
		out.AnyOf[i] = foldAll(c)
	}
	return out
}

func foldAll(terms []string) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = fold(t)
	}
	return out
}

func fold(s string) string { return cases.Fold().String(s) }

// ParseRuleSet decodes and validates a YAML rule table. Unknown keys are
// rejected so typos in phrase tables do not pass silently.
func ParseRuleSet(data []byte) (RuleSet, error) {
	var rs RuleSet
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rs); err != nil {
		return RuleSet{}, fmt.Errorf("decode rule set: %w", err)
	}
	if err := rs.Validate(); err != nil {
		return RuleSet{}, err
	}
	return rs, nil
}

// LoadRuleSet reads a YAML rule table from path.
func LoadRuleSet(path string) (RuleSet, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return RuleSet{}, fmt.Errorf("read rule set: %w", err)
	}
	return ParseRuleSet(data)
}
