package groundtruth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/litcast/internal/domain"
)

const rulesYAML = `
resolution:
  - outcome: settled_action
    any_of: [["settled action"]]
  - outcome: dismissed
    any_of: [["dismiss"]]
default_resolution: filed_charges
monetary:
  window: 50
  labels:
    disgorgement_amount: ["disgorgement of"]
    penalty_amount: ["penalty of"]
    prejudgment_interest: ["interest of"]
flags:
  has_injunction:
    any_of: [["injunction"]]
  has_officer_director_bar:
    any_of: [["officer", "director", "bar"]]
  has_conduct_restriction:
    any_of: [["trading restriction"], ["industry bar"]]
`

func TestParseRuleSet(t *testing.T) {
	rs, err := ParseRuleSet([]byte(rulesYAML))
	require.NoError(t, err)

	assert.Len(t, rs.Resolution, 2)
	assert.Equal(t, domain.SettledAction, rs.Resolution[0].Outcome)
	assert.Equal(t, []Clause{{"settled action"}}, rs.Resolution[0].AnyOf)
	assert.Equal(t, 50, rs.Monetary.Window)
	assert.Equal(t, []string{"penalty of"}, rs.Monetary.Labels.For(domain.FieldPenaltyAmount))
	assert.Equal(t, []Clause{{"officer", "director", "bar"}}, rs.Flags.For(domain.FieldHasOfficerDirectorBar).AnyOf)
}

func TestParseRuleSet_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "unknown outcome",
			yaml: `
resolution:
  - outcome: settlement
    any_of: [["settled"]]
default_resolution: filed_charges
monetary: {window: 10, labels: {disgorgement_amount: [a], penalty_amount: [b], prejudgment_interest: [c]}}
flags:
  has_injunction: {any_of: [[x]]}
  has_officer_director_bar: {any_of: [[y]]}
  has_conduct_restriction: {any_of: [[z]]}
`,
		},
		{
			name: "empty clause",
			yaml: `
resolution:
  - outcome: dismissed
    any_of: [[]]
default_resolution: filed_charges
monetary: {window: 10, labels: {disgorgement_amount: [a], penalty_amount: [b], prejudgment_interest: [c]}}
flags:
  has_injunction: {any_of: [[x]]}
  has_officer_director_bar: {any_of: [[y]]}
  has_conduct_restriction: {any_of: [[z]]}
`,
		},
		{
			name: "unknown key",
			yaml: rulesYAML + "extra: true\n",
		},
		{
			name: "zero window",
			yaml: `
resolution:
  - outcome: dismissed
    any_of: [[dismiss]]
default_resolution: filed_charges
monetary: {window: 0, labels: {disgorgement_amount: [a], penalty_amount: [b], prejudgment_interest: [c]}}
flags:
  has_injunction: {any_of: [[x]]}
  has_officer_director_bar: {any_of: [[y]]}
  has_conduct_restriction: {any_of: [[z]]}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRuleSet([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadRuleSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(rulesYAML), 0o600))

	rs, err := LoadRuleSet(path)
	require.NoError(t, err)

	e, err := NewExtractor(rs)
	require.NoError(t, err)
	assert.Equal(t, domain.Dismissed, e.Resolution("Motion to DISMISS granted"))

	_, err = LoadRuleSet(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultRulesAreValid(t *testing.T) {
	require.NoError(t, DefaultRules().Validate())
}

func TestPredicate_Matches(t *testing.T) {
	p := Phrases("industry bar").Or(AllOf("restrict", "trading"))

	assert.True(t, p.Matches("an industry bar was imposed"))
	assert.True(t, p.Matches("trading is restricted"))
	assert.False(t, p.Matches("restricted access"))
	assert.False(t, Predicate{AnyOf: []Clause{{}}}.Matches("anything"), "an empty clause never matches")
}
