// Package report renders score reports as markdown tables or JSON.
package report

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/ahrav/litcast/internal/domain"
)

var fieldLabels = map[domain.Field]string{
	domain.FieldResolutionType:        "Resolution",
	domain.FieldDisgorgementAmount:    "Disgorgement",
	domain.FieldPenaltyAmount:         "Penalty",
	domain.FieldPrejudgmentInterest:   "Interest",
	domain.FieldHasInjunction:         "Injunction",
	domain.FieldHasOfficerDirectorBar: "Officer bar",
	domain.FieldHasConductRestriction: "Conduct restr.",
}

func newTable(w io.Writer, headers []string) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{
				Left:   tw.On,
				Top:    tw.Off,
				Right:  tw.On,
				Bottom: tw.Off,
			},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}

// Leaderboard writes one row per model, best overall score first. Ties are
// broken by model name.
func Leaderboard(w io.Writer, reports []domain.ScoreReport) error {
	sorted := slices.Clone(reports)
	slices.SortStableFunc(sorted, func(a, b domain.ScoreReport) int {
		if c := cmp.Compare(b.OverallScore, a.OverallScore); c != 0 {
			return c
		}
		return cmp.Compare(a.Model, b.Model)
	})

	headers := []string{"Rank", "Model", "Overall", "Field avg", "Category avg", "Monetary", "Cases", "Failed"}
	table := newTable(w, headers)
	for i, r := range sorted {
		if err := table.Append([]string{
			fmt.Sprintf("%d", i+1),
			r.Model,
			percent(r.OverallScore),
			percent(r.FieldAverage),
			percent(r.CategoryAverage),
			percent(r.MonetaryAccuracy),
			fmt.Sprintf("%d", r.CaseCount),
			fmt.Sprintf("%d", r.FailedCount),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

// Fields writes the per-field breakdown of one report. Fields with no
// applicable case show "-".
func Fields(w io.Writer, r domain.ScoreReport) error {
	table := newTable(w, []string{"Field", "Correct", "Applicable", "Accuracy"})
	for _, f := range domain.AllFields() {
		tally := r.FieldCounts[f]
		acc := "-"
		if v, ok := r.PerFieldAccuracy[f]; ok {
			acc = percent(v)
		}
		if err := table.Append([]string{
			fieldLabels[f],
			fmt.Sprintf("%d", tally.Correct),
			fmt.Sprintf("%d", tally.Applicable),
			acc,
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

// Summary renders the field breakdown of r followed by its headline
// numbers.
func Summary(r domain.ScoreReport) (string, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "## %s\n\n", r.Model)
	if err := Fields(&buf, r); err != nil {
		return "", err
	}
	fmt.Fprintf(&buf, "\nOverall score: %s over %d cases", percent(r.OverallScore), r.CaseCount)
	if r.FailedCount > 0 {
		fmt.Fprintf(&buf, " (%d failed predictions excluded)", r.FailedCount)
	}
	if r.ExcludedCount > 0 {
		fmt.Fprintf(&buf, " (%d with no applicable field)", r.ExcludedCount)
	}
	if r.UnmatchedCount > 0 {
		fmt.Fprintf(&buf, " (%d not in dataset)", r.UnmatchedCount)
	}
	buf.WriteString("\n")
	return buf.String(), nil
}

// WriteJSON writes reports as indented JSON. A single report is written as
// an object rather than a one-element array.
func WriteJSON(w io.Writer, reports ...domain.ScoreReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if len(reports) == 1 {
		return enc.Encode(reports[0])
	}
	return enc.Encode(reports)
}

func percent(v float64) string { return fmt.Sprintf("%.1f%%", v*100) }
