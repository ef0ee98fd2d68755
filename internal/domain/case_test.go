package domain

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeReleaseID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "canonical", in: "LR-26445", want: "LR-26445"},
		{name: "lower case", in: "lr-26445", want: "LR-26445"},
		{name: "bare number", in: "26445", want: "LR-26445"},
		{name: "surrounding whitespace", in: " LR-26445 ", want: "LR-26445"},
		{name: "missing hyphen", in: "lr26445", want: "LR-26445"},
		{name: "empty", in: "  ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeReleaseID(tt.in))
		})
	}
}

func TestCompareReleaseIDs(t *testing.T) {
	ids := []string{"LR-100", "LR-9", "LR-26445", "LR-abc", "LR-10"}
	slices.SortFunc(ids, CompareReleaseIDs)

	assert.Equal(t, []string{"LR-9", "LR-10", "LR-100", "LR-26445", "LR-abc"}, ids)
}

func TestCaseRecord_Complaint(t *testing.T) {
	t.Run("finds complaint regardless of case", func(t *testing.T) {
		c := CaseRecord{SupportingDocuments: []SupportingDocument{
			{Type: "Final Judgment", URL: "https://example.test/fj.pdf"},
			{Type: "SEC Complaint", URL: "https://example.test/comp.pdf"},
		}}

		doc, ok := c.Complaint()

		assert.True(t, ok)
		assert.Equal(t, "https://example.test/comp.pdf", doc.URL)
	})

	t.Run("ignores complaint without url", func(t *testing.T) {
		c := CaseRecord{SupportingDocuments: []SupportingDocument{{Type: "complaint"}}}

		_, ok := c.Complaint()

		assert.False(t, ok)
	})

	t.Run("no documents", func(t *testing.T) {
		_, ok := CaseRecord{}.Complaint()
		assert.False(t, ok)
	})
}
