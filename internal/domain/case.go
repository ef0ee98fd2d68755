package domain

import (
	"strconv"
	"strings"
)

// ReleasePrefix is the canonical prefix of a litigation release number.
const ReleasePrefix = "LR-"

// SupportingDocument is a document attached to a litigation release, such as
// the complaint or a final judgment.
type SupportingDocument struct {
	Type  string `json:"type"`
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// CaseRecord is a litigation release as held by the case corpus. It is read
// only: the harness never mutates corpus records.
type CaseRecord struct {
	// ReleaseNumber is the canonical release id, e.g. "LR-26445".
	ReleaseNumber string `json:"releaseNumber"`
	ReleaseDate   string `json:"releaseDate,omitempty"`
	Title         string `json:"title"`
	URL           string `json:"url,omitempty"`
	// FullText is the narrative text of the release. Ground truth is
	// extracted from it; it is never shown to a model.
	FullText            string               `json:"fullText"`
	Court               string               `json:"court,omitempty"`
	Respondents         []string             `json:"respondents,omitempty"`
	Charges             []string             `json:"charges,omitempty"`
	SupportingDocuments []SupportingDocument `json:"supportingDocuments,omitempty"`
}

// Complaint returns the first supporting document whose type names a
// complaint. The second return value is false when the case has none.
func (c CaseRecord) Complaint() (SupportingDocument, bool) {
	for _, doc := range c.SupportingDocuments {
		if doc.URL == "" {
			continue
		}
		if strings.Contains(strings.ToLower(doc.Type), "complaint") {
			return doc, true
		}
	}
	return SupportingDocument{}, false
}

// NormalizeReleaseID converts user supplied release ids into canonical form.
// Lookup is case-insensitive and the "LR-" prefix is optional, so "lr-26445",
// "26445" and " LR-26445 " all normalize to "LR-26445".
func NormalizeReleaseID(id string) string {
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" {
		return ""
	}
	if strings.HasPrefix(id, ReleasePrefix) {
		return id
	}
	if rest, ok := strings.CutPrefix(id, "LR"); ok {
		return ReleasePrefix + strings.TrimLeft(rest, " -_")
	}
	return ReleasePrefix + id
}

// CompareReleaseIDs orders release ids by their numeric suffix, falling back
// to lexical order when either id is not numeric. It is suitable for
// slices.SortFunc.
func CompareReleaseIDs(a, b string) int {
	na, errA := strconv.Atoi(strings.TrimPrefix(a, ReleasePrefix))
	nb, errB := strconv.Atoi(strings.TrimPrefix(b, ReleasePrefix))
	if errA == nil && errB == nil && na != nb {
		if na < nb {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
