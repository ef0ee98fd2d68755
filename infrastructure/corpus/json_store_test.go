package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/litcast/internal/domain"
)

const corpusJSON = `{
  "cases": [
    {
      "releaseNumber": "LR-26445",
      "releaseDate": "2025-11-20",
      "title": "SEC Obtains Final Judgment Against Investment Adviser",
      "url": "https://www.sec.gov/litigation/litreleases/lr-26445",
      "features": {"fullText": "The SEC filed a settled action ..."},
      "supportingDocuments": [
        {"type": "SEC Complaint", "url": "https://www.sec.gov/files/comp26445.pdf", "title": "Complaint"}
      ]
    },
    {"releaseNumber": "lr-26446", "title": "Top level text", "fullText": "jury verdict"},
    {"releaseNumber": "", "title": "no id"},
    {"releaseNumber": "LR-26445", "title": "duplicate"}
  ]
}`

func TestNewJSONStore(t *testing.T) {
	store, err := NewJSONStore([]byte(corpusJSON))
	require.NoError(t, err)
	ctx := context.Background()

	cases, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, cases, 2)

	want := domain.CaseRecord{
		ReleaseNumber: "LR-26445",
		ReleaseDate:   "2025-11-20",
		Title:         "SEC Obtains Final Judgment Against Investment Adviser",
		URL:           "https://www.sec.gov/litigation/litreleases/lr-26445",
		FullText:      "The SEC filed a settled action ...",
		SupportingDocuments: []domain.SupportingDocument{
			{Type: "SEC Complaint", URL: "https://www.sec.gov/files/comp26445.pdf", Title: "Complaint"},
		},
	}
	if diff := cmp.Diff(want, cases[0]); diff != "" {
		t.Errorf("first case mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "LR-26446", cases[1].ReleaseNumber)
	assert.Equal(t, "jury verdict", cases[1].FullText)
}

func TestJSONStore_Get(t *testing.T) {
	store, err := NewJSONStore([]byte(corpusJSON))
	require.NoError(t, err)
	ctx := context.Background()

	for _, id := range []string{"LR-26445", "lr-26445", "26445", " LR-26445 "} {
		rec, err := store.Get(ctx, id)
		require.NoError(t, err, id)
		assert.Equal(t, "LR-26445", rec.ReleaseNumber)
	}

	_, err = store.Get(ctx, "LR-1")
	require.ErrorIs(t, err, domain.ErrCaseNotFound)
}

func TestLoadJSONStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.json")
	require.NoError(t, os.WriteFile(path, []byte(corpusJSON), 0o600))

	store, err := LoadJSONStore(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())

	_, err = LoadJSONStore(context.Background(), filepath.Join(dir, "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err = LoadJSONStore(context.Background(), path)
	require.Error(t, err)
}
