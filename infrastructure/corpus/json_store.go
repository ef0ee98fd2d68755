// Package corpus reads the litigation-release corpus.
package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/chainguard-dev/clog"

	"github.com/ahrav/litcast/internal/domain"
	"github.com/ahrav/litcast/internal/ports"
)

var _ ports.CorpusStore = (*JSONStore)(nil)

type corpusFile struct {
	Cases []caseEntry `json:"cases"`
}

// caseEntry is the on-disk release shape. The scraped corpus keeps the
// release narrative under features.fullText; older exports put it at the
// top level.
type caseEntry struct {
	domain.CaseRecord
	Features struct {
		FullText string `json:"fullText"`
	} `json:"features"`
}

// JSONStore is an in-memory corpus loaded from a JSON file. It is safe for
// concurrent reads.
type JSONStore struct {
	cases []domain.CaseRecord
	index map[string]int
}

// LoadJSONStore reads a corpus file of the form {"cases": [...]}.
func LoadJSONStore(ctx context.Context, path string) (*JSONStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus %s: %w", path, err)
	}
	store, err := NewJSONStore(data)
	if err != nil {
		return nil, fmt.Errorf("corpus %s: %w", path, err)
	}
	clog.FromContext(ctx).With("path", path, "cases", len(store.cases)).Info("loaded corpus")
	return store, nil
}

// NewJSONStore decodes a corpus document. Entries without a release number
// are dropped; when a release number repeats, the first entry wins.
func NewJSONStore(data []byte) (*JSONStore, error) {
	var file corpusFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode corpus: %w", err)
	}

	store := &JSONStore{
		cases: make([]domain.CaseRecord, 0, len(file.Cases)),
		index: make(map[string]int, len(file.Cases)),
	}
	for _, entry := range file.Cases {
		rec := entry.CaseRecord
		rec.ReleaseNumber = domain.NormalizeReleaseID(rec.ReleaseNumber)
		if rec.ReleaseNumber == "" {
			continue
		}
		if _, dup := store.index[rec.ReleaseNumber]; dup {
			continue
		}
		if entry.Features.FullText != "" {
			rec.FullText = entry.Features.FullText
		}
		store.index[rec.ReleaseNumber] = len(store.cases)
		store.cases = append(store.cases, rec)
	}
	return store, nil
}

// List returns every case in file order.
func (s *JSONStore) List(ctx context.Context) ([]domain.CaseRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]domain.CaseRecord(nil), s.cases...), nil
}

// Get looks up a case by release id.
func (s *JSONStore) Get(ctx context.Context, releaseID string) (domain.CaseRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.CaseRecord{}, err
	}
	i, ok := s.index[domain.NormalizeReleaseID(releaseID)]
	if !ok {
		return domain.CaseRecord{}, fmt.Errorf("%w: %q", domain.ErrCaseNotFound, releaseID)
	}
	return s.cases[i], nil
}

// Len returns the number of cases.
func (s *JSONStore) Len() int { return len(s.cases) }
