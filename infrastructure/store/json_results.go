// Package store persists datasets and per-model result sets.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/ahrav/litcast/internal/domain"
	"github.com/ahrav/litcast/internal/ports"
)

var _ ports.ResultStore = (*JSONResultStore)(nil)

// lockRetryDelay is how often a blocked writer retries the file lock.
const lockRetryDelay = 10 * time.Millisecond

// JSONResultStore keeps one JSON file per model under Dir. Every Merge
// rewrites the file through a temp file and rename, so a crash leaves
// either the previous or the new checkpoint on disk. Writers hold an
// advisory lock on a sidecar file, so stores in other goroutines or
// processes sharing Dir never merge from a stale snapshot.
type JSONResultStore struct {
	dir string
	mu  sync.Mutex
}

// NewJSONResultStore creates dir if needed.
func NewJSONResultStore(dir string) (*JSONResultStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}
	return &JSONResultStore{dir: dir}, nil
}

// Path returns the file that holds model's results.
func (s *JSONResultStore) Path(model string) string {
	return filepath.Join(s.dir, slug(model)+".json")
}

func (s *JSONResultStore) Load(ctx context.Context, model string) (*domain.ResultSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(model)
}

func (s *JSONResultStore) load(model string) (*domain.ResultSet, error) {
	path := s.Path(model)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrResultsNotFound, model)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read results %s: %w", path, err)
	}

	var rs domain.ResultSet
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCorruptResults, path, err)
	}
	if rs.Records == nil {
		rs.Records = make(map[string]domain.PredictionRecord)
	}
	if rs.Model == "" {
		rs.Model = model
	}
	return &rs, nil
}

func (s *JSONResultStore) Merge(ctx context.Context, model string, records ...domain.PredictionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := s.lock(ctx, model)
	if err != nil {
		return err
	}
	defer unlock()

	rs, err := s.load(model)
	switch {
	case errors.Is(err, domain.ErrResultsNotFound):
		rs = domain.NewResultSet(model)
	case err != nil:
		return err
	}
	rs.Merge(records...)
	return writeJSONAtomic(s.Path(model), rs)
}

func (s *JSONResultStore) Reset(ctx context.Context, model string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := s.lock(ctx, model)
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.Remove(s.Path(model)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to reset results: %w", err)
	}
	return nil
}

// lock takes the cross-process write lock for model's file.
func (s *JSONResultStore) lock(ctx context.Context, model string) (func(), error) {
	fl := flock.New(filepath.Join(s.dir, "."+slug(model)+".json.lock"))
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to lock results for %s: %w", model, err)
	}
	if !locked {
		return nil, fmt.Errorf("failed to lock results for %s", model)
	}
	return func() { _ = fl.Unlock() }, nil
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func slug(model string) string {
	if s := domain.ModelSlug(model); s != "" {
		return s
	}
	return "results"
}
