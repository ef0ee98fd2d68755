package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/ahrav/litcast/internal/domain"
)

// Dataset file names inside a dataset directory.
const (
	EvaluationFile = "evaluation_dataset.json"
	PredictionFile = "prediction_dataset.json"
	SkippedFile    = "skipped_cases.json"
)

type evaluationFile struct {
	Metadata   domain.DatasetMetadata             `json:"metadata"`
	Statistics domain.Statistics                  `json:"statistics"`
	Cases      map[string]domain.EvaluationRecord `json:"cases"`
}

type predictionFile struct {
	Metadata struct {
		Count       int    `json:"count"`
		Description string `json:"description"`
	} `json:"metadata"`
	Cases map[string]domain.EvaluationRecord `json:"cases"`
}

type skippedFile struct {
	Metadata struct {
		TotalSkipped int `json:"total_skipped"`
	} `json:"metadata"`
	Cases []domain.SkipRecord `json:"cases"`
}

// SaveDataset writes ds to dir as three files: resolved cases for scoring,
// ongoing cases for forward prediction, and the skip list.
func SaveDataset(dir string, ds *domain.Dataset) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	resolved := ds.Resolved()
	eval := evaluationFile{
		Metadata:   ds.Metadata,
		Statistics: domain.ComputeStatistics(resolved),
		Cases:      resolved,
	}
	if err := writeJSONAtomic(filepath.Join(dir, EvaluationFile), eval); err != nil {
		return err
	}

	var pred predictionFile
	pred.Cases = ds.Ongoing()
	pred.Metadata.Count = len(pred.Cases)
	pred.Metadata.Description = "Ongoing cases without a resolution; forecast only, not scored"
	if err := writeJSONAtomic(filepath.Join(dir, PredictionFile), pred); err != nil {
		return err
	}

	var skipped skippedFile
	skipped.Cases = append([]domain.SkipRecord{}, ds.Skipped...)
	skipped.Metadata.TotalSkipped = len(skipped.Cases)
	return writeJSONAtomic(filepath.Join(dir, SkippedFile), skipped)
}

// LoadDataset reads a directory written by SaveDataset. The prediction and
// skip files are optional; the evaluation file is required. Records are
// validated before being returned.
func LoadDataset(dir string) (*domain.Dataset, error) {
	var eval evaluationFile
	if err := readJSON(filepath.Join(dir, EvaluationFile), &eval); err != nil {
		return nil, err
	}

	ds := &domain.Dataset{
		Metadata: eval.Metadata,
		Records:  make(map[string]domain.EvaluationRecord, len(eval.Cases)),
	}
	maps.Copy(ds.Records, eval.Cases)

	var pred predictionFile
	if err := readJSON(filepath.Join(dir, PredictionFile), &pred); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	maps.Copy(ds.Records, pred.Cases)

	var skipped skippedFile
	if err := readJSON(filepath.Join(dir, SkippedFile), &skipped); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	ds.Skipped = skipped.Cases

	if err := ValidateDataset(ds); err != nil {
		return nil, err
	}
	ds.Statistics = domain.ComputeStatistics(ds.Resolved())
	return ds, nil
}

// LoadEvaluationRecords reads a single dataset file, either a directory
// written by SaveDataset or one of its JSON files.
func LoadEvaluationRecords(path string) (map[string]domain.EvaluationRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	if info.IsDir() {
		ds, err := LoadDataset(path)
		if err != nil {
			return nil, err
		}
		return ds.Records, nil
	}

	var file struct {
		Cases map[string]domain.EvaluationRecord `json:"cases"`
	}
	if err := readJSON(path, &file); err != nil {
		return nil, err
	}
	ds := &domain.Dataset{Records: file.Cases}
	if err := ValidateDataset(ds); err != nil {
		return nil, err
	}
	return ds.Records, nil
}

// ValidateDataset checks that every record is keyed by its canonical case
// id, has input text, and carries a known resolution type.
func ValidateDataset(ds *domain.Dataset) error {
	verr := domain.NewValidationError("dataset")
	for _, id := range slices.Sorted(maps.Keys(ds.Records)) {
		rec := ds.Records[id]
		if rec.CaseID != id {
			verr.AddError(fmt.Sprintf("record %q has case_id %q", id, rec.CaseID))
		}
		if rec.InputText == "" {
			verr.AddError(fmt.Sprintf("record %q has no input_text", id))
		}
		if !rec.GroundTruth.ResolutionType.Valid() {
			verr.AddError(fmt.Sprintf("record %q has unknown resolution_type %q", id, rec.GroundTruth.ResolutionType))
		}
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
