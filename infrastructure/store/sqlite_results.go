package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ahrav/litcast/internal/domain"
	"github.com/ahrav/litcast/internal/ports"
)

var _ ports.ResultStore = (*SQLiteResultStore)(nil)

const predictionsSchema = `
CREATE TABLE IF NOT EXISTS predictions (
	model        TEXT    NOT NULL,
	case_id      TEXT    NOT NULL,
	run_id       TEXT    NOT NULL DEFAULT '',
	raw_response TEXT    NOT NULL DEFAULT '',
	prediction   TEXT    NOT NULL,
	success      INTEGER NOT NULL,
	error        TEXT    NOT NULL DEFAULT '',
	warnings     TEXT    NOT NULL DEFAULT '[]',
	latency_ms   INTEGER NOT NULL DEFAULT 0,
	created_at   TEXT    NOT NULL,
	PRIMARY KEY (model, case_id)
);
CREATE INDEX IF NOT EXISTS idx_predictions_model_success ON predictions(model, success);
`

// The WHERE clause keeps an existing success from being replaced by a
// failure, matching domain.PredictionRecord.Supersedes.
const upsertPrediction = `
INSERT INTO predictions (model, case_id, run_id, raw_response, prediction, success, error, warnings, latency_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(model, case_id) DO UPDATE SET
	run_id = excluded.run_id,
	raw_response = excluded.raw_response,
	prediction = excluded.prediction,
	success = excluded.success,
	error = excluded.error,
	warnings = excluded.warnings,
	latency_ms = excluded.latency_ms,
	created_at = excluded.created_at
WHERE excluded.success = 1 OR predictions.success = 0
`

// SQLiteResultStore keeps results for every model in one SQLite database.
// Concurrent writers, including separate processes, are serialized by
// SQLite itself.
type SQLiteResultStore struct {
	db *sql.DB
}

// OpenSQLiteResultStore opens or creates the database at path.
func OpenSQLiteResultStore(path string) (*SQLiteResultStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := db.Exec(predictionsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &SQLiteResultStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteResultStore) Close() error { return s.db.Close() }

func (s *SQLiteResultStore) Load(ctx context.Context, model string) (*domain.ResultSet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT case_id, run_id, raw_response, prediction, success, error, warnings, latency_ms, created_at
		FROM predictions WHERE model = ?
	`, model)
	if err != nil {
		return nil, fmt.Errorf("querying predictions: %w", err)
	}
	defer rows.Close()

	rs := domain.NewResultSet(model)
	for rows.Next() {
		var (
			rec                  domain.PredictionRecord
			prediction, warnings string
			createdAt            string
		)
		if err := rows.Scan(&rec.CaseID, &rec.RunID, &rec.RawResponse, &prediction, &rec.Success,
			&rec.Error, &warnings, &rec.LatencyMS, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scanning prediction: %v", domain.ErrCorruptResults, err)
		}
		if err := json.Unmarshal([]byte(prediction), &rec.Prediction); err != nil {
			return nil, fmt.Errorf("%w: case %s: %v", domain.ErrCorruptResults, rec.CaseID, err)
		}
		if err := json.Unmarshal([]byte(warnings), &rec.Warnings); err != nil {
			return nil, fmt.Errorf("%w: case %s warnings: %v", domain.ErrCorruptResults, rec.CaseID, err)
		}
		if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("%w: case %s created_at: %v", domain.ErrCorruptResults, rec.CaseID, err)
		}
		rec.Model = model
		rs.Records[rec.CaseID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating predictions: %w", err)
	}
	if rs.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrResultsNotFound, model)
	}
	return rs, nil
}

func (s *SQLiteResultStore) Merge(ctx context.Context, model string, records ...domain.PredictionRecord) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertPrediction)
		if err != nil {
			return fmt.Errorf("preparing upsert: %w", err)
		}
		defer stmt.Close()

		for _, rec := range records {
			prediction, err := json.Marshal(rec.Prediction)
			if err != nil {
				return fmt.Errorf("encoding prediction %s: %w", rec.CaseID, err)
			}
			warnings, err := json.Marshal(append([]string{}, rec.Warnings...))
			if err != nil {
				return fmt.Errorf("encoding warnings %s: %w", rec.CaseID, err)
			}
			if _, err := stmt.ExecContext(ctx,
				model, rec.CaseID, rec.RunID, rec.RawResponse, string(prediction), rec.Success,
				rec.Error, string(warnings), rec.LatencyMS, rec.CreatedAt.UTC().Format(time.RFC3339Nano),
			); err != nil {
				return fmt.Errorf("upserting %s: %w", rec.CaseID, err)
			}
		}
		return nil
	})
}

func (s *SQLiteResultStore) Reset(ctx context.Context, model string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM predictions WHERE model = ?`, model); err != nil {
		return fmt.Errorf("resetting predictions: %w", err)
	}
	return nil
}

// Models lists models that have stored results.
func (s *SQLiteResultStore) Models(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT model FROM predictions ORDER BY model`)
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	defer rows.Close()

	var models []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, rows.Err()
}

func (s *SQLiteResultStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
