// Package store keeps run history in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/forPelevin/panelscribe/internal/types"
)

var ErrNotFound = errors.New("run not found")

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// RunInfo is the list view of a stored run.
type RunInfo struct {
	ID           string    `json:"id"`
	Input        string    `json:"input"`
	Language     string    `json:"language,omitempty"`
	MediaSec     float64   `json:"media_sec"`
	SpeakerCount int       `json:"speaker_count"`
	RecordCount  int       `json:"record_count"`
	CreatedAt    time.Time `json:"created_at"`
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		input TEXT NOT NULL,
		language TEXT NOT NULL DEFAULT '',
		media_sec REAL NOT NULL DEFAULT 0,
		speaker_count INTEGER NOT NULL DEFAULT 0,
		record_count INTEGER NOT NULL DEFAULT 0,
		report TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS records (
		run_id TEXT NOT NULL,
		idx INTEGER NOT NULL,
		speaker TEXT NOT NULL,
		start_sec REAL NOT NULL,
		end_sec REAL NOT NULL,
		duration_sec REAL NOT NULL,
		text TEXT NOT NULL,
		PRIMARY KEY (run_id, idx),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS speakers (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		speaker TEXT NOT NULL,
		total_duration_sec REAL NOT NULL,
		text TEXT NOT NULL,
		keywords TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, speaker),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveReport stores r, replacing any earlier run with the same ID.
func (s *Store) SaveReport(ctx context.Context, r types.Report) error {
	if r.RunID == "" {
		return errors.New("save report: empty run id")
	}
	blob, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, r.RunID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, input, language, media_sec, speaker_count, record_count, report, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Input, r.Run.Language, r.MediaSec, r.SpeakerCount, len(r.Run.Records), string(blob), s.now().UTC(),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	recStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (run_id, idx, speaker, start_sec, end_sec, duration_sec, text)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer recStmt.Close()
	for _, rec := range r.Run.Records {
		if _, err := recStmt.ExecContext(ctx, r.RunID, rec.Index, rec.SpeakerID, rec.StartSec, rec.EndSec, rec.DurationSec, rec.Text); err != nil {
			return fmt.Errorf("insert record %d: %w", rec.Index, err)
		}
	}

	spkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO speakers (run_id, position, speaker, total_duration_sec, text, keywords, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer spkStmt.Close()
	for i, sp := range r.Speakers {
		kw, err := json.Marshal(sp.KeywordFrequency)
		if err != nil {
			return err
		}
		if _, err := spkStmt.ExecContext(ctx, r.RunID, i, sp.SpeakerID, sp.TotalDurationSec, sp.ConcatenatedText, string(kw), sp.Summary); err != nil {
			return fmt.Errorf("insert speaker %s: %w", sp.SpeakerID, err)
		}
	}
	return tx.Commit()
}

// ListRuns returns the newest runs first. limit <= 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunInfo, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, input, language, media_sec, speaker_count, record_count, created_at
		FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []RunInfo{}
	for rows.Next() {
		var ri RunInfo
		if err := rows.Scan(&ri.ID, &ri.Input, &ri.Language, &ri.MediaSec, &ri.SpeakerCount, &ri.RecordCount, &ri.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ri)
	}
	return out, rows.Err()
}

func (s *Store) GetRun(ctx context.Context, id string) (types.Report, error) {
	var blob string
	err := s.db.QueryRowContext(ctx, `SELECT report FROM runs WHERE id = ?`, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Report{}, ErrNotFound
	}
	if err != nil {
		return types.Report{}, err
	}
	var r types.Report
	if err := json.Unmarshal([]byte(blob), &r); err != nil {
		return types.Report{}, fmt.Errorf("decode stored report %s: %w", id, err)
	}
	return r, nil
}

// Records returns a run's transcript records in turn order.
func (s *Store) Records(ctx context.Context, id string) ([]types.TranscriptRecord, error) {
	if err := s.exists(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, speaker, start_sec, end_sec, duration_sec, text
		FROM records WHERE run_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []types.TranscriptRecord{}
	for rows.Next() {
		var r types.TranscriptRecord
		if err := rows.Scan(&r.Index, &r.SpeakerID, &r.StartSec, &r.EndSec, &r.DurationSec, &r.Text); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Speakers returns a run's speaker summaries in first-appearance order.
func (s *Store) Speakers(ctx context.Context, id string) ([]types.SpeakerSummary, error) {
	if err := s.exists(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT speaker, total_duration_sec, text, keywords, summary
		FROM speakers WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []types.SpeakerSummary{}
	for rows.Next() {
		var (
			sp types.SpeakerSummary
			kw string
		)
		if err := rows.Scan(&sp.SpeakerID, &sp.TotalDurationSec, &sp.ConcatenatedText, &kw, &sp.Summary); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(kw), &sp.KeywordFrequency); err != nil {
			return nil, fmt.Errorf("decode keywords for %s: %w", sp.SpeakerID, err)
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

func (s *Store) exists(ctx context.Context, id string) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, id).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
