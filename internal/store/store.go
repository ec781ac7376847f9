// Package store persists calibration tables and reconciled student records
// so later runs reuse them without recomputing from raw data.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mind-engage/simulacro-scoring/internal/exam"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store { return &Store{db: db} }

// Run is one processed batch.
type Run struct {
	ID        string
	Simulacro string
	Curve     string
	Students  int
	Matches   int
	CreatedAt time.Time
}

func (s *Store) SaveRun(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, simulacro, curve, total_students, matches, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (id) DO UPDATE SET total_students=EXCLUDED.total_students, matches=EXCLUDED.matches`,
		r.ID, r.Simulacro, r.Curve, r.Students, r.Matches, r.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	var r Run
	var created int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, simulacro, curve, total_students, matches, created_at FROM runs WHERE id=$1`, id).
		Scan(&r.ID, &r.Simulacro, &r.Curve, &r.Students, &r.Matches, &created)
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	r.CreatedAt = time.Unix(created, 0)
	return r, nil
}

// LatestRun returns the most recently created run for a simulacro label, or
// any simulacro when label is empty.
func (s *Store) LatestRun(ctx context.Context, simulacro string) (Run, error) {
	q := `SELECT id, simulacro, curve, total_students, matches, created_at FROM runs`
	args := []any{}
	if simulacro != "" {
		q += ` WHERE simulacro=$1`
		args = append(args, simulacro)
	}
	q += ` ORDER BY created_at DESC LIMIT 1`

	var r Run
	var created int64
	err := s.db.QueryRowContext(ctx, q, args...).
		Scan(&r.ID, &r.Simulacro, &r.Curve, &r.Students, &r.Matches, &created)
	if err != nil {
		return Run{}, fmt.Errorf("latest run: %w", err)
	}
	r.CreatedAt = time.Unix(created, 0)
	return r, nil
}

// SaveStudents upserts every reconciled record for a run as a JSON doc keyed
// by the student's canonical identity key.
func (s *Store) SaveStudents(ctx context.Context, runID string, keys []string, students []*exam.StudentRecord) error {
	if len(keys) != len(students) {
		return fmt.Errorf("save students: %d keys for %d records", len(keys), len(students))
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, rec := range students {
		doc, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal student %s: %w", keys[i], err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO students (run_id, student_key, record_json, global_score, tier)
			 VALUES ($1,$2,$3,$4,$5)
			 ON CONFLICT (run_id, student_key) DO UPDATE SET
			   record_json=EXCLUDED.record_json, global_score=EXCLUDED.global_score, tier=EXCLUDED.tier`,
			runID, keys[i], string(doc), rec.Global, rec.Tier)
		if err != nil {
			return fmt.Errorf("save student %s: %w", keys[i], err)
		}
	}
	return tx.Commit()
}

// LoadStudents returns a run's records ordered by descending global score.
func (s *Store) LoadStudents(ctx context.Context, runID string) ([]string, []*exam.StudentRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT student_key, record_json FROM students WHERE run_id=$1 ORDER BY global_score DESC, student_key`,
		runID)
	if err != nil {
		return nil, nil, fmt.Errorf("load students: %w", err)
	}
	defer rows.Close()

	var keys []string
	var out []*exam.StudentRecord
	for rows.Next() {
		var key, doc string
		if err := rows.Scan(&key, &doc); err != nil {
			return nil, nil, err
		}
		var rec exam.StudentRecord
		if err := json.Unmarshal([]byte(doc), &rec); err != nil {
			return nil, nil, fmt.Errorf("decode student %s: %w", key, err)
		}
		keys = append(keys, key)
		out = append(out, &rec)
	}
	return keys, out, rows.Err()
}

// SaveCalibration upserts calibration entries, one row per
// (session, subject, question).
func (s *Store) SaveCalibration(ctx context.Context, entries []exam.CalibrationEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range entries {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO calibration (session, subject, question, p, class, weight, cascade_item, correct, total)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			 ON CONFLICT (session, subject, question) DO UPDATE SET
			   p=EXCLUDED.p, class=EXCLUDED.class, weight=EXCLUDED.weight,
			   cascade_item=EXCLUDED.cascade_item, correct=EXCLUDED.correct, total=EXCLUDED.total`,
			e.Session, e.Subject, e.Number, e.P, string(e.Class), e.Weight, e.Cascade, e.Correct, e.Total)
		if err != nil {
			return fmt.Errorf("save calibration %s/%d: %w", e.Subject, e.Number, err)
		}
	}
	return tx.Commit()
}

// LoadCalibration returns the whole persisted calibration table as a set.
// An empty set is not an error: the curver degrades to unweighted scoring.
func (s *Store) LoadCalibration(ctx context.Context) (exam.CalibrationSet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session, subject, question, p, class, weight, cascade_item, correct, total FROM calibration`)
	if err != nil {
		return nil, fmt.Errorf("load calibration: %w", err)
	}
	defer rows.Close()

	set := exam.CalibrationSet{}
	for rows.Next() {
		var e exam.CalibrationEntry
		var class string
		if err := rows.Scan(&e.Session, &e.Subject, &e.Number, &e.P, &class, &e.Weight, &e.Cascade, &e.Correct, &e.Total); err != nil {
			return nil, err
		}
		e.Class = exam.Difficulty(class)
		set.Add(e)
	}
	return set, rows.Err()
}
