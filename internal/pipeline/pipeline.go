// Package pipeline orchestrates one batch: calibration, per-session grading,
// identity reconciliation, curving, and aggregation. All state for a run
// lives on the Batch value passed explicitly through every call; there is no
// package-level "current simulacro".
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/simulacro-scoring/internal/calibrate"
	"github.com/mind-engage/simulacro-scoring/internal/config"
	"github.com/mind-engage/simulacro-scoring/internal/exam"
	"github.com/mind-engage/simulacro-scoring/internal/grade"
	"github.com/mind-engage/simulacro-scoring/internal/ingest"
	"github.com/mind-engage/simulacro-scoring/internal/reconcile"
	"github.com/mind-engage/simulacro-scoring/internal/score"
	"github.com/mind-engage/simulacro-scoring/internal/store"
)

// Batch is the explicit context object for one processing run.
type Batch struct {
	Cfg   config.Config
	Log   *slog.Logger
	Store *store.Store // optional; nil runs fully in memory
	Curve score.Curve
	Now   func() time.Time
}

// New validates the config and resolves the named curve.
func New(cfg config.Config, log *slog.Logger, st *store.Store) (*Batch, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	curve, ok := score.Lookup(cfg.Curve)
	if !ok {
		return nil, fmt.Errorf("unknown curve %q (have: %v)", cfg.Curve, score.Names())
	}
	if log == nil {
		log = slog.Default()
	}
	return &Batch{Cfg: cfg, Log: log, Store: st, Curve: curve, Now: time.Now}, nil
}

// Result is everything one run produced.
type Result struct {
	RunID       string
	Students    []*exam.StudentRecord
	Keys        []string
	Matches     int
	Orphans     []string
	Ambiguous   []reconcile.Ambiguity
	Calibration exam.CalibrationSet
	Calibrated  bool
}

// Run processes the loaded sessions in order. All input is in memory before
// any computation starts; the student pool is mutated strictly sequentially.
func (b *Batch) Run(ctx context.Context, sessions []*ingest.Session) (*Result, error) {
	if len(sessions) == 0 {
		return nil, fmt.Errorf("no sessions to process")
	}

	cal, err := b.calibration(ctx, sessions)
	if err != nil {
		return nil, err
	}

	rec := reconcile.New()
	for _, sess := range sessions {
		b.Log.Info("grading session", "session", sess.Label, "records", len(sess.Records))
		voided := func(subject string, number int) bool {
			return b.Cfg.Voided(sess.Label, subject, number)
		}
		for _, raw := range sess.Records {
			tallies := grade.Session(raw, sess.Key, voided)
			partial := &exam.StudentRecord{
				Identity: raw.Identity,
				Examinee: raw.Examinee,
				Fecha:    raw.SubmittedAt,
				Subjects: tallies,
				PerSess: map[string]exam.SessionTotal{
					sess.Label: grade.Totals(tallies),
				},
			}
			rec.Absorb(partial, sess.Label)
		}
	}
	merged := rec.Finish()
	b.Log.Info("reconciled cohort",
		"students", len(merged.Students), "matches", merged.Matches,
		"orphans", len(merged.Orphans), "ambiguous", len(merged.Ambiguous))

	for _, s := range merged.Students {
		score.Student(s, b.Cfg, cal, b.Curve)
	}

	res := &Result{
		RunID:       uuid.NewString(),
		Students:    merged.Students,
		Keys:        merged.Keys,
		Matches:     merged.Matches,
		Orphans:     merged.Orphans,
		Ambiguous:   merged.Ambiguous,
		Calibration: cal,
		Calibrated:  len(cal) > 0,
	}

	if b.Store != nil {
		if err := b.persist(ctx, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// calibration prefers the persisted table; when it is empty the sessions
// themselves are calibrated and, when a store is attached, persisted for the
// next run.
func (b *Batch) calibration(ctx context.Context, sessions []*ingest.Session) (exam.CalibrationSet, error) {
	if b.Store != nil {
		set, err := b.Store.LoadCalibration(ctx)
		if err != nil {
			return nil, err
		}
		if len(set) > 0 {
			b.Log.Info("using persisted calibration", "items", len(set))
			return set, nil
		}
	}

	set := exam.CalibrationSet{}
	var all []exam.CalibrationEntry
	for _, sess := range sessions {
		entries := calibrate.Run(sess.Key, sess.Records, sess.Label)
		all = append(all, entries...)
		for _, e := range entries {
			set.Add(e)
		}
	}
	b.Log.Info("computed calibration", "items", len(set))

	if b.Store != nil && len(all) > 0 {
		if err := b.Store.SaveCalibration(ctx, all); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func (b *Batch) persist(ctx context.Context, res *Result) error {
	run := store.Run{
		ID:        res.RunID,
		Simulacro: b.Cfg.Simulacro,
		Curve:     b.Cfg.Curve,
		Students:  len(res.Students),
		Matches:   res.Matches,
		CreatedAt: b.Now(),
	}
	if err := b.Store.SaveRun(ctx, run); err != nil {
		return err
	}
	return b.Store.SaveStudents(ctx, res.RunID, res.Keys, res.Students)
}
