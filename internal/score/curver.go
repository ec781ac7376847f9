package score

import (
	"math"

	"github.com/mind-engage/simulacro-scoring/internal/config"
	"github.com/mind-engage/simulacro-scoring/internal/exam"
)

// Inconsistency penalty and cap constants shared by every subject. A cascade
// miss costs a full point when the student also got a hard item right (the
// guessing signal) and half a point otherwise, bounded so the penalty never
// dominates the curve.
const (
	penaltyInconsistent    = 1.0
	penaltyInconsistentCap = 10.0
	penaltyPlain           = 0.5
	penaltyPlainCap        = 5.0
)

// errorCost prices one wrong answer for the sliding cap: missing an easy item
// is expensive, missing a very hard one is cheap.
func errorCost(class exam.Difficulty) float64 {
	switch class {
	case exam.VeryEasy:
		return 1.3
	case exam.Easy:
		return 1.1
	case exam.Medium:
		return 1.0
	case exam.Hard:
		return 0.7
	case exam.VeryHard:
		return 0.5
	default:
		return 1.0
	}
}

// Subject curves one subject tally in place: fills Missing/Total/RawPct/Score.
// sessions is the set of session labels the student completed; questions from
// sessions the student skipped enter the denominator as uncalibrated wrong
// answers. Safe to re-run on a loaded record: every derived field is
// recomputed from scratch.
func Subject(t *exam.SubjectTally, subj config.Subject, sessions []string, cal exam.CalibrationSet, curve Curve, capFloor float64) {
	// Step 1: account for skipped sessions.
	missing := 0
	for label, n := range subj.Questions {
		if !hasLabel(sessions, label) {
			missing += n
		}
	}
	t.Missing = missing
	t.Total = t.Answered + missing

	if t.Total == 0 || t.Correct == 0 {
		t.RawPct = 0
		t.Score = 0
		return
	}

	// Step 2: base percentage, calibration-weighted when coverage exists.
	var base float64
	calibrated := cal.HasSubject(subj.Name)
	if calibrated && len(t.Detail) > 0 {
		var got, possible float64
		for _, d := range t.Detail {
			if d.Correct == nil {
				continue // voided item, out of both sides
			}
			w := 1.0
			if e, ok := cal.Lookup(exam.QuestionRef{Subject: subj.Name, Number: d.Number}); ok {
				w = e.Weight
			}
			possible += w
			if *d.Correct {
				got += w
			}
		}
		// Expected-but-unseen questions weigh in at unit weight: a skipped
		// session cannot inflate the weighted percentage.
		possible += float64(missing)
		if possible > 0 {
			base = got / possible * 100
		}
	} else {
		base = float64(t.Correct) / float64(t.Total) * 100
	}
	t.RawPct = round2(base)

	// Step 3: curve.
	pts := curve(base)

	// Step 4: inconsistency penalty.
	cascadeMisses, hardHits := 0, 0
	for _, d := range t.Detail {
		if d.Correct == nil {
			continue
		}
		e, ok := cal.Lookup(exam.QuestionRef{Subject: subj.Name, Number: d.Number})
		if !ok {
			continue
		}
		if *d.Correct {
			if e.Class == exam.Hard || e.Class == exam.VeryHard {
				hardHits++
			}
		} else if e.Cascade {
			cascadeMisses++
		}
	}
	if cascadeMisses > 0 {
		var penalty float64
		if hardHits > 0 {
			penalty = math.Min(float64(cascadeMisses)*penaltyInconsistent, penaltyInconsistentCap)
		} else {
			penalty = math.Min(float64(cascadeMisses)*penaltyPlain, penaltyPlainCap)
		}
		pts = math.Max(0, pts-penalty)
	}

	// Step 5: sliding error cap. Phantom wrongs from skipped sessions count
	// at unit cost. Zero errors means no cap at all: 100 stays reachable.
	errors := t.Errors() + missing
	if errors > 0 {
		cost := float64(missing)
		for _, d := range t.Detail {
			if d.Correct == nil || *d.Correct {
				continue
			}
			class := exam.Medium
			if e, ok := cal.Lookup(exam.QuestionRef{Subject: subj.Name, Number: d.Number}); ok {
				class = e.Class
			}
			cost += errorCost(class)
		}
		ceiling := subj.OneErrorCap - (cost-1)*subj.ErrPenalty
		ceiling = math.Min(ceiling, subj.OneErrorCap)
		ceiling = math.Max(ceiling, capFloor)
		pts = math.Min(pts, ceiling)
	}

	t.Score = int(math.Round(pts))
}

// Student scores every configured subject of a reconciled record, creating
// explicit zero tallies for subjects the student never sat, then aggregates
// the global score and tier.
func Student(rec *exam.StudentRecord, cfg config.Config, cal exam.CalibrationSet, curve Curve) {
	for _, subj := range cfg.Subjects {
		t := rec.Tally(subj.Name)
		Subject(t, subj, rec.Sessions, cal, curve, cfg.CapFloor)
	}
	Aggregate(rec, cfg)
}

func hasLabel(labels []string, l string) bool {
	for _, x := range labels {
		if x == l {
			return true
		}
	}
	return false
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
