// Package calibrate computes per-question difficulty statistics from one
// session's full response set, following the ICFES item-analysis cutoffs.
package calibrate

import (
	"log/slog"

	"github.com/mind-engage/simulacro-scoring/internal/exam"
)

// Classify maps a difficulty index p = correct/total onto the discrete class,
// its scoring weight, and the cascade flag. Cascade items are the easy ones
// whose misses signal inconsistency and are penalized hardest.
func Classify(p float64) (exam.Difficulty, float64, bool) {
	switch {
	case p >= 0.75:
		return exam.VeryEasy, 1.0, true
	case p >= 0.55:
		return exam.Easy, 1.5, true
	case p >= 0.35:
		return exam.Medium, 2.0, false
	case p >= 0.25:
		return exam.Hard, 2.5, false
	default:
		return exam.VeryHard, 3.0, false
	}
}

// Run calibrates every keyed question against the session's responses.
// The denominator is the full respondent count: a blank answer is a miss,
// not an exclusion. Key entries no respondent sheet carried are skipped
// silently, so coverage may be partial per subject.
func Run(key *exam.AnswerKey, records []exam.RawRecord, session string) []exam.CalibrationEntry {
	var out []exam.CalibrationEntry
	total := len(records)
	if total == 0 {
		return out
	}

	perSubject := map[string]*subjectStats{}
	for _, ref := range key.Refs() {
		seen := false
		correct := 0
		for _, rec := range records {
			a, ok := rec.Answer(ref)
			if !ok {
				continue
			}
			seen = true
			if key.Accepts(ref, a) {
				correct++
			}
		}
		if !seen {
			// Key column with no matching response column: reduced coverage,
			// not an error.
			continue
		}

		p := float64(correct) / float64(total)
		class, weight, cascade := Classify(p)
		out = append(out, exam.CalibrationEntry{
			Subject: ref.Subject,
			Number:  ref.Number,
			P:       p,
			Class:   class,
			Weight:  weight,
			Cascade: cascade,
			Correct: correct,
			Total:   total,
			Session: session,
		})

		st := perSubject[ref.Subject]
		if st == nil {
			st = &subjectStats{}
			perSubject[ref.Subject] = st
		}
		st.items++
		if cascade {
			st.cascades++
		}
		if class == exam.Hard || class == exam.VeryHard {
			st.hard++
		}
	}

	for subject, st := range perSubject {
		slog.Debug("calibrated subject",
			"session", session, "subject", subject,
			"items", st.items, "cascades", st.cascades, "hard", st.hard)
	}
	return out
}

type subjectStats struct {
	items, cascades, hard int
}

// Set indexes entries from one or more sessions into a CalibrationSet.
func Set(entries ...[]exam.CalibrationEntry) exam.CalibrationSet {
	set := exam.CalibrationSet{}
	for _, batch := range entries {
		for _, e := range batch {
			set.Add(e)
		}
	}
	return set
}
