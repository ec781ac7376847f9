// Package grade scores one student's answers against one session's answer
// key. It is pure: all results come back in the returned tallies.
package grade

import (
	"strings"

	"github.com/mind-engage/simulacro-scoring/internal/exam"
)

// VoidFunc reports whether (subject, number) is invalidated for the session
// being graded. Invalidated items are recorded in the detail with
// correctness nil and move neither counter.
type VoidFunc func(subject string, number int) bool

// Session grades rec against key. Only questions present in both the key and
// the record's sheet are considered: a response column with no key entry, or
// a key entry the sheet never carried, is skipped silently. The detail list
// follows the key's stable subject/number order.
func Session(rec exam.RawRecord, key *exam.AnswerKey, voided VoidFunc) map[string]*exam.SubjectTally {
	tallies := map[string]*exam.SubjectTally{}

	for _, ref := range key.Refs() {
		answer, ok := rec.Answer(ref)
		if !ok {
			continue
		}
		t := tallies[ref.Subject]
		if t == nil {
			t = &exam.SubjectTally{}
			tallies[ref.Subject] = t
		}

		chosen := strings.ToUpper(strings.TrimSpace(answer))
		if voided != nil && voided(ref.Subject, ref.Number) {
			t.Detail = append(t.Detail, exam.QuestionOutcome{
				Number:      ref.Number,
				Chosen:      chosen,
				Key:         "*ANULADA*",
				Correct:     nil,
				Invalidated: true,
			})
			continue
		}

		correct := key.Accepts(ref, chosen)
		t.Answered++
		if correct {
			t.Correct++
		}
		t.Detail = append(t.Detail, exam.QuestionOutcome{
			Number:  ref.Number,
			Chosen:  chosen,
			Key:     key.Display(ref),
			Correct: &correct,
		})
	}
	return tallies
}

// Totals sums correct/answered across subjects, for the per-session counters
// kept on the student record.
func Totals(tallies map[string]*exam.SubjectTally) exam.SessionTotal {
	var st exam.SessionTotal
	for _, t := range tallies {
		st.Correct += t.Correct
		st.Total += t.Answered
	}
	return st
}
