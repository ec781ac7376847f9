package score

import (
	"math"
	"testing"

	"github.com/mind-engage/simulacro-scoring/internal/config"
	"github.com/mind-engage/simulacro-scoring/internal/exam"
)

func boolp(b bool) *bool { return &b }

func testSubject() config.Subject {
	return config.Subject{
		Name:        "matemáticas",
		Weight:      3,
		Questions:   map[string]int{"S1": 2, "S2": 2},
		OneErrorCap: 86,
		ErrPenalty:  2,
	}
}

func linear() Curve {
	c, _ := Lookup("linear")
	return c
}

func outcome(n int, correct bool) exam.QuestionOutcome {
	return exam.QuestionOutcome{Number: n, Correct: boolp(correct)}
}

func TestSubjectPerfect(t *testing.T) {
	tally := &exam.SubjectTally{
		Correct:  4,
		Answered: 4,
		Detail:   []exam.QuestionOutcome{outcome(1, true), outcome(2, true), outcome(3, true), outcome(4, true)},
	}
	Subject(tally, testSubject(), []string{"S1", "S2"}, nil, linear(), 40)

	if tally.Missing != 0 || tally.Total != 4 {
		t.Fatalf("Missing=%d Total=%d, want 0/4", tally.Missing, tally.Total)
	}
	if tally.RawPct != 100 {
		t.Errorf("RawPct = %v, want 100", tally.RawPct)
	}
	// Zero errors: the cap does not engage and 100 stays reachable.
	if tally.Score != 100 {
		t.Errorf("Score = %d, want 100", tally.Score)
	}
}

func TestSubjectSkippedSessionCountsAsWrong(t *testing.T) {
	tally := &exam.SubjectTally{
		Correct:  2,
		Answered: 2,
		Detail:   []exam.QuestionOutcome{outcome(1, true), outcome(2, true)},
	}
	Subject(tally, testSubject(), []string{"S1"}, nil, linear(), 40)

	if tally.Missing != 2 {
		t.Fatalf("Missing = %d, want 2", tally.Missing)
	}
	if tally.Total != 4 {
		t.Fatalf("Total = %d, want 4", tally.Total)
	}
	if tally.RawPct != 50 {
		t.Errorf("RawPct = %v, want 50", tally.RawPct)
	}
	if tally.Score != 50 {
		t.Errorf("Score = %d, want 50", tally.Score)
	}
}

func TestSubjectZeroCorrect(t *testing.T) {
	tally := &exam.SubjectTally{
		Answered: 4,
		Detail:   []exam.QuestionOutcome{outcome(1, false), outcome(2, false), outcome(3, false), outcome(4, false)},
	}
	Subject(tally, testSubject(), []string{"S1", "S2"}, nil, linear(), 40)
	if tally.RawPct != 0 || tally.Score != 0 {
		t.Errorf("RawPct=%v Score=%d, want 0/0", tally.RawPct, tally.Score)
	}
}

func TestSubjectNoDataAtAll(t *testing.T) {
	subj := testSubject()
	subj.Questions = map[string]int{}
	tally := &exam.SubjectTally{}
	Subject(tally, subj, nil, nil, linear(), 40)
	if tally.Total != 0 || tally.Score != 0 {
		t.Errorf("Total=%d Score=%d, want 0/0", tally.Total, tally.Score)
	}
}

func TestSubjectSlidingCap(t *testing.T) {
	// A generous curve so the error ceiling is what binds.
	generous := Curve(func(float64) float64 { return 95 })

	// One uncalibrated error: unit cost, ceiling stays at the one-error cap.
	tally := &exam.SubjectTally{
		Correct:  3,
		Answered: 4,
		Detail:   []exam.QuestionOutcome{outcome(1, true), outcome(2, true), outcome(3, true), outcome(4, false)},
	}
	Subject(tally, testSubject(), []string{"S1", "S2"}, nil, generous, 40)
	if tally.Score != 86 {
		t.Errorf("one error: Score = %d, want 86", tally.Score)
	}

	// Two errors: ceiling slides down by one penalty step.
	tally = &exam.SubjectTally{
		Correct:  2,
		Answered: 4,
		Detail:   []exam.QuestionOutcome{outcome(1, true), outcome(2, true), outcome(3, false), outcome(4, false)},
	}
	Subject(tally, testSubject(), []string{"S1", "S2"}, nil, generous, 40)
	if tally.Score != 84 {
		t.Errorf("two errors: Score = %d, want 84", tally.Score)
	}
}

func TestSubjectCapFloor(t *testing.T) {
	generous := Curve(func(float64) float64 { return 95 })
	subj := testSubject()
	subj.Questions = map[string]int{"S1": 30}

	// 29 errors would push the ceiling far below the floor.
	tally := &exam.SubjectTally{Correct: 1, Answered: 30}
	for i := 1; i <= 30; i++ {
		tally.Detail = append(tally.Detail, outcome(i, i == 1))
	}
	Subject(tally, subj, []string{"S1"}, nil, generous, 40)
	if tally.Score != 40 {
		t.Errorf("Score = %d, want floor 40", tally.Score)
	}
}

func TestSubjectCalibratedWeighting(t *testing.T) {
	subj := testSubject()
	subj.Questions = map[string]int{"S1": 2}
	cal := exam.CalibrationSet{}
	cal.Add(exam.CalibrationEntry{Subject: subj.Name, Number: 1, Class: exam.VeryEasy, Weight: 1.0, Cascade: true})
	cal.Add(exam.CalibrationEntry{Subject: subj.Name, Number: 2, Class: exam.Hard, Weight: 2.5})

	// Easy item missed, hard item hit: weighted 2.5/3.5, then the full
	// inconsistency penalty because a hard hit accompanies the cascade miss.
	tally := &exam.SubjectTally{
		Correct:  1,
		Answered: 2,
		Detail:   []exam.QuestionOutcome{outcome(1, false), outcome(2, true)},
	}
	Subject(tally, subj, []string{"S1"}, cal, linear(), 40)

	if want := 71.43; tally.RawPct != want {
		t.Errorf("RawPct = %v, want %v", tally.RawPct, want)
	}
	// 71.4285... - 1.0 penalty = 70.4285..., cap 86-(1.3-1)*2 = 85.4 not binding.
	if tally.Score != 70 {
		t.Errorf("Score = %d, want 70", tally.Score)
	}
}

func TestSubjectPlainPenaltyWithoutHardHit(t *testing.T) {
	subj := testSubject()
	subj.Questions = map[string]int{"S1": 2}
	cal := exam.CalibrationSet{}
	cal.Add(exam.CalibrationEntry{Subject: subj.Name, Number: 1, Class: exam.VeryEasy, Weight: 1.0, Cascade: true})
	cal.Add(exam.CalibrationEntry{Subject: subj.Name, Number: 2, Class: exam.Medium, Weight: 2.0})

	tally := &exam.SubjectTally{
		Correct:  1,
		Answered: 2,
		Detail:   []exam.QuestionOutcome{outcome(1, false), outcome(2, true)},
	}
	Subject(tally, subj, []string{"S1"}, cal, linear(), 40)

	// 2.0/3.0 = 66.67 weighted, minus the half-point penalty = 66.17 -> 66.
	if want := 66.67; tally.RawPct != want {
		t.Errorf("RawPct = %v, want %v", tally.RawPct, want)
	}
	if tally.Score != 66 {
		t.Errorf("Score = %d, want 66", tally.Score)
	}
}

func TestSubjectWeightedMissingSessionGuard(t *testing.T) {
	// A student who only sat S1 cannot reach 100% just because every attempted
	// item was correct: skipped questions join the denominator at unit weight.
	subj := testSubject()
	cal := exam.CalibrationSet{}
	cal.Add(exam.CalibrationEntry{Subject: subj.Name, Number: 1, Class: exam.VeryHard, Weight: 3.0})
	cal.Add(exam.CalibrationEntry{Subject: subj.Name, Number: 2, Class: exam.VeryHard, Weight: 3.0})

	tally := &exam.SubjectTally{
		Correct:  2,
		Answered: 2,
		Detail:   []exam.QuestionOutcome{outcome(1, true), outcome(2, true)},
	}
	Subject(tally, subj, []string{"S1"}, cal, linear(), 40)

	// got 6 of possible 6+2 = 75%.
	if want := 75.0; tally.RawPct != want {
		t.Errorf("RawPct = %v, want %v", tally.RawPct, want)
	}
	if tally.RawPct >= 100 {
		t.Error("skipped session inflated the weighted percentage to 100")
	}
}

func TestSubjectNearPerfectWithOneEasyError(t *testing.T) {
	// 24 of 25 with the single error on an easy item: curved 96% meets the
	// cascade penalty and a barely-lowered ceiling.
	subj := testSubject()
	subj.Questions = map[string]int{"S1": 25}
	cal := exam.CalibrationSet{}
	tally := &exam.SubjectTally{Correct: 24, Answered: 25}
	for i := 1; i <= 25; i++ {
		cal.Add(exam.CalibrationEntry{Subject: subj.Name, Number: i, Class: exam.Easy, Weight: 1.5, Cascade: true})
		tally.Detail = append(tally.Detail, outcome(i, i != 25))
	}
	curve, _ := Lookup("sg11")
	Subject(tally, subj, []string{"S1"}, cal, curve, 40)

	if tally.RawPct != 96 {
		t.Errorf("RawPct = %v, want 96", tally.RawPct)
	}
	// sg11(96) = 86, minus the 0.5 plain penalty = 85.5; the one-error
	// ceiling is 86 - (1.1-1)*2 = 85.8 and does not bind. Rounds to 86.
	if tally.Score != 86 {
		t.Errorf("Score = %d, want 86", tally.Score)
	}
}

func TestSubjectVoidedItemsExcluded(t *testing.T) {
	subj := testSubject()
	subj.Questions = map[string]int{"S1": 2}
	tally := &exam.SubjectTally{
		Correct:  1,
		Answered: 1,
		Detail: []exam.QuestionOutcome{
			outcome(1, true),
			{Number: 2, Correct: nil, Invalidated: true},
		},
	}
	Subject(tally, subj, []string{"S1"}, nil, linear(), 40)
	if tally.RawPct != 100 {
		t.Errorf("RawPct = %v, want 100 (voided item out of both sides)", tally.RawPct)
	}
	if tally.Score != 100 {
		t.Errorf("Score = %d, want 100", tally.Score)
	}
}

func TestSubjectIdempotent(t *testing.T) {
	cal := exam.CalibrationSet{}
	cal.Add(exam.CalibrationEntry{Subject: "matemáticas", Number: 1, Class: exam.Easy, Weight: 1.5, Cascade: true})
	cal.Add(exam.CalibrationEntry{Subject: "matemáticas", Number: 2, Class: exam.Medium, Weight: 2.0})

	tally := &exam.SubjectTally{
		Correct:  1,
		Answered: 2,
		Detail:   []exam.QuestionOutcome{outcome(1, true), outcome(2, false)},
	}
	subj := testSubject()
	Subject(tally, subj, []string{"S1"}, cal, linear(), 40)
	first := *tally
	Subject(tally, subj, []string{"S1"}, cal, linear(), 40)

	if tally.Missing != first.Missing || tally.Total != first.Total ||
		tally.RawPct != first.RawPct || tally.Score != first.Score {
		t.Errorf("re-scoring drifted: first %+v, second %+v", first, *tally)
	}
}

func TestErrorCost(t *testing.T) {
	cases := []struct {
		class exam.Difficulty
		want  float64
	}{
		{exam.VeryEasy, 1.3},
		{exam.Easy, 1.1},
		{exam.Medium, 1.0},
		{exam.Hard, 0.7},
		{exam.VeryHard, 0.5},
		{exam.Difficulty("unknown"), 1.0},
	}
	for _, tc := range cases {
		if got := errorCost(tc.class); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("errorCost(%s) = %v, want %v", tc.class, got, tc.want)
		}
	}
}

func TestStudentFillsAllSubjects(t *testing.T) {
	cfg := config.Default()
	cfg.Curve = "linear"
	curve, _ := Lookup("linear")

	rec := &exam.StudentRecord{Sessions: []string{"S1"}}
	rec.Tally("matemáticas").Correct = 10
	rec.Subjects["matemáticas"].Answered = 25
	Student(rec, cfg, nil, curve)

	for _, subj := range cfg.Subjects {
		if _, ok := rec.Subjects[subj.Name]; !ok {
			t.Errorf("subject %q missing from scored record", subj.Name)
		}
	}
	if rec.Tier == "" {
		t.Error("tier not assigned")
	}
}
