package exam

// QuestionRef addresses one question inside the exam structure.
// Subjects are the normalized names the ingestion adapter emits
// ("matemáticas", "lectura crítica", ...).
type QuestionRef struct {
	Subject string
	Number  int
}

// Identity carries the personal fields collected on each answer sheet.
// JSON tags keep the wire format the downstream dashboard already reads.
type Identity struct {
	IDNumber    string `json:"numero_identificacion"`
	IDType      string `json:"tipo_identificacion,omitempty"`
	Names       string `json:"nombres"`
	Surnames    string `json:"apellidos"`
	Email       string `json:"correo_electronico,omitempty"`
	Phone       string `json:"telefono,omitempty"`
	Institution string `json:"institucion,omitempty"`
	Department  string `json:"departamento,omitempty"`
}

// RawRecord is one student's submission in one session, already tagged by
// (subject, question) upstream. A missing or blank answer means "no response".
type RawRecord struct {
	Identity    Identity
	Session     string
	SubmittedAt string // raw timestamp text from the sheet, may be unparseable
	Examinee    string // ESTUDIANTE, DOCENTE, ...
	Answers     map[QuestionRef]string
}

// Answer returns the chosen option for ref and whether the session sheet
// carried a column for it at all.
func (r RawRecord) Answer(ref QuestionRef) (string, bool) {
	a, ok := r.Answers[ref]
	return a, ok
}

// QuestionOutcome is the per-question grading detail. Correct is nil for
// invalidated (voided) items, which contribute to neither numerator nor
// denominator.
type QuestionOutcome struct {
	Number      int    `json:"numero"`
	Chosen      string `json:"respuesta_estudiante"`
	Key         string `json:"respuesta_correcta"`
	Correct     *bool  `json:"es_correcta"`
	Invalidated bool   `json:"invalidada,omitempty"`
}

// SubjectTally accumulates one student's results for one subject.
// Answered counts only questions the student actually sat; Missing is the
// official question count of sessions the student skipped, recomputed on every
// scoring pass so re-scoring a loaded record is idempotent. Total is always
// Answered+Missing after scoring.
type SubjectTally struct {
	Correct  int               `json:"correctas"`
	Answered int               `json:"preguntas_respondidas"`
	Missing  int               `json:"preguntas_faltantes"`
	Total    int               `json:"total_preguntas"`
	RawPct   float64           `json:"porcentaje_real"`
	Score    int               `json:"puntaje"`
	Detail   []QuestionOutcome `json:"detalle,omitempty"`
}

// Errors counts graded, non-invalidated wrong answers in the detail list.
// Questions from skipped sessions are not in the detail and are tracked
// separately via Missing.
func (t *SubjectTally) Errors() int {
	n := 0
	for _, d := range t.Detail {
		if d.Correct != nil && !*d.Correct {
			n++
		}
	}
	return n
}

// SessionTotal is the per-session correct/answered pair kept for reporting.
type SessionTotal struct {
	Correct int `json:"aciertos"`
	Total   int `json:"total"`
}

// StudentRecord is the reconciled, authoritative unit: one physical student
// across all sessions.
type StudentRecord struct {
	Identity Identity                 `json:"informacion_personal"`
	Examinee string                   `json:"tipo,omitempty"`
	Fecha    string                   `json:"fecha,omitempty"`
	Sessions []string                 `json:"sesiones"`
	PerSess  map[string]SessionTotal  `json:"aciertos_por_sesion,omitempty"`
	Subjects map[string]*SubjectTally `json:"puntajes"`
	Global   int                      `json:"puntaje_global"`
	Tier     string                   `json:"nivel_desempeno,omitempty"`

	// Reconciliation bookkeeping, not part of the report payload.
	MatchedBy string `json:"-"`
	Orphan    bool   `json:"-"`
}

// HasSession reports whether the student completed the labeled session.
func (s *StudentRecord) HasSession(label string) bool {
	for _, l := range s.Sessions {
		if l == label {
			return true
		}
	}
	return false
}

// Tally returns the subject tally, creating an empty one if absent. Subjects
// the student never sat must still be represented so the curver can treat
// them as all-wrong rather than no-data.
func (s *StudentRecord) Tally(subject string) *SubjectTally {
	if s.Subjects == nil {
		s.Subjects = map[string]*SubjectTally{}
	}
	t, ok := s.Subjects[subject]
	if !ok {
		t = &SubjectTally{}
		s.Subjects[subject] = t
	}
	return t
}
