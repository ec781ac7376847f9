package exam

// Difficulty is the discrete item classification derived from the difficulty
// index p. String values match the persisted calibration format.
type Difficulty string

const (
	VeryEasy Difficulty = "MUY_FACIL"
	Easy     Difficulty = "FACIL"
	Medium   Difficulty = "MEDIA"
	Hard     Difficulty = "DIFICIL"
	VeryHard Difficulty = "MUY_DIFICIL"
)

// CalibrationEntry holds the per-question difficulty statistics computed from
// one session's full response set. Read-only after calibration.
type CalibrationEntry struct {
	Subject string     `json:"materia"`
	Number  int        `json:"numero"`
	P       float64    `json:"indice_dificultad"`
	Class   Difficulty `json:"clasificacion"`
	Weight  float64    `json:"peso"`
	Cascade bool       `json:"es_cascara"`
	Correct int        `json:"aciertos"`
	Total   int        `json:"total"`
	Session string     `json:"sesion"`
}

// CalibrationSet indexes calibration entries by question for the curver.
// Absence of a subject means the curver falls back to unweighted scoring.
type CalibrationSet map[QuestionRef]CalibrationEntry

// Lookup returns the entry for ref. Entries referencing questions absent from
// the current answer key simply never get looked up, degrading to unweighted
// behavior for those items.
func (c CalibrationSet) Lookup(ref QuestionRef) (CalibrationEntry, bool) {
	e, ok := c[ref]
	return e, ok
}

// HasSubject reports whether any calibrated item exists for the subject.
func (c CalibrationSet) HasSubject(subject string) bool {
	for ref := range c {
		if ref.Subject == subject {
			return true
		}
	}
	return false
}

// Add indexes an entry, last write wins for duplicate refs.
func (c CalibrationSet) Add(e CalibrationEntry) {
	c[QuestionRef{Subject: e.Subject, Number: e.Number}] = e
}
