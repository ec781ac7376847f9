// Package reconcile merges per-session student records into one record per
// physical student. Input identity data is unreliable: IDs arrive with stray
// punctuation, names with inconsistent accents and spacing, emails present in
// only one session. Matching runs over normalized keys in a fixed reliability
// order so a malformed ID cannot cause a false merge that a good email would
// have prevented.
package reconcile

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mind-engage/simulacro-scoring/internal/exam"
)

// Ambiguity is a record whose usable identity keys resolved to two different
// existing students. It is set aside for manual review, never merged by guess.
type Ambiguity struct {
	Record  *exam.StudentRecord
	Session string
	Targets []string // canonical keys of the conflicting students
}

// Reconciler accumulates sessions one record at a time. Mutation is strictly
// sequential; merges into the same student must never interleave.
type Reconciler struct {
	students map[string]*exam.StudentRecord
	order    []string
	fechas   map[string]time.Time

	byEmail map[string]string
	byName  map[string]string
	byID    map[string]string

	matches   int
	orphans   []string
	ambiguous []Ambiguity
	anonSeq   int
}

func New() *Reconciler {
	return &Reconciler{
		students: map[string]*exam.StudentRecord{},
		fechas:   map[string]time.Time{},
		byEmail:  map[string]string{},
		byName:   map[string]string{},
		byID:     map[string]string{},
	}
}

// Absorb merges one per-session record into the pool. Match priority:
// normalized email, then identification number, then name key; the first hit
// wins and no hit makes a new student. When two keys hit different students
// the record is set aside as ambiguous.
func (r *Reconciler) Absorb(rec *exam.StudentRecord, session string) {
	email := NormEmail(rec.Identity.Email)
	id := CleanID(rec.Identity.IDNumber)
	name := NameKey(rec.Identity.Names, rec.Identity.Surnames)

	var hits []string
	seen := map[string]bool{}
	lookup := func(idx map[string]string, key string) {
		if key == "" {
			return
		}
		if canon, ok := idx[key]; ok && !seen[canon] {
			seen[canon] = true
			hits = append(hits, canon)
		}
	}
	lookup(r.byEmail, email)
	lookup(r.byID, id)
	lookup(r.byName, name)

	switch {
	case len(hits) > 1:
		r.ambiguous = append(r.ambiguous, Ambiguity{Record: rec, Session: session, Targets: hits})
		slog.Warn("ambiguous identity match, record set aside",
			"session", session, "id", rec.Identity.IDNumber, "targets", hits)
		return
	case len(hits) == 1:
		canon := hits[0]
		switch {
		case email != "" && r.byEmail[email] == canon:
			rec.MatchedBy = "correo"
		case id != "" && r.byID[id] == canon:
			rec.MatchedBy = "id"
		default:
			rec.MatchedBy = "nombre"
		}
		r.matches++
		r.merge(r.students[canon], rec, session)
		r.index(canon, email, id, name)
		r.fold(canon, rec.Fecha)
		return
	}

	// New student. The canonical key is the cleaned ID when usable, otherwise
	// a synthetic one; a record with no usable key at all is an orphan that
	// must surface rather than vanish.
	canon := id
	if canon == "" {
		if email != "" {
			canon = email
		} else if name != "" {
			canon = name
		} else {
			r.anonSeq++
			canon = fmt.Sprintf("sin-identidad-%d", r.anonSeq)
			rec.Orphan = true
			r.orphans = append(r.orphans, canon)
			slog.Warn("record without usable identity key", "session", session, "key", canon)
		}
	}
	if !rec.HasSession(session) {
		rec.Sessions = append(rec.Sessions, session)
	}
	r.students[canon] = rec
	r.order = append(r.order, canon)
	r.index(canon, email, id, name)
	r.fold(canon, rec.Fecha)
}

func (r *Reconciler) index(canon, email, id, name string) {
	if email != "" {
		if _, taken := r.byEmail[email]; !taken {
			r.byEmail[email] = canon
		}
	}
	if id != "" {
		if _, taken := r.byID[id]; !taken {
			r.byID[id] = canon
		}
	}
	if name != "" {
		if _, taken := r.byName[name]; !taken {
			r.byName[name] = canon
		}
	}
}

// merge folds src (one session's grading of one student) into dst. Tally
// counts only ever grow; a session already present is a duplicate submission
// and is skipped whole.
func (r *Reconciler) merge(dst, src *exam.StudentRecord, session string) {
	if dst.HasSession(session) {
		slog.Debug("duplicate submission ignored", "session", session, "id", src.Identity.IDNumber)
		return
	}
	dst.Sessions = append(dst.Sessions, session)

	for subject, t := range src.Subjects {
		if cur, ok := dst.Subjects[subject]; ok {
			cur.Correct += t.Correct
			cur.Answered += t.Answered
			cur.Detail = append(cur.Detail, t.Detail...)
		} else {
			dst.Tally(subject)
			*dst.Subjects[subject] = *t
		}
	}
	for label, st := range src.PerSess {
		if dst.PerSess == nil {
			dst.PerSess = map[string]exam.SessionTotal{}
		}
		dst.PerSess[label] = st
	}
	fillIdentity(&dst.Identity, src.Identity)
	if dst.Examinee == "" {
		dst.Examinee = src.Examinee
	}
}

// fold keeps the most recent valid submission date; an unparseable date never
// overwrites a previously valid one.
func (r *Reconciler) fold(canon, raw string) {
	t := ParseFecha(raw)
	if t.IsZero() {
		return
	}
	if best, ok := r.fechas[canon]; !ok || t.After(best) {
		r.fechas[canon] = t
	}
}

// fillIdentity completes blank fields from the incoming record, so an email
// entered in only one session survives the merge.
func fillIdentity(dst *exam.Identity, src exam.Identity) {
	if dst.Email == "" {
		dst.Email = src.Email
	}
	if dst.Phone == "" {
		dst.Phone = src.Phone
	}
	if dst.Institution == "" {
		dst.Institution = src.Institution
	}
	if dst.Department == "" {
		dst.Department = src.Department
	}
	if dst.IDType == "" {
		dst.IDType = src.IDType
	}
	if dst.Names == "" {
		dst.Names = src.Names
	}
	if dst.Surnames == "" {
		dst.Surnames = src.Surnames
	}
	if dst.IDNumber == "" {
		dst.IDNumber = src.IDNumber
	}
}

// Result is the reconciled pool in first-seen order.
type Result struct {
	Students  []*exam.StudentRecord
	Keys      []string
	Matches   int
	Orphans   []string
	Ambiguous []Ambiguity
}

// Finish renders the reconciled fechas back onto the records and returns the
// pool. The reconciler must not be reused afterwards.
func (r *Reconciler) Finish() Result {
	res := Result{
		Keys:      r.order,
		Matches:   r.matches,
		Orphans:   r.orphans,
		Ambiguous: r.ambiguous,
	}
	for _, canon := range r.order {
		s := r.students[canon]
		if t, ok := r.fechas[canon]; ok {
			s.Fecha = t.Format("2006-01-02 15:04:05")
		} else {
			s.Fecha = ""
		}
		res.Students = append(res.Students, s)
	}
	return res
}
