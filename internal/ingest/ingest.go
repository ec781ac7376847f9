// Package ingest loads normalized session export files into the core model.
// The upstream spreadsheet adapter has already discovered columns and tagged
// every answer with (subject, question); this package only tolerates the
// naming drift between form revisions, it never sniffs headers itself.
package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/mind-engage/simulacro-scoring/internal/exam"
)

// ErrSessionUnprocessable marks structurally fatal sessions: no answer key at
// all, or an empty response set. Everything milder degrades in place.
var ErrSessionUnprocessable = errors.New("session unprocessable")

// Session is one loaded export: its label, answer key, and raw records.
type Session struct {
	Label   string
	Key     *exam.AnswerKey
	Records []exam.RawRecord
}

// Field fallback chains: exports disagree on identity field naming across
// form revisions, so each slot is probed in order.
var (
	emailPaths = []string{"correo_electronico", "correo", "email"}
	idPaths    = []string{"numero_identificacion", "identificacion", "documento"}
	namePaths  = []string{"nombres", "nombre"}
	surPaths   = []string{"apellidos", "apellido"}
	phonePaths = []string{"telefono", "whatsapp", "celular"}
	instPaths  = []string{"institucion", "colegio"}
	deptPaths  = []string{"departamento", "municipio"}
	datePaths  = []string{"marca_temporal", "timestamp", "fecha"}
	typePaths  = []string{"tipo_identificacion"}
	examPaths  = []string{"tipo_examen", "tipo"}
)

func firstString(v gjson.Result, paths []string) string {
	for _, p := range paths {
		if r := v.Get(p); r.Exists() {
			return strings.TrimSpace(r.String())
		}
	}
	return ""
}

// LoadSession reads one session export from path.
func LoadSession(path string) (*Session, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	return ParseSession(raw, labelFromFilename(path))
}

// ParseSession decodes a session export. fallbackLabel is used when the file
// carries no "sesion" field.
func ParseSession(raw []byte, fallbackLabel string) (*Session, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrSessionUnprocessable)
	}
	doc := gjson.ParseBytes(raw)

	label := strings.ToUpper(strings.TrimSpace(doc.Get("sesion").String()))
	if label == "" {
		label = fallbackLabel
	}
	if label == "" {
		return nil, fmt.Errorf("%w: no session label", ErrSessionUnprocessable)
	}

	key := exam.NewAnswerKey()
	doc.Get("claves").ForEach(func(_, entry gjson.Result) bool {
		subject := strings.TrimSpace(entry.Get("materia").String())
		number := int(entry.Get("numero").Int())
		clave := entry.Get("clave").String()
		if subject != "" && number > 0 {
			key.Add(exam.QuestionRef{Subject: subject, Number: number}, clave)
		}
		return true
	})
	if key.Len() == 0 {
		return nil, fmt.Errorf("%w: session %s has no answer key", ErrSessionUnprocessable, label)
	}

	var records []exam.RawRecord
	doc.Get("registros").ForEach(func(_, r gjson.Result) bool {
		records = append(records, parseRecord(r, label))
		return true
	})
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: session %s has no records", ErrSessionUnprocessable, label)
	}

	return &Session{Label: label, Key: key, Records: records}, nil
}

func parseRecord(r gjson.Result, session string) exam.RawRecord {
	rec := exam.RawRecord{
		Session:     session,
		SubmittedAt: firstString(r, datePaths),
		Examinee:    firstString(r, examPaths),
		Identity: exam.Identity{
			IDNumber:    firstString(r, idPaths),
			IDType:      firstString(r, typePaths),
			Names:       firstString(r, namePaths),
			Surnames:    firstString(r, surPaths),
			Email:       firstString(r, emailPaths),
			Phone:       firstString(r, phonePaths),
			Institution: firstString(r, instPaths),
			Department:  firstString(r, deptPaths),
		},
		Answers: map[exam.QuestionRef]string{},
	}

	// Older exports ship answers as an array of tagged objects; newer ones as
	// a subject-keyed object of number->option maps. Both collapse to the
	// same tagged container here so nothing downstream branches on shape.
	resp := r.Get("respuestas")
	if resp.IsArray() {
		resp.ForEach(func(_, a gjson.Result) bool {
			subject := strings.TrimSpace(a.Get("materia").String())
			number := int(a.Get("numero").Int())
			if subject != "" && number > 0 {
				rec.Answers[exam.QuestionRef{Subject: subject, Number: number}] = a.Get("respuesta").String()
			}
			return true
		})
	} else if resp.IsObject() {
		resp.ForEach(func(subject, byNumber gjson.Result) bool {
			byNumber.ForEach(func(num, answer gjson.Result) bool {
				if n := int(num.Int()); n > 0 {
					rec.Answers[exam.QuestionRef{Subject: subject.String(), Number: n}] = answer.String()
				}
				return true
			})
			return true
		})
	}
	return rec
}

// labelFromFilename recovers the session label from names like
// "respuestas_s1.json" or "SESION 2.json".
func labelFromFilename(path string) string {
	name := strings.ToUpper(filepath.Base(path))
	switch {
	case strings.Contains(name, "S1") || strings.Contains(name, "SESION 1"):
		return "S1"
	case strings.Contains(name, "S2") || strings.Contains(name, "SESION 2"):
		return "S2"
	default:
		return ""
	}
}
