package ingest

import (
	"errors"
	"testing"

	"github.com/mind-engage/simulacro-scoring/internal/exam"
)

const sessionArrayForm = `{
  "sesion": "s1",
  "claves": [
    {"materia": "matemáticas", "numero": 1, "clave": "A"},
    {"materia": "matemáticas", "numero": 2, "clave": "B-D"},
    {"materia": "lectura crítica", "numero": 1, "clave": "C"}
  ],
  "registros": [
    {
      "numero_identificacion": "1002458996",
      "nombres": "Ana",
      "apellidos": "López",
      "correo_electronico": "ana@mail.com",
      "marca_temporal": "3/03/2026 10:00:00",
      "tipo_examen": "ESTUDIANTE",
      "respuestas": [
        {"materia": "matemáticas", "numero": 1, "respuesta": "A"},
        {"materia": "matemáticas", "numero": 2, "respuesta": "D"},
        {"materia": "lectura crítica", "numero": 1, "respuesta": "B"}
      ]
    }
  ]
}`

const sessionObjectForm = `{
  "claves": [
    {"materia": "inglés", "numero": 1, "clave": "A"}
  ],
  "registros": [
    {
      "documento": "1002458996",
      "nombre": "Ana",
      "apellido": "López",
      "email": "ana@mail.com",
      "respuestas": {
        "inglés": {"1": "A", "2": "C"}
      }
    }
  ]
}`

func TestParseSessionArrayForm(t *testing.T) {
	s, err := ParseSession([]byte(sessionArrayForm), "")
	if err != nil {
		t.Fatalf("ParseSession: %v", err)
	}
	if s.Label != "S1" {
		t.Errorf("Label = %q, want S1 (upper-cased from the document)", s.Label)
	}
	if s.Key.Len() != 3 {
		t.Errorf("key has %d entries, want 3", s.Key.Len())
	}
	if !s.Key.Accepts(exam.QuestionRef{Subject: "matemáticas", Number: 2}, "d") {
		t.Error("dash-delimited key did not accept a listed option")
	}
	if len(s.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(s.Records))
	}
	rec := s.Records[0]
	if rec.Identity.IDNumber != "1002458996" || rec.Identity.Email != "ana@mail.com" {
		t.Errorf("identity = %+v", rec.Identity)
	}
	if rec.SubmittedAt != "3/03/2026 10:00:00" || rec.Examinee != "ESTUDIANTE" {
		t.Errorf("metadata = %q / %q", rec.SubmittedAt, rec.Examinee)
	}
	if got, _ := rec.Answer(exam.QuestionRef{Subject: "matemáticas", Number: 2}); got != "D" {
		t.Errorf("answer = %q, want D", got)
	}
}

func TestParseSessionObjectForm(t *testing.T) {
	s, err := ParseSession([]byte(sessionObjectForm), "S2")
	if err != nil {
		t.Fatalf("ParseSession: %v", err)
	}
	if s.Label != "S2" {
		t.Errorf("Label = %q, want fallback S2", s.Label)
	}
	rec := s.Records[0]
	// Fallback field names resolve to the same identity slots.
	if rec.Identity.IDNumber != "1002458996" || rec.Identity.Names != "Ana" {
		t.Errorf("identity fallback fields: %+v", rec.Identity)
	}
	if len(rec.Answers) != 2 {
		t.Fatalf("got %d answers, want 2", len(rec.Answers))
	}
	if got, _ := rec.Answer(exam.QuestionRef{Subject: "inglés", Number: 2}); got != "C" {
		t.Errorf("answer = %q, want C", got)
	}
}

func TestParseSessionFatalConditions(t *testing.T) {
	cases := []struct {
		name, doc, label string
	}{
		{"invalid json", `{nope`, "S1"},
		{"no label", `{"claves":[{"materia":"x","numero":1,"clave":"A"}],"registros":[{}]}`, ""},
		{"no key", `{"sesion":"S1","claves":[],"registros":[{}]}`, ""},
		{"no records", `{"sesion":"S1","claves":[{"materia":"x","numero":1,"clave":"A"}],"registros":[]}`, ""},
	}
	for _, tc := range cases {
		_, err := ParseSession([]byte(tc.doc), tc.label)
		if !errors.Is(err, ErrSessionUnprocessable) {
			t.Errorf("%s: err = %v, want ErrSessionUnprocessable", tc.name, err)
		}
	}
}

func TestLabelFromFilename(t *testing.T) {
	cases := []struct {
		path, want string
	}{
		{"data/respuestas_s1.json", "S1"},
		{"SESION 2.json", "S2"},
		{"export.json", ""},
	}
	for _, tc := range cases {
		if got := labelFromFilename(tc.path); got != tc.want {
			t.Errorf("labelFromFilename(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}
