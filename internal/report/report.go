// Package report renders the run output the downstream dashboard consumes:
// the final results document and the per-question group statistics. JSON
// only; styling and spreadsheet rendering live outside this repo.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mind-engage/simulacro-scoring/internal/exam"
)

// Results is the top-level results document. Field order is fixed by the
// struct so re-serialization is stable.
type Results struct {
	Simulacro       string                `json:"simulacro"`
	ProcessedAt     string                `json:"fecha_procesamiento"`
	Curve           string                `json:"curva"`
	UsesCalibration bool                  `json:"usa_calibracion"`
	TotalStudents   int                   `json:"total_estudiantes"`
	Matches         int                   `json:"coincidencias_sesiones"`
	Orphans         []string              `json:"registros_sin_identidad,omitempty"`
	Ambiguous       []string              `json:"registros_ambiguos,omitempty"`
	Cohort          CohortStats           `json:"estadisticas_cohorte"`
	Students        []*exam.StudentRecord `json:"estudiantes"`
}

// CohortStats summarizes the positive global scores of the cohort.
type CohortStats struct {
	Mean   float64 `json:"media"`
	Median float64 `json:"mediana"`
	Min    int     `json:"min"`
	Max    int     `json:"max"`
}

// Cohort computes the summary; students with a zero global score (no usable
// sessions) are excluded so absentees don't drag the mean.
func Cohort(students []*exam.StudentRecord) CohortStats {
	var scores []int
	for _, s := range students {
		if s.Global > 0 {
			scores = append(scores, s.Global)
		}
	}
	if len(scores) == 0 {
		return CohortStats{}
	}
	sort.Ints(scores)
	sum := 0
	for _, v := range scores {
		sum += v
	}
	median := float64(scores[len(scores)/2])
	if len(scores)%2 == 0 {
		median = float64(scores[len(scores)/2-1]+scores[len(scores)/2]) / 2
	}
	return CohortStats{
		Mean:   math.Round(float64(sum)/float64(len(scores))*100) / 100,
		Median: median,
		Min:    scores[0],
		Max:    scores[len(scores)-1],
	}
}

// QuestionStat is the group-level distribution for one question.
type QuestionStat struct {
	Number       int                `json:"numero"`
	CorrectKey   string             `json:"respuesta_correcta"`
	Responses    int                `json:"total_respuestas"`
	Correct      int                `json:"aciertos"`
	HitPct       float64            `json:"porcentaje_acierto"`
	Distribution map[string]float64 `json:"distribucion"`
}

// GroupStats is the per-subject, per-question answer distribution document.
type GroupStats struct {
	Metadata struct {
		Simulacro   string `json:"simulacro"`
		Evaluated   int    `json:"total_evaluados"`
		GeneratedAt string `json:"fecha_generacion"`
	} `json:"metadata"`
	Subjects map[string]map[string]QuestionStat `json:"materias"`
}

// BuildGroupStats aggregates every student's detail into answer
// distributions. Invalidated items are skipped entirely.
func BuildGroupStats(simulacro string, students []*exam.StudentRecord, now time.Time) GroupStats {
	type acc struct {
		total, correct int
		counts         map[string]int
		key            string
	}
	subjects := map[string]map[int]*acc{}

	for _, s := range students {
		for subject, tally := range s.Subjects {
			for _, d := range tally.Detail {
				if d.Invalidated {
					continue
				}
				bySubject := subjects[subject]
				if bySubject == nil {
					bySubject = map[int]*acc{}
					subjects[subject] = bySubject
				}
				a := bySubject[d.Number]
				if a == nil {
					a = &acc{counts: map[string]int{}}
					bySubject[d.Number] = a
				}
				a.total++
				if d.Correct != nil && *d.Correct {
					a.correct++
				}
				if d.Chosen != "" {
					a.counts[d.Chosen]++
				}
				if a.key == "" && d.Key != "" {
					a.key = d.Key
				}
			}
		}
	}

	gs := GroupStats{Subjects: map[string]map[string]QuestionStat{}}
	gs.Metadata.Simulacro = simulacro
	gs.Metadata.Evaluated = len(students)
	gs.Metadata.GeneratedAt = now.Format(time.RFC3339)

	for subject, byNumber := range subjects {
		out := map[string]QuestionStat{}
		for number, a := range byNumber {
			dist := map[string]float64{}
			for opt, n := range a.counts {
				dist[opt] = math.Round(float64(n) / float64(a.total) * 100)
			}
			out[fmt.Sprintf("pregunta_%d", number)] = QuestionStat{
				Number:       number,
				CorrectKey:   a.key,
				Responses:    a.total,
				Correct:      a.correct,
				HitPct:       math.Round(float64(a.correct)/float64(a.total)*1000) / 10,
				Distribution: dist,
			}
		}
		gs.Subjects[subject] = out
	}
	return gs
}

// WriteJSON writes any document as indented UTF-8 JSON under dir.
func WriteJSON(dir, name string, doc any) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	return path, nil
}
