package score

import (
	"math"

	"github.com/mind-engage/simulacro-scoring/internal/config"
	"github.com/mind-engage/simulacro-scoring/internal/exam"
)

// Aggregate combines the per-subject scores into the single global score and
// performance tier. Only configured subjects participate; anything else in
// the tally map is ignored, not defaulted. Deterministic and idempotent.
func Aggregate(rec *exam.StudentRecord, cfg config.Config) {
	sum, weights := 0, 0
	for _, subj := range cfg.Subjects {
		weights += subj.Weight
		if t, ok := rec.Subjects[subj.Name]; ok {
			sum += t.Score * subj.Weight
		}
	}
	if weights == 0 {
		rec.Global = 0
		rec.Tier = TierFor(0, cfg.Tiers)
		return
	}
	g := int(math.Round(float64(sum) / float64(weights) * 5))
	if g > cfg.GlobalMax {
		g = cfg.GlobalMax
	}
	rec.Global = g
	rec.Tier = TierFor(g, cfg.Tiers)
}

// TierFor places a global score on the configured threshold ladder.
func TierFor(global int, t config.Tiers) string {
	switch {
	case global >= t.Superior:
		return "Superior"
	case global >= t.Alto:
		return "Alto"
	case global >= t.Medio:
		return "Medio"
	default:
		return "Bajo"
	}
}
