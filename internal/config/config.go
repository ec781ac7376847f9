package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Subject describes one scored area of the exam: its aggregation weight, the
// official question count contributed by each session, and the sliding-cap
// constants used by the curver.
type Subject struct {
	Name        string         `mapstructure:"name"`
	Weight      int            `mapstructure:"weight"`
	Questions   map[string]int `mapstructure:"questions"` // session label -> official count
	OneErrorCap float64        `mapstructure:"one_error_cap"`
	ErrPenalty  float64        `mapstructure:"error_penalty"`
}

// TotalQuestions is the official question count across all sessions.
func (s Subject) TotalQuestions() int {
	n := 0
	for _, q := range s.Questions {
		n += q
	}
	return n
}

// Tiers is the global-score threshold ladder. Anything below Medio is Bajo.
type Tiers struct {
	Superior int `mapstructure:"superior"`
	Alto     int `mapstructure:"alto"`
	Medio    int `mapstructure:"medio"`
}

// Invalidation voids one question for one session: it contributes to neither
// numerator nor denominator for any student. Subject is matched as a
// case-insensitive substring and may be empty to void the number in every
// subject of that session.
type Invalidation struct {
	Session string `mapstructure:"session"`
	Subject string `mapstructure:"subject"`
	Number  int    `mapstructure:"number"`
	Reason  string `mapstructure:"reason"`
}

// Config is the full run configuration. Curve has no default on purpose: the
// historical formulas diverge and the integrator must name one explicitly.
type Config struct {
	Simulacro     string         `mapstructure:"simulacro"`
	Curve         string         `mapstructure:"curve"`
	Sessions      []string       `mapstructure:"sessions"`
	Subjects      []Subject      `mapstructure:"subjects"`
	Tiers         Tiers          `mapstructure:"tiers"`
	GlobalMax     int            `mapstructure:"global_max"`
	CapFloor      float64        `mapstructure:"cap_floor"`
	Invalidations []Invalidation `mapstructure:"invalidations"`
}

// Default returns the standard Saber 11 structure: four core subjects at
// weight 3 plus inglés at weight 1, the per-subject one-error caps, and the
// historical tier cutoffs. Curve is intentionally left empty.
func Default() Config {
	return Config{
		Sessions: []string{"S1", "S2"},
		Subjects: []Subject{
			{Name: "matemáticas", Weight: 3, Questions: map[string]int{"S1": 25, "S2": 25}, OneErrorCap: 86, ErrPenalty: 2},
			{Name: "lectura crítica", Weight: 3, Questions: map[string]int{"S1": 41, "S2": 0}, OneErrorCap: 82, ErrPenalty: 2},
			{Name: "sociales y ciudadanas", Weight: 3, Questions: map[string]int{"S1": 25, "S2": 25}, OneErrorCap: 84, ErrPenalty: 2},
			{Name: "ciencias naturales", Weight: 3, Questions: map[string]int{"S1": 29, "S2": 29}, OneErrorCap: 82, ErrPenalty: 2},
			{Name: "inglés", Weight: 1, Questions: map[string]int{"S1": 0, "S2": 55}, OneErrorCap: 87, ErrPenalty: 2},
		},
		Tiers:     Tiers{Superior: 400, Alto: 350, Medio: 300},
		GlobalMax: 500,
		CapFloor:  40,
	}
}

// Load reads the run config file (YAML or JSON) over the defaults, honoring
// SIMULACRO_* environment overrides. path may be empty to run on defaults
// alone; Curve must then come from a flag.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("simulacro")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := v.Unmarshal(&cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if c := v.GetString("curve"); c != "" {
		cfg.Curve = c
	}
	return cfg, nil
}

// Validate checks the structural invariants the pipeline relies on.
func (c Config) Validate() error {
	if c.Curve == "" {
		return fmt.Errorf("config: curve must be set explicitly (no default)")
	}
	if len(c.Subjects) == 0 {
		return fmt.Errorf("config: no subjects defined")
	}
	seen := map[string]bool{}
	for _, s := range c.Subjects {
		if s.Name == "" {
			return fmt.Errorf("config: subject with empty name")
		}
		if seen[s.Name] {
			return fmt.Errorf("config: duplicate subject %q", s.Name)
		}
		seen[s.Name] = true
		if s.Weight < 0 {
			return fmt.Errorf("config: subject %q has negative weight", s.Name)
		}
	}
	return nil
}

// Subject returns the configured subject by name.
func (c Config) Subject(name string) (Subject, bool) {
	for _, s := range c.Subjects {
		if s.Name == name {
			return s, true
		}
	}
	return Subject{}, false
}

// Weights returns the aggregation weight per recognized subject name.
func (c Config) Weights() map[string]int {
	w := make(map[string]int, len(c.Subjects))
	for _, s := range c.Subjects {
		w[s.Name] = s.Weight
	}
	return w
}

// Voided reports whether (session, subject, number) is invalidated.
func (c Config) Voided(session, subject string, number int) bool {
	for _, inv := range c.Invalidations {
		if !strings.EqualFold(inv.Session, session) || inv.Number != number {
			continue
		}
		if inv.Subject == "" || strings.Contains(strings.ToLower(subject), strings.ToLower(inv.Subject)) {
			return true
		}
	}
	return false
}
