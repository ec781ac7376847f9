package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mind-engage/simulacro-scoring/internal/calibrate"
	appcfg "github.com/mind-engage/simulacro-scoring/internal/config"
	"github.com/mind-engage/simulacro-scoring/internal/db"
	"github.com/mind-engage/simulacro-scoring/internal/ingest"
	"github.com/mind-engage/simulacro-scoring/internal/pipeline"
	"github.com/mind-engage/simulacro-scoring/internal/report"
	"github.com/mind-engage/simulacro-scoring/internal/score"
	"github.com/mind-engage/simulacro-scoring/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "simulacro",
		Short: "Batch scorer for two-session Saber 11 simulation exams",
	}
	root.AddCommand(processCmd(), calibrateCmd(), resultsCmd())
	return root
}

func commonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("config", "", "Run config file (YAML or JSON)")
	f.String("db", "", "Database DSN (empty = driver default)")
	f.String("db-driver", "sqlite", "Database driver (sqlite, postgres)")
	f.Bool("no-db", false, "Run fully in memory, skip persistence")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process [session files...]",
		Short: "Score a full simulacro: grade, reconcile, curve, aggregate",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runProcess,
	}
	commonFlags(cmd)
	f := cmd.Flags()
	f.String("curve", "", fmt.Sprintf("Score curve variant, required (have: %v)", score.Names()))
	f.String("simulacro", "", "Simulacro label for the run (e.g. SG11-09)")
	f.StringP("out", "o", "output", "Directory for JSON reports")
	return cmd
}

func calibrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calibrate [session files...]",
		Short: "Compute and persist per-question difficulty calibration",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCalibrate,
	}
	commonFlags(cmd)
	return cmd
}

func resultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Dump the persisted records of the latest run as JSON",
		RunE:  runResults,
	}
	commonFlags(cmd)
	f := cmd.Flags()
	f.String("simulacro", "", "Simulacro label to look up (empty = latest run)")
	f.StringP("out", "o", "-", "Output file path (- for stdout)")
	return cmd
}

func setupLogging(v *viper.Viper) {
	var level slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		h = slog.NewJSONHandler(os.Stderr, opts)
	default:
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())
	v.SetEnvPrefix("SIMULACRO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func openStore(ctx context.Context, v *viper.Viper) (*store.Store, error) {
	if v.GetBool("no-db") {
		return nil, nil
	}
	dbh, err := db.Open(ctx, db.Driver(v.GetString("db-driver")), v.GetString("db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return store.New(dbh), nil
}

func loadConfig(v *viper.Viper) (appcfg.Config, error) {
	cfg, err := appcfg.Load(v.GetString("config"))
	if err != nil {
		return appcfg.Config{}, err
	}
	if c := v.GetString("curve"); c != "" {
		cfg.Curve = c
	}
	if s := v.GetString("simulacro"); s != "" {
		cfg.Simulacro = s
	}
	return cfg, nil
}

func loadSessions(paths []string) ([]*ingest.Session, error) {
	var sessions []*ingest.Session
	for _, p := range paths {
		s, err := ingest.LoadSession(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		slog.Info("loaded session", "file", p, "session", s.Label,
			"keys", s.Key.Len(), "records", len(s.Records))
		sessions = append(sessions, s)
	}
	return sessions, nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)
	ctx := cmd.Context()

	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	st, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	batch, err := pipeline.New(cfg, slog.Default(), st)
	if err != nil {
		return err
	}
	sessions, err := loadSessions(args)
	if err != nil {
		return err
	}

	res, err := batch.Run(ctx, sessions)
	if err != nil {
		return err
	}

	out := v.GetString("out")
	doc := report.Results{
		Simulacro:       cfg.Simulacro,
		ProcessedAt:     time.Now().Format(time.RFC3339),
		Curve:           cfg.Curve,
		UsesCalibration: res.Calibrated,
		TotalStudents:   len(res.Students),
		Matches:         res.Matches,
		Orphans:         res.Orphans,
		Cohort:          report.Cohort(res.Students),
		Students:        res.Students,
	}
	for _, a := range res.Ambiguous {
		doc.Ambiguous = append(doc.Ambiguous,
			fmt.Sprintf("%s (%s): matches %v", a.Record.Identity.IDNumber, a.Session, a.Targets))
	}
	path, err := report.WriteJSON(out, "resultados_finales.json", doc)
	if err != nil {
		return err
	}
	slog.Info("wrote results", "path", path, "students", len(res.Students))

	stats := report.BuildGroupStats(cfg.Simulacro, res.Students, time.Now())
	path, err = report.WriteJSON(out, "estadisticas_grupo.json", stats)
	if err != nil {
		return err
	}
	slog.Info("wrote group statistics", "path", path)
	return nil
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)
	ctx := cmd.Context()

	st, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	if st == nil {
		return fmt.Errorf("calibrate needs a database to persist into (drop --no-db)")
	}
	sessions, err := loadSessions(args)
	if err != nil {
		return err
	}

	total := 0
	for _, sess := range sessions {
		entries := calibrate.Run(sess.Key, sess.Records, sess.Label)
		if err := st.SaveCalibration(ctx, entries); err != nil {
			return err
		}
		total += len(entries)
		slog.Info("calibrated session", "session", sess.Label, "items", len(entries))
	}
	slog.Info("calibration persisted", "items", total)
	return nil
}

func runResults(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)
	ctx := cmd.Context()

	st, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	if st == nil {
		return fmt.Errorf("results needs a database (drop --no-db)")
	}

	run, err := st.LatestRun(ctx, v.GetString("simulacro"))
	if err != nil {
		return err
	}
	_, students, err := st.LoadStudents(ctx, run.ID)
	if err != nil {
		return err
	}

	doc := report.Results{
		Simulacro:     run.Simulacro,
		ProcessedAt:   run.CreatedAt.Format(time.RFC3339),
		Curve:         run.Curve,
		TotalStudents: len(students),
		Matches:       run.Matches,
		Cohort:        report.Cohort(students),
		Students:      students,
	}
	out := v.GetString("out")
	if out == "-" || out == "" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(doc)
	}
	path, err := report.WriteJSON(".", out, doc)
	if err != nil {
		return err
	}
	slog.Info("wrote results", "path", path)
	return nil
}
