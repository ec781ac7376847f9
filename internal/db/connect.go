package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:simulacro.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/simulacro?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  simulacro TEXT NOT NULL,
  curve TEXT NOT NULL,
  total_students INTEGER NOT NULL,
  matches INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS students (
  run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  student_key TEXT NOT NULL,
  record_json TEXT NOT NULL,
  global_score INTEGER NOT NULL DEFAULT 0,
  tier TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (run_id, student_key)
);

CREATE TABLE IF NOT EXISTS calibration (
  session TEXT NOT NULL,
  subject TEXT NOT NULL,
  question INTEGER NOT NULL,
  p REAL NOT NULL,
  class TEXT NOT NULL,
  weight REAL NOT NULL,
  cascade_item INTEGER NOT NULL,
  correct INTEGER NOT NULL,
  total INTEGER NOT NULL,
  PRIMARY KEY (session, subject, question)
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  simulacro TEXT NOT NULL,
  curve TEXT NOT NULL,
  total_students INTEGER NOT NULL,
  matches INTEGER NOT NULL DEFAULT 0,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS students (
  run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  student_key TEXT NOT NULL,
  record_json TEXT NOT NULL,
  global_score INTEGER NOT NULL DEFAULT 0,
  tier TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (run_id, student_key)
);

CREATE TABLE IF NOT EXISTS calibration (
  session TEXT NOT NULL,
  subject TEXT NOT NULL,
  question INTEGER NOT NULL,
  p DOUBLE PRECISION NOT NULL,
  class TEXT NOT NULL,
  weight DOUBLE PRECISION NOT NULL,
  cascade_item BOOLEAN NOT NULL,
  correct INTEGER NOT NULL,
  total INTEGER NOT NULL,
  PRIMARY KEY (session, subject, question)
);
`
