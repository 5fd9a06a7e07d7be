// Package store persists lab samples in SQLite so runs can be compared
// after the process exits.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/inference-sim/inclab/lab"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	started_at   TEXT NOT NULL,
	params_json  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS phases (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT NOT NULL,
	lab           TEXT NOT NULL,
	batch         INTEGER NOT NULL,
	engine        TEXT NOT NULL,
	phase         TEXT NOT NULL,
	time_ns       INTEGER NOT NULL,
	alloc         INTEGER NOT NULL,
	reuse         INTEGER NOT NULL,
	eval          INTEGER NOT NULL,
	hit           INTEGER NOT NULL,
	dirty         INTEGER NOT NULL,
	clean         INTEGER NOT NULL,
	output_valid  INTEGER,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE INDEX IF NOT EXISTS phases_run_lab ON phases(run_id, lab, batch);
`

// Store records samples of lab runs in a SQLite database. It implements
// lab.SampleObserver for the run most recently started with BeginRun.
type Store struct {
	db *sql.DB

	mu    sync.Mutex
	runID string
}

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// runParams is the stored form of lab.LabParams.
type runParams struct {
	InputSeeds       []uint64 `json:"input_seeds"`
	Size             int      `json:"size"`
	Gauge            int      `json:"gauge"`
	NominalStrategy  string   `json:"nominal_strategy"`
	ValidateOutput   bool     `json:"validate_output"`
	ChangeBatchSize  int      `json:"change_batch_size"`
	ChangeBatchLoopc int      `json:"change_batch_loopc"`
	Demand           string   `json:"demand"`
	ReflectDCG       bool     `json:"reflect_dcg"`
}

// BeginRun records a new run with the given parameters and returns its id.
// Samples observed afterwards are attributed to this run.
func (s *Store) BeginRun(p lab.LabParams) (string, error) {
	raw, err := json.Marshal(runParams{
		InputSeeds:       p.Sample.InputSeeds,
		Size:             p.Sample.Generate.Size,
		Gauge:            p.Sample.Generate.Gauge,
		NominalStrategy:  p.Sample.Generate.NominalStrategy.String(),
		ValidateOutput:   p.Sample.ValidateOutput,
		ChangeBatchSize:  p.Sample.ChangeBatchSize,
		ChangeBatchLoopc: p.ChangeBatchLoopc,
		Demand:           p.Sample.Demand.String(),
		ReflectDCG:       p.Sample.ReflectDCG,
	})
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}
	id := uuid.New().String()
	_, err = s.db.Exec(
		`INSERT INTO runs (run_id, started_at, params_json) VALUES (?, ?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339Nano), string(raw),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	s.mu.Lock()
	s.runID = id
	s.mu.Unlock()
	return id, nil
}

// ObserveSample writes one row per engine and phase of the sample.
func (s *Store) ObserveSample(labName string, smp *lab.Sample) error {
	s.mu.Lock()
	runID := s.runID
	s.mu.Unlock()
	if runID == "" {
		return fmt.Errorf("observe sample: no run started")
	}

	var valid any
	if smp.OutputValid != nil {
		valid = *smp.OutputValid
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rows := []struct {
		engine, phase string
		m             lab.EngineMetrics
	}{
		{"naive", "process_input", smp.NaiveSample.ProcessInput},
		{"naive", "compute_output", smp.NaiveSample.ComputeOutput},
		{"incremental", "process_input", smp.DCGSample.ProcessInput},
		{"incremental", "compute_output", smp.DCGSample.ComputeOutput},
	}
	for _, r := range rows {
		c := r.m.EngineCnt
		_, err := tx.Exec(
			`INSERT INTO phases (run_id, lab, batch, engine, phase, time_ns, alloc, reuse, eval, hit, dirty, clean, output_valid)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, labName, smp.BatchName, r.engine, r.phase, int64(r.m.TimeNs),
			int64(c.Alloc), int64(c.Reuse), int64(c.Eval), int64(c.Hit), int64(c.Dirty), int64(c.Clean),
			valid,
		)
		if err != nil {
			return fmt.Errorf("insert phase: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// PhaseRecord is one stored engine phase.
type PhaseRecord struct {
	Lab         string
	Batch       int
	Engine      string
	Phase       string
	TimeNs      int64
	Eval        int64
	Hit         int64
	OutputValid *bool
}

// Phases returns the stored phases of a run, ordered by lab, batch,
// engine and phase.
func (s *Store) Phases(runID string) ([]PhaseRecord, error) {
	rows, err := s.db.Query(
		`SELECT lab, batch, engine, phase, time_ns, eval, hit, output_valid
		 FROM phases WHERE run_id = ? ORDER BY lab, batch, engine, phase`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query phases: %w", err)
	}
	defer rows.Close()

	var out []PhaseRecord
	for rows.Next() {
		var (
			rec   PhaseRecord
			valid sql.NullBool
		)
		if err := rows.Scan(&rec.Lab, &rec.Batch, &rec.Engine, &rec.Phase, &rec.TimeNs, &rec.Eval, &rec.Hit, &valid); err != nil {
			return nil, fmt.Errorf("scan phase: %w", err)
		}
		if valid.Valid {
			v := valid.Bool
			rec.OutputValid = &v
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RunParams returns the stored parameters JSON of a run.
func (s *Store) RunParams(runID string) (string, error) {
	var raw string
	err := s.db.QueryRow(`SELECT params_json FROM runs WHERE run_id = ?`, runID).Scan(&raw)
	if err != nil {
		return "", fmt.Errorf("get run %s: %w", runID, err)
	}
	return raw, nil
}

// Runs returns the ids of all stored runs, oldest first.
func (s *Store) Runs() ([]string, error) {
	rows, err := s.db.Query(`SELECT run_id FROM runs ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
