package baseline

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/promoscan/internal/consensus"
	"github.com/inodb/promoscan/internal/promoter"
)

// ErrNotFound is returned when no stored run matches.
var ErrNotFound = errors.New("baseline run not found")

// Run is one stored strategy run.
type Run struct {
	ID          string
	Strategy    string
	CreatedAt   time.Time
	Tasks       int
	Predictions int
	Duration    time.Duration
	Canonical   []byte // canonical JSON of the aggregate
}

// Aggregate decodes the stored aggregate.
func (r *Run) Aggregate() (*consensus.Aggregate, error) {
	return consensus.ParseCanonical(r.Canonical)
}

// Row is one non-zero count of a stored consensus model.
type Row struct {
	Key      string
	Region   string // box35, box10 or spacer
	Position int    // box offset, or spacer length
	Base     string // empty for spacer rows
	Count    int
}

// Store keeps run history in DuckDB.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create baseline directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database path; empty for an in-memory store.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id VARCHAR PRIMARY KEY,
			strategy VARCHAR,
			created_at TIMESTAMP,
			tasks BIGINT,
			predictions BIGINT,
			duration_ms BIGINT,
			canonical VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS consensus_rows (
			run_id VARCHAR,
			key VARCHAR,
			region VARCHAR,
			position BIGINT,
			base VARCHAR,
			count BIGINT
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun stores run and the per-key rows of agg under a new ID, which it
// returns. Run.ID, Run.CreatedAt and Run.Canonical are filled in when empty.
func (s *Store) SaveRun(ctx context.Context, run Run, agg *consensus.Aggregate) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Canonical == nil {
		b, err := consensus.MarshalCanonical(agg)
		if err != nil {
			return "", err
		}
		run.Canonical = b
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, strategy, created_at, tasks, predictions, duration_ms, canonical)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Strategy, run.CreatedAt, int64(run.Tasks), int64(run.Predictions),
		run.Duration.Milliseconds(), string(run.Canonical),
	); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	if err := s.appendRows(ctx, run.ID, agg); err != nil {
		// The history must only list runs whose rows were stored.
		if derr := s.deleteRun(context.WithoutCancel(ctx), run.ID); derr != nil {
			return "", errors.Join(err, derr)
		}
		return "", err
	}
	return run.ID, nil
}

func (s *Store) deleteRun(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM consensus_rows WHERE run_id = ?`, id); err != nil {
		return fmt.Errorf("delete consensus rows: %w", err)
	}
	return nil
}

// appendRows bulk-inserts the non-zero counts of agg using the Appender API.
func (s *Store) appendRows(ctx context.Context, runID string, agg *consensus.Aggregate) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "consensus_rows")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, row := range Rows(agg) {
		if err := appender.AppendRow(runID, row.Key, row.Region, int64(row.Position), row.Base, int64(row.Count)); err != nil {
			return fmt.Errorf("append consensus row: %w", err)
		}
	}
	return appender.Flush()
}

// Rows flattens agg into its non-zero counts, ordered by key, region and
// position.
func Rows(agg *consensus.Aggregate) []Row {
	var rows []Row
	for _, key := range agg.Keys() {
		c, _ := agg.Get(key)
		rows = appendBox(rows, key, "box35", c.Box35)
		rows = appendBox(rows, key, "box10", c.Box10)
		for i, n := range c.Spacers {
			if n > 0 {
				rows = append(rows, Row{Key: key, Region: "spacer", Position: i + promoter.MinSpacer, Count: n})
			}
		}
	}
	return rows
}

func appendBox(rows []Row, key, region string, box [promoter.BoxLen]consensus.BaseCounts) []Row {
	for pos, counts := range box {
		for b, n := range counts {
			if n > 0 {
				rows = append(rows, Row{Key: key, Region: region, Position: pos, Base: consensus.Bases[b : b+1], Count: n})
			}
		}
	}
	return rows
}

const runColumns = `id, strategy, created_at, tasks, predictions, duration_ms, canonical`

func scanRun(row interface{ Scan(dest ...any) error }) (*Run, error) {
	var r Run
	var tasks, preds, durMS int64
	var canonical string
	if err := row.Scan(&r.ID, &r.Strategy, &r.CreatedAt, &tasks, &preds, &durMS, &canonical); err != nil {
		return nil, err
	}
	r.Tasks = int(tasks)
	r.Predictions = int(preds)
	r.Duration = time.Duration(durMS) * time.Millisecond
	r.Canonical = []byte(canonical)
	return &r, nil
}

// Load returns the run with the given ID.
func (s *Store) Load(ctx context.Context, id string) (*Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	return r, nil
}

// Latest returns the most recent run of strategy, or of any strategy when
// strategy is empty.
func (s *Store) Latest(ctx context.Context, strategy string) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if strategy != "" {
		query += ` WHERE strategy = ?`
		args = append(args, strategy)
	}
	query += ` ORDER BY created_at DESC LIMIT 1`
	r, err := scanRun(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest run: %w", err)
	}
	return r, nil
}

// Runs lists every stored run, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LoadRows returns the stored consensus rows of a run in Rows order.
func (s *Store) LoadRows(ctx context.Context, runID string) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, region, position, base, count FROM consensus_rows
		WHERE run_id = ?
		ORDER BY key, CASE region WHEN 'box35' THEN 0 WHEN 'box10' THEN 1 ELSE 2 END, position,
			CASE base WHEN 'N' THEN 1 ELSE 0 END, base`, runID)
	if err != nil {
		return nil, fmt.Errorf("query consensus rows: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var pos, count int64
		if err := rows.Scan(&r.Key, &r.Region, &pos, &r.Base, &count); err != nil {
			return nil, fmt.Errorf("scan consensus row: %w", err)
		}
		r.Position, r.Count = int(pos), int(count)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consensus rows: %w", err)
	}
	return out, nil
}
