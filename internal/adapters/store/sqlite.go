package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sacha-rebbouh/angeldesk/internal/core"
	_ "modernc.org/sqlite"
)

//go:embed migrations/001_initial_schema.sql
var migrationV1 string

// SQLiteStore implements core.AnalysisStore with SQLite storage. The claim
// guard is a single conditional UPDATE, so it holds across processes
// sharing the same database file.
type SQLiteStore struct {
	dbPath string
	db     *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and runs
// pending migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, core.ErrStorage("creating store directory").WithCause(err)
	}

	// WAL mode keeps readers unblocked while a claim transaction commits.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, core.ErrStorage("opening database").WithCause(err)
	}

	s := &SQLiteStore{dbPath: dbPath, db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, core.ErrStorage("running migrations").WithCause(err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		// Table doesn't exist yet, run initial migration
		version = 0
	}
	if version < 1 {
		if _, err := s.db.Exec(migrationV1); err != nil {
			return fmt.Errorf("applying migration v1: %w", err)
		}
	}
	return nil
}

// CreateAnalysis inserts a new analysis record.
func (s *SQLiteStore) CreateAnalysis(ctx context.Context, a *core.Analysis) error {
	tiersJSON, resultsJSON, err := encodeAnalysisFields(a)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analyses (
			id, deal_id, mode, tiers, status, total_agents, completed_agents,
			total_cost_usd, results, error, created_at, started_at, completed_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.ID, a.DealID, a.Mode, tiersJSON, a.Status, a.TotalAgents, a.CompletedAgents,
		a.TotalCostUSD, nullable(resultsJSON), nullable(a.Error),
		a.CreatedAt, nullableTime(a.StartedAt), nullableTime(a.CompletedAt), time.Now(),
	)
	if err != nil {
		return core.ErrStorage("inserting analysis").WithCause(err)
	}
	return nil
}

// GetAnalysis loads an analysis by ID.
func (s *SQLiteStore) GetAnalysis(ctx context.Context, id core.AnalysisID) (*core.Analysis, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, deal_id, mode, tiers, status, total_agents, completed_agents,
		       total_cost_usd, results, error, created_at, started_at, completed_at, updated_at
		FROM analyses WHERE id = ?
	`, id)

	var a core.Analysis
	var tiersJSON string
	var resultsJSON, errStr sql.NullString
	var startedAt, completedAt sql.NullTime
	err := row.Scan(
		&a.ID, &a.DealID, &a.Mode, &tiersJSON, &a.Status, &a.TotalAgents, &a.CompletedAgents,
		&a.TotalCostUSD, &resultsJSON, &errStr, &a.CreatedAt, &startedAt, &completedAt, &a.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound("analysis", string(id))
	}
	if err != nil {
		return nil, core.ErrStorage("loading analysis").WithCause(err)
	}

	if err := json.Unmarshal([]byte(tiersJSON), &a.Tiers); err != nil {
		return nil, core.ErrStorage("decoding tiers").WithCause(err)
	}
	a.Results = make(map[string]*core.AgentResult)
	if resultsJSON.Valid && resultsJSON.String != "" {
		if err := json.Unmarshal([]byte(resultsJSON.String), &a.Results); err != nil {
			return nil, core.ErrStorage("decoding results").WithCause(err)
		}
	}
	if errStr.Valid {
		a.Error = errStr.String
	}
	if startedAt.Valid {
		a.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	return &a, nil
}

// SaveAnalysis replaces the stored analysis record.
func (s *SQLiteStore) SaveAnalysis(ctx context.Context, a *core.Analysis) error {
	tiersJSON, resultsJSON, err := encodeAnalysisFields(a)
	if err != nil {
		return err
	}
	a.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE analyses SET
			deal_id = ?, mode = ?, tiers = ?, status = ?, total_agents = ?,
			completed_agents = ?, total_cost_usd = ?, results = ?, error = ?,
			started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`,
		a.DealID, a.Mode, tiersJSON, a.Status, a.TotalAgents,
		a.CompletedAgents, a.TotalCostUSD, nullable(resultsJSON), nullable(a.Error),
		nullableTime(a.StartedAt), nullableTime(a.CompletedAt), a.UpdatedAt,
		a.ID,
	)
	if err != nil {
		return core.ErrStorage("updating analysis").WithCause(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.ErrStorage("updating analysis").WithCause(err)
	}
	if n == 0 {
		return core.ErrNotFound("analysis", string(a.ID))
	}
	return nil
}

// ClaimRunning atomically transitions pending or failed to running. The
// conditional UPDATE is the whole guard: exactly one claimant sees a row
// affected, every other concurrent claim is rejected with a conflict.
func (s *SQLiteStore) ClaimRunning(ctx context.Context, id core.AnalysisID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE analyses SET status = ?, updated_at = ?
		WHERE id = ? AND status IN (?, ?)
	`, core.AnalysisStatusRunning, time.Now(), id, core.AnalysisStatusPending, core.AnalysisStatusFailed)
	if err != nil {
		return core.ErrStorage("claiming analysis").WithCause(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.ErrStorage("claiming analysis").WithCause(err)
	}
	if n == 1 {
		return nil
	}

	var status string
	err = s.db.QueryRowContext(ctx, "SELECT status FROM analyses WHERE id = ?", id).Scan(&status)
	if err == sql.ErrNoRows {
		return core.ErrNotFound("analysis", string(id))
	}
	if err != nil {
		return core.ErrStorage("claiming analysis").WithCause(err)
	}
	return core.ErrConflict(fmt.Sprintf("analysis %s is %s, not claimable", id, status))
}

// ListAnalyses returns summaries ordered by most recently updated.
func (s *SQLiteStore) ListAnalyses(ctx context.Context) ([]core.AnalysisSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, deal_id, mode, status, total_agents, completed_agents,
		       total_cost_usd, created_at, updated_at
		FROM analyses
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, core.ErrStorage("listing analyses").WithCause(err)
	}
	defer rows.Close()

	var summaries []core.AnalysisSummary
	for rows.Next() {
		var sm core.AnalysisSummary
		err := rows.Scan(
			&sm.ID, &sm.DealID, &sm.Mode, &sm.Status, &sm.TotalAgents,
			&sm.CompletedAgents, &sm.TotalCostUSD, &sm.CreatedAt, &sm.UpdatedAt,
		)
		if err != nil {
			return nil, core.ErrStorage("scanning analysis summary").WithCause(err)
		}
		summaries = append(summaries, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, core.ErrStorage("iterating analysis summaries").WithCause(err)
	}
	return summaries, nil
}

// AppendCheckpoint inserts a new checkpoint row. Checkpoints are only ever
// inserted; the unique id and autoincrement seq make the history an
// immutable, totally ordered audit trail.
func (s *SQLiteStore) AppendCheckpoint(ctx context.Context, cp *core.AnalysisCheckpoint) error {
	completedJSON, err := json.Marshal(cp.CompletedAgents)
	if err != nil {
		return core.ErrStorage("encoding completed agents").WithCause(err)
	}
	failedJSON, err := json.Marshal(cp.FailedAgents)
	if err != nil {
		return core.ErrStorage("encoding failed agents").WithCause(err)
	}
	resultsJSON, err := json.Marshal(cp.Results)
	if err != nil {
		return core.ErrStorage("encoding checkpoint results").WithCause(err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (id, analysis_id, completed_agents, failed_agents, results, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, cp.ID, cp.AnalysisID, string(completedJSON), string(failedJSON), string(resultsJSON), cp.CreatedAt)
	if err != nil {
		return core.ErrStorage("inserting checkpoint").WithCause(err)
	}
	return nil
}

// LatestCheckpoint returns the most recently appended checkpoint for the
// analysis, or nil when none exists.
func (s *SQLiteStore) LatestCheckpoint(ctx context.Context, id core.AnalysisID) (*core.AnalysisCheckpoint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, analysis_id, completed_agents, failed_agents, results, created_at
		FROM checkpoints WHERE analysis_id = ?
		ORDER BY seq DESC LIMIT 1
	`, id)
	cp, err := scanCheckpoint(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return cp, nil
}

// ListCheckpoints returns every checkpoint for the analysis in append order.
func (s *SQLiteStore) ListCheckpoints(ctx context.Context, id core.AnalysisID) ([]*core.AnalysisCheckpoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, analysis_id, completed_agents, failed_agents, results, created_at
		FROM checkpoints WHERE analysis_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, core.ErrStorage("listing checkpoints").WithCause(err)
	}
	defer rows.Close()

	var cps []*core.AnalysisCheckpoint
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, err
		}
		cps = append(cps, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, core.ErrStorage("iterating checkpoints").WithCause(err)
	}
	return cps, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheckpoint(row rowScanner) (*core.AnalysisCheckpoint, error) {
	var cp core.AnalysisCheckpoint
	var completedJSON, failedJSON, resultsJSON string
	err := row.Scan(&cp.ID, &cp.AnalysisID, &completedJSON, &failedJSON, &resultsJSON, &cp.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, core.ErrStorage("scanning checkpoint").WithCause(err)
	}
	if err := json.Unmarshal([]byte(completedJSON), &cp.CompletedAgents); err != nil {
		return nil, core.ErrStorage("decoding completed agents").WithCause(err)
	}
	if err := json.Unmarshal([]byte(failedJSON), &cp.FailedAgents); err != nil {
		return nil, core.ErrStorage("decoding failed agents").WithCause(err)
	}
	if err := json.Unmarshal([]byte(resultsJSON), &cp.Results); err != nil {
		return nil, core.ErrStorage("decoding checkpoint results").WithCause(err)
	}
	return &cp, nil
}

func encodeAnalysisFields(a *core.Analysis) (tiersJSON, resultsJSON string, err error) {
	tiers, err := json.Marshal(a.Tiers)
	if err != nil {
		return "", "", core.ErrStorage("encoding tiers").WithCause(err)
	}
	results, err := json.Marshal(a.Results)
	if err != nil {
		return "", "", core.ErrStorage("encoding results").WithCause(err)
	}
	return string(tiers), string(results), nil
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

var _ core.AnalysisStore = (*SQLiteStore)(nil)
