package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	// import db drivers
	_ "github.com/lib/pq"

	"github.com/sevigo/code-quorum/internal/core"
)

type postgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a CycleStore backed by PostgreSQL. The schema is
// managed by the db package's embedded migrations.
func NewPostgresStore(db *sqlx.DB) CycleStore {
	return &postgresStore{db: db}
}

func (s *postgresStore) State(ctx context.Context, cycleID string) (core.CycleState, error) {
	var state string
	err := s.db.QueryRowContext(ctx, `SELECT state FROM cycles WHERE cycle_id = $1`, cycleID).Scan(&state)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.CycleOpen, nil
		}
		return "", fmt.Errorf("failed to read cycle state: %w", err)
	}
	return core.CycleState(state), nil
}

func (s *postgresStore) Latest(ctx context.Context, cycleID string) (*core.CycleRecord, error) {
	query := `
		SELECT iteration, created_at, total_issue_count, p0_count, p1_count, p2_count, clusters
		FROM cycle_records
		WHERE cycle_id = $1
		ORDER BY iteration DESC
		LIMIT 1`

	var (
		rec         core.CycleRecord
		clustersRaw []byte
	)
	rec.CycleID = cycleID

	err := s.db.QueryRowContext(ctx, query, cycleID).Scan(
		&rec.Iteration,
		&rec.Timestamp,
		&rec.TotalIssueCount,
		&rec.PriorityCounts.P0,
		&rec.PriorityCounts.P1,
		&rec.PriorityCounts.P2,
		&clustersRaw,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read latest cycle record: %w", err)
	}

	if err := json.Unmarshal(clustersRaw, &rec.Clusters); err != nil {
		return nil, fmt.Errorf("failed to decode cluster signatures: %w", err)
	}
	return &rec, nil
}

func (s *postgresStore) SaveRecord(ctx context.Context, rec *core.CycleRecord) error {
	clustersRaw, err := json.Marshal(rec.Clusters)
	if err != nil {
		return fmt.Errorf("failed to encode cluster signatures: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cycles (cycle_id, state, last_iteration, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cycle_id)
		DO UPDATE SET last_iteration = EXCLUDED.last_iteration, updated_at = EXCLUDED.updated_at`,
		rec.CycleID, string(core.CycleOpen), rec.Iteration, time.Now())
	if err != nil {
		return fmt.Errorf("failed to upsert cycle: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cycle_records
			(cycle_id, iteration, created_at, total_issue_count, p0_count, p1_count, p2_count, clusters)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.CycleID, rec.Iteration, rec.Timestamp, rec.TotalIssueCount,
		rec.PriorityCounts.P0, rec.PriorityCounts.P1, rec.PriorityCounts.P2, clustersRaw)
	if err != nil {
		return fmt.Errorf("failed to insert cycle record: %w", err)
	}

	// Only the current and immediately preceding iteration are retained.
	_, err = tx.ExecContext(ctx,
		`DELETE FROM cycle_records WHERE cycle_id = $1 AND iteration < $2`,
		rec.CycleID, rec.Iteration-1)
	if err != nil {
		return fmt.Errorf("failed to prune old cycle records: %w", err)
	}

	return tx.Commit()
}

func (s *postgresStore) SetState(ctx context.Context, cycleID string, state core.CycleState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cycles (cycle_id, state, last_iteration, updated_at)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (cycle_id)
		DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`,
		cycleID, string(state), time.Now())
	if err != nil {
		return fmt.Errorf("failed to set cycle state: %w", err)
	}
	return nil
}
