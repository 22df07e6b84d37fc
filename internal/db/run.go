package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/synckit/synckit/internal/synckit"
)

// CreateRun inserts a run record.
func (d *DB) CreateRun(ctx context.Context, rec *synckit.RunRecord) error {
	_, err := d.Pool.ExecContext(ctx, `
		INSERT INTO runs (id, workflow_name, status, total_nodes, failed_nodes, cached_nodes, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.WorkflowName, rec.Status, rec.TotalNodes, rec.Failed, rec.Cached,
		rec.StartedAt, rec.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun fetches a run record by ID.
func (d *DB) GetRun(ctx context.Context, id string) (*synckit.RunRecord, error) {
	row := d.Pool.QueryRowContext(ctx, `
		SELECT id, workflow_name, status, total_nodes, failed_nodes, cached_nodes, started_at, completed_at
		FROM runs WHERE id = $1`, id)
	return scanRun(row)
}

// ListRuns returns the most recent runs, newest first.
func (d *DB) ListRuns(ctx context.Context, limit int) ([]*synckit.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.Pool.QueryContext(ctx, `
		SELECT id, workflow_name, status, total_nodes, failed_nodes, cached_nodes, started_at, completed_at
		FROM runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*synckit.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*synckit.RunRecord, error) {
	var rec synckit.RunRecord
	var completed sql.NullTime
	err := s.Scan(&rec.ID, &rec.WorkflowName, &rec.Status, &rec.TotalNodes,
		&rec.Failed, &rec.Cached, &rec.StartedAt, &completed)
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	if completed.Valid {
		t := completed.Time
		rec.CompletedAt = &t
	}
	return &rec, nil
}
