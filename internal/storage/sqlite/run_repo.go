package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"coremeter/internal/domain"
)

type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) domain.RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) SaveRun(ctx context.Context, run *domain.Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, ended_at, window_ns, processor_count, tick_source) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.StartedAt.UTC(), run.EndedAt.UTC(), int64(run.Window), run.ProcessorCount, run.TickSource,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO utilization (run_id, processor, delta_total, delta_idle, percent, anomalous) VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare utilization insert: %w", err)
	}
	defer stmt.Close()

	for _, res := range run.Results {
		if _, err := stmt.ExecContext(ctx, run.ID.String(), res.Processor, res.DeltaTotal, res.DeltaIdle, res.Percent, res.Anomalous); err != nil {
			return fmt.Errorf("failed to insert utilization for processor %d: %w", res.Processor, err)
		}
	}

	return tx.Commit()
}

func (r *RunRepository) GetRun(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	query := `SELECT started_at, ended_at, window_ns, processor_count, tick_source FROM runs WHERE id = ?`

	run := domain.Run{ID: id}
	var window int64
	var startedAt, endedAt time.Time

	row := r.db.QueryRowContext(ctx, query, id.String())
	if err := row.Scan(&startedAt, &endedAt, &window, &run.ProcessorCount, &run.TickSource); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, err
	}
	run.StartedAt = startedAt
	run.EndedAt = endedAt
	run.Window = time.Duration(window)

	rows, err := r.db.QueryContext(ctx,
		`SELECT processor, delta_total, delta_idle, percent, anomalous FROM utilization WHERE run_id = ? ORDER BY processor`,
		id.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query utilization: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var res domain.UtilizationResult
		if err := rows.Scan(&res.Processor, &res.DeltaTotal, &res.DeltaIdle, &res.Percent, &res.Anomalous); err != nil {
			return nil, err
		}
		run.Results = append(run.Results, res)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &run, nil
}
