package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/radiancemethod/radiance/internal/domain/entity"
)

type RunRepository struct {
	pool *pgxpool.Pool
}

func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

func (r *RunRepository) Create(ctx context.Context, run *entity.Run) error {
	query := `
		INSERT INTO extraction_runs (
			id, experiment, status, channels, stations, frame_count,
			error_message, created_at, updated_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

	_, err := r.pool.Exec(ctx, query,
		run.ID, run.Experiment, string(run.Status), toInt32s(run.Channels),
		run.Stations, run.FrameCount, run.ErrorMessage,
		run.CreatedAt, run.UpdatedAt, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (r *RunRepository) Update(ctx context.Context, run *entity.Run) error {
	query := `
		UPDATE extraction_runs SET
			experiment=$2, status=$3, channels=$4, stations=$5, frame_count=$6,
			error_message=$7, updated_at=$8, completed_at=$9
		WHERE id=$1`

	tag, err := r.pool.Exec(ctx, query,
		run.ID, run.Experiment, string(run.Status), toInt32s(run.Channels),
		run.Stations, run.FrameCount, run.ErrorMessage,
		run.UpdatedAt, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update run %s: %w", run.ID, entity.ErrRunNotFound)
	}
	return nil
}

func (r *RunRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Run, error) {
	query := `
		SELECT id, experiment, status, channels, stations, frame_count,
			error_message, created_at, updated_at, completed_at
		FROM extraction_runs WHERE id=$1`

	run := &entity.Run{}
	var status string
	var channels []int32
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.Experiment, &status, &channels,
		&run.Stations, &run.FrameCount, &run.ErrorMessage,
		&run.CreatedAt, &run.UpdatedAt, &run.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("find run %s: %w", id, entity.ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find run by id: %w", err)
	}
	run.Status = entity.RunStatus(status)
	for _, c := range channels {
		run.Channels = append(run.Channels, int(c))
	}
	return run, nil
}

func toInt32s(vs []int) []int32 {
	out := make([]int32, len(vs))
	for i, v := range vs {
		out[i] = int32(v)
	}
	return out
}
