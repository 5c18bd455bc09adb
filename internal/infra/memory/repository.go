// Package memory keeps the run catalogue in process when no database is
// configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/radiancemethod/radiance/internal/domain/entity"
)

type RunRepository struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]entity.Run
}

func NewRunRepository() *RunRepository {
	return &RunRepository{runs: make(map[uuid.UUID]entity.Run)}
}

func (r *RunRepository) Create(_ context.Context, run *entity.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.ID]; ok {
		return fmt.Errorf("insert run %s: already exists", run.ID)
	}
	r.runs[run.ID] = clone(run)
	return nil
}

func (r *RunRepository) Update(_ context.Context, run *entity.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.ID]; !ok {
		return fmt.Errorf("update run %s: %w", run.ID, entity.ErrRunNotFound)
	}
	r.runs[run.ID] = clone(run)
	return nil
}

func (r *RunRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, fmt.Errorf("find run %s: %w", id, entity.ErrRunNotFound)
	}
	out := clone(&run)
	return &out, nil
}

func clone(run *entity.Run) entity.Run {
	c := *run
	c.Channels = append([]int(nil), run.Channels...)
	if run.CompletedAt != nil {
		t := *run.CompletedAt
		c.CompletedAt = &t
	}
	return c
}
