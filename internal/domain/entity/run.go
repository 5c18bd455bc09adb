package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusIdle          RunStatus = "IDLE"
	RunStatusConfiguring   RunStatus = "CONFIGURING"
	RunStatusGeometryReady RunStatus = "GEOMETRY_READY"
	RunStatusExtracting    RunStatus = "EXTRACTING"
	RunStatusDone          RunStatus = "DONE"
	RunStatusFailed        RunStatus = "FAILED"
)

var runTransitions = map[RunStatus][]RunStatus{
	RunStatusIdle:          {RunStatusConfiguring},
	RunStatusConfiguring:   {RunStatusGeometryReady, RunStatusFailed},
	RunStatusGeometryReady: {RunStatusExtracting, RunStatusFailed},
	RunStatusExtracting:    {RunStatusDone, RunStatusFailed},
}

type Run struct {
	ID           uuid.UUID
	Experiment   string
	Status       RunStatus
	Channels     []int
	Stations     int
	FrameCount   int
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

func NewRun() *Run {
	now := time.Now().UTC()
	return &Run{
		ID:        uuid.New(),
		Status:    RunStatusIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (r *Run) transition(to RunStatus) error {
	for _, allowed := range runTransitions[r.Status] {
		if allowed == to {
			r.Status = to
			r.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, to)
}

func (r *Run) MarkConfiguring(experiment string, channels []int) error {
	if err := r.transition(RunStatusConfiguring); err != nil {
		return err
	}
	r.Experiment = experiment
	r.Channels = append([]int(nil), channels...)
	return nil
}

func (r *Run) MarkGeometryReady(stations int) error {
	if err := r.transition(RunStatusGeometryReady); err != nil {
		return err
	}
	r.Stations = stations
	return nil
}

func (r *Run) MarkExtracting() error {
	return r.transition(RunStatusExtracting)
}

func (r *Run) MarkDone(frameCount int) error {
	if err := r.transition(RunStatusDone); err != nil {
		return err
	}
	r.FrameCount = frameCount
	completed := r.UpdatedAt
	r.CompletedAt = &completed
	return nil
}

// MarkFailed is allowed from any non-terminal state past Idle.
func (r *Run) MarkFailed(errMsg string) error {
	if err := r.transition(RunStatusFailed); err != nil {
		return err
	}
	r.ErrorMessage = errMsg
	return nil
}

func (r *Run) Terminal() bool {
	return r.Status == RunStatusDone || r.Status == RunStatusFailed
}
