package entity

import "github.com/google/uuid"

// RunStatusMessage is published when an extraction run finishes or fails.
type RunStatusMessage struct {
	RunID        uuid.UUID `json:"run_id"`
	Experiment   string    `json:"experiment"`
	Status       RunStatus `json:"status"`
	Channels     []int     `json:"channels"`
	Stations     int       `json:"stations"`
	FrameCount   int       `json:"frame_count,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	ArchiveKey   string    `json:"archive_key,omitempty"`
}

func NewRunStatusMessage(r *Run) RunStatusMessage {
	return RunStatusMessage{
		RunID:        r.ID,
		Experiment:   r.Experiment,
		Status:       r.Status,
		Channels:     r.Channels,
		Stations:     r.Stations,
		FrameCount:   r.FrameCount,
		ErrorMessage: r.ErrorMessage,
	}
}
