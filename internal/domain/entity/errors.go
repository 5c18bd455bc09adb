package entity

import "errors"

var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrRoiOutOfBounds       = errors.New("roi out of bounds")
	ErrMissingCaptureTime   = errors.New("missing capture time")
	ErrMissingResultFile    = errors.New("missing result file")
	ErrSchemaMismatch       = errors.New("schema mismatch")
	ErrInvalidTransition    = errors.New("invalid run state transition")
	ErrRunNotFound          = errors.New("run not found")
)

type WarningKind string

const (
	NonPhysicalIntensityWarning WarningKind = "non_physical_intensity"
	InvalidDistanceWarning      WarningKind = "invalid_distance"
)

// Warning flags a channel/station whose extinction coefficients are numerically
// defined but physically suspect. Rows counts the affected time steps.
type Warning struct {
	Kind    WarningKind `yaml:"kind" json:"kind"`
	Channel int         `yaml:"channel" json:"channel"`
	Station int         `yaml:"station" json:"station"`
	Rows    int         `yaml:"rows" json:"rows"`
	Message string      `yaml:"message" json:"message"`
}
