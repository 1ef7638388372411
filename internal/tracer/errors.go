package tracer

import "errors"

var (
	// ErrNoActiveExecution is returned when a step operation runs without an open execution
	ErrNoActiveExecution = errors.New("no active execution")
	// ErrUnknownArtifact is returned when an evaluation references an artifact not recorded on the step
	ErrUnknownArtifact = errors.New("unknown artifact")
	// ErrStepAlreadyEnded is returned when a sealed step is ended a second time
	ErrStepAlreadyEnded = errors.New("step already ended")
)
