package entity

import (
	"errors"
	"fmt"
)

var (
	// Queue errors
	ErrQueueFull   = errors.New("conversion queue is full")
	ErrQueueClosed = errors.New("conversion queue is closed")

	// Compressor errors
	ErrCompressionTimeout = errors.New("compression timed out")
	ErrOutputMissing      = errors.New("compressor reported success but produced no output")
)

// Workspace stages reported by IOError.
const (
	StageProvision  = "provision"
	StageReadOutput = "read-output"
)

// CompressorError means the compressor ran and exited non-zero.
type CompressorError struct {
	ExitCode int
	Stderr   string
}

func (e *CompressorError) Error() string {
	return fmt.Sprintf("compressor exited with code %d: %s", e.ExitCode, e.Stderr)
}

// SpawnError means the compressor could not be started at all.
type SpawnError struct {
	Err error
}

func (e *SpawnError) Error() string { return "spawn compressor: " + e.Err.Error() }
func (e *SpawnError) Unwrap() error { return e.Err }

// IOError is a filesystem failure in the job's workspace.
type IOError struct {
	Stage string
	Err   error
}

func (e *IOError) Error() string { return e.Stage + ": " + e.Err.Error() }
func (e *IOError) Unwrap() error { return e.Err }

type BodyReadError struct {
	Err error
}

func (e *BodyReadError) Error() string { return "read request body: " + e.Err.Error() }
func (e *BodyReadError) Unwrap() error { return e.Err }
