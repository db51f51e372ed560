package entity

import (
	"context"
	"errors"
	"time"
)

type Outcome string

const (
	OutcomeSuccess           Outcome = "success"
	OutcomeCompressorFailure Outcome = "compressor_failure"
	OutcomeSpawnFailure      Outcome = "spawn_failure"
	OutcomeIOFailure         Outcome = "io_failure"
	OutcomeTimeout           Outcome = "timeout"
	OutcomeRejected          Outcome = "rejected"
	OutcomeAbandoned         Outcome = "abandoned"
	OutcomeUnknown           Outcome = "unknown"
)

// Classify maps an error returned by the conversion pipeline to exactly one outcome.
func Classify(err error) Outcome {
	var (
		compErr  *CompressorError
		spawnErr *SpawnError
		ioErr    *IOError
	)
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrCompressionTimeout):
		return OutcomeTimeout
	case errors.As(err, &compErr):
		return OutcomeCompressorFailure
	case errors.As(err, &spawnErr):
		return OutcomeSpawnFailure
	case errors.As(err, &ioErr):
		return OutcomeIOFailure
	case errors.Is(err, ErrQueueFull), errors.Is(err, ErrQueueClosed):
		return OutcomeRejected
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeAbandoned
	default:
		return OutcomeUnknown
	}
}

// ConversionEvent is published once per settled job.
type ConversionEvent struct {
	JobID       string    `json:"job_id"`
	Outcome     Outcome   `json:"outcome"`
	ContentType string    `json:"content_type,omitempty"`
	InputBytes  int       `json:"input_bytes"`
	OutputBytes int       `json:"output_bytes,omitempty"`
	Cached      bool      `json:"cached"`
	DurationMS  int64     `json:"duration_ms"`
	Options     Options   `json:"options"`
	Error       string    `json:"error,omitempty"`
	Time        time.Time `json:"time"`
}
