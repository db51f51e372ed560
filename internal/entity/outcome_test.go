package entity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{name: "nil is success", err: nil, want: OutcomeSuccess},
		{name: "compressor failure", err: &CompressorError{ExitCode: 1, Stderr: "bad input"}, want: OutcomeCompressorFailure},
		{name: "wrapped compressor failure", err: fmt.Errorf("convert: %w", &CompressorError{ExitCode: 2}), want: OutcomeCompressorFailure},
		{name: "spawn failure", err: &SpawnError{Err: os.ErrNotExist}, want: OutcomeSpawnFailure},
		{name: "provision failure", err: &IOError{Stage: StageProvision, Err: os.ErrPermission}, want: OutcomeIOFailure},
		{name: "missing output", err: &IOError{Stage: StageReadOutput, Err: ErrOutputMissing}, want: OutcomeIOFailure},
		{name: "timeout", err: fmt.Errorf("%w after 1s", ErrCompressionTimeout), want: OutcomeTimeout},
		{name: "queue full", err: ErrQueueFull, want: OutcomeRejected},
		{name: "queue closed", err: ErrQueueClosed, want: OutcomeRejected},
		{name: "client gone", err: context.Canceled, want: OutcomeAbandoned},
		{name: "wait deadline", err: context.DeadlineExceeded, want: OutcomeAbandoned},
		{name: "anything else", err: errors.New("boom"), want: OutcomeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestOptionsHasQuality(t *testing.T) {
	for q, want := range map[int]bool{0: false, 1: true, 128: true, 255: true, 256: false, -5: false} {
		assert.Equal(t, want, Options{Quality: q}.HasQuality(), "quality %d", q)
	}
}

func TestOptionsCanonical(t *testing.T) {
	a := Options{Quality: 128, FlipY: true}
	b := Options{Quality: 128, FlipY: true}
	assert.Equal(t, a.Canonical(), b.Canonical())
	assert.NotEqual(t, a.Canonical(), Options{Quality: 128}.Canonical())

	// an out of range quality is never passed, so it keys like no quality
	assert.Equal(t, Options{}.Canonical(), Options{Quality: 999}.Canonical())
}

func TestErrorsUnwrap(t *testing.T) {
	ioErr := &IOError{Stage: StageReadOutput, Err: ErrOutputMissing}
	assert.ErrorIs(t, ioErr, ErrOutputMissing)
	assert.Equal(t, "read-output: "+ErrOutputMissing.Error(), ioErr.Error())

	spawnErr := &SpawnError{Err: os.ErrNotExist}
	assert.ErrorIs(t, spawnErr, os.ErrNotExist)

	assert.Equal(t, "compressor exited with code 1: bad input", (&CompressorError{ExitCode: 1, Stderr: "bad input"}).Error())
}
