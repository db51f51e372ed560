package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/ds124wfegd/ktx2converter/internal/entity"
)

// ResultCache stores compressed outputs keyed by input and options.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte) error
	Enabled() bool
	Close() error
}

// Key derives the cache key for a job. Identical bytes with identical options give
// identical output, the content type only names the input file.
func Key(job *entity.ConversionJob) string {
	h := sha256.New()
	h.Write(job.Input)
	h.Write([]byte{0})
	h.Write([]byte(job.Options.Canonical()))
	return hex.EncodeToString(h.Sum(nil))
}

// Noop is used when no cache backend is configured.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, string, []byte) error         { return nil }
func (Noop) Enabled() bool                                     { return false }
func (Noop) Close() error                                      { return nil }
