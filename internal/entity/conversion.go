package entity

import (
	"strconv"
	"strings"
	"time"
)

const (
	MinQuality = 1
	MaxQuality = 255
)

// Options are the caller-selected compressor flags. Quality is 0 when absent.
type Options struct {
	Quality         int  `json:"quality,omitempty"`
	FlipY           bool `json:"flip_y"`
	UseUASTC        bool `json:"uastc"`
	GenerateMipmaps bool `json:"mipmaps"`
}

// HasQuality reports whether Quality should be passed to the compressor.
func (o Options) HasQuality() bool {
	return o.Quality >= MinQuality && o.Quality <= MaxQuality
}

// Canonical returns a stable textual form used for cache keys.
func (o Options) Canonical() string {
	var b strings.Builder
	b.WriteString("q=")
	if o.HasQuality() {
		b.WriteString(strconv.Itoa(o.Quality))
	}
	b.WriteString(";flipY=" + strconv.FormatBool(o.FlipY))
	b.WriteString(";uastc=" + strconv.FormatBool(o.UseUASTC))
	b.WriteString(";mipmaps=" + strconv.FormatBool(o.GenerateMipmaps))
	return b.String()
}

// ConversionJob is one uploaded image waiting to be compressed.
type ConversionJob struct {
	ID          string
	Input       []byte
	Options     Options
	ContentType string
	CreatedAt   time.Time
}

type ConversionResult struct {
	JobID    string
	Output   []byte
	Cached   bool
	Duration time.Duration
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type StatsResponse struct {
	MaxConcurrency int    `json:"max_concurrency"`
	Running        int    `json:"running"`
	Pending        int    `json:"pending"`
	Completed      uint64 `json:"completed"`
	Rejected       uint64 `json:"rejected"`
	CacheEnabled   bool   `json:"cache_enabled"`
}
