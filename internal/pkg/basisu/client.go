package basisu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/ds124wfegd/ktx2converter/internal/entity"
	"github.com/ds124wfegd/ktx2converter/internal/pkg/workspace"
	"github.com/sirupsen/logrus"
)

// maxStderrBytes bounds the diagnostics kept for a single run. The tail is kept, the
// final error is usually the last thing basisu prints.
const maxStderrBytes = 64 << 10

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, stderr io.Writer) error
}

// OutputReader loads the compressed file once the compressor reports success.
type OutputReader interface {
	ReadOutput(ws *workspace.Workspace) ([]byte, error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) {
		if logger != nil {
			c.log = logger
		}
	}
}

// Client wraps basisu CLI invocations.
type Client struct {
	binary  string
	timeout time.Duration
	outputs OutputReader
	exec    Executor
	log     logrus.FieldLogger
}

// New constructs a basisu client. A zero timeout waits for the process indefinitely.
func New(binary string, timeout time.Duration, outputs OutputReader, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("basisu binary required")
	}
	if outputs == nil {
		return nil, errors.New("output reader required")
	}
	c := &Client{
		binary:  binary,
		timeout: timeout,
		outputs: outputs,
		exec:    commandExecutor{},
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Binary() string { return c.binary }

// Check reports whether the binary can be resolved.
func (c *Client) Check() error {
	if _, err := exec.LookPath(c.binary); err != nil {
		return fmt.Errorf("basisu binary %q not found: %w", c.binary, err)
	}
	return nil
}

// Run compresses the workspace input and returns the output bytes.
func (c *Client) Run(ctx context.Context, ws *workspace.Workspace, opts entity.Options) ([]byte, error) {
	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := BuildArgs(opts, ws.InputPath, ws.OutputPath)
	logEntry := c.log.WithField("workspace", ws.Dir)
	stderr := &stderrTail{limit: maxStderrBytes}
	lines := &lineWriter{emit: func(line string) {
		logEntry.WithField("stream", "stderr").Debug(line)
	}}

	start := time.Now()
	err := c.exec.Run(runCtx, c.binary, args, io.MultiWriter(stderr, lines))
	lines.flush()
	if err != nil {
		return nil, c.classify(ctx, runCtx, err, stderr.String())
	}

	logEntry.WithField("duration", time.Since(start)).Debug("basisu finished")
	return c.outputs.ReadOutput(ws)
}

func (c *Client) classify(parent, runCtx context.Context, err error, stderr string) error {
	if parent.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", entity.ErrCompressionTimeout, c.timeout)
	}

	var spawnErr *entity.SpawnError
	if errors.As(err, &spawnErr) {
		return spawnErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &entity.CompressorError{ExitCode: exitErr.ExitCode(), Stderr: stderr}
	}

	return fmt.Errorf("run basisu: %w", err)
}

const truncatedMarker = "[stderr truncated]\n"

// stderrTail retains the last limit bytes written to it, unmodified.
type stderrTail struct {
	buf       []byte
	limit     int
	truncated bool
}

func (s *stderrTail) Write(p []byte) (int, error) {
	n := len(p)
	if drop := len(s.buf) + len(p) - s.limit; drop > 0 {
		s.truncated = true
		if drop >= len(s.buf) {
			p = p[drop-len(s.buf):]
			s.buf = s.buf[:0]
		} else {
			copy(s.buf, s.buf[drop:])
			s.buf = s.buf[:len(s.buf)-drop]
		}
	}
	s.buf = append(s.buf, p...)
	return n, nil
}

func (s *stderrTail) String() string {
	if s.truncated {
		return truncatedMarker + string(s.buf)
	}
	return string(s.buf)
}
