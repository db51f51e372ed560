package basisu

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"time"

	"github.com/ds124wfegd/ktx2converter/internal/entity"
)

// waitDelay bounds how long Wait blocks on inherited pipes after the process is killed.
const (
	waitDelay    = 5 * time.Second
	maxLineBytes = 1 << 20
)

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.WaitDelay = waitDelay
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return &entity.SpawnError{Err: err}
	}
	return cmd.Wait()
}

// lineWriter forwards complete lines, without line endings, as they are written.
// Call flush once the writer is done to emit a trailing partial line.
type lineWriter struct {
	buf  bytes.Buffer
	emit func(string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		idx := bytes.IndexByte(w.buf.Bytes(), '\n')
		if idx < 0 {
			break
		}
		line := string(bytes.TrimRight(w.buf.Next(idx+1), "\r\n"))
		if w.emit != nil {
			w.emit(line)
		}
	}
	if w.buf.Len() > maxLineBytes {
		w.flush()
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	if w.buf.Len() == 0 {
		return
	}
	line := w.buf.String()
	w.buf.Reset()
	if w.emit != nil {
		w.emit(line)
	}
}
