package basisu

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ds124wfegd/ktx2converter/internal/entity"
	"github.com/ds124wfegd/ktx2converter/internal/pkg/workspace"
	"github.com/ds124wfegd/ktx2converter/internal/testsupport"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runReal(t *testing.T, binary string, timeout time.Duration, opts entity.Options) ([]byte, error) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	manager, err := workspace.New(t.TempDir(), "", logger)
	require.NoError(t, err)

	ws, err := manager.Provision(&entity.ConversionJob{Input: []byte("png"), ContentType: "image/png"})
	require.NoError(t, err)
	defer manager.Dispose(ws)

	client, err := New(binary, timeout, manager, WithLogger(logger))
	require.NoError(t, err)
	return client.Run(context.Background(), ws, opts)
}

func TestCommandExecutorSuccess(t *testing.T) {
	fake := testsupport.SucceedingBasisu(t, 3072)

	out, err := runReal(t, fake.Path, time.Minute, entity.Options{Quality: 128, FlipY: true})
	require.NoError(t, err)
	assert.Len(t, out, 3072)

	args := fake.Args(t)
	assert.Equal(t, "-ktx2", args[0])
	assert.Contains(t, args, "-y_flip")
	assert.Contains(t, args, "128")
}

func TestCommandExecutorNonZeroExit(t *testing.T) {
	fake := testsupport.FailingBasisu(t, 1, "bad input")

	_, err := runReal(t, fake.Path, time.Minute, entity.Options{})

	var compErr *entity.CompressorError
	require.ErrorAs(t, err, &compErr)
	assert.Equal(t, 1, compErr.ExitCode)
	assert.Equal(t, "bad input\n", compErr.Stderr)
}

func TestCommandExecutorMultilineStderr(t *testing.T) {
	fake := testsupport.WriteFakeBasisu(t, "echo 'line one' >&2\nprintf 'line two' >&2\nexit 7")

	_, err := runReal(t, fake.Path, time.Minute, entity.Options{})

	var compErr *entity.CompressorError
	require.ErrorAs(t, err, &compErr)
	assert.Equal(t, 7, compErr.ExitCode)
	assert.Equal(t, "line one\nline two", compErr.Stderr)
}

func TestCommandExecutorKeepsErrorAfterLongOutput(t *testing.T) {
	fake := testsupport.WriteFakeBasisu(t, "head -c 70000 /dev/zero | tr '\\000' x >&2\nprintf '\\nerror: bad input\\n' >&2\nexit 1")

	_, err := runReal(t, fake.Path, time.Minute, entity.Options{})

	var compErr *entity.CompressorError
	require.ErrorAs(t, err, &compErr)
	assert.True(t, strings.HasPrefix(compErr.Stderr, truncatedMarker))
	assert.True(t, strings.HasSuffix(compErr.Stderr, "\nerror: bad input\n"))
	assert.Len(t, compErr.Stderr, len(truncatedMarker)+maxStderrBytes)
}

func TestCommandExecutorMissingBinary(t *testing.T) {
	_, err := runReal(t, testsupport.MissingBinary(t), time.Minute, entity.Options{})

	var spawnErr *entity.SpawnError
	assert.ErrorAs(t, err, &spawnErr)
}

func TestCommandExecutorKillsOnTimeout(t *testing.T) {
	fake := testsupport.WriteFakeBasisu(t, "exec sleep 10")

	start := time.Now()
	_, err := runReal(t, fake.Path, 100*time.Millisecond, entity.Options{})

	assert.ErrorIs(t, err, entity.ErrCompressionTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCheck(t *testing.T) {
	fake := testsupport.SucceedingBasisu(t, 1)
	logger, _ := test.NewNullLogger()
	manager, err := workspace.New(t.TempDir(), "", logger)
	require.NoError(t, err)

	ok, err := New(fake.Path, 0, manager)
	require.NoError(t, err)
	assert.NoError(t, ok.Check())

	missing, err := New(testsupport.MissingBinary(t), 0, manager)
	require.NoError(t, err)
	assert.Error(t, missing.Check())
}

func TestLineWriter(t *testing.T) {
	var lines []string
	w := &lineWriter{emit: func(s string) { lines = append(lines, s) }}

	_, _ = w.Write([]byte("par"))
	_, _ = w.Write([]byte("tial\r\nsecond\nthi"))
	w.flush()

	assert.Equal(t, []string{"partial", "second", "thi"}, lines)
}
