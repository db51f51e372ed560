// Package testsupport holds fixtures shared by package tests.
package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// FakeBasisu is a shell script standing in for the basisu binary. Every invocation
// records its arguments, one per line, and exposes the -output_file value as $out.
type FakeBasisu struct {
	Path     string
	ArgsFile string
}

const scriptHeader = `#!/bin/sh
printf '%%s\n' "$@" > '%s'
out=""
prev=""
for arg in "$@"; do
	if [ "$prev" = "-output_file" ]; then
		out="$arg"
	fi
	prev="$arg"
done
`

// WriteFakeBasisu installs a fake compressor running body after the argument parsing.
func WriteFakeBasisu(t testing.TB, body string) FakeBasisu {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake basisu requires a POSIX shell")
	}

	dir := t.TempDir()
	fake := FakeBasisu{
		Path:     filepath.Join(dir, "basisu"),
		ArgsFile: filepath.Join(dir, "args.txt"),
	}
	script := fmt.Sprintf(scriptHeader, fake.ArgsFile) + body + "\n"
	if err := os.WriteFile(fake.Path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake basisu: %v", err)
	}
	return fake
}

// SucceedingBasisu writes outputSize zero bytes to the output file and exits 0.
func SucceedingBasisu(t testing.TB, outputSize int) FakeBasisu {
	return WriteFakeBasisu(t, fmt.Sprintf(`head -c %d /dev/zero > "$out"`, outputSize))
}

// FailingBasisu prints stderr and exits with exitCode.
func FailingBasisu(t testing.TB, exitCode int, stderr string) FakeBasisu {
	return WriteFakeBasisu(t, fmt.Sprintf("printf '%%s\\n' '%s' >&2\nexit %d", stderr, exitCode))
}

// Args returns the arguments of the last invocation.
func (f FakeBasisu) Args(t testing.TB) []string {
	t.Helper()
	data, err := os.ReadFile(f.ArgsFile)
	if err != nil {
		t.Fatalf("read recorded args: %v", err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

// MissingBinary returns a path that does not exist.
func MissingBinary(t testing.TB) string {
	return filepath.Join(t.TempDir(), "no-such-basisu")
}

// EmptyDir reports whether dir has no entries.
func EmptyDir(t testing.TB, dir string) bool {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read %s: %v", dir, err)
	}
	return len(entries) == 0
}
