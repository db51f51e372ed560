package workspace

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ds124wfegd/ktx2converter/internal/entity"
	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
)

const (
	DefaultPrefix    = "temp-"
	DefaultExtension = "png"

	inputBaseName = "image"
	outputName    = "image.ktx2"
)

// Workspace is the per-job directory holding the compressor input and output.
type Workspace struct {
	Dir        string
	InputPath  string
	OutputPath string

	disposeOnce sync.Once
}

type Manager struct {
	root   string
	prefix string
	log    logrus.FieldLogger
}

func New(root, prefix string, logger logrus.FieldLogger) (*Manager, error) {
	if strings.TrimSpace(root) == "" {
		root = filepath.Join(os.TempDir(), "ktx2converter")
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	return &Manager{root: root, prefix: prefix, log: logger}, nil
}

func (m *Manager) Root() string { return m.root }

// Provision allocates a fresh directory for job and writes its input into it.
func (m *Manager) Provision(job *entity.ConversionJob) (*Workspace, error) {
	dir, err := os.MkdirTemp(m.root, m.prefix+"*")
	if err != nil {
		return nil, &entity.IOError{Stage: entity.StageProvision, Err: err}
	}

	ws := &Workspace{
		Dir:        dir,
		InputPath:  filepath.Join(dir, inputBaseName+"."+ExtensionFor(job.ContentType)),
		OutputPath: filepath.Join(dir, outputName),
	}
	if err := m.Materialize(ws, job); err != nil {
		m.Dispose(ws)
		return nil, err
	}

	m.log.WithFields(logrus.Fields{
		"job_id":    job.ID,
		"workspace": dir,
		"size":      humanize.Bytes(uint64(len(job.Input))),
	}).Debug("workspace provisioned")
	return ws, nil
}

// Materialize writes the job input to the workspace input path.
func (m *Manager) Materialize(ws *Workspace, job *entity.ConversionJob) error {
	if err := os.WriteFile(ws.InputPath, job.Input, 0o644); err != nil {
		return &entity.IOError{Stage: entity.StageProvision, Err: err}
	}
	return nil
}

// ReadOutput returns the compressed file. A missing file after a successful run is an error.
func (m *Manager) ReadOutput(ws *Workspace) ([]byte, error) {
	data, err := os.ReadFile(ws.OutputPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %s", entity.ErrOutputMissing, ws.OutputPath)
		}
		return nil, &entity.IOError{Stage: entity.StageReadOutput, Err: err}
	}
	return data, nil
}

// Dispose removes the workspace. Errors are logged, never returned. Safe to call twice.
func (m *Manager) Dispose(ws *Workspace) {
	if ws == nil {
		return
	}
	ws.disposeOnce.Do(func() {
		if err := os.RemoveAll(ws.Dir); err != nil {
			m.log.WithFields(logrus.Fields{
				"workspace": ws.Dir,
				"error":     err.Error(),
			}).Error("failed to remove workspace")
		}
	})
}

// SweepStale removes workspace directories left behind by a previous process.
func (m *Manager) SweepStale(maxAge time.Duration) (removed int) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		m.log.WithError(err).Warn("cannot list workspace root")
		return 0
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), m.prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(m.root, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			m.log.WithFields(logrus.Fields{
				"workspace": path,
				"error":     err.Error(),
			}).Warn("failed to remove stale workspace")
			continue
		}
		removed++
	}

	if removed > 0 {
		m.log.WithField("count", removed).Info("removed stale workspaces")
	}
	return removed
}

// ExtensionFor maps a Content-Type header value to an input file extension without the dot.
func ExtensionFor(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return DefaultExtension
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	}
	m := mimetype.Lookup(strings.ToLower(contentType))
	if m == nil {
		return DefaultExtension
	}
	ext := strings.TrimPrefix(m.Extension(), ".")
	if ext == "" {
		return DefaultExtension
	}
	return ext
}
