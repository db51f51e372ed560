package service

import (
	"context"

	"github.com/ds124wfegd/ktx2converter/internal/entity"
	"github.com/ds124wfegd/ktx2converter/internal/pkg/queue"
	"github.com/ds124wfegd/ktx2converter/internal/pkg/workspace"
)

type ConversionService interface {
	Convert(ctx context.Context, job *entity.ConversionJob) (*entity.ConversionResult, error)
	Stats() entity.StatsResponse
	// Close waits for outstanding event publications.
	Close(ctx context.Context) error
}

type Admission interface {
	Do(ctx context.Context, fn func(context.Context) error) error
	Stats() queue.Stats
}

type Workspaces interface {
	Provision(job *entity.ConversionJob) (*workspace.Workspace, error)
	Dispose(ws *workspace.Workspace)
}

type Compressor interface {
	Run(ctx context.Context, ws *workspace.Workspace, opts entity.Options) ([]byte, error)
}
