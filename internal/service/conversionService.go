package service

import (
	"context"
	"sync"
	"time"

	"github.com/ds124wfegd/ktx2converter/internal/entity"
	"github.com/ds124wfegd/ktx2converter/internal/pkg/cache"
	"github.com/ds124wfegd/ktx2converter/internal/pkg/kafka"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

type conversionService struct {
	queue      Admission
	workspaces Workspaces
	compressor Compressor
	cache      cache.ResultCache
	producer   kafka.Producer
	log        logrus.FieldLogger

	publishing sync.WaitGroup
}

func NewConversionService(q Admission, workspaces Workspaces, compressor Compressor, resultCache cache.ResultCache, producer kafka.Producer, logger logrus.FieldLogger) ConversionService {
	if resultCache == nil {
		resultCache = cache.Noop{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &conversionService{
		queue:      q,
		workspaces: workspaces,
		compressor: compressor,
		cache:      resultCache,
		producer:   producer,
		log:        logger,
	}
}

func (s *conversionService) Convert(ctx context.Context, job *entity.ConversionJob) (*entity.ConversionResult, error) {
	start := time.Now()
	entry := s.log.WithFields(logrus.Fields{
		"job_id":       job.ID,
		"content_type": job.ContentType,
		"size":         humanize.Bytes(uint64(len(job.Input))),
	})

	var key string
	if s.cache.Enabled() {
		key = cache.Key(job)
		data, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			entry.WithError(err).Warn("result cache lookup failed")
		case ok:
			result := &entity.ConversionResult{JobID: job.ID, Output: data, Cached: true, Duration: time.Since(start)}
			entry.WithField("duration", result.Duration).Info("served conversion from cache")
			s.publish(job, result, nil)
			return result, nil
		}
	}

	var output []byte
	err := s.queue.Do(ctx, func(ctx context.Context) error {
		ws, err := s.workspaces.Provision(job)
		if err != nil {
			return err
		}
		defer s.workspaces.Dispose(ws)

		output, err = s.compressor.Run(ctx, ws, job.Options)
		return err
	})

	result := &entity.ConversionResult{JobID: job.ID, Output: output, Duration: time.Since(start)}
	s.publish(job, result, err)

	entry = entry.WithFields(logrus.Fields{
		"duration": result.Duration,
		"outcome":  entity.Classify(err),
	})
	if err != nil {
		entry.WithError(err).Error("conversion failed")
		return nil, err
	}
	entry.WithField("output_size", humanize.Bytes(uint64(len(output)))).Info("conversion finished")

	if key != "" {
		if err := s.cache.Set(context.WithoutCancel(ctx), key, output); err != nil {
			entry.WithError(err).Warn("result cache store failed")
		}
	}
	return result, nil
}

func (s *conversionService) publish(job *entity.ConversionJob, result *entity.ConversionResult, err error) {
	if s.producer == nil {
		return
	}
	event := entity.ConversionEvent{
		JobID:       job.ID,
		Outcome:     entity.Classify(err),
		ContentType: job.ContentType,
		InputBytes:  len(job.Input),
		OutputBytes: len(result.Output),
		Cached:      result.Cached,
		DurationMS:  result.Duration.Milliseconds(),
		Options:     job.Options,
		Time:        time.Now(),
	}
	if err != nil {
		event.Error = err.Error()
	}

	s.publishing.Add(1)
	go func() {
		defer s.publishing.Done()
		if err := s.producer.Publish(context.Background(), event); err != nil {
			s.log.WithError(err).WithField("job_id", job.ID).Warn("failed to publish conversion event")
		}
	}()
}

func (s *conversionService) Stats() entity.StatsResponse {
	st := s.queue.Stats()
	return entity.StatsResponse{
		MaxConcurrency: st.MaxConcurrency,
		Running:        st.Running,
		Pending:        st.Pending,
		Completed:      st.Completed,
		Rejected:       st.Rejected,
		CacheEnabled:   s.cache.Enabled(),
	}
}

func (s *conversionService) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.publishing.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
