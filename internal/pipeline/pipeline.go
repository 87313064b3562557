// Package pipeline runs the job postings stages against a configuration and a
// filesystem: ingest (raw CSV to structured snapshot), clean (snapshot to clean
// CSV) and report (clean CSV to markdown summary).
package pipeline

import (
	"context"
	"time"

	"github.com/spf13/afero"

	"sgjobs/internal/config"
	"sgjobs/internal/dataset"
	"sgjobs/internal/logger"
	"sgjobs/internal/runlog"
	"sgjobs/internal/storage"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRecorder records every stage run. Recording failures are logged and
// never fail the stage.
func WithRecorder(r runlog.Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// WithReadOptions passes options to the raw CSV reader.
func WithReadOptions(opts ...storage.ReadOption) Option {
	return func(p *Pipeline) {
		p.readOpts = append(p.readOpts, opts...)
	}
}

// WithClock overrides the time source used for run records and reports.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// Pipeline runs stages. It is not safe for concurrent use; concurrent runs
// against one processed directory are rejected by the lock file.
type Pipeline struct {
	cfg      *config.Config
	fs       afero.Fs
	log      *logger.Logger
	recorder runlog.Recorder
	readOpts []storage.ReadOption
	now      func() time.Time
	cache    *dataset.Cache
}

// New creates a pipeline. A nil logger discards output.
func New(cfg *config.Config, fs afero.Fs, log *logger.Logger, opts ...Option) *Pipeline {
	if log == nil {
		log = logger.Discard()
	}

	p := &Pipeline{
		cfg:   cfg,
		fs:    fs,
		log:   log,
		now:   time.Now,
		cache: dataset.NewCache(fs, dataset.OptionsFromConfig(cfg)),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// RunResult is the outcome of Run.
type RunResult struct {
	Ingest *IngestResult
	Clean  *CleanResult
}

// Run executes ingest and then clean while holding the lock once.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	res := &RunResult{}

	err := p.locked(func() error {
		var err error

		if res.Ingest, err = p.ingest(ctx); err != nil {
			return err
		}

		if err = ctx.Err(); err != nil {
			return err
		}

		res.Clean, err = p.clean(ctx)

		return err
	})
	if err != nil {
		return res, err
	}

	return res, nil
}

// locked runs fn while holding the processed-directory lock.
func (p *Pipeline) locked(fn func() error) error {
	lock, err := storage.AcquireLock(p.fs, p.cfg.Pipeline.Paths.ProcessedDir)
	if err != nil {
		return err
	}

	defer func() {
		if err := lock.Release(); err != nil {
			p.log.Warn("failed to release lock", "path", lock.Path(), "error", err)
		}
	}()

	return fn()
}

// record stores run with its outcome. It uses a context detached from
// cancellation so cancelled stages are still recorded.
func (p *Pipeline) record(ctx context.Context, run *runlog.Run, err error) {
	run.FinishedAt = p.now()
	if err != nil {
		run.Error = err.Error()
	}

	if p.recorder == nil {
		return
	}

	if rerr := p.recorder.Record(context.WithoutCancel(ctx), run); rerr != nil {
		p.log.Warn("failed to record run", "stage", run.Stage, "error", rerr)
	}
}
