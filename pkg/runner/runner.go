// Package runner drives a workload under a memory tracker, recording
// resident set samples at a fixed iteration cadence.
package runner

import (
	"context"

	"github.com/c2h5oh/datasize"
	log "github.com/sirupsen/logrus"

	"github.com/vjranagit/memtrend/pkg/sampler"
	"github.com/vjranagit/memtrend/pkg/series"
	"github.com/vjranagit/memtrend/pkg/workload"
)

// SampleSink receives samples as the run produces them. Sinks are
// best effort: a failing sink is logged and dropped, it never stops
// the run.
type SampleSink interface {
	Begin(label string) error
	Record(s series.Sample) error
	End() error
}

// Result summarizes a finished run
type Result struct {
	Series     *series.Series
	Iterations int
	StepErrors int
}

// Runner executes workload iterations and samples memory every
// Interval iterations.
type Runner struct {
	Interval int
	Log      *log.Logger
	Sink     SampleSink
}

// Run starts the tracker, steps the workload, and stops the tracker.
// Workload step errors are counted and logged but do not abort the
// run. Cancelling the context aborts between iterations and leaves
// the series active.
func (r *Runner) Run(ctx context.Context, t *sampler.Tracker, w workload.Workload, iterations int) (Result, error) {
	logger := r.logger()

	baseline, err := t.Start()
	if err != nil {
		return Result{}, err
	}
	r.emitBegin(logger, w.Name())
	r.emitSample(logger, baseline)

	logger.WithFields(log.Fields{
		"workload":   w.Name(),
		"iterations": iterations,
		"rss":        datasize.ByteSize(baseline.Value).HumanReadable(),
	}).Info("run started")

	stepErrors := 0
	for i := 0; i < iterations; i++ {
		select {
		case <-ctx.Done():
			return Result{Series: t.Series(), Iterations: i, StepErrors: stepErrors}, ctx.Err()
		default:
		}

		if err := w.Step(i); err != nil {
			stepErrors++
			logger.WithFields(log.Fields{
				"workload":  w.Name(),
				"iteration": i,
			}).WithError(err).Warn("workload step failed")
		}

		if r.Interval > 0 && i%r.Interval == 0 {
			sample, err := t.Record()
			if err != nil {
				return Result{Series: t.Series(), Iterations: i, StepErrors: stepErrors}, err
			}
			r.emitSample(logger, sample)
			logger.WithFields(log.Fields{
				"workload":  w.Name(),
				"iteration": i,
				"rss":       datasize.ByteSize(sample.Value).HumanReadable(),
			}).Info("sample recorded")
		}
	}

	final, err := t.Stop()
	if err != nil {
		return Result{Series: t.Series(), Iterations: iterations, StepErrors: stepErrors}, err
	}
	r.emitSample(logger, final)
	r.emitEnd(logger)

	logger.WithFields(log.Fields{
		"workload":    w.Name(),
		"iterations":  iterations,
		"step_errors": stepErrors,
		"samples":     t.Series().Len(),
		"rss":         datasize.ByteSize(final.Value).HumanReadable(),
	}).Info("run complete")

	return Result{Series: t.Series(), Iterations: iterations, StepErrors: stepErrors}, nil
}

func (r *Runner) logger() *log.Logger {
	if r.Log != nil {
		return r.Log
	}
	return log.StandardLogger()
}

func (r *Runner) emitBegin(logger *log.Logger, label string) {
	if r.Sink == nil {
		return
	}
	if err := r.Sink.Begin(label); err != nil {
		logger.WithError(err).Warn("sample sink failed, disabling")
		r.Sink = nil
	}
}

func (r *Runner) emitSample(logger *log.Logger, s series.Sample) {
	if r.Sink == nil {
		return
	}
	if err := r.Sink.Record(s); err != nil {
		logger.WithError(err).Warn("sample sink failed, disabling")
		r.Sink = nil
	}
}

func (r *Runner) emitEnd(logger *log.Logger) {
	if r.Sink == nil {
		return
	}
	if err := r.Sink.End(); err != nil {
		logger.WithError(err).Warn("sample sink failed, disabling")
		r.Sink = nil
	}
}
