package worker

import (
	"context"
	"sync"
	"time"

	"github.com/betflow/betflow-api/internal/observability"
	"go.uber.org/zap"
)

// JobFunc is one run of a scheduled job.
type JobFunc func(ctx context.Context) error

// JobWorker runs a job on a schedule until stopped. Runs never overlap: the
// next fire time is computed after the previous run returns.
type JobWorker struct {
	name     string
	schedule Schedule
	job      JobFunc
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewJobWorker(name string, schedule Schedule, job JobFunc) *JobWorker {
	return &JobWorker{
		name:     name,
		schedule: schedule,
		job:      job,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (w *JobWorker) Name() string { return w.name }

// Start blocks and fires the job at each scheduled time.
func (w *JobWorker) Start(ctx context.Context) {
	defer close(w.done)
	next := w.schedule.Next(w.now())
	zap.L().Info("job worker starting", zap.String("job", w.name), zap.Time("next_run", next))

	for {
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			zap.L().Info("job worker context canceled", zap.String("job", w.name))
			return
		case <-w.stopCh:
			timer.Stop()
			zap.L().Info("job worker stop signal received", zap.String("job", w.name))
			return
		case <-timer.C:
			w.RunOnce(ctx)
			next = w.schedule.Next(w.now())
		}
	}
}

// Stop stops the running worker loop.
func (w *JobWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function that
// waits for the loop to exit.
func (w *JobWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return func() {
		w.Stop()
		<-w.done
	}
}

// RunOnce executes the job immediately. Failures are logged and counted.
func (w *JobWorker) RunOnce(ctx context.Context) {
	started := time.Now()
	if err := w.job(ctx); err != nil {
		observability.IncrementWorkerRun(w.name, "failed")
		zap.L().Error("job run failed", zap.String("job", w.name), zap.Error(err))
		return
	}
	observability.IncrementWorkerRun(w.name, "success")
	zap.L().Debug("job run completed", zap.String("job", w.name), zap.Duration("elapsed", time.Since(started)))
}
