package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sjperalta/fintera-cashflow/pkg/logger"
)

// Job represents a background task
type Job func(ctx context.Context) error

// Worker manages background jobs and scheduled tasks.
//
// Shutdown stops the schedulers, drains the queue and waits for async jobs before it
// cancels the job context, so events accepted before shutdown are still delivered.
type Worker struct {
	ctx           context.Context
	cancel        context.CancelFunc
	stop          chan struct{}
	wg            sync.WaitGroup
	queue         chan namedJob
	asyncSem      chan struct{}
	maxConcurrent int

	closeMu sync.RWMutex
	closed  bool

	stats   WorkerStats
	statsMu sync.RWMutex
}

type namedJob struct {
	name string
	run  Job
}

// WorkerStats holds statistics about the worker
type WorkerStats struct {
	ActiveJobs    int                  `json:"active_jobs"`
	CompletedJobs int64                `json:"completed_jobs"`
	FailedJobs    int64                `json:"failed_jobs"`
	QueueLength   int                  `json:"queue_length"`
	MaxConcurrent int                  `json:"max_concurrent"`
	LastRuns      map[string]time.Time `json:"last_runs"`
}

// NewWorker creates a worker with N concurrent processors
func NewWorker(numWorkers int) *Worker {
	if numWorkers < 1 {
		numWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	// Allow 2x workers for async jobs
	asyncLimit := numWorkers * 2
	if asyncLimit < 10 {
		asyncLimit = 10
	}

	w := &Worker{
		ctx:           ctx,
		cancel:        cancel,
		stop:          make(chan struct{}),
		queue:         make(chan namedJob, 100),
		asyncSem:      make(chan struct{}, asyncLimit),
		maxConcurrent: asyncLimit,
		stats:         WorkerStats{LastRuns: make(map[string]time.Time)},
	}

	// Start worker goroutines
	for i := 0; i < numWorkers; i++ {
		w.wg.Add(1)
		go w.process(i)
	}

	return w
}

// Enqueue adds a job to be processed by the worker pool
func (w *Worker) Enqueue(name string, job Job) {
	w.closeMu.RLock()
	defer w.closeMu.RUnlock()
	if w.closed {
		logger.Warn("[Worker] Shut down, dropping job", slog.String("job", name))
		return
	}

	select {
	case w.queue <- namedJob{name: name, run: job}:
	default:
		logger.Warn("[Worker] Queue full, running job synchronously", slog.String("job", name))
		w.run(name, job, "[Worker]")
	}
}

// EnqueueAsync runs a job in a new goroutine (fire-and-forget), bounded by semaphore
func (w *Worker) EnqueueAsync(name string, job Job) {
	w.closeMu.RLock()
	defer w.closeMu.RUnlock()
	if w.closed {
		logger.Warn("[Worker] Shut down, dropping async job", slog.String("job", name))
		return
	}

	// Track in waitgroup before the goroutine starts so Shutdown waits for it
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		// Acquire semaphore to limit concurrency
		w.asyncSem <- struct{}{}
		defer func() { <-w.asyncSem }()

		w.run(name, job, "[Worker] Async")
	}()
}

// process handles jobs from the queue until it is closed
func (w *Worker) process(workerID int) {
	defer w.wg.Done()
	for job := range w.queue {
		w.run(job.name, job.run, fmt.Sprintf("[Worker %d]", workerID))
	}
}

// ScheduleEvery runs a job at fixed intervals. The first run happens after the interval (not at startup).
func (w *Worker) ScheduleEvery(name string, interval time.Duration, job Job) {
	w.schedule(name, interval, job, false)
}

// ScheduleEveryImmediate runs a job once at startup, then at fixed intervals
func (w *Worker) ScheduleEveryImmediate(name string, interval time.Duration, job Job) {
	w.schedule(name, interval, job, true)
}

func (w *Worker) schedule(name string, interval time.Duration, job Job, immediate bool) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if immediate {
			w.run(name, job, "[Scheduler]")
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-w.stop:
				return
			case <-ticker.C:
				w.run(name, job, "[Scheduler]")
			}
		}
	}()
}

// run executes one job, recording stats and recovering from panics
func (w *Worker) run(name string, job Job, prefix string) {
	w.trackJobStart()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error(prefix+" Job panic", slog.String("job", name), slog.Any("panic", r))
			w.trackJobFailure()
		}
		w.trackJobEnd(name, start)
	}()

	if err := job(w.ctx); err != nil {
		logger.Error(prefix+" Job error", slog.String("job", name), slog.String("error", err.Error()))
		w.trackJobFailure()
		return
	}
	logger.Debug(prefix+" Job completed", slog.String("job", name), slog.Duration("elapsed", time.Since(start)))
}

// Shutdown gracefully stops all workers
func (w *Worker) Shutdown() {
	w.closeMu.Lock()
	if w.closed {
		w.closeMu.Unlock()
		return
	}
	w.closed = true
	close(w.stop)
	close(w.queue)
	w.closeMu.Unlock()

	w.wg.Wait()
	w.cancel()
}

// Context returns the worker's context for checking cancellation
func (w *Worker) Context() context.Context {
	return w.ctx
}

// GetStats returns the current worker statistics
func (w *Worker) GetStats() WorkerStats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()
	stats := w.stats
	stats.LastRuns = make(map[string]time.Time, len(w.stats.LastRuns))
	for k, v := range w.stats.LastRuns {
		stats.LastRuns[k] = v
	}
	stats.QueueLength = len(w.queue)
	stats.MaxConcurrent = w.maxConcurrent
	return stats
}

func (w *Worker) trackJobStart() {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs++
}

// trackJobEnd counts every finished job; FailedJobs is the failed subset of CompletedJobs
func (w *Worker) trackJobEnd(name string, start time.Time) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs--
	w.stats.CompletedJobs++
	w.stats.LastRuns[name] = start
}

func (w *Worker) trackJobFailure() {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.FailedJobs++
}
