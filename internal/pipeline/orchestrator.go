package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docqa/internal/document"
	"github.com/dgallion1/docqa/internal/metrics"
	"github.com/dgallion1/docqa/internal/qa"
)

var (
	// ErrQueueFull is returned by Submit when no worker slot is free.
	ErrQueueFull = errors.New("job queue is full")
	// ErrStopped is returned by Submit once Stop has been called.
	ErrStopped = errors.New("pipeline is stopped")
)

// Config sizes the pipeline.
type Config struct {
	WorkerCount  int
	MaxQueueSize int
	Loader       document.Options
}

// Orchestrator manages the question job pipeline.
type Orchestrator struct {
	jobs    JobStore
	queue   chan *Job
	engine  *qa.Engine
	history Recorder
	log     *slog.Logger
	cfg     Config

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex // guards stopped and sends on queue
	stopped bool
}

// NewOrchestrator creates the pipeline. Call Start to launch workers.
func NewOrchestrator(cfg Config, engine *qa.Engine, store JobStore, hist Recorder, log *slog.Logger) *Orchestrator {
	cfg.WorkerCount = max(cfg.WorkerCount, 1)
	cfg.MaxQueueSize = max(cfg.MaxQueueSize, 1)
	return &Orchestrator{
		jobs:    store,
		queue:   make(chan *Job, cfg.MaxQueueSize),
		engine:  engine,
		history: hist,
		log:     log,
		cfg:     cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.engine, o.cfg.Loader, o.history, o.log)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job := <-o.queue:
					metrics.DecrementJobsInQueue()
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				if err := o.jobs.Cleanup(workerCtx); err != nil {
					o.log.Warn("job cleanup failed", "error", err)
				}
			}
		}
	}()
}

// Stop shuts down the workers and waits for them. Jobs still queued are
// dropped. Later calls to Submit return ErrStopped.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	o.stopped = true
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Submit stores and queues a new job.
func (o *Orchestrator) Submit(ctx context.Context, job *Job) error {
	if o.isStopped() {
		return ErrStopped
	}

	job.setOnChange(func(snap JobSnapshot) {
		// Progress must outlive the request that submitted the job.
		if err := o.jobs.Save(context.WithoutCancel(ctx), snap); err != nil {
			o.log.Warn("job save failed", "job_id", snap.ID, "error", err)
		}
	})
	if err := o.jobs.Save(ctx, job.Snapshot()); err != nil {
		return fmt.Errorf("save job: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		job.AddError("pipeline_stopped")
		job.SetStatus(StatusFailed, "queued")
		return ErrStopped
	}

	metrics.IncrementJobsInQueue()
	select {
	case o.queue <- job:
		return nil
	default:
		metrics.DecrementJobsInQueue()
		job.AddError("queue_full")
		job.SetStatus(StatusFailed, "queued")
		return fmt.Errorf("%w (%d)", ErrQueueFull, o.cfg.MaxQueueSize)
	}
}

func (o *Orchestrator) isStopped() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stopped
}

// GetJob returns a job snapshot by ID.
func (o *Orchestrator) GetJob(ctx context.Context, id string) (JobSnapshot, bool, error) {
	return o.jobs.Get(ctx, id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
