package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultQueueSize   = 300
	defaultTaskTimeout = 10 * time.Minute
	maxRetryDelay      = 30 * time.Second
	processTimeWindow  = 100
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Options struct {
	Sweeper        BlobSweeper
	Approvals      ApprovalPurger
	Interval       time.Duration
	WorkerCount    int
	BlobMaxAge     time.Duration
	ApprovalMaxAge time.Duration // zero disables periodic purging
	TaskTimeout    time.Duration
	QueueSize      int
}

// Stats holds scheduler statistics
type Stats struct {
	TotalProcessed     int64         `json:"total_processed"`
	TotalErrors        int64         `json:"total_errors"`
	CurrentWorkers     int           `json:"current_workers"`
	QueueSize          int           `json:"queue_size"`
	QueueCapacity      int           `json:"queue_capacity"`
	LastProcessedAt    *time.Time    `json:"last_processed_at,omitempty"`
	AverageProcessTime time.Duration `json:"average_process_time"`
	processTimes       []time.Duration
}

type Scheduler struct {
	sweeper        BlobSweeper
	approvals      ApprovalPurger
	interval       time.Duration
	workerCount    int
	blobMaxAge     time.Duration
	approvalMaxAge time.Duration
	taskTimeout    time.Duration
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	taskQueue      chan TaskInterface
	stats          *Stats
	mu             sync.RWMutex
}

func NewScheduler(opts Options) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	if opts.WorkerCount <= 0 {
		opts.WorkerCount = 1
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = defaultTaskTimeout
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}

	return &Scheduler{
		sweeper:        opts.Sweeper,
		approvals:      opts.Approvals,
		interval:       opts.Interval,
		workerCount:    opts.WorkerCount,
		blobMaxAge:     opts.BlobMaxAge,
		approvalMaxAge: opts.ApprovalMaxAge,
		taskTimeout:    opts.TaskTimeout,
		ctx:            ctx,
		cancel:         cancel,
		taskQueue:      make(chan TaskInterface, opts.QueueSize),
		stats: &Stats{
			CurrentWorkers: opts.WorkerCount,
			QueueCapacity:  opts.QueueSize,
			processTimes:   make([]time.Duration, 0, processTimeWindow),
		},
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.enqueueMaintenanceTasks()

		if s.interval <= 0 {
			return
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueMaintenanceTasks()
			}
		}
	}()

	slog.Info("Scheduler started", "workers", s.workerCount, "interval", s.interval, "queue_capacity", cap(s.taskQueue))
}

// Stop cancels running tasks and waits for workers to exit. Queued tasks
// that never started are dropped.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()

	if dropped := len(s.taskQueue); dropped > 0 {
		slog.Warn("Scheduler stopped with queued tasks", "dropped", dropped)
	}
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueMaintenanceTasks() {
	if s.sweeper != nil && s.blobMaxAge > 0 {
		if err := s.EnqueueTask(NewSweepBlobsTask(s.sweeper, s.blobMaxAge)); err != nil {
			slog.Warn("Failed to enqueue SweepBlobsTask", "error", err)
		}
	}

	if s.approvals != nil && s.approvalMaxAge > 0 {
		if err := s.EnqueueTask(NewPurgeApprovalsTask(s.approvals, s.approvalMaxAge)); err != nil {
			slog.Warn("Failed to enqueue PurgeApprovalsTask", "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, s.taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	s.recordResult(task.GetDuration(), err)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "key", task.GetKey(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > maxRetryDelay {
				retryDelay = maxRetryDelay
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "key", task.GetKey(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				case <-time.After(retryDelay):
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else if task.GetMaxRetries() > 0 {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}

func (s *Scheduler) recordResult(duration time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.TotalProcessed++
	now := time.Now()
	s.stats.LastProcessedAt = &now

	s.stats.processTimes = append(s.stats.processTimes, duration)
	if len(s.stats.processTimes) > processTimeWindow {
		s.stats.processTimes = s.stats.processTimes[1:]
	}

	var total time.Duration
	for _, t := range s.stats.processTimes {
		total += t
	}
	s.stats.AverageProcessTime = total / time.Duration(len(s.stats.processTimes))

	if err != nil {
		s.stats.TotalErrors++
	}
}

// GetStats returns current scheduler statistics
func (s *Scheduler) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statsCopy := *s.stats
	statsCopy.processTimes = nil
	statsCopy.QueueSize = len(s.taskQueue)
	return statsCopy
}
