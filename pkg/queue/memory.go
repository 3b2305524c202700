package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"HyperTrade/pkg/logger"
)

// MemoryQueue is a bounded in-process queue drained by a fixed worker pool.
// Enqueue never blocks: when the buffer is full the message is refused.
// Messages are lost on restart.
type MemoryQueue struct {
	logger    *logger.Logger
	config    *QueueConfig
	jobs      map[string]Job
	messages  chan Message
	wg        sync.WaitGroup
	mu        sync.RWMutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
	seq       atomic.Uint64
	dropped   atomic.Uint64
}

// NewMemoryQueue creates a new in-process queue.
func NewMemoryQueue(lgr *logger.Logger, config *QueueConfig, jobs ...Job) *MemoryQueue {
	if config == nil {
		config = &QueueConfig{}
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 128
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	q := &MemoryQueue{
		logger:   lgr,
		config:   config,
		jobs:     make(map[string]Job),
		messages: make(chan Message, config.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}
	q.RegisterJobs(jobs)
	return q
}

// RegisterJobs registers multiple jobs.
func (q *MemoryQueue) RegisterJobs(jobs []Job) {
	for _, job := range jobs {
		q.RegisterJob(job)
	}
}

// RegisterJob registers a single job.
func (q *MemoryQueue) RegisterJob(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.jobs[job.Type()]; exists {
		q.logger.Warn("job already registered", logger.String("job", job.Name()))
		return
	}

	q.jobs[job.Type()] = job
	q.logger.Debug("job registered",
		logger.String("job", job.Name()),
		logger.String("type", job.Type()))
}

// Start starts the workers.
func (q *MemoryQueue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.isRunning {
		return fmt.Errorf("queue already running")
	}
	q.isRunning = true

	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	q.logger.Info("memory queue started",
		logger.Int("workers", q.config.Workers),
		logger.Int("size", q.config.QueueSize))
	return nil
}

// Stop stops accepting messages and waits for the workers to drain the buffer.
func (q *MemoryQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.isRunning {
		q.mu.Unlock()
		return nil
	}
	q.isRunning = false
	close(q.messages)
	q.mu.Unlock()

	doneCh := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-ctx.Done():
		q.cancel()
		q.logger.Warn("timeout waiting for queue workers", logger.Error(ctx.Err()))
		return fmt.Errorf("timeout: %w", ctx.Err())
	case <-doneCh:
		q.cancel()
		q.logger.Info("memory queue stopped gracefully",
			logger.Int64("dropped", int64(q.dropped.Load())))
		return nil
	}
}

// Enqueue adds a message to the queue without blocking.
func (q *MemoryQueue) Enqueue(_ context.Context, msgType string, payload interface{}) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if !q.isRunning {
		return ErrQueueNotRunning
	}
	if _, exists := q.jobs[msgType]; !exists {
		return fmt.Errorf("%w: %s", ErrUnknownJob, msgType)
	}

	msg := Message{
		ID:        strconv.FormatUint(q.seq.Add(1), 10),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	select {
	case q.messages <- msg:
		return nil
	default:
		q.dropped.Add(1)
		return ErrQueueFull
	}
}

// Dropped returns how many messages were refused because the buffer was full.
func (q *MemoryQueue) Dropped() uint64 {
	return q.dropped.Load()
}

func (q *MemoryQueue) worker(id int) {
	defer q.wg.Done()
	q.logger.Debug("queue worker started", logger.Int("worker_id", id))

	for msg := range q.messages {
		q.processMessage(msg)
	}
}

func (q *MemoryQueue) processMessage(msg Message) {
	q.mu.RLock()
	job, exists := q.jobs[msg.Type]
	q.mu.RUnlock()
	if !exists {
		q.logger.Error("no job found",
			logger.String("type", msg.Type),
			logger.String("id", msg.ID))
		return
	}

	for {
		msg.Attempts++
		err := q.handle(job, msg)
		if err == nil {
			return
		}
		if errors.Is(err, context.Canceled) {
			q.logger.Warn("message cancelled",
				logger.String("id", msg.ID),
				logger.String("job", job.Name()))
			return
		}

		q.logger.Warn("message processing error",
			logger.String("id", msg.ID),
			logger.String("job", job.Name()),
			logger.Int("attempt", msg.Attempts),
			logger.Error(err))

		if msg.Attempts > q.config.RetryLimit {
			q.logger.Error("max retries reached",
				logger.String("id", msg.ID),
				logger.String("job", job.Name()))
			return
		}

		select {
		case <-time.After(q.config.RetryDelay):
		case <-q.ctx.Done():
			return
		}
	}
}

func (q *MemoryQueue) handle(job Job, msg Message) error {
	ctx := q.ctx
	if q.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.config.JobTimeout)
		defer cancel()
	}
	return job.Handle(ctx, msg.Payload)
}
