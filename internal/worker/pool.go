package worker

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"podclip-backend/internal/metrics"
	"podclip-backend/internal/models"
)

type Queue interface {
	Enqueue(ctx context.Context, jobID uuid.UUID) error
	EnqueueAfter(jobID uuid.UUID, d time.Duration)
	Dequeue(ctx context.Context, timeout time.Duration) (uuid.UUID, bool, error)
	AcquireUserLock(ctx context.Context, userID uuid.UUID, ttl time.Duration) (string, bool, error)
	ReleaseUserLock(ctx context.Context, userID uuid.UUID, token string) error
	Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage)
}

type JobStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	UpdateStep(ctx context.Context, id uuid.UUID, step string) error
	UpdateError(ctx context.Context, id uuid.UUID, errMsg string, attempts int) error
	ListUnfinished(ctx context.Context, olderThan time.Duration) ([]*models.Job, error)
}

// Runner executes one attempt of a job.
type Runner interface {
	Run(ctx context.Context, job *models.Job) error
}

type Options struct {
	Workers int
	// UserLockTTL bounds one attempt. It must outlive the compute timeout.
	UserLockTTL time.Duration
	// BusyDelay is how long a job waits before going back on the queue when
	// its user already has a job in flight.
	BusyDelay    time.Duration
	RetryBackoff time.Duration
	PopTimeout   time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.UserLockTTL <= 0 {
		o.UserLockTTL = 20 * time.Minute
	}
	if o.BusyDelay <= 0 {
		o.BusyDelay = 5 * time.Second
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = time.Second
	}
	if o.PopTimeout <= 0 {
		o.PopTimeout = 30 * time.Second
	}
	return o
}

type Pool struct {
	queue   Queue
	jobs    JobStore
	runner  Runner
	metrics *metrics.Metrics
	opts    Options

	stopChan  chan struct{}
	popCtx    context.Context
	cancelPop context.CancelFunc
	wg        sync.WaitGroup
}

func NewPool(queue Queue, jobs JobStore, runner Runner, m *metrics.Metrics, opts Options) *Pool {
	popCtx, cancel := context.WithCancel(context.Background())
	return &Pool{
		queue:     queue,
		jobs:      jobs,
		runner:    runner,
		metrics:   m,
		opts:      opts.withDefaults(),
		stopChan:  make(chan struct{}),
		popCtx:    popCtx,
		cancelPop: cancel,
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	log.Printf("Started %d worker goroutines", p.opts.Workers)
}

// Stop halts polling and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	close(p.stopChan)
	p.cancelPop()
	p.wg.Wait()
}

// Recover re-enqueues jobs left unfinished by a previous process.
func (p *Pool) Recover(ctx context.Context, olderThan time.Duration) (int, error) {
	jobs, err := p.jobs.ListUnfinished(ctx, olderThan)
	if err != nil {
		return 0, err
	}

	for _, j := range jobs {
		if err := p.queue.Enqueue(ctx, j.ID); err != nil {
			return 0, err
		}
	}
	return len(jobs), nil
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		jobID, ok, err := p.queue.Dequeue(p.popCtx, p.opts.PopTimeout)
		if err != nil {
			if p.popCtx.Err() == nil {
				log.Printf("Worker %d: dequeue failed: %v", id, err)
				p.pause(time.Second)
			}
			continue
		}
		if !ok {
			continue
		}

		p.process(context.Background(), id, jobID)
	}
}

func (p *Pool) pause(d time.Duration) {
	select {
	case <-p.stopChan:
	case <-time.After(d):
	}
}

func (p *Pool) process(ctx context.Context, workerID int, jobID uuid.UUID) {
	job, err := p.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Printf("Worker %d: job %s no longer exists, dropping", workerID, jobID)
			return
		}
		log.Printf("Worker %d: failed to load job %s: %v", workerID, jobID, err)
		p.queue.EnqueueAfter(jobID, p.opts.BusyDelay)
		return
	}

	if job.Terminal() {
		log.Printf("Worker %d: job %s already %s, skipping", workerID, job.ID, job.Step)
		return
	}

	token, locked, err := p.queue.AcquireUserLock(ctx, job.UserID, p.opts.UserLockTTL)
	if err != nil || !locked {
		if err != nil {
			log.Printf("Worker %d: %v", workerID, err)
		}
		// The user's in-flight job keeps its slot; this one waits behind it.
		p.queue.EnqueueAfter(job.ID, p.opts.BusyDelay)
		return
	}
	defer func() {
		if err := p.queue.ReleaseUserLock(context.Background(), job.UserID, token); err != nil {
			log.Printf("Worker %d: %v", workerID, err)
		}
	}()

	log.Printf("Worker %d: processing job %s (source: %s, attempt %d)", workerID, job.ID, job.SourceKind, job.Attempts+1)

	runCtx, cancel := context.WithTimeout(ctx, p.opts.UserLockTTL)
	defer cancel()

	if err := p.runner.Run(runCtx, job); err != nil {
		p.handleFailure(ctx, job, err)
	}
}

func (p *Pool) handleFailure(ctx context.Context, job *models.Job, err error) {
	job.Attempts++
	errMsg := err.Error()

	maxAttempts := job.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = models.DefaultMaxAttempts
	}

	if updateErr := p.jobs.UpdateError(ctx, job.ID, errMsg, job.Attempts); updateErr != nil {
		log.Printf("Job %s: failed to record error: %v", job.ID, updateErr)
	}

	retry := job.Attempts < maxAttempts
	var classified interface{ IsRetryable() bool }
	if errors.As(err, &classified) && !classified.IsRetryable() {
		retry = false
	}

	if retry {
		backoff := p.opts.RetryBackoff * time.Duration(1<<uint(job.Attempts))
		log.Printf("Job %s failed (attempt %d): %s; retrying in %s", job.ID, job.Attempts, errMsg, backoff)
		p.metrics.JobRetried()
		p.queue.EnqueueAfter(job.ID, backoff)
		return
	}

	log.Printf("Job %s failed permanently: %s", job.ID, errMsg)
	if updateErr := p.jobs.UpdateStep(ctx, job.ID, models.JobFailed); updateErr != nil {
		log.Printf("Job %s: failed to mark failed: %v", job.ID, updateErr)
	}
	job.Step = models.JobFailed
	p.metrics.JobFinished(job.SourceKind, models.UploadStatusFailed)

	p.queue.Publish(ctx, job.UserID, models.WSMessage{
		Type: "error",
		Payload: models.ErrorEvent{
			JobID:        job.ID,
			ErrorCode:    "JOB_FAILED",
			ErrorMessage: errMsg,
		},
	})
}
