package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"followscout/pkg/logger"
	"followscout/pkg/scanner"
)

// Job is one target queued for scanning
type Job struct {
	Target string
}

// Result pairs a job with its scan outcome
type Result struct {
	Job      Job
	Outcome  scanner.Outcome
	Duration time.Duration
}

// TargetScanner is the scanning surface the pool drives
type TargetScanner interface {
	Scan(ctx context.Context, target string) scanner.Outcome
}

// Pool scans targets with a bounded number of concurrent workers. The
// bound stays small; the rate governor already paces individual requests,
// the pool only overlaps waits across targets.
type Pool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	stopOnce    sync.Once
	ctx         context.Context
	cancel      context.CancelFunc
	scanner     TargetScanner
	logger      logger.Logger
}

// NewPool creates a scan pool with the given worker count
func NewPool(ctx context.Context, numWorkers int, sc TargetScanner, log logger.Logger) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan Result, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		scanner:     sc,
		logger:      log,
	}
}

// Start launches the workers
func (p *Pool) Start() {
	p.logger.InfoWithFields("starting scan workers", map[string]interface{}{
		"num_workers": p.numWorkers,
	})

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop closes the queue, waits for in-flight scans, and closes the result
// channel. Call after the last Submit. Safe to call more than once and
// after the pool's context was cancelled; jobs still queued at that point
// are dropped, never scanned.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.jobQueue)
		p.wg.Wait()
		close(p.resultQueue)
		p.cancel()
	})
}

// Submit queues a target for scanning
func (p *Pool) Submit(job Job) error {
	select {
	case p.jobQueue <- job:
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("scan pool is shutting down")
	}
}

// Results returns the channel scan results arrive on
func (p *Pool) Results() <-chan Result {
	return p.resultQueue
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobQueue {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		start := time.Now()
		outcome := p.scanner.Scan(p.ctx, job.Target)
		result := Result{
			Job:      job,
			Outcome:  outcome,
			Duration: time.Since(start),
		}

		p.logger.DebugWithFields("worker finished target", map[string]interface{}{
			"worker_id": id,
			"target":    job.Target,
			"success":   outcome.Succeeded(),
			"duration":  result.Duration,
		})

		select {
		case p.resultQueue <- result:
		case <-p.ctx.Done():
			return
		}
	}
}
