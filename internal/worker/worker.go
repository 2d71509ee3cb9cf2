package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/TranscriptRAG/internal/config"
	"github.com/akolanti/TranscriptRAG/internal/job"
	"github.com/akolanti/TranscriptRAG/internal/metrics"
	"github.com/akolanti/TranscriptRAG/internal/rag/retriever"
	"github.com/akolanti/TranscriptRAG/pkg/logger_i"
)

// IndexRunner does the actual index work for a job.
type IndexRunner interface {
	Reindex(ctx context.Context, documentIds []string) (retriever.ReindexReport, error)
	Clear(ctx context.Context) error
}

type Options struct {
	MinWorkers  int64
	MaxWorkers  int64
	IdleTimeout time.Duration
	JobTimeout  time.Duration
}

type Pool struct {
	jobService         *job.Service
	runner             IndexRunner
	opts               Options
	stopWorkerChannel  chan bool
	workerWaitGroup    sync.WaitGroup
	currentWorkerCount int64
	stopOnce           sync.Once
	logger             *logger_i.Logger
}

func NewPool(jobService *job.Service, runner IndexRunner, opts Options) *Pool {
	if opts.MinWorkers <= 0 {
		opts.MinWorkers = config.MinWorkerCount
	}
	if opts.MaxWorkers < opts.MinWorkers {
		opts.MaxWorkers = config.MaxWorkerCount
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = config.IdleWorkerTimeout
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = config.ReindexJobTimeout
	}
	return &Pool{
		jobService:        jobService,
		runner:            runner,
		opts:              opts,
		stopWorkerChannel: make(chan bool),
		logger:            logger_i.NewLogger("WorkerPool"),
	}
}

// Start spawns the minimum workers and the dispatcher that adds more on demand.
func (p *Pool) Start() {
	p.logger.Info("Initializing worker pool", "min", p.opts.MinWorkers, "max", p.opts.MaxWorkers)
	for i := int64(0); i < p.opts.MinWorkers; i++ {
		p.createWorker()
	}
	go p.dispatcher()
}

// Stop retires every worker and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopWorkerChannel)
	})
	p.workerWaitGroup.Wait()
	p.logger.Info("Worker pool stopped")
}

func (p *Pool) WorkerCount() int64 {
	return atomic.LoadInt64(&p.currentWorkerCount)
}

func (p *Pool) dispatcher() {
	p.logger.Info("Dispatcher started")
	for {
		select {
		case <-p.jobService.DispatcherChannel:
			if atomic.LoadInt64(&p.currentWorkerCount) < p.opts.MaxWorkers {
				p.logger.Info("Creating new worker", "workerCount", p.WorkerCount())
				p.createWorker()
			}
		case <-p.stopWorkerChannel:
			return
		}
	}
}

func (p *Pool) createWorker() {
	p.workerWaitGroup.Add(1)
	atomic.AddInt64(&p.currentWorkerCount, 1)
	metrics.IncrementActiveWorkerCount()
	go p.worker()
}

func (p *Pool) worker() {
	idle := time.NewTimer(p.opts.IdleTimeout)
	defer idle.Stop()
	for {
		select {
		case currentJob := <-p.jobService.JobChannel:
			metrics.DecrementJobsInQueue()
			p.executeJob(currentJob)
			idle.Reset(p.opts.IdleTimeout)

		case <-p.stopWorkerChannel:
			atomic.AddInt64(&p.currentWorkerCount, -1)
			p.removeWorker("Stop worker signal received")
			return

		case <-idle.C:
			if p.tryRetire() {
				p.removeWorker("Idle worker timeout")
				return
			}
			idle.Reset(p.opts.IdleTimeout)
		}
	}
}

// tryRetire claims a slot above the minimum so concurrent idle workers never drop below it.
func (p *Pool) tryRetire() bool {
	for {
		n := atomic.LoadInt64(&p.currentWorkerCount)
		if n <= p.opts.MinWorkers {
			return false
		}
		if atomic.CompareAndSwapInt64(&p.currentWorkerCount, n, n-1) {
			return true
		}
	}
}

// removeWorker expects the caller to have already released its slot in currentWorkerCount.
func (p *Pool) removeWorker(reason string) {
	metrics.DecrementActiveWorkerCount()
	p.logger.Info("Removed worker", "reason", reason, "workerCount", p.WorkerCount())
	p.workerWaitGroup.Done()
}
