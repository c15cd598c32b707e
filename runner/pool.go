package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/tnqbao/gau-playbook-orchestrator/infra"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

var (
	ErrQueueFull  = errors.New("execution queue is full")
	ErrPoolClosed = errors.New("execution pool is shut down")
)

// Task is a unit of work run on a pool worker
type Task func(ctx context.Context)

// Pool runs tasks on a fixed set of workers fed by a bounded queue
type Pool struct {
	tasks  chan Task
	group  *errgroup.Group
	ctx    context.Context
	logger *infra.LoggerClient

	mu     sync.RWMutex
	closed bool
	depth  atomic.Int64
}

func NewPool(workers, queueSize int, logger *infra.LoggerClient) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	group, ctx := errgroup.WithContext(context.Background())
	p := &Pool{
		tasks:  make(chan Task, queueSize),
		group:  group,
		ctx:    ctx,
		logger: logger,
	}
	for i := 0; i < workers; i++ {
		group.Go(p.work)
	}
	return p
}

func (p *Pool) work() error {
	for task := range p.tasks {
		p.depth.Add(-1)
		p.run(task)
	}
	return nil
}

func (p *Pool) run(task Task) {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.ErrorWithContextf(p.ctx, nil, "[Pool] Task panicked: %v", rec)
		}
	}()
	task(p.ctx)
}

// Submit queues a task without blocking
func (p *Pool) Submit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	p.depth.Add(1)
	select {
	case p.tasks <- task:
		return nil
	default:
		p.depth.Add(-1)
		return ErrQueueFull
	}
}

// QueueDepth is the number of accepted tasks not yet picked up by a worker
func (p *Pool) QueueDepth() int64 {
	return p.depth.Load()
}

// RegisterMetrics exports the queue depth as an observable gauge
func (p *Pool) RegisterMetrics(meter metric.Meter) error {
	_, err := meter.Int64ObservableGauge("playbook.executions.queue_depth",
		metric.WithDescription("Executions waiting for a free worker"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(p.QueueDepth())
			return nil
		}),
	)
	return err
}

// Shutdown stops accepting tasks and waits for queued ones to finish
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- p.group.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
