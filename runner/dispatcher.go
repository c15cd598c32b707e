package runner

import (
	"context"
	"fmt"

	"github.com/tnqbao/gau-playbook-orchestrator/entity"
	"github.com/tnqbao/gau-playbook-orchestrator/infra"
)

// CompletionNotifier is told about every execution that reached a terminal state
type CompletionNotifier interface {
	ExecutionCompleted(ctx context.Context, executionID uint)
}

// Dispatcher records executions and hands them to the pool
type Dispatcher struct {
	runner   *Runner
	pool     *Pool
	notifier CompletionNotifier
	logger   *infra.LoggerClient
}

func NewDispatcher(runner *Runner, pool *Pool, notifier CompletionNotifier, logger *infra.LoggerClient) *Dispatcher {
	return &Dispatcher{runner: runner, pool: pool, notifier: notifier, logger: logger}
}

// Dispatch stores a pending execution and queues it. When the pool refuses
// the task the record is failed right away and the refusal is returned along
// with the id.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (uint, error) {
	execution, err := d.runner.Prepare(ctx, req, entity.ExecutionStatusPending)
	if err != nil {
		return 0, err
	}

	err = d.pool.Submit(func(workerCtx context.Context) {
		if err := d.runner.Run(workerCtx, execution); err != nil {
			d.logger.ErrorWithContextf(workerCtx, err, "[Dispatcher] Execution %d did not finish cleanly", execution.ID)
		}
		d.notifier.ExecutionCompleted(workerCtx, execution.ID)
	})
	if err != nil {
		reason := fmt.Errorf("execution not scheduled: %w", err)
		if abortErr := d.runner.Abort(context.WithoutCancel(ctx), execution, reason); abortErr != nil {
			d.logger.ErrorWithContextf(ctx, abortErr, "[Dispatcher] Failed to abort execution %d", execution.ID)
		}
		d.notifier.ExecutionCompleted(context.WithoutCancel(ctx), execution.ID)
		return execution.ID, reason
	}

	d.logger.InfoWithContextf(ctx, "[Dispatcher] Execution %d queued (depth %d)", execution.ID, d.pool.QueueDepth())
	return execution.ID, nil
}

// QueueDepth reports how many executions wait for a worker
func (d *Dispatcher) QueueDepth() int64 {
	return d.pool.QueueDepth()
}
