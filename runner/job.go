package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tnqbao/gau-playbook-orchestrator/entity"
	"github.com/tnqbao/gau-playbook-orchestrator/infra"
	"github.com/tnqbao/gau-playbook-orchestrator/repository"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
)

var (
	ErrNoPlaybooks = errors.New("no playbooks selected")
	ErrNoTargets   = errors.New("no target nodes or groups selected")
)

// Invoker runs a single playbook against an inventory file
type Invoker interface {
	RunPlaybook(ctx context.Context, inventoryPath, playbookPath string) (*infra.CommandResult, error)
}

// Request describes one playbook-run invocation
type Request struct {
	Playbooks []string
	NodeIDs   []uint
	GroupIDs  []uint
}

func (r Request) Validate() error {
	if len(r.Playbooks) == 0 {
		return ErrNoPlaybooks
	}
	if len(r.NodeIDs) == 0 && len(r.GroupIDs) == 0 {
		return ErrNoTargets
	}
	return nil
}

// Runner drives one execution from inventory to terminal record
type Runner struct {
	repo      *repository.Repository
	invoker   Invoker
	catalog   *Catalog
	inventory *InventoryBuilder
	logger    *infra.LoggerClient
	tracer    trace.Tracer
	finished  metric.Int64Counter
}

func NewRunner(
	repo *repository.Repository,
	invoker Invoker,
	catalog *Catalog,
	inventory *InventoryBuilder,
	logger *infra.LoggerClient,
	telemetry *infra.TelemetryClient,
) *Runner {
	finished, err := telemetry.Meter.Int64Counter("playbook.executions.finished",
		metric.WithDescription("Executions that reached a terminal state"),
	)
	if err != nil {
		logger.WarningWithContextf(context.Background(), "[Runner] Failed to create finished counter: %v", err)
	}

	return &Runner{
		repo:      repo,
		invoker:   invoker,
		catalog:   catalog,
		inventory: inventory,
		logger:    logger,
		tracer:    telemetry.Tracer,
		finished:  finished,
	}
}

// Prepare persists a new execution record in the given initial status
func (r *Runner) Prepare(ctx context.Context, req Request, status entity.ExecutionStatus) (*entity.PlaybookExecution, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	execution := &entity.PlaybookExecution{
		Playbooks:    datatypes.JSONSlice[string](req.Playbooks),
		TargetNodes:  datatypes.JSONSlice[uint](nonNil(req.NodeIDs)),
		TargetGroups: datatypes.JSONSlice[uint](nonNil(req.GroupIDs)),
		Status:       status,
		StartedAt:    time.Now().UTC(),
	}
	if err := r.repo.WithContext(ctx).ExecutionRepo.Create(execution); err != nil {
		return nil, fmt.Errorf("failed to create execution record: %w", err)
	}
	return execution, nil
}

// Execute records and runs an invocation synchronously, returning its id
func (r *Runner) Execute(ctx context.Context, req Request) (uint, error) {
	execution, err := r.Prepare(ctx, req, entity.ExecutionStatusRunning)
	if err != nil {
		return 0, err
	}
	return execution.ID, r.Run(ctx, execution)
}

// Abort finishes an execution that will never run
func (r *Runner) Abort(ctx context.Context, execution *entity.PlaybookExecution, reason error) error {
	return r.fail(ctx, r.repo.WithContext(ctx), execution, reason)
}

// Run carries a prepared execution to a terminal state. The returned error
// only reports that the final state could not be persisted; playbook
// failures are recorded on the execution itself.
func (r *Runner) Run(ctx context.Context, execution *entity.PlaybookExecution) (err error) {
	if execution.Status.IsTerminal() {
		return repository.ErrInvalidTransition
	}

	ctx, span := r.tracer.Start(ctx, "runner.Run", trace.WithAttributes(
		attribute.Int64("execution.id", int64(execution.ID)),
		attribute.StringSlice("execution.playbooks", execution.Playbooks),
	))
	defer span.End()

	repo := r.repo.WithContext(ctx)

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorWithContextf(ctx, nil, "[Runner] Execution %d panicked: %v", execution.ID, rec)
			err = r.fail(ctx, repo, execution, fmt.Errorf("panic: %v", rec))
		}
		if execution.Status == entity.ExecutionStatusFailed {
			span.SetStatus(codes.Error, "execution failed")
		}
	}()

	if execution.Status == entity.ExecutionStatusPending {
		if err := repo.ExecutionRepo.MarkRunning(execution.ID); err != nil {
			if errors.Is(err, repository.ErrInvalidTransition) {
				r.logger.WarningWithContextf(ctx, "[Runner] Execution %d is no longer pending, skipping", execution.ID)
				return err
			}
			return r.fail(ctx, repo, execution, fmt.Errorf("failed to mark execution running: %w", err))
		}
		execution.Status = entity.ExecutionStatusRunning
	}

	r.logger.InfoWithContextf(ctx, "[Runner] Execution %d started: playbooks=%v nodes=%v groups=%v",
		execution.ID, []string(execution.Playbooks), []uint(execution.TargetNodes), []uint(execution.TargetGroups))

	outputs, errs, err := r.runPlaybooks(ctx, repo, execution)
	if err != nil {
		span.RecordError(err)
		execution.Output = strings.Join(outputs, "\n")
		return r.fail(ctx, repo, execution, err)
	}

	status := entity.ExecutionStatusCompleted
	var errorOutput *string
	if len(errs) > 0 {
		status = entity.ExecutionStatusFailed
		joined := strings.Join(errs, "\n")
		errorOutput = &joined
	}

	return r.finish(ctx, repo, execution, status, strings.Join(outputs, "\n"), errorOutput)
}

func (r *Runner) runPlaybooks(ctx context.Context, repo *repository.Repository, execution *entity.PlaybookExecution) ([]string, []string, error) {
	nodes, err := repo.NodeRepo.FindByIDs(execution.TargetNodes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load target nodes: %w", err)
	}
	groups, err := repo.GroupRepo.FindByIDs(execution.TargetGroups)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load target groups: %w", err)
	}

	inventoryPath, err := r.inventory.Build(nodes, groups)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build inventory: %w", err)
	}
	defer func() {
		if err := os.Remove(inventoryPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.logger.WarningWithContextf(ctx, "[Runner] Failed to remove inventory %s: %v", inventoryPath, err)
		}
	}()

	var outputs, errs []string
	for _, name := range execution.Playbooks {
		output, errText := r.runPlaybook(ctx, inventoryPath, name)
		if output != "" {
			outputs = append(outputs, output)
		}
		if errText != "" {
			errs = append(errs, errText)
		}
	}
	return outputs, errs, nil
}

// runPlaybook returns the stdout block and the error entry of one playbook;
// either may be empty
func (r *Runner) runPlaybook(ctx context.Context, inventoryPath, name string) (string, string) {
	ctx, span := r.tracer.Start(ctx, "runner.Playbook", trace.WithAttributes(attribute.String("playbook.name", name)))
	defer span.End()

	path, err := r.catalog.Resolve(name)
	if err != nil {
		span.SetStatus(codes.Error, "not found")
		r.logger.WarningWithContextf(ctx, "[Runner] Playbook %s not found: %v", name, err)
		return "", fmt.Sprintf("Playbook %s not found", name)
	}

	result, err := r.invoker.RunPlaybook(ctx, inventoryPath, path)
	if errors.Is(err, infra.ErrCommandTimeout) {
		span.SetStatus(codes.Error, "timeout")
		r.logger.WarningWithContextf(ctx, "[Runner] Playbook %s timed out", name)
		return "", fmt.Sprintf("Playbook %s timed out", name)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invocation failed")
		r.logger.ErrorWithContextf(ctx, err, "[Runner] Error executing %s", name)
		return "", fmt.Sprintf("Error executing %s: %v", name, err)
	}

	header := fmt.Sprintf("=== Playbook: %s ===\n", name)
	output := header + result.Stdout
	span.SetAttributes(attribute.Int("playbook.exit_code", result.ExitCode))

	switch {
	case result.Stderr != "":
		span.SetStatus(codes.Error, "stderr")
		return output, header + result.Stderr
	case result.ExitCode != 0:
		span.SetStatus(codes.Error, "non-zero exit")
		return output, fmt.Sprintf("Playbook %s exited with code %d", name, result.ExitCode)
	}
	return output, ""
}

func (r *Runner) fail(ctx context.Context, repo *repository.Repository, execution *entity.PlaybookExecution, reason error) error {
	r.logger.ErrorWithContextf(ctx, reason, "[Runner] Execution %d failed", execution.ID)
	message := reason.Error()
	return r.finish(ctx, repo, execution, entity.ExecutionStatusFailed, execution.Output, &message)
}

func (r *Runner) finish(
	ctx context.Context,
	repo *repository.Repository,
	execution *entity.PlaybookExecution,
	status entity.ExecutionStatus,
	output string,
	errorOutput *string,
) error {
	if !execution.Status.CanTransitionTo(status) {
		r.logger.WarningWithContextf(ctx, "[Runner] Execution %d is already %s, refusing %s", execution.ID, execution.Status, status)
		return fmt.Errorf("execution %d is %s: %w", execution.ID, execution.Status, repository.ErrInvalidTransition)
	}

	completedAt := time.Now().UTC()
	if completedAt.Before(execution.StartedAt) {
		completedAt = execution.StartedAt
	}

	execution.Status = status
	execution.CompletedAt = &completedAt
	execution.Output = output
	execution.ErrorOutput = errorOutput

	if err := repo.ExecutionRepo.Finish(execution); err != nil {
		r.logger.ErrorWithContextf(ctx, err, "[Runner] Failed to persist execution %d as %s", execution.ID, status)
		return fmt.Errorf("failed to finish execution %d: %w", execution.ID, err)
	}

	if r.finished != nil {
		r.finished.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(status))))
	}
	r.logger.InfoWithContextf(ctx, "[Runner] Execution %d finished: %s", execution.ID, status)
	return nil
}

func nonNil(ids []uint) []uint {
	if ids == nil {
		return []uint{}
	}
	return ids
}
