package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tnqbao/gau-playbook-orchestrator/entity"
	"github.com/tnqbao/gau-playbook-orchestrator/infra"
	"github.com/tnqbao/gau-playbook-orchestrator/infra/produce"
	"github.com/tnqbao/gau-playbook-orchestrator/repository"
	"gorm.io/gorm"
)

// ErrExecutionNotFinished means the completion message arrived before the
// record reached a terminal state
var ErrExecutionNotFinished = errors.New("execution is not finished")

// ObjectStore receives archived logs; *infra.MinioClient satisfies it
type ObjectStore interface {
	PutObjectStream(ctx context.Context, key string, data io.Reader, size int64, contentType string, metadata map[string]string) error
}

type ExecutionLogConsumer struct {
	channel    *amqp.Channel
	infra      *infra.Infra
	repository *repository.Repository
	store      ObjectStore
	logsDir    string
	retryDelay time.Duration
}

func NewExecutionLogConsumer(channel *amqp.Channel, infra *infra.Infra, repo *repository.Repository, logsDir string) *ExecutionLogConsumer {
	c := &ExecutionLogConsumer{
		channel:    channel,
		infra:      infra,
		repository: repo,
		logsDir:    logsDir,
		retryDelay: 2 * time.Second,
	}
	if infra.Minio != nil {
		c.store = infra.Minio
	}
	return c
}

func (c *ExecutionLogConsumer) Start(ctx context.Context) error {
	if err := produce.DeclareExecutionTopology(c.channel); err != nil {
		return fmt.Errorf("failed to declare execution topology: %w", err)
	}

	msgs, err := c.channel.Consume(
		produce.ExecutionCompletedQueue,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register execution log consumer: %w", err)
	}

	c.infra.Logger.InfoWithContextf(ctx, "[Execution Log Consumer] Started listening on queue: %s", produce.ExecutionCompletedQueue)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.infra.Logger.InfoWithContextf(ctx, "[Execution Log Consumer] Shutting down...")
				return
			case msg, ok := <-msgs:
				if !ok {
					c.infra.Logger.WarningWithContextf(ctx, "[Execution Log Consumer] Channel closed")
					return
				}
				c.handleExecutionCompleted(ctx, msg)
			}
		}
	}()

	return nil
}

func (c *ExecutionLogConsumer) handleExecutionCompleted(ctx context.Context, msg amqp.Delivery) {
	var payload produce.ExecutionCompletedMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil || payload.ExecutionID == 0 {
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Execution Log Consumer] Invalid message payload")
		_ = msg.Nack(false, false)
		return
	}

	var err error
	maxRetries := 3
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err = c.Archive(ctx, payload.ExecutionID)
		if err == nil {
			c.infra.Logger.InfoWithContextf(ctx, "[Execution Log Consumer] Archived execution %d", payload.ExecutionID)
			_ = msg.Ack(false)
			return
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.infra.Logger.ErrorWithContextf(ctx, err, "[Execution Log Consumer] Execution %d does not exist, dropping message", payload.ExecutionID)
			_ = msg.Nack(false, false)
			return
		}

		c.infra.Logger.ErrorWithContextf(ctx, err, "[Execution Log Consumer] Attempt %d/%d failed for execution %d", attempt, maxRetries, payload.ExecutionID)

		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				c.infra.Logger.WarningWithContextf(ctx, "[Execution Log Consumer] Shutting down, requeueing execution %d", payload.ExecutionID)
				_ = msg.Nack(false, true)
				return
			case <-time.After(time.Duration(attempt) * c.retryDelay):
			}
		}
	}

	c.infra.Logger.ErrorWithContextf(ctx, err, "[Execution Log Consumer] Failed after %d attempts, requeueing message", maxRetries)
	_ = msg.Nack(false, true)
}

// Archive writes the execution log to the logs directory and, when an
// object store is configured, uploads it
func (c *ExecutionLogConsumer) Archive(ctx context.Context, executionID uint) error {
	execution, err := c.repository.WithContext(ctx).ExecutionRepo.FindByID(executionID)
	if err != nil {
		return fmt.Errorf("failed to load execution %d: %w", executionID, err)
	}
	if !execution.Status.IsTerminal() {
		return fmt.Errorf("execution %d is %s: %w", executionID, execution.Status, ErrExecutionNotFinished)
	}

	content := RenderExecutionLog(execution)
	name := LogFileName(executionID)

	if err := os.MkdirAll(c.logsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(c.logsDir, name), []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write execution log: %w", err)
	}

	if c.store == nil {
		return nil
	}

	err = c.store.PutObjectStream(ctx, "executions/"+name, strings.NewReader(content), int64(len(content)),
		"text/plain; charset=utf-8", map[string]string{
			"execution-id": strconv.FormatUint(uint64(executionID), 10),
			"status":       string(execution.Status),
		})
	if err != nil {
		return fmt.Errorf("failed to upload execution log: %w", err)
	}
	return nil
}

func LogFileName(executionID uint) string {
	return fmt.Sprintf("execution-%d.log", executionID)
}

// RenderExecutionLog formats a finished execution as a plain-text report
func RenderExecutionLog(execution *entity.PlaybookExecution) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Execution #%d\n", execution.ID)
	fmt.Fprintf(&b, "Status: %s\n", execution.Status)
	fmt.Fprintf(&b, "Playbooks: %s\n", strings.Join(execution.Playbooks, ", "))
	fmt.Fprintf(&b, "Target nodes: %v\n", []uint(execution.TargetNodes))
	fmt.Fprintf(&b, "Target groups: %v\n", []uint(execution.TargetGroups))
	fmt.Fprintf(&b, "Started: %s\n", execution.StartedAt.UTC().Format(time.RFC3339))
	if execution.CompletedAt != nil {
		fmt.Fprintf(&b, "Completed: %s\n", execution.CompletedAt.UTC().Format(time.RFC3339))
	}

	b.WriteString("\n--- Output ---\n")
	b.WriteString(execution.Output)
	if !strings.HasSuffix(execution.Output, "\n") {
		b.WriteString("\n")
	}

	if execution.ErrorOutput != nil {
		b.WriteString("\n--- Errors ---\n")
		b.WriteString(*execution.ErrorOutput)
		if !strings.HasSuffix(*execution.ErrorOutput, "\n") {
			b.WriteString("\n")
		}
	}

	return b.String()
}
