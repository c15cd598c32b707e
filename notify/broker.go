package notify

import (
	"context"

	"github.com/tnqbao/gau-playbook-orchestrator/infra"
)

// CompletionPublisher is satisfied by produce.ExecutionService
type CompletionPublisher interface {
	PublishExecutionCompleted(ctx context.Context, executionID uint) error
}

// BrokerNotifier hands completions to RabbitMQ for downstream consumers
type BrokerNotifier struct {
	publisher CompletionPublisher
	logger    *infra.LoggerClient
}

func NewBrokerNotifier(publisher CompletionPublisher, logger *infra.LoggerClient) *BrokerNotifier {
	return &BrokerNotifier{publisher: publisher, logger: logger}
}

func (b *BrokerNotifier) ExecutionCompleted(ctx context.Context, executionID uint) {
	if err := b.publisher.PublishExecutionCompleted(ctx, executionID); err != nil {
		b.logger.ErrorWithContextf(ctx, err, "[Broker] Failed to publish completion of execution %d", executionID)
		return
	}
	b.logger.DebugWithContextf(ctx, "[Broker] Published completion of execution %d", executionID)
}
