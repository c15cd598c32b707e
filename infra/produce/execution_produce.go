package produce

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExecutionExchange            = "execution.exchange"
	ExecutionCompletedQueue      = "execution.completed"
	ExecutionCompletedRoutingKey = "execution.completed"
)

type ExecutionService struct {
	channel *amqp.Channel
}

// ExecutionCompletedMessage announces that an execution reached a terminal state
type ExecutionCompletedMessage struct {
	ExecutionID uint  `json:"execution_id"`
	Timestamp   int64 `json:"timestamp"`
}

func InitExecutionService(channel *amqp.Channel) *ExecutionService {
	service := &ExecutionService{
		channel: channel,
	}

	if err := DeclareExecutionTopology(channel); err != nil {
		panic("Failed to declare Execution topology: " + err.Error())
	}

	return service
}

// DeclareExecutionTopology declares the exchange and the completed queue.
// Both the publisher and the consumer call it, whichever starts first wins.
func DeclareExecutionTopology(channel *amqp.Channel) error {
	err := channel.ExchangeDeclare(
		ExecutionExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = channel.QueueDeclare(
		ExecutionCompletedQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	err = channel.QueueBind(
		ExecutionCompletedQueue,
		ExecutionCompletedRoutingKey,
		ExecutionExchange,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	return nil
}

func (s *ExecutionService) PublishExecutionCompleted(ctx context.Context, executionID uint) error {
	message := ExecutionCompletedMessage{
		ExecutionID: executionID,
		Timestamp:   time.Now().Unix(),
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal execution message: %w", err)
	}

	return s.channel.PublishWithContext(
		ctx,
		ExecutionExchange,
		ExecutionCompletedRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
}
