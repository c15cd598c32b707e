package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tnqbao/gau-playbook-orchestrator/infra"
)

// RedisRelay spreads completion events across replicas. Publishing goes to
// a Redis channel; Run forwards everything received on it to the local hub.
type RedisRelay struct {
	redis   *infra.RedisClient
	channel string
	hub     *Hub
	logger  *infra.LoggerClient
}

func NewRedisRelay(client *infra.RedisClient, channel string, hub *Hub, logger *infra.LoggerClient) *RedisRelay {
	return &RedisRelay{
		redis:   client,
		channel: channel,
		hub:     hub,
		logger:  logger,
	}
}

// ExecutionCompleted publishes the event. If Redis is unreachable the event
// is still delivered to this replica's clients.
func (r *RedisRelay) ExecutionCompleted(ctx context.Context, executionID uint) {
	ev := CompletedEvent(executionID)
	if err := r.redis.PublishJSON(ctx, r.channel, ev); err != nil {
		r.logger.ErrorWithContextf(ctx, err, "[RedisRelay] Failed to publish execution %d, delivering locally", executionID)
		r.hub.Broadcast(ev)
	}
}

// Run subscribes to the channel until ctx is done
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.redis.Client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}
	r.logger.InfoWithContextf(ctx, "[RedisRelay] Subscribed to %s", r.channel)

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.forward(ctx, msg.Payload)
		}
	}
}

func (r *RedisRelay) forward(ctx context.Context, payload string) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		r.logger.WarningWithContextf(ctx, "[RedisRelay] Dropping malformed event: %v", err)
		return
	}
	if ev.Event != EventExecutionCompleted || ev.ExecutionID == 0 {
		r.logger.WarningWithContextf(ctx, "[RedisRelay] Dropping unexpected event %q", ev.Event)
		return
	}
	r.hub.Broadcast(ev)
}
