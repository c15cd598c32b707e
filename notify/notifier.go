// Package notify tells interested parties that an execution has finished.
package notify

import "context"

const EventExecutionCompleted = "execution_completed"

// Event is the payload pushed to subscribers
type Event struct {
	Event       string `json:"event"`
	ExecutionID uint   `json:"execution_id"`
}

func CompletedEvent(executionID uint) Event {
	return Event{Event: EventExecutionCompleted, ExecutionID: executionID}
}

// Notifier receives completion signals. Implementations must not block
// for long: they are called from execution workers.
type Notifier interface {
	ExecutionCompleted(ctx context.Context, executionID uint)
}

// Notifiers fans a completion out to every wrapped notifier
type Notifiers []Notifier

func (n Notifiers) ExecutionCompleted(ctx context.Context, executionID uint) {
	for _, notifier := range n {
		if notifier != nil {
			notifier.ExecutionCompleted(ctx, executionID)
		}
	}
}
