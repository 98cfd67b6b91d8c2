package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/ugc-review/app/chat"
)

// HandleEventTask runs one inbound event through the workflow. It is never
// retried: failures are reported in the event's thread and the poster
// decides whether to try again.
type HandleEventTask struct {
	Task
	Event   chat.Event
	handler EventHandler
}

func NewHandleEventTask(event chat.Event, handler EventHandler) *HandleEventTask {
	task := NewTask(TaskTypeHandleEvent, event.ThreadID())
	task.MaxRetries = 0

	return &HandleEventTask{
		Task:    task,
		Event:   event,
		handler: handler,
	}
}

func (t *HandleEventTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.handler.Handle(ctx, t.Event); err != nil {
		return fmt.Errorf("failed to handle event %s: %w", t.Event.ID, err)
	}

	slog.Debug("Task completed",
		"type", "HandleEvent",
		"event_id", t.Event.ID,
		"thread_id", t.Key,
		"duration", t.GetDuration())

	return nil
}
