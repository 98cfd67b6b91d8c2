package tasks

import (
	"context"
	"time"

	"github.com/lysyi3m/ugc-review/app/chat"
)

// TaskSchedulerInterface is what the HTTP layer and main need from the
// scheduler: queueing work and reporting on it.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	GetStats() Stats
}

// EventHandler processes one inbound chat event.
type EventHandler interface {
	Handle(ctx context.Context, event chat.Event) error
}

// BlobSweeper removes local video copies older than maxAge.
type BlobSweeper interface {
	Sweep(maxAge time.Duration) (int, error)
}

// ApprovalPurger removes approvals recorded before cutoff.
type ApprovalPurger interface {
	DeleteApprovalsOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
