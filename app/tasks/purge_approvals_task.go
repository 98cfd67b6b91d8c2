package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// PurgeApprovalsTask removes approvals whose posters never replied with
// links within MaxAge.
type PurgeApprovalsTask struct {
	Task
	MaxAge    time.Duration
	approvals ApprovalPurger
	now       func() time.Time
}

func NewPurgeApprovalsTask(approvals ApprovalPurger, maxAge time.Duration) *PurgeApprovalsTask {
	return &PurgeApprovalsTask{
		Task:      NewTask(TaskTypePurgeApprovals, "approvals"),
		MaxAge:    maxAge,
		approvals: approvals,
		now:       time.Now,
	}
}

func (t *PurgeApprovalsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	cutoff := t.now().Add(-t.MaxAge)

	removed, err := t.approvals.DeleteApprovalsOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to purge approvals: %w", err)
	}

	slog.Info("Task completed",
		"type", "PurgeApprovals",
		"removed", removed,
		"cutoff", cutoff.Format(time.RFC3339),
		"duration", t.GetDuration())

	return nil
}
