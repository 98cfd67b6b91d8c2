package database

import (
	"context"
	"time"
)

// ApprovalRepository is the durable map from thread id to pending approval.
// Get returns nil, nil when no record exists for the thread.
type ApprovalRepository interface {
	UpsertApproval(ctx context.Context, approval Approval) error
	GetApproval(ctx context.Context, threadID string) (*Approval, error)
	// DeleteApproval reports whether a record was removed. Of several
	// concurrent deletes for one thread, only one observes true.
	DeleteApproval(ctx context.Context, threadID string) (bool, error)
	ListApprovals(ctx context.Context) ([]Approval, error)
	DeleteApprovalsOlderThan(ctx context.Context, cutoff time.Time) (int, error)
	GetApprovalCount(ctx context.Context) (int, error)
	Close() error
}
