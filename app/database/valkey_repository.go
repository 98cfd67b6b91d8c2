package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

const (
	valkeyApprovalPrefix = "ugc:approval:"
	valkeyApprovalIndex  = "ugc:approvals"
)

var _ ApprovalRepository = (*ValkeyApprovalRepository)(nil)

// ValkeyApprovalRepository keeps one JSON value per thread plus an index set
// of thread ids for scans.
type ValkeyApprovalRepository struct {
	client valkey.Client
}

func NewValkeyApprovalRepository(client valkey.Client) *ValkeyApprovalRepository {
	return &ValkeyApprovalRepository{client: client}
}

func approvalKey(threadID string) string {
	return valkeyApprovalPrefix + threadID
}

func (r *ValkeyApprovalRepository) UpsertApproval(ctx context.Context, approval Approval) error {
	if approval.ThreadID == "" {
		return fmt.Errorf("approval thread id is required")
	}
	if approval.CreatedAt.IsZero() {
		approval.CreatedAt = time.Now()
	}

	data, err := json.Marshal(approval)
	if err != nil {
		return fmt.Errorf("failed to encode approval: %w", err)
	}

	results := r.client.DoMulti(ctx,
		r.client.B().Set().Key(approvalKey(approval.ThreadID)).Value(string(data)).Build(),
		r.client.B().Sadd().Key(valkeyApprovalIndex).Member(approval.ThreadID).Build(),
	)
	for _, result := range results {
		if err := result.Error(); err != nil {
			return fmt.Errorf("failed to upsert approval: %w", err)
		}
	}

	return nil
}

func (r *ValkeyApprovalRepository) GetApproval(ctx context.Context, threadID string) (*Approval, error) {
	data, err := r.client.Do(ctx, r.client.B().Get().Key(approvalKey(threadID)).Build()).ToString()
	if valkey.IsValkeyNil(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get approval: %w", err)
	}

	var approval Approval
	if err := json.Unmarshal([]byte(data), &approval); err != nil {
		return nil, fmt.Errorf("failed to decode approval %s: %w", threadID, err)
	}

	return &approval, nil
}

func (r *ValkeyApprovalRepository) DeleteApproval(ctx context.Context, threadID string) (bool, error) {
	removed, err := r.client.Do(ctx, r.client.B().Del().Key(approvalKey(threadID)).Build()).AsInt64()
	if err != nil {
		return false, fmt.Errorf("failed to delete approval: %w", err)
	}

	if err := r.client.Do(ctx, r.client.B().Srem().Key(valkeyApprovalIndex).Member(threadID).Build()).Error(); err != nil {
		return removed > 0, fmt.Errorf("failed to update approval index: %w", err)
	}

	return removed > 0, nil
}

// purgeApprovalScript deletes the record only while it still holds the value
// read by the purge, so a thread re-approved in between keeps its new record.
const purgeApprovalScript = `if redis.call('GET', KEYS[1]) == ARGV[1] then
  redis.call('SREM', KEYS[2], ARGV[2])
  return redis.call('DEL', KEYS[1])
end
return 0`

type storedApproval struct {
	raw      string
	approval Approval
}

func (r *ValkeyApprovalRepository) listStored(ctx context.Context) ([]storedApproval, error) {
	threadIDs, err := r.client.Do(ctx, r.client.B().Smembers().Key(valkeyApprovalIndex).Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to list approval index: %w", err)
	}
	if len(threadIDs) == 0 {
		return nil, nil
	}

	cmds := make([]valkey.Completed, 0, len(threadIDs))
	for _, threadID := range threadIDs {
		cmds = append(cmds, r.client.B().Get().Key(approvalKey(threadID)).Build())
	}

	var stored []storedApproval
	for i, result := range r.client.DoMulti(ctx, cmds...) {
		data, err := result.ToString()
		if valkey.IsValkeyNil(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get approval %s: %w", threadIDs[i], err)
		}

		var approval Approval
		if err := json.Unmarshal([]byte(data), &approval); err != nil {
			return nil, fmt.Errorf("failed to decode approval %s: %w", threadIDs[i], err)
		}
		stored = append(stored, storedApproval{raw: data, approval: approval})
	}

	return stored, nil
}

func (r *ValkeyApprovalRepository) ListApprovals(ctx context.Context) ([]Approval, error) {
	stored, err := r.listStored(ctx)
	if err != nil {
		return nil, err
	}

	var approvals []Approval
	for _, s := range stored {
		approvals = append(approvals, s.approval)
	}

	return approvals, nil
}

func (r *ValkeyApprovalRepository) DeleteApprovalsOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	stored, err := r.listStored(ctx)
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, s := range stored {
		if !s.approval.CreatedAt.Before(cutoff) {
			continue
		}

		threadID := s.approval.ThreadID
		removed, err := r.client.Do(ctx, r.client.B().Eval().Script(purgeApprovalScript).Numkeys(2).
			Key(approvalKey(threadID), valkeyApprovalIndex).
			Arg(s.raw, threadID).Build()).AsInt64()
		if err != nil {
			return purged, fmt.Errorf("failed to purge approval %s: %w", threadID, err)
		}
		if removed > 0 {
			purged++
		}
	}

	return purged, nil
}

func (r *ValkeyApprovalRepository) GetApprovalCount(ctx context.Context) (int, error) {
	count, err := r.client.Do(ctx, r.client.B().Scard().Key(valkeyApprovalIndex).Build()).AsInt64()
	if err != nil {
		return 0, fmt.Errorf("failed to count approvals: %w", err)
	}
	return int(count), nil
}

func (r *ValkeyApprovalRepository) Close() error {
	r.client.Close()
	return nil
}
