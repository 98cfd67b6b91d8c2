package database

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/valkey-io/valkey-go"
	"github.com/valkey-io/valkey-go/mock"
	"go.uber.org/mock/gomock"
)

func TestValkeyApprovalRepository_Upsert(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	repo := NewValkeyApprovalRepository(client)
	ctx := context.Background()

	approval := Approval{
		ThreadID:  "T1",
		PosterID:  "U1",
		ChannelID: "C1",
		Score:     intPtr(85),
		CreatedAt: time.Unix(1700000000, 0).UTC(),
	}
	data, _ := json.Marshal(approval)

	client.EXPECT().DoMulti(ctx,
		mock.Match("SET", "ugc:approval:T1", string(data)),
		mock.Match("SADD", "ugc:approvals", "T1"),
	).Return([]valkey.ValkeyResult{
		mock.Result(mock.ValkeyString("OK")),
		mock.Result(mock.ValkeyInt64(1)),
	})

	if err := repo.UpsertApproval(ctx, approval); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
}

func TestValkeyApprovalRepository_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	repo := NewValkeyApprovalRepository(client)
	ctx := context.Background()

	stored, _ := json.Marshal(Approval{ThreadID: "T1", PosterID: "U1", ChannelID: "C1", Caption: "hi"})

	client.EXPECT().Do(ctx, mock.Match("GET", "ugc:approval:T1")).Return(mock.Result(mock.ValkeyString(string(stored))))
	client.EXPECT().Do(ctx, mock.Match("GET", "ugc:approval:T2")).Return(mock.Result(mock.ValkeyNil()))

	approval, err := repo.GetApproval(ctx, "T1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if approval == nil || approval.PosterID != "U1" || approval.Caption != "hi" {
		t.Errorf("Unexpected approval: %+v", approval)
	}

	missing, err := repo.GetApproval(ctx, "T2")
	if err != nil {
		t.Fatalf("Expected no error for missing key, got %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for missing key, got %+v", missing)
	}
}

func TestValkeyApprovalRepository_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	repo := NewValkeyApprovalRepository(client)
	ctx := context.Background()

	gomock.InOrder(
		client.EXPECT().Do(ctx, mock.Match("DEL", "ugc:approval:T1")).Return(mock.Result(mock.ValkeyInt64(1))),
		client.EXPECT().Do(ctx, mock.Match("SREM", "ugc:approvals", "T1")).Return(mock.Result(mock.ValkeyInt64(1))),
		client.EXPECT().Do(ctx, mock.Match("DEL", "ugc:approval:T1")).Return(mock.Result(mock.ValkeyInt64(0))),
		client.EXPECT().Do(ctx, mock.Match("SREM", "ugc:approvals", "T1")).Return(mock.Result(mock.ValkeyInt64(0))),
	)

	removed, err := repo.DeleteApproval(ctx, "T1")
	if err != nil || !removed {
		t.Fatalf("Expected first delete to remove, got removed=%v err=%v", removed, err)
	}

	removed, err = repo.DeleteApproval(ctx, "T1")
	if err != nil || removed {
		t.Errorf("Expected second delete to report false, got removed=%v err=%v", removed, err)
	}
}

func TestValkeyApprovalRepository_ListSkipsDanglingIndex(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	repo := NewValkeyApprovalRepository(client)
	ctx := context.Background()

	stored, _ := json.Marshal(Approval{ThreadID: "T1", PosterID: "U1", ChannelID: "C1"})

	client.EXPECT().Do(ctx, mock.Match("SMEMBERS", "ugc:approvals")).Return(mock.Result(mock.ValkeyArray(
		mock.ValkeyString("T1"),
		mock.ValkeyString("T2"),
	)))
	client.EXPECT().DoMulti(ctx,
		mock.Match("GET", "ugc:approval:T1"),
		mock.Match("GET", "ugc:approval:T2"),
	).Return([]valkey.ValkeyResult{
		mock.Result(mock.ValkeyString(string(stored))),
		mock.Result(mock.ValkeyNil()),
	})

	approvals, err := repo.ListApprovals(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(approvals) != 1 || approvals[0].ThreadID != "T1" {
		t.Errorf("Expected only T1, got %+v", approvals)
	}
}

func TestValkeyApprovalRepository_PurgeComparesStoredValue(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	repo := NewValkeyApprovalRepository(client)
	ctx := context.Background()

	cutoff := time.Unix(1700000000, 0).UTC()
	old, _ := json.Marshal(Approval{ThreadID: "T1", PosterID: "U1", ChannelID: "C1", CreatedAt: cutoff.Add(-time.Hour)})
	stale, _ := json.Marshal(Approval{ThreadID: "T2", PosterID: "U2", ChannelID: "C1", CreatedAt: cutoff.Add(-2 * time.Hour)})
	fresh, _ := json.Marshal(Approval{ThreadID: "T3", PosterID: "U3", ChannelID: "C1", CreatedAt: cutoff.Add(time.Hour)})

	client.EXPECT().Do(ctx, mock.Match("SMEMBERS", "ugc:approvals")).Return(mock.Result(mock.ValkeyArray(
		mock.ValkeyString("T1"),
		mock.ValkeyString("T2"),
		mock.ValkeyString("T3"),
	)))
	client.EXPECT().DoMulti(ctx,
		mock.Match("GET", "ugc:approval:T1"),
		mock.Match("GET", "ugc:approval:T2"),
		mock.Match("GET", "ugc:approval:T3"),
	).Return([]valkey.ValkeyResult{
		mock.Result(mock.ValkeyString(string(old))),
		mock.Result(mock.ValkeyString(string(stale))),
		mock.Result(mock.ValkeyString(string(fresh))),
	})

	// T2 was re-approved after the scan, so the script finds a different value.
	client.EXPECT().Do(ctx, mock.Match("EVAL", purgeApprovalScript, "2", "ugc:approval:T1", "ugc:approvals", string(old), "T1")).
		Return(mock.Result(mock.ValkeyInt64(1)))
	client.EXPECT().Do(ctx, mock.Match("EVAL", purgeApprovalScript, "2", "ugc:approval:T2", "ugc:approvals", string(stale), "T2")).
		Return(mock.Result(mock.ValkeyInt64(0)))

	purged, err := repo.DeleteApprovalsOlderThan(ctx, cutoff)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if purged != 1 {
		t.Errorf("Expected 1 purged approval, got %d", purged)
	}
}

func TestValkeyApprovalRepository_Count(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	repo := NewValkeyApprovalRepository(client)
	ctx := context.Background()

	client.EXPECT().Do(ctx, mock.Match("SCARD", "ugc:approvals")).Return(mock.Result(mock.ValkeyInt64(3)))

	count, err := repo.GetApprovalCount(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if count != 3 {
		t.Errorf("Expected count 3, got %d", count)
	}
}
