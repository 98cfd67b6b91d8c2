package chat

import (
	"context"
	"testing"
	"time"

	"github.com/valkey-io/valkey-go/mock"
	"go.uber.org/mock/gomock"
)

func TestMemoryDeduper(t *testing.T) {
	deduper := NewMemoryDeduper(time.Minute)
	now := time.Now()
	deduper.now = func() time.Time { return now }
	ctx := context.Background()

	seen, _ := deduper.Seen(ctx, "Ev1")
	if seen {
		t.Error("Expected first delivery to be new")
	}

	seen, _ = deduper.Seen(ctx, "Ev1")
	if !seen {
		t.Error("Expected redelivery to be seen")
	}

	seen, _ = deduper.Seen(ctx, "Ev2")
	if seen {
		t.Error("Expected other event to be new")
	}

	now = now.Add(2 * time.Minute)
	seen, _ = deduper.Seen(ctx, "Ev1")
	if seen {
		t.Error("Expected event to be forgotten after ttl")
	}
	if len(deduper.seen) != 1 {
		t.Errorf("Expected expired entries to be pruned, got %d", len(deduper.seen))
	}

	if err := deduper.Forget(ctx, "Ev1"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if seen, _ = deduper.Seen(ctx, "Ev1"); seen {
		t.Error("Expected forgotten event to be new again")
	}
}

func TestValkeyDeduper(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	deduper := NewValkeyDeduper(client, 10*time.Minute)
	ctx := context.Background()

	gomock.InOrder(
		client.EXPECT().Do(ctx, mock.Match("SET", "ugc:event:Ev1", "1", "NX", "EX", "600")).Return(mock.Result(mock.ValkeyString("OK"))),
		client.EXPECT().Do(ctx, mock.Match("SET", "ugc:event:Ev1", "1", "NX", "EX", "600")).Return(mock.Result(mock.ValkeyNil())),
		client.EXPECT().Do(ctx, mock.Match("DEL", "ugc:event:Ev1")).Return(mock.Result(mock.ValkeyInt64(1))),
	)

	seen, err := deduper.Seen(ctx, "Ev1")
	if err != nil || seen {
		t.Fatalf("Expected new event, got seen=%v err=%v", seen, err)
	}

	seen, err = deduper.Seen(ctx, "Ev1")
	if err != nil || !seen {
		t.Errorf("Expected duplicate event, got seen=%v err=%v", seen, err)
	}

	if err := deduper.Forget(ctx, "Ev1"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}
