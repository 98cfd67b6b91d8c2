package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"
)

const dedupeKeyPrefix = "ugc:event:"

// Deduper remembers delivered event ids so redeliveries are dropped.
// Seen marks id as delivered and reports whether it already was. Forget
// clears the mark for an event that could not be accepted, so its
// redelivery is processed.
type Deduper interface {
	Seen(ctx context.Context, id string) (bool, error)
	Forget(ctx context.Context, id string) error
}

var (
	_ Deduper = (*MemoryDeduper)(nil)
	_ Deduper = (*ValkeyDeduper)(nil)
)

type MemoryDeduper struct {
	ttl  time.Duration
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	return &MemoryDeduper{
		ttl:  ttl,
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (d *MemoryDeduper) Seen(ctx context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for key, expires := range d.seen {
		if now.After(expires) {
			delete(d.seen, key)
		}
	}

	if _, ok := d.seen[id]; ok {
		return true, nil
	}
	d.seen[id] = now.Add(d.ttl)
	return false, nil
}

func (d *MemoryDeduper) Forget(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.seen, id)
	return nil
}

// ValkeyDeduper shares the seen set across instances with SET NX EX.
type ValkeyDeduper struct {
	client valkey.Client
	ttl    time.Duration
}

func NewValkeyDeduper(client valkey.Client, ttl time.Duration) *ValkeyDeduper {
	return &ValkeyDeduper{client: client, ttl: ttl}
}

func (d *ValkeyDeduper) Seen(ctx context.Context, id string) (bool, error) {
	cmd := d.client.B().Set().Key(dedupeKeyPrefix + id).Value("1").Nx().ExSeconds(int64(d.ttl.Seconds())).Build()

	err := d.client.Do(ctx, cmd).Error()
	if valkey.IsValkeyNil(err) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to record event %s: %w", id, err)
	}
	return false, nil
}

func (d *ValkeyDeduper) Forget(ctx context.Context, id string) error {
	if err := d.client.Do(ctx, d.client.B().Del().Key(dedupeKeyPrefix+id).Build()).Error(); err != nil {
		return fmt.Errorf("failed to forget event %s: %w", id, err)
	}
	return nil
}
