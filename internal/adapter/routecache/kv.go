package routecache

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/taskgate/internal/port/cache"
)

// KV is the shared L2 cache backed by a NATS JetStream KeyValue bucket.
// Expiry is configured on the bucket, so per-entry TTLs are ignored.
type KV struct {
	kv jetstream.KeyValue
}

var _ cache.Cache = (*KV)(nil)

// NewKV wraps an existing KV bucket.
func NewKV(kv jetstream.KeyValue) *KV {
	return &KV{kv: kv}
}

func (c *KV) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	entry, err := c.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return entry.Value(), true, nil
}

func (c *KV) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	_, err := c.kv.Put(ctx, key, value)
	return err
}

func (c *KV) Delete(ctx context.Context, key string) error {
	err := c.kv.Delete(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return err
}
