package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-monolith/mono/pkg/storage"
	kvjetstream "github.com/go-monolith/mono/plugin/kv-jetstream"
)

// Backend is the string-keyed durable store snapshots live in.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// KVBackend stores snapshots in a kv-jetstream bucket.
type KVBackend struct {
	bucket kvjetstream.KVStoragePort
}

// NewKVBackend wraps a kv-jetstream bucket.
func NewKVBackend(bucket kvjetstream.KVStoragePort) *KVBackend {
	return &KVBackend{bucket: bucket}
}

func (b *KVBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := b.bucket.Get(key)
	if err != nil {
		if errors.Is(err, kvjetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("kv get %s: %w", key, err)
	}
	return data, true, nil
}

func (b *KVBackend) Set(_ context.Context, key string, data []byte) error {
	// Zero TTL defers to the bucket's configured expiry.
	if err := b.bucket.Set(key, data, 0); err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}

func (b *KVBackend) Delete(_ context.Context, key string) error {
	if err := b.bucket.Delete(key); err != nil && !errors.Is(err, kvjetstream.ErrKeyNotFound) {
		return fmt.Errorf("kv delete %s: %w", key, err)
	}
	return nil
}

// StorageBackend stores snapshots in a mono storage.Storage such as the Redis plugin.
type StorageBackend struct {
	storage storage.Storage
}

// NewStorageBackend wraps a storage.Storage.
func NewStorageBackend(s storage.Storage) *StorageBackend {
	return &StorageBackend{storage: s}
}

func (b *StorageBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := b.storage.GetWithContext(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("storage get %s: %w", key, err)
	}
	// Storage implementations signal a miss with empty data.
	if len(data) == 0 {
		return nil, false, nil
	}
	return data, true, nil
}

func (b *StorageBackend) Set(ctx context.Context, key string, data []byte) error {
	if err := b.storage.SetWithContext(ctx, key, data, 0); err != nil {
		return fmt.Errorf("storage set %s: %w", key, err)
	}
	return nil
}

func (b *StorageBackend) Delete(ctx context.Context, key string) error {
	if err := b.storage.DeleteWithContext(ctx, key); err != nil {
		return fmt.Errorf("storage delete %s: %w", key, err)
	}
	return nil
}

// MemoryBackend keeps snapshots in process memory.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true, nil
}

func (b *MemoryBackend) Set(_ context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	b.data[key] = buf
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
	return nil
}

// Len reports how many snapshots are held.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}
