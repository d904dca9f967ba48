package redis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/redis/go-redis/v9"
)

// BlobStore keeps image bytes in Redis string keys with no expiry:
// SET blob:{key} {bytes}.
type BlobStore struct {
	client *redis.Client
}

func NewBlobStore(client *redis.Client) *BlobStore {
	return &BlobStore{client: client}
}

func (b *BlobStore) Put(ctx context.Context, key string, content io.Reader) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return fmt.Errorf("read blob %s: %w", key, err)
	}
	return b.client.Set(ctx, b.key(key), data, 0).Err()
}

func (b *BlobStore) Delete(ctx context.Context, key string) error {
	return b.client.Del(ctx, b.key(key)).Err()
}

func (b *BlobStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	data, err := b.client.Get(ctx, b.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("blob %s: %w", key, os.ErrNotExist)
		}
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *BlobStore) key(key string) string {
	return "blob:" + key
}
