package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Satokaheni/mythic-plus-bot/internal/domain"
)

// RedisSnapshotStore keeps the snapshot under a single key. SET replaces the
// value atomically.
type RedisSnapshotStore struct {
	client *redis.Client
	key    string
}

func NewRedisSnapshotStore(client *redis.Client, key string) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client, key: key}
}

func (s *RedisSnapshotStore) Load(ctx context.Context) (domain.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.EmptySnapshot(), nil
		}
		return domain.EmptySnapshot(), fmt.Errorf("%w: get %s: %v", domain.ErrPersistence, s.key, err)
	}
	return decode(data)
}

func (s *RedisSnapshotStore) Save(ctx context.Context, snap domain.Snapshot) error {
	data, err := encode(snap)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", domain.ErrPersistence, s.key, err)
	}
	return nil
}
