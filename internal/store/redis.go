package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis keeps each table as a JSON string under <prefix>:table:<name>
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis creates a Redis-backed Store
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(table string) string {
	return fmt.Sprintf("%s:table:%s", r.prefix, table)
}

func (r *Redis) Load(ctx context.Context, table string, dst any) (bool, error) {
	raw, err := r.client.Get(ctx, r.key(table)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", table, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", table, err)
	}
	return true, nil
}

func (r *Redis) Save(ctx context.Context, table string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", table, err)
	}
	if err := r.client.Set(ctx, r.key(table), raw, 0).Err(); err != nil {
		return fmt.Errorf("save %s: %w", table, err)
	}
	return nil
}
